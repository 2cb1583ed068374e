package biz

import (
	"github.com/yola1107/kratos/v2/errors"
)

var (
	// ErrSessionTimeout is raised when the authority rejects the session.
	ErrSessionTimeout = errors.Unauthorized("SESSION_TIMEOUT", "session expired, please log in again")
	// ErrMalformedPlan marks authoritative data that cannot be replayed.
	ErrMalformedPlan = errors.InternalServer("MALFORMED_PLAN", "authoritative spin plan is malformed")
	// ErrInvalidBet rejects non-positive bets before the backend sees them.
	ErrInvalidBet = errors.BadRequest("INVALID_BET", "bet must be positive")
)

// isSessionError reports backend responses that end the session.
func isSessionError(err error) bool {
	return errors.IsUnauthorized(err) || errors.IsBadRequest(err)
}
