package biz

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/log"
)

// Rejection reasons of a spin request.
const (
	RejectSpinning  = "spinning"
	RejectInterval  = "min_interval"
	RejectLockout   = "lockout"
	RejectFreeSpins = "api_free_spins"
	RejectSession   = "no_session"
	RejectOverlay   = "overlay_active"
)

// Backend is the authority computing every outcome.
type Backend interface {
	Spin(ctx context.Context, bet decimal.Decimal, buyFeature, enhancedBet bool) (*SpinOutcome, error)
	Balance(ctx context.Context) (decimal.Decimal, error)
}

// SessionRepo gates spins on the stored session token.
type SessionRepo interface {
	Permitted(ctx context.Context) (bool, error)
	Save(ctx context.Context, token string, ttl time.Duration) error
}

// SpinRecord is one journal row.
type SpinRecord struct {
	ID         string          `json:"id"`
	Bet        decimal.Decimal `json:"bet"`
	BuyFeature bool            `json:"buy_feature"`
	Enhanced   bool            `json:"enhanced_bet"`
	Bonus      bool            `json:"bonus"`
	TotalWin   decimal.Decimal `json:"total_win"`
	Credited   decimal.Decimal `json:"credited"`
	Multiplier int             `json:"multiplier"`
	Tumbles    int             `json:"tumbles"`
	FreeSpins  int             `json:"free_spins"`
	Balance    decimal.Decimal `json:"balance"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// JournalRepo persists replayed spins.
type JournalRepo interface {
	Save(ctx context.Context, r *SpinRecord) error
	Recent(ctx context.Context, limit int) ([]*SpinRecord, error)
}

// session guards the SessionState owned by SpinUsecase.
type session struct {
	mu sync.RWMutex
	st SessionState
}

func (s *session) update(fn func(*SessionState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.st)
}

func (s *session) snapshot() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.st
	st.APIFreeSpinList = append([]FreeSpinEntry(nil), s.st.APIFreeSpinList...)
	return st
}

// SpinUsecase orchestrates one spin from the backend request to the last overlay.
type SpinUsecase struct {
	rules    *Rules
	backend  Backend
	sessions SessionRepo
	journal  JournalRepo
	overlay  *OverlayQueue
	bus      *Bus
	cues     Cues
	rp       *Replayer
	bonus    *BonusMachine
	freeSpin *FreeSpinPlayer
	log      *log.Helper

	spinning atomic.Bool
	sess     *session
	auto     autoplay
}

func NewSpinUsecase(rules *Rules, backend Backend, sessions SessionRepo, journal JournalRepo, board *Board, anim Animator, cues Cues,
	match *MatchResolver, cascade *CascadeEngine, hazard *HazardResolver, overlay *OverlayQueue, bus *Bus, logger log.Logger) *SpinUsecase {
	sess := &session{st: SessionState{
		Bet:              decimal.Zero,
		TotalWinThisSpin: decimal.Zero,
		TotalBonusWin:    decimal.Zero,
		Balance:          decimal.Zero,
	}}
	rp := newReplayer(rules, board, anim, match, cascade, hazard, bus, logger)
	bonus := newBonusMachine(rules, sess, overlay, bus, anim, cues, logger)
	return &SpinUsecase{
		rules:    rules,
		backend:  backend,
		sessions: sessions,
		journal:  journal,
		overlay:  overlay,
		bus:      bus,
		cues:     cues,
		rp:       rp,
		bonus:    bonus,
		freeSpin: newFreeSpinPlayer(rp, bonus, overlay, sess, bus, logger),
		log:      log.NewHelper(log.With(logger, "module", "biz/spin")),
		sess:     sess,
	}
}

// Snapshot returns a copy of the session state.
func (uc *SpinUsecase) Snapshot() SessionState { return uc.sess.snapshot() }

func (uc *SpinUsecase) Bonus() *BonusMachine { return uc.bonus }

func (uc *SpinUsecase) Overlay() *OverlayQueue { return uc.overlay }

// Spin runs one spin to completion. A rejected request returns false and a nil error;
// it changes nothing.
func (uc *SpinUsecase) Spin(ctx context.Context, req SpinRequest) (bool, error) {
	if !req.Bet.IsPositive() {
		return false, ErrInvalidBet
	}
	if reason := uc.acquire(ctx, true); reason != "" {
		return false, nil
	}
	defer uc.release()
	return true, uc.run(ctx, req)
}

// Start acquires the gate and runs the spin in the background.
func (uc *SpinUsecase) Start(req SpinRequest) (bool, error) {
	if !req.Bet.IsPositive() {
		return false, ErrInvalidBet
	}
	ctx := context.Background()
	if reason := uc.acquire(ctx, true); reason != "" {
		return false, nil
	}
	go func() {
		defer uc.release()
		_ = uc.run(ctx, req)
	}()
	return true, nil
}

// acquire takes the spinning gate or returns why it could not.
func (uc *SpinUsecase) acquire(ctx context.Context, manual bool) string {
	if !uc.spinning.CompareAndSwap(false, true) {
		return uc.reject(RejectSpinning)
	}
	now := time.Now()
	st := uc.sess.snapshot()
	reason := ""
	switch {
	case st.UsesAPIFreeSpins:
		reason = RejectFreeSpins
	case uc.overlay.Busy():
		reason = RejectOverlay
	case !st.LastSpinAt.IsZero() && now.Sub(st.LastSpinAt) < uc.rules.Delays.MinSpinInterval:
		reason = RejectInterval
	case manual && now.Before(st.LockoutUntil):
		reason = RejectLockout
	default:
		ok, err := uc.sessions.Permitted(ctx)
		if err != nil {
			uc.log.Warnf("session check failed: %v", err)
		}
		if !ok {
			reason = RejectSession
		}
	}
	if reason != "" {
		uc.spinning.Store(false)
		return uc.reject(reason)
	}
	uc.sess.update(func(s *SessionState) {
		s.IsSpinning = true
		s.LastSpinAt = now
	})
	uc.bus.Publish(Event{Kind: EventSpinStart})
	return ""
}

func (uc *SpinUsecase) reject(reason string) string {
	spinRejected.WithLabelValues(reason).Inc()
	uc.log.Infof("spin rejected: %s", reason)
	return reason
}

func (uc *SpinUsecase) release() {
	uc.sess.update(func(s *SessionState) { s.IsSpinning = false })
	uc.spinning.Store(false)
	uc.bus.Publish(Event{Kind: EventSpinEnd})
}

func (uc *SpinUsecase) run(ctx context.Context, req SpinRequest) error {
	rec := &SpinRecord{
		ID:         uuid.NewString(),
		Bet:        req.Bet,
		BuyFeature: req.BuyFeature,
		Enhanced:   req.EnhancedBet,
		TotalWin:   decimal.Zero,
		Credited:   decimal.Zero,
		Balance:    decimal.Zero,
		CreatedAt:  time.Now(),
	}
	prev := uc.sess.snapshot()
	err := uc.pipeline(ctx, req, rec)
	if err != nil {
		uc.fail(ctx, rec, prev, err)
		spinsTotal.WithLabelValues("error").Inc()
	} else {
		spinsTotal.WithLabelValues("ok").Inc()
	}
	if jerr := uc.journal.Save(ctx, rec); jerr != nil {
		uc.log.Errorf("journal spin %s: %v", rec.ID, jerr)
	}
	return err
}

func (uc *SpinUsecase) pipeline(ctx context.Context, req SpinRequest, rec *SpinRecord) error {
	inBonus := uc.bonus.InBonus()
	rec.Bonus = inBonus
	uc.sess.update(func(s *SessionState) {
		s.Bet = req.Bet
		s.TotalWinThisSpin = decimal.Zero
	})

	out, err := uc.backend.Spin(ctx, req.Bet, req.BuyFeature, req.EnhancedBet)
	if err != nil {
		if isSessionError(err) {
			return errors.Join(ErrSessionTimeout, err)
		}
		return err
	}
	if out.ID != "" {
		rec.ID = out.ID
	}
	rec.TotalWin = out.TotalWin
	rec.FreeSpins = len(out.FreeSpins)
	if err := ValidatePlan(out); err != nil {
		return err
	}
	if inBonus {
		uc.sess.update(func(s *SessionState) {
			if s.FreeSpinsRemaining > 0 {
				s.FreeSpinsRemaining--
			}
		})
	}

	res, err := uc.rp.Replay(ctx, rec.ID, out.Grid, out.Tumbles, req.Bet, inBonus)
	if err != nil {
		return err
	}
	rec.Tumbles = res.Steps
	rec.Multiplier = res.Multiplier

	if _, err := uc.bonus.CheckScatter(ctx, res.Grid); err != nil {
		return err
	}
	uc.overlay.Enqueue(res.Credited, req.Bet)
	uc.sess.update(func(s *SessionState) {
		s.TotalWinThisSpin = res.Credited
		if inBonus {
			s.TotalBonusWin = s.TotalBonusWin.Add(res.Credited)
		}
	})
	if err := uc.overlay.WaitIdle(ctx); err != nil {
		return err
	}

	if len(out.FreeSpins) > 0 {
		if !uc.bonus.InBonus() {
			uc.log.Warnf("spin %s bundles %d free spins without a trigger", rec.ID, len(out.FreeSpins))
			if err := uc.bonus.Trigger(ctx, nil); err != nil {
				return err
			}
		}
		if err := uc.overlay.WaitIdle(ctx); err != nil {
			return err
		}
		if _, err := uc.freeSpin.Play(ctx, rec.ID, out.FreeSpins, req.Bet); err != nil {
			return err
		}
	}

	st := uc.sess.snapshot()
	rec.Credited = st.TotalWinThisSpin
	if uc.bonus.InBonus() && st.FreeSpinsRemaining == 0 {
		if err := uc.bonus.Finish(ctx); err != nil {
			return err
		}
		if err := uc.overlay.WaitIdle(ctx); err != nil {
			return err
		}
	}

	uc.refreshBalance(ctx, rec)
	return nil
}

// fail is the only forced reset: the bonus state goes back to prev and no partial
// win survives an aborted spin.
func (uc *SpinUsecase) fail(ctx context.Context, rec *SpinRecord, prev SessionState, err error) {
	rec.Error = err.Error()
	rec.Credited = decimal.Zero
	uc.sess.update(func(s *SessionState) {
		s.TotalWinThisSpin = decimal.Zero
		s.TotalBonusWin = prev.TotalBonusWin
		s.FreeSpinsRemaining = prev.FreeSpinsRemaining
		s.IsBonusRound = prev.IsBonusRound
		s.UsesAPIFreeSpins = false
		s.APIFreeSpinList = nil
		s.APIFreeSpinIndex = 0
	})
	uc.bonus.Rollback(prev.IsBonusRound)
	if errors.Is(err, ErrSessionTimeout) {
		uc.log.Warnf("spin %s: session timeout: %v", rec.ID, err)
		uc.bus.Publish(Event{Kind: EventSessionTimeout, SpinID: rec.ID, Reason: err.Error()})
		return
	}
	uc.log.Errorf("spin %s abandoned: %v", rec.ID, err)
	uc.bus.Publish(Event{Kind: EventSpinError, SpinID: rec.ID, Reason: err.Error()})
}

func (uc *SpinUsecase) refreshBalance(ctx context.Context, rec *SpinRecord) {
	bal, err := uc.backend.Balance(ctx)
	if err != nil {
		uc.log.Warnf("balance after spin %s: %v", rec.ID, err)
		return
	}
	rec.Balance = bal
	uc.sess.update(func(s *SessionState) { s.Balance = bal })
	uc.bus.Publish(Event{Kind: EventBalanceUpdate, SpinID: rec.ID, Balance: bal})
}

// Balance reads the balance without spinning.
func (uc *SpinUsecase) Balance(ctx context.Context) (decimal.Decimal, error) {
	bal, err := uc.backend.Balance(ctx)
	if err != nil {
		if isSessionError(err) {
			return decimal.Zero, errors.Join(ErrSessionTimeout, err)
		}
		return decimal.Zero, err
	}
	uc.sess.update(func(s *SessionState) { s.Balance = bal })
	return bal, nil
}

// Login stores the session token that gates spins.
func (uc *SpinUsecase) Login(ctx context.Context, token string, ttl time.Duration) error {
	return uc.sessions.Save(ctx, token, ttl)
}

// History returns the latest journaled spins, newest first.
func (uc *SpinUsecase) History(ctx context.Context, limit int) ([]*SpinRecord, error) {
	return uc.journal.Recent(ctx, limit)
}

// DismissOverlay forwards player input to the overlay queue.
func (uc *SpinUsecase) DismissOverlay() bool { return uc.overlay.Dismiss() }
