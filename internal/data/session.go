package data

import (
	"context"
	"errors"
	"time"

	"bonanza/internal/biz"
	"bonanza/internal/conf"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"github.com/yola1107/kratos/v2/log"
)

const _defaultTokenKey = "bonanza:session:token"

var sessionSet = wire.Bind(new(biz.SessionRepo), new(*SessionStore))

// SessionStore keeps the player's session token in redis.
type SessionStore struct {
	rdb redis.UniversalClient
	key string
	now func() time.Time
	log *log.Helper
}

func NewSessionRepo(c *conf.Data, d *Data, logger log.Logger) *SessionStore {
	key := _defaultTokenKey
	if c.Redis != nil && c.Redis.TokenKey != "" {
		key = c.Redis.TokenKey
	}
	return &SessionStore{
		rdb: d.rdb,
		key: key,
		now: time.Now,
		log: log.NewHelper(log.With(logger, "module", "data/session")),
	}
}

// Token returns the stored token, empty when there is none.
func (s *SessionStore) Token(ctx context.Context) (string, error) {
	if s.rdb == nil {
		return "", nil
	}
	tok, err := s.rdb.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return tok, err
}

// Save stores a token. A JWT expires with its exp claim, anything else after ttl.
func (s *SessionStore) Save(ctx context.Context, token string, ttl time.Duration) error {
	if s.rdb == nil {
		return nil
	}
	if exp, ok := expiry(token); ok {
		ttl = exp.Sub(s.now())
	}
	if ttl < 0 {
		ttl = 0
	}
	return s.rdb.Set(ctx, s.key, token, ttl).Err()
}

func (s *SessionStore) Clear(ctx context.Context) error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Del(ctx, s.key).Err()
}

// Permitted reports whether a spin may start. Without redis the gate is open.
// Signatures are the authority's concern; only the exp claim is read here.
func (s *SessionStore) Permitted(ctx context.Context) (bool, error) {
	if s.rdb == nil {
		return true, nil
	}
	tok, err := s.Token(ctx)
	if err != nil {
		return false, err
	}
	if tok == "" {
		return false, nil
	}
	if exp, ok := expiry(tok); ok && !exp.After(s.now()) {
		s.log.WithContext(ctx).Infof("session token expired at %s", exp.Format(time.RFC3339))
		return false, nil
	}
	return true, nil
}

// expiry reads the exp claim of an unverified JWT.
func expiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
