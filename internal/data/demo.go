package data

import (
	"context"
	"sync"
	"time"

	"bonanza/internal/biz"
	"bonanza/internal/conf"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/errors"
	"github.com/yola1107/kratos/v2/log"
)

const (
	_demoBalance          = 10000
	_demoEnhancedBetRatio = 1.25
	_demoBuyFeatureRatio  = 100
)

// ErrInsufficientBalance is returned by the demo wallet.
var ErrInsufficientBalance = errors.Forbidden("INSUFFICIENT_BALANCE", "balance too low for this bet")

// DemoBackend is an offline authority with an in-memory wallet.
type DemoBackend struct {
	mu       sync.Mutex
	planner  *biz.Planner
	balance  decimal.Decimal
	enhanced decimal.Decimal
	buy      decimal.Decimal
	log      *log.Helper
}

func NewDemoBackend(c *conf.Data_Backend, g *conf.Game, rules *biz.Rules, logger log.Logger) *DemoBackend {
	seed := uint64(time.Now().UnixNano())
	if c != nil && c.Seed != 0 {
		seed = c.Seed
	}
	enhanced, buy := _demoEnhancedBetRatio, float64(_demoBuyFeatureRatio)
	if g != nil && g.EnhancedBetRatio > 0 {
		enhanced = g.EnhancedBetRatio
	}
	if g != nil && g.BuyFeatureRatio > 0 {
		buy = g.BuyFeatureRatio
	}
	b := &DemoBackend{
		planner:  biz.NewPlanner(rules, biz.NewSeededPaytable(seed)),
		balance:  decimal.NewFromInt(_demoBalance),
		enhanced: decimal.NewFromFloat(enhanced),
		buy:      decimal.NewFromFloat(buy),
		log:      log.NewHelper(log.With(logger, "module", "data/demo")),
	}
	b.log.Infof("demo backend ready, seed=%d balance=%s", seed, b.balance)
	return b
}

// Cost is what a request debits from the wallet.
func (b *DemoBackend) Cost(bet decimal.Decimal, buyFeature, enhancedBet bool) decimal.Decimal {
	switch {
	case buyFeature:
		return bet.Mul(b.buy)
	case enhancedBet:
		return bet.Mul(b.enhanced)
	default:
		return bet
	}
}

func (b *DemoBackend) Spin(ctx context.Context, bet decimal.Decimal, buyFeature, enhancedBet bool) (*biz.SpinOutcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cost := b.Cost(bet, buyFeature, enhancedBet)
	if b.balance.LessThan(cost) {
		return nil, ErrInsufficientBalance
	}
	out, credited := b.planner.Plan(uuid.NewString(), bet, buyFeature, enhancedBet)
	b.balance = b.balance.Sub(cost).Add(credited)
	b.log.WithContext(ctx).Debugf("spin %s: cost=%s credited=%s free_spins=%d", out.ID, cost, credited, len(out.FreeSpins))
	return out, nil
}

func (b *DemoBackend) Balance(context.Context) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balance, nil
}
