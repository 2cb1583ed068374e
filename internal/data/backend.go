package data

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"bonanza/internal/biz"
	"bonanza/internal/conf"

	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/log"
	"github.com/yola1107/kratos/v2/middleware"
	"github.com/yola1107/kratos/v2/middleware/recovery"
	"github.com/yola1107/kratos/v2/transport"
	"github.com/yola1107/kratos/v2/transport/http"
)

const (
	_spinPath    = "/v1/game/spin"
	_balancePath = "/v1/game/balance"
)

// NewBackend returns the remote authority client, or the offline demo backend when
// no endpoint is configured.
func NewBackend(c *conf.Data, g *conf.Game, tokens *SessionStore, rules *biz.Rules, logger log.Logger) (biz.Backend, func(), error) {
	if c.Backend == nil || c.Backend.Endpoint == "" {
		rules.DemoMode = true
		demo := NewDemoBackend(c.Backend, g, rules, logger)
		return demo, func() {}, nil
	}
	opts := []http.ClientOption{
		http.WithEndpoint(c.Backend.Endpoint),
		http.WithMiddleware(
			recovery.Recovery(),
			bearer(tokens),
		),
	}
	if d := c.Backend.Timeout.AsDuration(); d > 0 {
		opts = append(opts, http.WithTimeout(d))
	}
	conn, err := http.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, nil, err
	}
	return &backendRepo{
		cc:  conn,
		log: log.NewHelper(log.With(logger, "module", "data/backend")),
	}, func() { conn.Close() }, nil
}

// bearer attaches the stored session token to every outgoing request.
func bearer(tokens *SessionStore) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			if tr, ok := transport.FromClientContext(ctx); ok {
				if tok, err := tokens.Token(ctx); err == nil && tok != "" {
					tr.RequestHeader().Set("Authorization", "Bearer "+tok)
				}
			}
			return handler(ctx, req)
		}
	}
}

type backendRepo struct {
	cc  *http.Client
	log *log.Helper
}

type spinArgs struct {
	Bet         decimal.Decimal `json:"bet"`
	BuyFeature  bool            `json:"is_buy_feature"`
	EnhancedBet bool            `json:"is_enhanced_bet"`
}

// tumbleReply is one step as the authority sends it.
type tumbleReply struct {
	Incoming    [][]biz.Symbol             `json:"incoming"`
	WinBySymbol map[string]decimal.Decimal `json:"win_by_symbol"`
}

type freeSpinReply struct {
	AreaGrid [][]biz.Symbol `json:"area_grid"`
	TotalWin decimal.Decimal `json:"total_win"`
	Tumbles  []tumbleReply   `json:"tumbles"`
}

type spinReply struct {
	ID        string          `json:"id"`
	AreaGrid  [][]biz.Symbol  `json:"area_grid"` // [col][row]
	TotalWin  decimal.Decimal `json:"total_win"`
	Tumbles   []tumbleReply   `json:"tumbles"`
	FreeSpins []freeSpinReply `json:"free_spins"`
}

type balanceReply struct {
	Balance decimal.Decimal `json:"balance"`
}

func (r *backendRepo) Spin(ctx context.Context, bet decimal.Decimal, buyFeature, enhancedBet bool) (*biz.SpinOutcome, error) {
	var reply spinReply
	args := &spinArgs{Bet: bet, BuyFeature: buyFeature, EnhancedBet: enhancedBet}
	if err := r.cc.Invoke(ctx, "POST", _spinPath, args, &reply); err != nil {
		return nil, err
	}
	out, err := reply.outcome()
	if err != nil {
		r.log.WithContext(ctx).Errorf("spin %s: %v", reply.ID, err)
		return nil, err
	}
	return out, nil
}

func (r *backendRepo) Balance(ctx context.Context) (decimal.Decimal, error) {
	var reply balanceReply
	if err := r.cc.Invoke(ctx, "GET", _balancePath, nil, &reply); err != nil {
		return decimal.Zero, err
	}
	return reply.Balance, nil
}

func (s *spinReply) outcome() (*biz.SpinOutcome, error) {
	grid, err := biz.TransposeArea(s.AreaGrid)
	if err != nil {
		return nil, err
	}
	tumbles, err := convertTumbles(s.Tumbles)
	if err != nil {
		return nil, err
	}
	out := &biz.SpinOutcome{ID: s.ID, Grid: grid, TotalWin: s.TotalWin, Tumbles: tumbles}
	for i, fs := range s.FreeSpins {
		g, err := biz.TransposeArea(fs.AreaGrid)
		if err != nil {
			return nil, fmt.Errorf("free spin %d: %w", i, err)
		}
		ts, err := convertTumbles(fs.Tumbles)
		if err != nil {
			return nil, fmt.Errorf("free spin %d: %w", i, err)
		}
		out.FreeSpins = append(out.FreeSpins, biz.FreeSpinEntry{Grid: g, TotalWin: fs.TotalWin, Tumbles: ts})
	}
	return out, nil
}

func convertTumbles(in []tumbleReply) ([]biz.TumbleRecord, error) {
	out := make([]biz.TumbleRecord, 0, len(in))
	for i, t := range in {
		var rec biz.TumbleRecord
		if len(t.Incoming) > biz.Cols {
			return nil, fmt.Errorf("%w: tumble %d has %d incoming columns", biz.ErrMalformedPlan, i, len(t.Incoming))
		}
		for c, col := range t.Incoming {
			rec.Incoming[c] = col
		}
		for k, w := range t.WinBySymbol {
			sym, err := strconv.ParseInt(k, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: tumble %d symbol %q", biz.ErrMalformedPlan, i, k)
			}
			rec.Wins = append(rec.Wins, biz.SymbolWin{Symbol: biz.Symbol(sym), Win: w})
		}
		sort.Slice(rec.Wins, func(a, b int) bool { return rec.Wins[a].Symbol < rec.Wins[b].Symbol })
		out = append(out, rec)
	}
	return out, nil
}
