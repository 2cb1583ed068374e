package service

import (
	"strconv"
	"time"

	"bonanza/internal/biz"

	"github.com/google/wire"
	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/errors"
	"github.com/yola1107/kratos/v2/log"
	"github.com/yola1107/kratos/v2/transport/http"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewSpinService)

const _defaultHistory = 20

type SpinRequest struct {
	Bet         decimal.Decimal `json:"bet"`
	BuyFeature  bool            `json:"buy_feature"`
	EnhancedBet bool            `json:"enhanced_bet"`
}

type SpinReply struct {
	Accepted bool `json:"accepted"`
}

type AutoplayRequest struct {
	SpinRequest
	Count int `json:"count"`
}

type LoginRequest struct {
	Token      string `json:"token"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

type DismissReply struct {
	Dismissed bool                `json:"dismissed"`
	Active    *biz.OverlayRequest `json:"active,omitempty"`
}

type BalanceReply struct {
	Balance decimal.Decimal `json:"balance"`
}

type StateReply struct {
	biz.SessionState
	Bonus   string              `json:"bonus_state"`
	Overlay *biz.OverlayRequest `json:"overlay,omitempty"`
	Pending int                 `json:"overlays_pending"`
}

// SpinService exposes the spin orchestrator over HTTP.
type SpinService struct {
	uc  *biz.SpinUsecase
	log *log.Helper
}

// NewSpinService new a spin service.
func NewSpinService(uc *biz.SpinUsecase, logger log.Logger) *SpinService {
	return &SpinService{uc: uc, log: log.NewHelper(log.With(logger, "module", "service/spin"))}
}

// Register mounts the routes on the http server.
func (s *SpinService) Register(srv *http.Server) {
	r := srv.Route("/v1")
	r.POST("/spin", s.Spin)
	r.POST("/overlay/dismiss", s.Dismiss)
	r.POST("/autoplay", s.StartAutoplay)
	r.DELETE("/autoplay", s.StopAutoplay)
	r.GET("/state", s.State)
	r.GET("/balance", s.Balance)
	r.GET("/history", s.History)
	r.POST("/session", s.Login)
}

// Spin starts a spin; the replay itself is streamed as events.
func (s *SpinService) Spin(ctx http.Context) error {
	var in SpinRequest
	if err := ctx.Bind(&in); err != nil {
		return errors.BadRequest("INVALID_ARGUMENT", err.Error())
	}
	ok, err := s.uc.Start(biz.SpinRequest{Bet: in.Bet, BuyFeature: in.BuyFeature, EnhancedBet: in.EnhancedBet})
	if err != nil {
		return err
	}
	return ctx.Result(200, &SpinReply{Accepted: ok})
}

func (s *SpinService) Dismiss(ctx http.Context) error {
	reply := &DismissReply{Dismissed: s.uc.DismissOverlay()}
	if active, ok := s.uc.Overlay().Active(); ok {
		reply.Active = &active
	}
	return ctx.Result(200, reply)
}

func (s *SpinService) StartAutoplay(ctx http.Context) error {
	var in AutoplayRequest
	if err := ctx.Bind(&in); err != nil {
		return errors.BadRequest("INVALID_ARGUMENT", err.Error())
	}
	if in.Count <= 0 {
		return errors.BadRequest("INVALID_ARGUMENT", "count must be positive")
	}
	req := biz.SpinRequest{Bet: in.Bet, BuyFeature: in.BuyFeature, EnhancedBet: in.EnhancedBet}
	if err := s.uc.StartAutoplay(req, in.Count); err != nil {
		return err
	}
	return ctx.Result(200, s.state())
}

func (s *SpinService) StopAutoplay(ctx http.Context) error {
	s.uc.StopAutoplay()
	return ctx.Result(200, s.state())
}

func (s *SpinService) State(ctx http.Context) error {
	return ctx.Result(200, s.state())
}

func (s *SpinService) Balance(ctx http.Context) error {
	bal, err := s.uc.Balance(ctx)
	if err != nil {
		return err
	}
	return ctx.Result(200, &BalanceReply{Balance: bal})
}

func (s *SpinService) History(ctx http.Context) error {
	limit := _defaultHistory
	if v := ctx.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return errors.BadRequest("INVALID_ARGUMENT", "limit must be a positive integer")
		}
		limit = n
	}
	recs, err := s.uc.History(ctx, limit)
	if err != nil {
		return err
	}
	return ctx.Result(200, recs)
}

func (s *SpinService) Login(ctx http.Context) error {
	var in LoginRequest
	if err := ctx.Bind(&in); err != nil {
		return errors.BadRequest("INVALID_ARGUMENT", err.Error())
	}
	if in.Token == "" {
		return errors.BadRequest("INVALID_ARGUMENT", "token is required")
	}
	if err := s.uc.Login(ctx, in.Token, time.Duration(in.TTLSeconds)*time.Second); err != nil {
		s.log.WithContext(ctx).Errorf("store session: %v", err)
		return errors.ServiceUnavailable("SESSION_STORE", "session store unavailable")
	}
	return ctx.Result(200, s.state())
}

func (s *SpinService) state() *StateReply {
	reply := &StateReply{
		SessionState: s.uc.Snapshot(),
		Bonus:        s.uc.Bonus().State(),
		Pending:      s.uc.Overlay().Pending(),
	}
	if active, ok := s.uc.Overlay().Active(); ok {
		reply.Overlay = &active
	}
	return reply
}
