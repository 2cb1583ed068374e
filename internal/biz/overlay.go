package biz

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/log"
)

// TierFor picks the highest ratio tier reached by amount/bet; TierNone below the first.
func TierFor(amount, bet decimal.Decimal, thresholds []float64) OverlayTier {
	if !bet.IsPositive() || !amount.IsPositive() {
		return TierNone
	}
	ratio := amount.Div(bet)
	for i := len(thresholds) - 1; i >= 0; i-- {
		if i < len(_ratioTiers) && ratio.GreaterThanOrEqual(decimal.NewFromFloat(thresholds[i])) {
			return _ratioTiers[i]
		}
	}
	return TierNone
}

// OverlayQueue shows win celebrations strictly one at a time, in FIFO order.
type OverlayQueue struct {
	mu       sync.Mutex
	rules    *Rules
	bus      *Bus
	cues     Cues
	log      *log.Helper
	seq      uint64
	active   *OverlayRequest
	shownAt  time.Time
	pending  []OverlayRequest
	autoplay bool
	timer    *time.Timer
	idle     chan struct{} // closed while nothing is active or pending
}

func NewOverlayQueue(rules *Rules, bus *Bus, cues Cues, logger log.Logger) *OverlayQueue {
	idle := make(chan struct{})
	close(idle)
	return &OverlayQueue{
		rules: rules,
		bus:   bus,
		cues:  cues,
		log:   log.NewHelper(log.With(logger, "module", "biz/overlay")),
		idle:  idle,
	}
}

// Enqueue queues a win celebration if amount reaches a tier. It reports whether one was queued.
func (q *OverlayQueue) Enqueue(amount, bet decimal.Decimal) (OverlayRequest, bool) {
	tier := TierFor(amount, bet, q.rules.OverlayTiers)
	if tier == TierNone {
		return OverlayRequest{}, false
	}
	return q.push(amount, tier), true
}

// EnqueueSentinel queues a tier that bypasses the ratio table.
func (q *OverlayQueue) EnqueueSentinel(amount decimal.Decimal, tier OverlayTier) OverlayRequest {
	return q.push(amount, tier)
}

func (q *OverlayQueue) push(amount decimal.Decimal, tier OverlayTier) OverlayRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	req := OverlayRequest{ID: q.seq, Amount: amount, Tier: tier}
	if q.active == nil && len(q.pending) == 0 {
		q.idle = make(chan struct{})
	}
	q.pending = append(q.pending, req)
	if q.active == nil {
		q.showNext()
	}
	return req
}

// Dismiss closes the active overlay on player input. Input inside the lock window is ignored.
func (q *OverlayQueue) Dismiss() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.active == nil {
		return false
	}
	if time.Since(q.shownAt) < q.rules.Delays.InputLock {
		q.log.Debugf("overlay %d input ignored during lock", q.active.ID)
		return false
	}
	q.hide()
	return true
}

// SetAutoplay switches overlays to timed auto-dismiss.
func (q *OverlayQueue) SetAutoplay(on bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.autoplay = on
	if on && q.active != nil && q.timer == nil {
		q.arm(q.active.ID)
	}
}

// Active returns a copy of the visible overlay.
func (q *OverlayQueue) Active() (OverlayRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.active == nil {
		return OverlayRequest{}, false
	}
	return *q.active, true
}

func (q *OverlayQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Busy reports whether an overlay is visible or queued.
func (q *OverlayQueue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active != nil || len(q.pending) > 0
}

// WaitIdle blocks until nothing is active or pending.
func (q *OverlayQueue) WaitIdle(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *OverlayQueue) showNext() {
	if len(q.pending) == 0 {
		close(q.idle)
		return
	}
	req := q.pending[0]
	q.pending = q.pending[1:]
	q.active = &req
	q.shownAt = time.Now()
	q.bus.Publish(Event{Kind: EventOverlayShow, Overlay: &req, Win: req.Amount})
	q.cues.WinSound(req.Tier)
	if q.autoplay {
		q.arm(req.ID)
	}
}

func (q *OverlayQueue) hide() {
	req := *q.active
	q.active = nil
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.bus.Publish(Event{Kind: EventOverlayHide, Overlay: &req, Win: req.Amount})
	q.showNext()
}

// arm schedules the auto-dismiss of overlay id.
func (q *OverlayQueue) arm(id uint64) {
	q.timer = time.AfterFunc(q.rules.Delays.AutoDismiss, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		if q.active == nil || q.active.ID != id {
			return
		}
		q.timer = nil
		q.hide()
	})
}
