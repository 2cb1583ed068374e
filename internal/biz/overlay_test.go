package biz

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTierFor(t *testing.T) {
	bet := decimal.NewFromInt(2)
	tests := []struct {
		amount string
		want   OverlayTier
	}{
		{"0", TierNone},
		{"19.99", TierNone},
		{"20", TierBig},
		{"49", TierBig},
		{"50", TierMega},
		{"100", TierEpic},
		{"5000", TierEpic},
	}
	for _, tt := range tests {
		if got := TierFor(decimal.RequireFromString(tt.amount), bet, _defaultOverlayTiers); got != tt.want {
			t.Errorf("TierFor(%s) = %q, want %q", tt.amount, got, tt.want)
		}
	}
	if got := TierFor(decimal.NewFromInt(100), decimal.Zero, _defaultOverlayTiers); got != TierNone {
		t.Errorf("zero bet tier = %q", got)
	}
}

func TestOverlayFIFO(t *testing.T) {
	bus := NewBus(testLogger)
	events, cancel := bus.Subscribe(16)
	defer cancel()
	q := NewOverlayQueue(DefaultRules(), bus, &recordCues{}, testLogger)

	if _, ok := q.Enqueue(decimal.NewFromInt(5), one()); ok {
		t.Fatal("a win under the first threshold must not queue")
	}
	first, _ := q.Enqueue(decimal.NewFromInt(30), one())
	second := q.EnqueueSentinel(decimal.NewFromInt(10), TierFreeSpinsWon)

	active, ok := q.Active()
	if !ok || active.ID != first.ID || active.Tier != TierMega {
		t.Fatalf("active = %+v, want first request", active)
	}
	if q.Pending() != 1 {
		t.Fatalf("pending = %d", q.Pending())
	}

	ctx, done := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer done()
	if err := q.WaitIdle(ctx); err == nil {
		t.Fatal("queue reported idle with an overlay active")
	}

	if !q.Dismiss() {
		t.Fatal("dismiss ignored")
	}
	if active, _ = q.Active(); active.ID != second.ID {
		t.Fatalf("active = %+v, want second request", active)
	}
	q.Dismiss()
	if _, ok := q.Active(); ok {
		t.Fatal("queue should be empty")
	}
	if q.Dismiss() {
		t.Fatal("dismiss with nothing active")
	}
	if err := q.WaitIdle(context.Background()); err != nil {
		t.Fatalf("wait idle: %v", err)
	}

	var shown []uint64
	for len(events) > 0 {
		if e := <-events; e.Kind == EventOverlayShow {
			shown = append(shown, e.Overlay.ID)
		}
	}
	if len(shown) != 2 || shown[0] != first.ID || shown[1] != second.ID {
		t.Fatalf("shown = %v", shown)
	}
}

func TestOverlayInputLock(t *testing.T) {
	rules := DefaultRules()
	rules.Delays.InputLock = time.Hour
	q := NewOverlayQueue(rules, NewBus(testLogger), &recordCues{}, testLogger)
	q.Enqueue(decimal.NewFromInt(100), one())
	if q.Dismiss() {
		t.Fatal("input inside the lock window must be ignored")
	}
	if _, ok := q.Active(); !ok {
		t.Fatal("overlay closed during input lock")
	}
}

func TestOverlayAutoDismiss(t *testing.T) {
	rules := DefaultRules()
	rules.Delays.InputLock = time.Hour
	rules.Delays.AutoDismiss = time.Millisecond
	q := NewOverlayQueue(rules, NewBus(testLogger), &recordCues{}, testLogger)
	q.Enqueue(decimal.NewFromInt(100), one())
	q.Enqueue(decimal.NewFromInt(100), one())
	q.SetAutoplay(true)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := q.WaitIdle(ctx); err != nil {
		t.Fatalf("autoplay did not drain the queue: %v", err)
	}
}
