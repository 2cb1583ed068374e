package biz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBonusEntryAfterScatterFly(t *testing.T) {
	env := newTestEnv(t, DefaultRules(), outcomeBlank("scatter", gridScatter4))
	env.uc.Overlay().SetAutoplay(true)
	fly := make(chan struct{})
	called := make(chan struct{})
	env.anim.flyGate, env.anim.flyCalled = fly, called

	done := make(chan error, 1)
	go func() {
		_, err := env.uc.Spin(context.Background(), SpinRequest{Bet: one()})
		done <- err
	}()
	<-called
	if env.uc.Snapshot().IsBonusRound {
		t.Fatal("bonus flag flipped before the scatter-fly join")
	}
	close(fly)
	if err := <-done; err != nil {
		t.Fatalf("spin: %v", err)
	}

	st := env.uc.Snapshot()
	if !st.IsBonusRound || !env.uc.Bonus().InBonus() {
		t.Fatal("bonus not entered")
	}
	if st.FreeSpinsRemaining != 10 {
		t.Errorf("free spins = %d, want the 4-scatter entry 10", st.FreeSpinsRemaining)
	}
	if !st.TotalBonusWin.IsZero() {
		t.Errorf("bonus accumulator = %s", st.TotalBonusWin)
	}
	events := env.drain()
	if countKind(events, EventBonusEnter) != 1 {
		t.Fatal("bonus_enter not published")
	}
	var sentinel bool
	for _, e := range events {
		if e.Kind == EventOverlayShow && e.Overlay.Tier == TierFreeSpinsWon {
			sentinel = true
		}
	}
	if !sentinel {
		t.Fatal("free-spins-won overlay not shown")
	}
}

func TestBonusEntryPausesAutoplay(t *testing.T) {
	env := newTestEnv(t, DefaultRules())
	env.uc.sess.update(func(s *SessionState) { s.AutoplayRemaining = 20 })
	env.uc.Overlay().SetAutoplay(true)
	if err := env.uc.Bonus().Trigger(context.Background(), scatterCells(gridScatter4)); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	st := env.uc.Snapshot()
	if !st.AutoplayPaused {
		t.Fatal("autoplay not paused")
	}
	if countKind(env.drain(), EventAutoplayPaused) != 1 {
		t.Fatal("autoplay_paused not published")
	}
}

func TestBonusExitOnce(t *testing.T) {
	rules := DefaultRules()
	rules.FreeSpinTable = map[int]int{4: 1}
	env := newTestEnv(t, rules, outcomeBlank("scatter", gridScatter4), outcomeA())
	env.uc.Overlay().SetAutoplay(true)

	if _, err := env.uc.Spin(context.Background(), SpinRequest{Bet: one()}); err != nil {
		t.Fatalf("trigger spin: %v", err)
	}
	if st := env.uc.Snapshot(); !st.IsBonusRound || st.FreeSpinsRemaining != 1 {
		t.Fatalf("after trigger: %+v", st)
	}
	env.drain()

	if _, err := env.uc.Spin(context.Background(), SpinRequest{Bet: one()}); err != nil {
		t.Fatalf("free spin: %v", err)
	}
	st := env.uc.Snapshot()
	if st.IsBonusRound || env.uc.Bonus().InBonus() {
		t.Fatal("bonus did not end")
	}
	if !st.TotalBonusWin.IsZero() || st.FreeSpinsRemaining != 0 {
		t.Fatalf("bonus accumulators not cleared: %+v", st)
	}
	events := env.drain()
	if countKind(events, EventBonusExit) != 1 {
		t.Fatalf("bonus_exit published %d times", countKind(events, EventBonusExit))
	}
	for _, e := range events {
		if e.Kind == EventBonusExit && !e.Win.Equal(decimal.RequireFromString("1.5")) {
			t.Errorf("summary win = %s, want 1.5", e.Win)
		}
	}
	if err := env.uc.Bonus().Finish(context.Background()); err == nil {
		t.Fatal("second finish accepted")
	}
}

func TestBonusRetrigger(t *testing.T) {
	env := newTestEnv(t, DefaultRules())
	env.uc.Overlay().SetAutoplay(true)
	ctx := context.Background()
	if _, err := env.uc.Bonus().CheckScatter(ctx, gridScatter4); err != nil {
		t.Fatal(err)
	}
	env.uc.sess.update(func(s *SessionState) { s.TotalBonusWin = decimal.NewFromInt(7) })

	g := gridScatter4
	g[0][0] = 4
	ok, err := env.uc.Bonus().CheckScatter(ctx, g)
	if err != nil || !ok {
		t.Fatalf("retrigger = %v, %v", ok, err)
	}
	st := env.uc.Snapshot()
	if st.FreeSpinsRemaining != 15 {
		t.Errorf("free spins = %d, want 10 + 5", st.FreeSpinsRemaining)
	}
	if !st.TotalBonusWin.Equal(decimal.NewFromInt(7)) {
		t.Errorf("retrigger reset the accumulator: %s", st.TotalBonusWin)
	}
	if env.uc.Bonus().State() != stateBonus {
		t.Errorf("state = %s", env.uc.Bonus().State())
	}

	// two scatters are not enough, even in bonus
	g[1][1] = 6
	if ok, _ := env.uc.Bonus().CheckScatter(ctx, g); ok {
		t.Fatal("retrigger with two scatters")
	}
}

func TestAPIFreeSpinBatch(t *testing.T) {
	out := outcomeBlank("buy", gridScatter4)
	out.FreeSpins = []FreeSpinEntry{
		{Grid: gridA, TotalWin: decimal.RequireFromString("1.5"), Tumbles: []TumbleRecord{recordA}},
		{Grid: gridANext, TotalWin: decimal.Zero},
		{Grid: gridA, TotalWin: decimal.RequireFromString("1.5"), Tumbles: []TumbleRecord{recordA}},
	}
	env := newTestEnv(t, DefaultRules(), out)
	env.uc.Overlay().SetAutoplay(true)

	if ok, err := env.uc.Spin(context.Background(), SpinRequest{Bet: one(), BuyFeature: true}); !ok || err != nil {
		t.Fatalf("spin = %v, %v", ok, err)
	}
	st := env.uc.Snapshot()
	if st.IsBonusRound || st.UsesAPIFreeSpins || st.APIFreeSpinIndex != 0 {
		t.Fatalf("batch did not hand off to the base game: %+v", st)
	}
	if !st.TotalWinThisSpin.Equal(decimal.NewFromInt(3)) {
		t.Errorf("spin total = %s, want 3", st.TotalWinThisSpin)
	}
	events := env.drain()
	if countKind(events, EventBonusEnter) != 1 || countKind(events, EventBonusExit) != 1 {
		t.Fatal("bonus enter/exit not published once each")
	}
	for _, e := range events {
		if e.Kind == EventBonusExit && !e.Win.Equal(decimal.NewFromInt(3)) {
			t.Errorf("bonus summary = %s, want 3", e.Win)
		}
	}
	if env.backend.calls != 1 {
		t.Fatalf("batch playback called the backend %d times", env.backend.calls)
	}
}

func TestAutoplayRunsCount(t *testing.T) {
	env := newTestEnv(t, DefaultRules(), outcomeA(), outcomeA(), outcomeA())
	if err := env.uc.StartAutoplay(SpinRequest{Bet: one()}, 3); err != nil {
		t.Fatal(err)
	}
	select {
	case <-env.uc.AutoplayDone():
	case <-time.After(2 * time.Second):
		t.Fatal("autoplay did not finish")
	}
	if env.backend.calls != 3 {
		t.Fatalf("spins = %d, want 3", env.backend.calls)
	}
	if env.uc.Snapshot().AutoplayRemaining != 0 {
		t.Fatal("autoplay count not exhausted")
	}
}

func TestAutoplayPausedByBonus(t *testing.T) {
	env := newTestEnv(t, DefaultRules(), outcomeBlank("scatter", gridScatter4), outcomeA())
	if err := env.uc.StartAutoplay(SpinRequest{Bet: one()}, 5); err != nil {
		t.Fatal(err)
	}
	select {
	case <-env.uc.AutoplayDone():
	case <-time.After(2 * time.Second):
		t.Fatal("autoplay did not pause")
	}
	st := env.uc.Snapshot()
	if !st.AutoplayPaused || st.AutoplayRemaining != 4 {
		t.Fatalf("autoplay state = paused:%v remaining:%d", st.AutoplayPaused, st.AutoplayRemaining)
	}
	if env.backend.calls != 1 {
		t.Fatalf("spins = %d, want 1", env.backend.calls)
	}
}

func TestFailedFreeSpinKeepsCount(t *testing.T) {
	rules := DefaultRules()
	rules.FreeSpinTable = map[int]int{4: 3}
	env := newTestEnv(t, rules, outcomeBlank("scatter", gridScatter4))
	env.uc.Overlay().SetAutoplay(true)
	if _, err := env.uc.Spin(context.Background(), SpinRequest{Bet: one()}); err != nil {
		t.Fatalf("trigger spin: %v", err)
	}
	if n := env.uc.Snapshot().FreeSpinsRemaining; n != 3 {
		t.Fatalf("free spins = %d, want 3", n)
	}

	env.backend.err = errors.New("connection reset")
	if ok, err := env.uc.Spin(context.Background(), SpinRequest{Bet: one()}); !ok || err == nil {
		t.Fatalf("spin = %v, %v; want a network error", ok, err)
	}
	st := env.uc.Snapshot()
	if st.FreeSpinsRemaining != 3 {
		t.Fatalf("failed free spin used a spin: 3 -> %d", st.FreeSpinsRemaining)
	}
	if !st.IsBonusRound || !env.uc.Bonus().InBonus() {
		t.Fatal("failed free spin left the bonus")
	}
}

func TestAbortedBatchCreditsNothing(t *testing.T) {
	short := recordA
	short.Incoming = [Cols][]Symbol{{4}, {5}, {7}, {8, 9}, {1}, {2}}
	out := outcomeBlank("buy", gridScatter4)
	out.FreeSpins = []FreeSpinEntry{
		{Grid: gridA, TotalWin: decimal.RequireFromString("1.5"), Tumbles: []TumbleRecord{recordA}},
		{Grid: gridA, TotalWin: decimal.RequireFromString("1.5"), Tumbles: []TumbleRecord{short}},
	}
	env := newTestEnv(t, DefaultRules(), out)
	env.uc.Overlay().SetAutoplay(true)

	ok, err := env.uc.Spin(context.Background(), SpinRequest{Bet: one(), BuyFeature: true})
	if !ok || !errors.Is(err, ErrMalformedPlan) {
		t.Fatalf("spin = %v, %v; want the exhausted queue to abort", ok, err)
	}
	st := env.uc.Snapshot()
	if !st.TotalBonusWin.IsZero() || !st.TotalWinThisSpin.IsZero() {
		t.Fatalf("partial win kept: bonus=%s spin=%s", st.TotalBonusWin, st.TotalWinThisSpin)
	}
	if st.IsBonusRound || env.uc.Bonus().InBonus() || st.FreeSpinsRemaining != 0 {
		t.Fatalf("aborted batch left the session in bonus: %+v", st)
	}
	if st.UsesAPIFreeSpins || st.APIFreeSpinList != nil {
		t.Fatal("batch fields not cleared")
	}
	events := env.drain()
	if countKind(events, EventBonusExit) != 0 {
		t.Fatal("aborted batch showed a bonus summary")
	}
	if countKind(events, EventSpinError) != 1 {
		t.Fatal("spin_error not published")
	}
	if !env.journal.recs[0].Credited.IsZero() {
		t.Fatalf("journal credited %s", env.journal.recs[0].Credited)
	}
}

func TestAutoplayLastSpinBonusPauses(t *testing.T) {
	env := newTestEnv(t, DefaultRules(), outcomeBlank("scatter", gridScatter4))
	if err := env.uc.StartAutoplay(SpinRequest{Bet: one()}, 1); err != nil {
		t.Fatal(err)
	}
	select {
	case <-env.uc.AutoplayDone():
	case <-time.After(2 * time.Second):
		t.Fatal("autoplay did not finish")
	}
	st := env.uc.Snapshot()
	if !st.AutoplayPaused || st.AutoplayRemaining != 0 {
		t.Fatalf("autoplay state = paused:%v remaining:%d", st.AutoplayPaused, st.AutoplayRemaining)
	}
	if countKind(env.drain(), EventAutoplayPaused) != 1 {
		t.Fatal("autoplay_paused not published for the last spin")
	}
}
