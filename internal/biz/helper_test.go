package biz

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/log"
)

// testLogger keeps test output to errors only.
var testLogger = log.NewFilter(log.DefaultLogger, log.FilterLevel(log.LevelError))

// gridA holds exactly 8 threes and nothing else reaching a cluster.
var gridA = Grid{
	{3, 1, 2, 3, 4, 5},
	{6, 3, 7, 8, 3, 9},
	{1, 2, 3, 4, 5, 6},
	{7, 3, 8, 9, 1, 3},
	{2, 4, 5, 3, 6, 7},
}

// recordA refills gridA after its threes are removed.
var recordA = TumbleRecord{
	Incoming: [Cols][]Symbol{{4}, {5, 6}, {7}, {8, 9}, {1}, {2}},
	Wins:     []SymbolWin{{Symbol: 3, Win: decimal.RequireFromString("1.5")}},
}

// gridANext is gridA after recordA; it has no match.
var gridANext = Grid{
	{4, 5, 7, 8, 1, 2},
	{6, 6, 2, 9, 4, 5},
	{1, 1, 7, 8, 5, 9},
	{7, 2, 8, 4, 1, 6},
	{2, 4, 5, 9, 6, 7},
}

// gridScatter4 is gridANext with four scatters and no cluster.
var gridScatter4 = Grid{
	{0, 5, 7, 8, 1, 2},
	{6, 0, 2, 9, 4, 5},
	{1, 1, 0, 8, 5, 9},
	{7, 2, 8, 0, 1, 6},
	{2, 4, 5, 9, 6, 7},
}

func outcomeA() *SpinOutcome {
	return &SpinOutcome{
		ID:       "spin-a",
		Grid:     gridA,
		TotalWin: decimal.RequireFromString("1.5"),
		Tumbles:  []TumbleRecord{recordA, {}},
	}
}

func outcomeBlank(id string, g Grid) *SpinOutcome {
	return &SpinOutcome{ID: id, Grid: g, TotalWin: decimal.Zero}
}

type fakeBackend struct {
	mu      sync.Mutex
	outs    []*SpinOutcome
	err     error
	balance decimal.Decimal
	calls   int
}

func (b *fakeBackend) Spin(ctx context.Context, bet decimal.Decimal, buy, enhanced bool) (*SpinOutcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	if len(b.outs) == 0 {
		return nil, fmt.Errorf("no outcome queued")
	}
	out := b.outs[0]
	b.outs = b.outs[1:]
	return out, nil
}

func (b *fakeBackend) Balance(ctx context.Context) (decimal.Decimal, error) {
	return b.balance, nil
}

type fakeSessions struct{ ok bool }

func (s fakeSessions) Permitted(context.Context) (bool, error) { return s.ok, nil }

func (s fakeSessions) Save(context.Context, string, time.Duration) error { return nil }

type memJournal struct {
	mu   sync.Mutex
	recs []SpinRecord
}

func (j *memJournal) Save(_ context.Context, r *SpinRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.recs = append(j.recs, *r)
	return nil
}

func (j *memJournal) Recent(_ context.Context, limit int) ([]*SpinRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []*SpinRecord
	for i := len(j.recs) - 1; i >= 0 && len(out) < limit; i-- {
		r := j.recs[i]
		out = append(out, &r)
	}
	return out, nil
}

type recordCues struct {
	mu    sync.Mutex
	tiers []OverlayTier
	chain []int
	scat  []int
	bgs   []bool
}

func (c *recordCues) WinSound(t OverlayTier)  { c.mu.Lock(); c.tiers = append(c.tiers, t); c.mu.Unlock() }
func (c *recordCues) ChainExplosion(i, m int) { c.mu.Lock(); c.chain = append(c.chain, m); c.mu.Unlock() }
func (c *recordCues) Scatter(n int)           { c.mu.Lock(); c.scat = append(c.scat, n); c.mu.Unlock() }
func (c *recordCues) Background(b bool)       { c.mu.Lock(); c.bgs = append(c.bgs, b); c.mu.Unlock() }

// testAnimator completes everything at once unless a gate is set.
type testAnimator struct {
	mu          sync.Mutex
	spinGate    Task
	spinCalled  chan struct{}
	flyGate     Task
	flyCalled   chan struct{}
	dropGate    map[int]Task
	dropCalled  chan int
	anticipated []int
	exploded    []Cell
	explodeErr  map[Cell]error
	explodePan  map[Cell]bool
}

func (a *testAnimator) SpinIn(Grid) Task {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.spinCalled != nil {
		close(a.spinCalled)
		a.spinCalled = nil
	}
	if a.spinGate != nil {
		return a.spinGate
	}
	return Done()
}

func (a *testAnimator) Clusters([]ClusterWin) Task { return Done() }

func (a *testAnimator) Drop(col int, _ []Move, _ []Spawn) Task {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.dropCalled != nil {
		a.dropCalled <- col
	}
	if g, ok := a.dropGate[col]; ok {
		return g
	}
	return Done()
}

func (a *testAnimator) Anticipate(col int) Task {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.anticipated = append(a.anticipated, col)
	return Done()
}

func (a *testAnimator) Explode(h Hazard) (Task, error) {
	a.mu.Lock()
	a.exploded = append(a.exploded, h.Cell)
	panics := a.explodePan[h.Cell]
	err := a.explodeErr[h.Cell]
	a.mu.Unlock()
	if panics {
		panic("explosion sprite missing")
	}
	return Done(), err
}

func (a *testAnimator) ScatterFly([]Cell) Task {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.flyCalled != nil {
		close(a.flyCalled)
		a.flyCalled = nil
	}
	if a.flyGate != nil {
		return a.flyGate
	}
	return Done()
}

type testEnv struct {
	uc      *SpinUsecase
	backend *fakeBackend
	journal *memJournal
	anim    *testAnimator
	cues    *recordCues
	board   *Board
	bus     *Bus
	events  <-chan Event
}

func newTestEnv(t *testing.T, rules *Rules, outs ...*SpinOutcome) *testEnv {
	t.Helper()
	logger := testLogger
	env := &testEnv{
		backend: &fakeBackend{outs: outs, balance: decimal.NewFromInt(100)},
		journal: &memJournal{},
		anim:    &testAnimator{},
		cues:    &recordCues{},
		board:   NewBoard(),
		bus:     NewBus(logger),
	}
	events, cancel := env.bus.Subscribe(1024)
	t.Cleanup(cancel)
	env.events = events
	pay := NewSeededPaytable(7)
	overlay := NewOverlayQueue(rules, env.bus, env.cues, logger)
	env.uc = NewSpinUsecase(rules, env.backend, fakeSessions{ok: true}, env.journal, env.board, env.anim, env.cues,
		NewMatchResolver(rules, pay, logger),
		NewCascadeEngine(rules, env.board, env.anim, pay, logger),
		NewHazardResolver(rules, env.board, env.anim, env.cues, logger),
		overlay, env.bus, logger)
	return env
}

// drain returns the events published so far.
func (e *testEnv) drain() []Event {
	var out []Event
	for {
		select {
		case ev := <-e.events:
			out = append(out, ev)
		case <-time.After(20 * time.Millisecond):
			return out
		}
	}
}

func countKind(events []Event, kind EventKind) int {
	n := 0
	for _, e := range events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func one() decimal.Decimal { return decimal.NewFromInt(1) }
