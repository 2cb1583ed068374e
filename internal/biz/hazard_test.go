package biz

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func hazardGrid(t *testing.T, cells map[Cell]int) Grid {
	t.Helper()
	g := gridANext
	for c, m := range cells {
		s, ok := HazardSymbol(m)
		if !ok {
			t.Fatalf("no hazard for x%d", m)
		}
		g[c.Row][c.Col] = s
	}
	return g
}

func TestHazardOrder(t *testing.T) {
	g := hazardGrid(t, map[Cell]int{{0, 2}: 2, {1, 0}: 5, {3, 2}: 10})
	want := []Cell{{1, 0}, {0, 2}, {3, 2}}
	for run := 0; run < 3; run++ {
		got := FindHazards(g)
		if len(got) != len(want) {
			t.Fatalf("found %d hazards", len(got))
		}
		for i := range want {
			if got[i].Cell != want[i] {
				t.Fatalf("run %d: order = %v, want %v", run, got, want)
			}
		}
	}
}

func TestExplodeAll(t *testing.T) {
	rules := DefaultRules()
	board := NewBoard()
	anim := &testAnimator{
		explodeErr: map[Cell]error{{0, 2}: errors.New("sprite failed")},
		explodePan: map[Cell]bool{{1, 0}: true},
	}
	cues := &recordCues{}
	h := NewHazardResolver(rules, board, anim, cues, testLogger)

	g := hazardGrid(t, map[Cell]int{{0, 2}: 2, {1, 0}: 5, {3, 2}: 10})
	board.Load(g)
	out, mult, err := h.ExplodeAll(context.Background(), g)
	if err != nil {
		t.Fatalf("explode: %v", err)
	}
	if mult != 17 {
		t.Errorf("additive multiplier = %d, want 17", mult)
	}
	if len(anim.exploded) != 3 {
		t.Fatalf("chain stopped after %d hazards", len(anim.exploded))
	}
	for _, c := range []Cell{{1, 0}, {0, 2}, {3, 2}} {
		if out[c.Row][c.Col] != SymbolEmpty || board.Cell(c).Actor != 0 {
			t.Errorf("hazard %s not cleared", c)
		}
	}
	if len(cues.chain) != 3 || cues.chain[0] != 5 {
		t.Errorf("chain cues = %v", cues.chain)
	}

	rules.HazardMode = HazardMultiplicative
	_, mult, _ = h.ExplodeAll(context.Background(), g)
	if mult != 100 {
		t.Errorf("multiplicative multiplier = %d, want 100", mult)
	}
}

func TestExplodeAllNoHazards(t *testing.T) {
	h := NewHazardResolver(DefaultRules(), NewBoard(), &testAnimator{}, &recordCues{}, testLogger)
	out, mult, err := h.ExplodeAll(context.Background(), gridANext)
	if err != nil || mult != 0 || out != gridANext {
		t.Fatalf("no-op expected, got mult=%d err=%v", mult, err)
	}
}

func TestApplyMultiplier(t *testing.T) {
	win := decimal.RequireFromString("2.5")
	tests := []struct {
		win  decimal.Decimal
		mult int
		want string
	}{
		{win, 0, "2.5"},
		{win, 4, "10"},
		{decimal.Zero, 50, "0"},
	}
	for _, tt := range tests {
		if got := ApplyMultiplier(tt.win, tt.mult); !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ApplyMultiplier(%s, %d) = %s, want %s", tt.win, tt.mult, got, tt.want)
		}
	}
}
