package biz

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/log"
)

// HazardResolver explodes the hazard cells of a settled grid one at a time.
type HazardResolver struct {
	mu    sync.Mutex // one chain at a time
	rules *Rules
	board *Board
	anim  Animator
	cues  Cues
	log   *log.Helper
}

func NewHazardResolver(rules *Rules, board *Board, anim Animator, cues Cues, logger log.Logger) *HazardResolver {
	return &HazardResolver{
		rules: rules,
		board: board,
		anim:  anim,
		cues:  cues,
		log:   log.NewHelper(log.With(logger, "module", "biz/hazard")),
	}
}

// FindHazards lists hazard cells ordered by column, then row.
func FindHazards(g Grid) []Hazard {
	var out []Hazard
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			if s := g[r][c]; s.IsHazard() {
				out = append(out, Hazard{Cell: Cell{Row: r, Col: c}, Symbol: s, Multiplier: s.HazardMultiplier()})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Cell.Col != out[j].Cell.Col {
			return out[i].Cell.Col < out[j].Cell.Col
		}
		return out[i].Cell.Row < out[j].Cell.Row
	})
	return out
}

// CombineMultipliers folds hazard tiers with the configured mode. No hazards is 0.
func CombineMultipliers(mode string, hazards []Hazard) int {
	if len(hazards) == 0 {
		return 0
	}
	total := 0
	if mode == HazardMultiplicative {
		total = 1
	}
	for _, h := range hazards {
		if mode == HazardMultiplicative {
			total *= h.Multiplier
		} else {
			total += h.Multiplier
		}
	}
	return total
}

// ApplyMultiplier returns win × mult; a zero multiplier counts as 1×.
func ApplyMultiplier(win decimal.Decimal, mult int) decimal.Decimal {
	if mult <= 0 || !win.IsPositive() {
		return win
	}
	return win.Mul(decimal.NewFromInt(int64(mult)))
}

// ExplodeAll runs the chain and returns the cleared grid with the accumulated multiplier.
// A failing explosion is logged and skipped; the chain always finishes.
func (h *HazardResolver) ExplodeAll(ctx context.Context, grid Grid) (Grid, int, error) {
	hazards := FindHazards(grid)
	if len(hazards) == 0 {
		return grid, 0, nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, hz := range hazards {
		if i > 0 {
			if err := sleep(ctx, h.rules.Delays.ExplosionGap); err != nil {
				return grid, 0, err
			}
		}
		h.cues.ChainExplosion(i, hz.Multiplier)
		task, err := h.explode(hz)
		if err != nil {
			hazardFailures.Inc()
			h.log.Warnf("hazard %s x%d explosion failed: %v", hz.Cell, hz.Multiplier, err)
		}
		if err := WaitAll(ctx, task, After(h.rules.Delays.Explosion)); err != nil {
			return grid, 0, err
		}
		// the cell stays empty until the next spin loads a full grid
		grid[hz.Cell.Row][hz.Cell.Col] = SymbolEmpty
		h.board.Clear(hz.Cell)
	}
	mult := CombineMultipliers(h.rules.HazardMode, hazards)
	h.log.Debugf("hazard chain done: %d hazards, multiplier x%d (%s)", len(hazards), mult, h.rules.HazardMode)
	return grid, mult, nil
}

func (h *HazardResolver) explode(hz Hazard) (task Task, err error) {
	defer func() {
		if r := recover(); r != nil {
			task, err = Done(), fmt.Errorf("panic: %v", r)
		}
	}()
	task, err = h.anim.Explode(hz)
	if err != nil || task == nil {
		task = Done()
	}
	return task, err
}
