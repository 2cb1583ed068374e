package biz

import (
	"context"
	"fmt"

	"github.com/yola1107/kratos/v2/log"
	"golang.org/x/sync/errgroup"
)

// columnPlan is the settled shape of one column after a cascade step.
type columnPlan struct {
	col        int
	moves      []Move   // survivors, top to bottom; Actor filled in by the board
	incoming   []Symbol // lands on rows [0, len)
	anticipate bool
}

// CascadeEngine drops survivors and refills from the authoritative queues.
type CascadeEngine struct {
	rules *Rules
	board *Board
	anim  Animator
	pay   *Paytable
	log   *log.Helper
}

func NewCascadeEngine(rules *Rules, board *Board, anim Animator, pay *Paytable, logger log.Logger) *CascadeEngine {
	return &CascadeEngine{
		rules: rules,
		board: board,
		anim:  anim,
		pay:   pay,
		log:   log.NewHelper(log.With(logger, "module", "biz/cascade")),
	}
}

// Cascade removes the masked cells, settles every column on the board and waits for
// all column animations. The returned grid is always full.
func (e *CascadeEngine) Cascade(ctx context.Context, grid Grid, mask Mask, rec *TumbleRecord, inBonus bool) (Grid, error) {
	next, plans, err := e.plan(grid, mask, rec, inBonus)
	if err != nil {
		return grid, err
	}

	e.board.Remove(mask)
	type drop struct {
		plan   columnPlan
		moves  []Move
		spawns []Spawn
	}
	drops := make([]drop, 0, Cols)
	for _, p := range plans {
		moves, spawns := e.board.Settle(p.col, p.moves, p.incoming)
		drops = append(drops, drop{plan: p, moves: moves, spawns: spawns})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, d := range drops {
		g.Go(func() error {
			if d.plan.anticipate {
				if err := Wait(gctx, e.anim.Anticipate(d.plan.col)); err != nil {
					return err
				}
				if err := sleep(gctx, e.rules.Delays.Anticipation); err != nil {
					return err
				}
			}
			return Wait(gctx, e.anim.Drop(d.plan.col, d.moves, d.spawns))
		})
	}
	if err := g.Wait(); err != nil {
		return next, err
	}
	e.board.ReleaseOutgoing()
	return next, nil
}

// plan computes the next grid without touching the board.
func (e *CascadeEngine) plan(grid Grid, mask Mask, rec *TumbleRecord, inBonus bool) (Grid, []columnPlan, error) {
	var queues [Cols][]Symbol
	if rec != nil {
		queues = rec.Incoming
	} else if !e.rules.DemoMode {
		return grid, nil, fmt.Errorf("%w: missing tumble record", ErrMalformedPlan)
	}

	threshold := e.rules.ScatterBase
	if inBonus {
		threshold = e.rules.ScatterBonus
	}
	landed := 0
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			if !mask[r][c] && grid[r][c] == SymbolScatter {
				landed++
			}
		}
	}

	var next Grid
	plans := make([]columnPlan, 0, Cols)
	for c := 0; c < Cols; c++ {
		col, moves, shortfall := collapseColumn(grid, mask, c)
		incoming, err := e.take(queues[c], shortfall, c, inBonus)
		if err != nil {
			return grid, nil, err
		}
		scatters := 0
		for r, sym := range incoming {
			col[r] = sym
			if sym == SymbolScatter {
				scatters++
			}
		}
		for r := 0; r < Rows; r++ {
			next[r][c] = col[r]
		}
		landed += scatters
		plans = append(plans, columnPlan{
			col:        c,
			moves:      moves,
			incoming:   incoming,
			anticipate: scatters > 0 && landed >= threshold,
		})
	}
	return next, plans, nil
}

// take consumes exactly n symbols from the front of one column's queue.
func (e *CascadeEngine) take(queue []Symbol, n, col int, inBonus bool) ([]Symbol, error) {
	for i := 0; i < len(queue) && i < n; i++ {
		if queue[i] == SymbolEmpty {
			return nil, fmt.Errorf("%w: empty symbol in incoming column %d", ErrMalformedPlan, col)
		}
	}
	if len(queue) >= n {
		if len(queue) > n {
			e.log.Warnf("column %d incoming has %d symbols, %d needed", col, len(queue), n)
		}
		return queue[:n:n], nil
	}
	if !e.rules.DemoMode {
		return nil, fmt.Errorf("%w: column %d incoming exhausted (%d of %d)", ErrMalformedPlan, col, len(queue), n)
	}
	out := make([]Symbol, 0, n)
	out = append(out, queue...)
	return append(out, e.pay.Filler(n-len(queue), inBonus)...), nil
}

// collapseColumn compacts the survivors of col to the bottom, keeping their order.
// Rows [0, shortfall) of the result are left empty.
func collapseColumn(grid Grid, mask Mask, col int) (out [Rows]Symbol, moves []Move, shortfall int) {
	survivors := make([]int, 0, Rows)
	for r := 0; r < Rows; r++ {
		if !mask[r][col] && grid[r][col] != SymbolEmpty {
			survivors = append(survivors, r)
		}
	}
	shortfall = Rows - len(survivors)
	for r := 0; r < shortfall; r++ {
		out[r] = SymbolEmpty
	}
	for i, from := range survivors {
		to := shortfall + i
		out[to] = grid[from][col]
		if from != to {
			moves = append(moves, Move{From: Cell{Row: from, Col: col}, To: Cell{Row: to, Col: col}})
		}
	}
	return out, moves, shortfall
}
