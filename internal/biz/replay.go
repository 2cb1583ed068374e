package biz

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/log"
)

// ValidatePlan checks an authoritative outcome before any of it is replayed.
func ValidatePlan(out *SpinOutcome) error {
	if out == nil {
		return fmt.Errorf("%w: empty outcome", ErrMalformedPlan)
	}
	if err := validateTumbles(out.Grid, out.TotalWin, out.Tumbles); err != nil {
		return err
	}
	for i, fs := range out.FreeSpins {
		if err := validateTumbles(fs.Grid, fs.TotalWin, fs.Tumbles); err != nil {
			return fmt.Errorf("free spin %d: %w", i, err)
		}
	}
	return nil
}

// validateTumbles enforces that the tumble wins add up to the reported total.
func validateTumbles(grid Grid, total decimal.Decimal, tumbles []TumbleRecord) error {
	if n := grid.Filled(); n != Rows*Cols {
		return fmt.Errorf("%w: grid has %d filled cells", ErrMalformedPlan, n)
	}
	sum := decimal.Zero
	for _, t := range tumbles {
		sum = sum.Add(t.Total())
	}
	if !sum.Equal(total) {
		return fmt.Errorf("%w: tumble wins %s != total win %s", ErrMalformedPlan, sum, total)
	}
	return nil
}

// ReplayResult is the settled outcome of one replayed grid.
type ReplayResult struct {
	Grid       Grid
	Steps      int
	Win        decimal.Decimal // sum of tumble wins
	Multiplier int
	Credited   decimal.Decimal // Win with the hazard multiplier applied
}

// Replayer plays one grid through the tumble loop and the hazard chain.
type Replayer struct {
	rules   *Rules
	board   *Board
	anim    Animator
	match   *MatchResolver
	cascade *CascadeEngine
	hazard  *HazardResolver
	bus     *Bus
	log     *log.Helper
}

func newReplayer(rules *Rules, board *Board, anim Animator, match *MatchResolver, cascade *CascadeEngine,
	hazard *HazardResolver, bus *Bus, logger log.Logger) *Replayer {
	return &Replayer{
		rules:   rules,
		board:   board,
		anim:    anim,
		match:   match,
		cascade: cascade,
		hazard:  hazard,
		bus:     bus,
		log:     log.NewHelper(log.With(logger, "module", "biz/replay")),
	}
}

// Replay consumes tumbles strictly in order until the grid has no more matches.
func (p *Replayer) Replay(ctx context.Context, spinID string, grid Grid, tumbles []TumbleRecord, bet decimal.Decimal, inBonus bool) (ReplayResult, error) {
	res := ReplayResult{Win: decimal.Zero}
	p.board.Load(grid)
	if err := Wait(ctx, p.anim.SpinIn(grid)); err != nil {
		return res, err
	}

	step := 0
	for {
		var rec *TumbleRecord
		if step < len(tumbles) {
			rec = &tumbles[step]
		}
		r, err := p.match.Resolve(grid, rec, inBonus, bet)
		if err != nil {
			return res, fmt.Errorf("step %d: %w", step, err)
		}
		if !r.Continue() {
			break
		}
		res.Win = res.Win.Add(r.StepWin)
		p.bus.Publish(Event{Kind: EventTumbleWin, SpinID: spinID, Step: step, Win: res.Win, Wins: r.Winners})
		if err := Wait(ctx, p.anim.Clusters(r.Winners)); err != nil {
			return res, err
		}
		if grid, err = p.cascade.Cascade(ctx, grid, r.Removal, rec, inBonus); err != nil {
			return res, fmt.Errorf("step %d: %w", step, err)
		}
		step++
	}
	res.Steps = step
	p.bus.Publish(Event{Kind: EventMatchesDone, SpinID: spinID, Step: step, Win: res.Win})

	for i := step; i < len(tumbles); i++ {
		if tumbles[i].Total().IsPositive() && !p.rules.DemoMode {
			return res, fmt.Errorf("%w: tumble %d carries a win but the grid has no match", ErrMalformedPlan, i)
		}
	}

	grid, mult, err := p.hazard.ExplodeAll(ctx, grid)
	if err != nil {
		return res, err
	}
	res.Grid = grid
	res.Multiplier = mult
	res.Credited = ApplyMultiplier(res.Win, mult)
	p.bus.Publish(Event{Kind: EventTumblesDone, SpinID: spinID, Step: step, Win: res.Credited})
	return res, nil
}
