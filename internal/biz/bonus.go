package biz

import (
	"context"
	"time"

	"github.com/looplab/fsm"
	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/log"
)

// BonusMachine owns the base/bonus transitions of a session.
type BonusMachine struct {
	fsm     *fsm.FSM
	rules   *Rules
	sess    *session
	overlay *OverlayQueue
	bus     *Bus
	anim    Animator
	cues    Cues
	log     *log.Helper
}

func newBonusMachine(rules *Rules, sess *session, overlay *OverlayQueue, bus *Bus, anim Animator, cues Cues, logger log.Logger) *BonusMachine {
	b := &BonusMachine{
		rules:   rules,
		sess:    sess,
		overlay: overlay,
		bus:     bus,
		anim:    anim,
		cues:    cues,
		log:     log.NewHelper(log.With(logger, "module", "biz/bonus")),
	}
	b.fsm = fsm.NewFSM(
		stateBase,
		fsm.Events{
			{Name: eventTrigger, Src: []string{stateBase}, Dst: stateBonus},
			{Name: eventFinish, Src: []string{stateBonus}, Dst: stateBase},
		},
		fsm.Callbacks{
			"enter_" + stateBonus: func(_ context.Context, e *fsm.Event) {
				b.enterBonus(e.Args[0].(int))
			},
			"enter_" + stateBase: func(_ context.Context, e *fsm.Event) {
				b.enterBase()
			},
		},
	)
	return b
}

func (b *BonusMachine) InBonus() bool { return b.fsm.Current() == stateBonus }

func (b *BonusMachine) State() string { return b.fsm.Current() }

// CheckScatter runs the deferred scatter check of a settled grid. It returns true when
// free spins were granted (entry or retrigger).
func (b *BonusMachine) CheckScatter(ctx context.Context, grid Grid) (bool, error) {
	cells := scatterCells(grid)
	n := len(cells)
	inBonus := b.InBonus()
	switch {
	case !inBonus && n >= b.rules.ScatterBase:
		return true, b.Trigger(ctx, cells)
	case inBonus && n >= b.rules.ScatterBonus:
		return true, b.Retrigger(ctx, cells)
	}
	return false, nil
}

// Trigger enters the bonus round once the scatter-fly animation has finished.
func (b *BonusMachine) Trigger(ctx context.Context, cells []Cell) error {
	b.cues.Scatter(len(cells))
	if err := Wait(ctx, b.anim.ScatterFly(cells)); err != nil {
		return err
	}
	return b.fsm.Event(ctx, eventTrigger, len(cells))
}

// Retrigger adds free spins inside the bonus. It is not an fsm transition.
func (b *BonusMachine) Retrigger(ctx context.Context, cells []Cell) error {
	b.cues.Scatter(len(cells))
	if err := Wait(ctx, b.anim.ScatterFly(cells)); err != nil {
		return err
	}
	var left int
	b.sess.update(func(s *SessionState) {
		s.FreeSpinsRemaining += b.rules.Retrigger
		left = s.FreeSpinsRemaining
	})
	b.overlay.EnqueueSentinel(decimal.NewFromInt(int64(b.rules.Retrigger)), TierRetrigger)
	b.log.Infof("retrigger: %d scatters, +%d spins, %d left", len(cells), b.rules.Retrigger, left)
	return nil
}

// Finish returns to the base game. A second call is rejected by the fsm.
func (b *BonusMachine) Finish(ctx context.Context) error {
	return b.fsm.Event(ctx, eventFinish)
}

// Rollback puts the machine back in the state it had before an aborted spin. It runs
// no callbacks, so no summary is shown and nothing is credited.
func (b *BonusMachine) Rollback(inBonus bool) {
	if b.InBonus() == inBonus {
		return
	}
	st := stateBase
	if inBonus {
		st = stateBonus
	}
	b.fsm.SetState(st)
	b.cues.Background(inBonus)
	b.log.Warnf("bonus state rolled back to %s", st)
}

func (b *BonusMachine) enterBonus(scatters int) {
	grant := b.rules.FreeSpinsFor(scatters)
	var paused bool
	var spins int
	b.sess.update(func(s *SessionState) {
		s.IsBonusRound = true
		s.FreeSpinsRemaining = grant
		s.TotalBonusWin = decimal.Zero
		s.LockoutUntil = time.Now().Add(b.rules.Delays.Lockout)
		if s.AutoplayRemaining > 0 && !s.AutoplayPaused {
			s.AutoplayPaused, paused = true, true
		}
		spins = s.FreeSpinsRemaining
	})
	b.overlay.EnqueueSentinel(decimal.NewFromInt(int64(grant)), TierFreeSpinsWon)
	if paused {
		b.bus.Publish(Event{Kind: EventAutoplayPaused, Reason: "bonus"})
	}
	b.bus.Publish(Event{Kind: EventBonusEnter, FreeSpins: spins})
	b.cues.Background(true)
	bonusEntered.Inc()
	b.log.Infof("enter bonus: %d scatters, %d free spins", scatters, grant)
}

func (b *BonusMachine) enterBase() {
	var total decimal.Decimal
	b.sess.update(func(s *SessionState) {
		total = s.TotalBonusWin
		s.IsBonusRound = false
		s.FreeSpinsRemaining = 0
		s.TotalBonusWin = decimal.Zero
		s.UsesAPIFreeSpins = false
		s.APIFreeSpinList = nil
		s.APIFreeSpinIndex = 0
	})
	b.overlay.EnqueueSentinel(total, TierBonusSummary)
	b.bus.Publish(Event{Kind: EventBonusExit, Win: total})
	b.cues.Background(false)
	b.log.Infof("exit bonus: total %s", total)
}

func scatterCells(g Grid) []Cell {
	var cells []Cell
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			if g[r][c] == SymbolScatter {
				cells = append(cells, Cell{Row: r, Col: c})
			}
		}
	}
	return cells
}
