package biz

import (
	"time"

	"github.com/yola1107/kratos/v2/log"
)

// Move relocates an existing actor during a fall.
type Move struct {
	Actor ActorID `json:"actor"`
	From  Cell    `json:"from"`
	To    Cell    `json:"to"`
}

// Spawn creates an incoming actor above the grid that lands on Cell.
type Spawn struct {
	Actor  ActorID `json:"actor"`
	Cell   Cell    `json:"cell"`
	Symbol Symbol  `json:"symbol"`
}

// Animator is the visual collaborator. Every call returns immediately with a task.
type Animator interface {
	SpinIn(grid Grid) Task
	Clusters(wins []ClusterWin) Task
	Drop(col int, moves []Move, spawns []Spawn) Task
	Anticipate(col int) Task
	Explode(h Hazard) (Task, error)
	ScatterFly(cells []Cell) Task
}

// Cues are fire-and-forget audio notifications.
type Cues interface {
	WinSound(tier OverlayTier)
	ChainExplosion(index int, multiplier int)
	Scatter(count int)
	Background(bonus bool)
}

// AnimationTimings drive the headless animator.
type AnimationTimings struct {
	SpinIn  time.Duration
	Cluster time.Duration
	Drop    time.Duration
	Fly     time.Duration
}

// HeadlessAnimator has no visuals; its tasks complete after fixed durations.
type HeadlessAnimator struct {
	t AnimationTimings
}

func NewHeadlessAnimator(t AnimationTimings) *HeadlessAnimator {
	return &HeadlessAnimator{t: t}
}

func (a *HeadlessAnimator) SpinIn(Grid) Task               { return After(a.t.SpinIn) }
func (a *HeadlessAnimator) Clusters([]ClusterWin) Task     { return After(a.t.Cluster) }
func (a *HeadlessAnimator) Drop(int, []Move, []Spawn) Task { return After(a.t.Drop) }
func (a *HeadlessAnimator) Anticipate(int) Task            { return Done() }
func (a *HeadlessAnimator) Explode(Hazard) (Task, error)   { return Done(), nil }
func (a *HeadlessAnimator) ScatterFly(cells []Cell) Task   { return After(a.t.Fly) }

// LogCues writes every cue to the log.
type LogCues struct {
	log *log.Helper
}

func NewLogCues(logger log.Logger) *LogCues {
	return &LogCues{log: log.NewHelper(log.With(logger, "module", "biz/cues"))}
}

func (c *LogCues) WinSound(tier OverlayTier) { c.log.Debugf("cue win sound tier=%s", tier) }
func (c *LogCues) ChainExplosion(index, multiplier int) {
	c.log.Debugf("cue chain explosion #%d x%d", index, multiplier)
}
func (c *LogCues) Scatter(count int)     { c.log.Debugf("cue scatter count=%d", count) }
func (c *LogCues) Background(bonus bool) { c.log.Debugf("cue background bonus=%v", bonus) }
