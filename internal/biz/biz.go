package biz

import (
	"time"

	"bonanza/internal/conf"

	"github.com/google/wire"
	"github.com/yola1107/kratos/v2/log"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewRules,
	NewBus,
	NewPaytable,
	NewAnimationTimings,
	NewHeadlessAnimator,
	wire.Bind(new(Animator), new(*HeadlessAnimator)),
	NewLogCues,
	wire.Bind(new(Cues), new(*LogCues)),
	NewBoard,
	NewMatchResolver,
	NewCascadeEngine,
	NewHazardResolver,
	NewOverlayQueue,
	NewSpinUsecase,
)

// Delays are the fixed deadline timers of the pipeline.
type Delays struct {
	Anticipation    time.Duration
	Explosion       time.Duration
	ExplosionGap    time.Duration
	InputLock       time.Duration
	AutoDismiss     time.Duration
	Lockout         time.Duration
	MinSpinInterval time.Duration
}

// Rules is the resolved game configuration with defaults applied.
type Rules struct {
	DemoMode      bool
	MinCluster    int
	ScatterBase   int
	ScatterBonus  int
	Retrigger     int
	FreeSpinTable map[int]int
	HazardMode    string
	OverlayTiers  []float64
	Delays        Delays
}

// DefaultRules returns the stock rules with every delay disabled.
func DefaultRules() *Rules {
	table := make(map[int]int, len(_defaultFreeSpinTable))
	for k, v := range _defaultFreeSpinTable {
		table[k] = v
	}
	return &Rules{
		MinCluster:    _defaultMinCluster,
		ScatterBase:   _defaultScatterBase,
		ScatterBonus:  _defaultScatterBonus,
		Retrigger:     _defaultRetrigger,
		FreeSpinTable: table,
		HazardMode:    HazardAdditive,
		OverlayTiers:  append([]float64(nil), _defaultOverlayTiers...),
	}
}

func NewRules(c *conf.Game, logger log.Logger) *Rules {
	r := DefaultRules()
	if c == nil {
		return r
	}
	r.DemoMode = c.DemoMode
	if c.MinClusterCount > 0 {
		r.MinCluster = c.MinClusterCount
	}
	if c.ScatterBase > 0 {
		r.ScatterBase = c.ScatterBase
	}
	if c.ScatterBonus > 0 {
		r.ScatterBonus = c.ScatterBonus
	}
	if c.RetriggerSpins > 0 {
		r.Retrigger = c.RetriggerSpins
	}
	if len(c.FreeSpinTable) > 0 {
		r.FreeSpinTable = c.FreeSpinTable
	}
	switch c.HazardMode {
	case "", HazardAdditive:
	case HazardMultiplicative:
		r.HazardMode = HazardMultiplicative
	default:
		log.NewHelper(logger).Warnf("unknown hazard_mode %q, using %s", c.HazardMode, HazardAdditive)
	}
	if len(c.OverlayTiers) == len(_ratioTiers) {
		r.OverlayTiers = c.OverlayTiers
	}
	if d := c.Delays; d != nil {
		r.Delays = Delays{
			Anticipation:    d.Anticipation.AsDuration(),
			Explosion:       d.Explosion.AsDuration(),
			ExplosionGap:    d.ExplosionGap.AsDuration(),
			InputLock:       d.InputLock.AsDuration(),
			AutoDismiss:     d.AutoDismiss.AsDuration(),
			Lockout:         d.Lockout.AsDuration(),
			MinSpinInterval: d.MinSpinInterval.AsDuration(),
		}
	}
	return r
}

// FreeSpinsFor looks up the grant for a scatter count, clamped to the largest key.
func (r *Rules) FreeSpinsFor(scatters int) int {
	best, spins := -1, 0
	for k, v := range r.FreeSpinTable {
		if k <= scatters && k > best {
			best, spins = k, v
		}
	}
	return spins
}

func NewAnimationTimings(c *conf.Game) AnimationTimings {
	if c == nil || c.Animation == nil {
		return AnimationTimings{}
	}
	a := c.Animation
	return AnimationTimings{
		SpinIn:  a.SpinIn.AsDuration(),
		Cluster: a.Cluster.AsDuration(),
		Drop:    a.Drop.AsDuration(),
		Fly:     a.Fly.AsDuration(),
	}
}
