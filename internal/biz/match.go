package biz

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/log"
)

// Resolution is the outcome of resolving one tumble step.
type Resolution struct {
	Winners          []ClusterWin
	Removal          Mask
	ScatterCount     int
	ScatterCandidate bool
	StepWin          decimal.Decimal
}

// Continue reports whether the step produced a cascade.
func (r Resolution) Continue() bool { return len(r.Winners) > 0 }

// MatchResolver finds the cluster wins of a grid.
type MatchResolver struct {
	rules *Rules
	pay   *Paytable
	log   *log.Helper
}

func NewMatchResolver(rules *Rules, pay *Paytable, logger log.Logger) *MatchResolver {
	return &MatchResolver{rules: rules, pay: pay, log: log.NewHelper(log.With(logger, "module", "biz/match"))}
}

// Resolve counts every code across the grid. Win amounts come from rec; the local
// paytable only stands in for a missing record in demo mode.
func (m *MatchResolver) Resolve(grid Grid, rec *TumbleRecord, inBonus bool, bet decimal.Decimal) (Resolution, error) {
	var res Resolution
	res.StepWin = decimal.Zero

	counts := countSymbols(grid)
	res.ScatterCount = counts[SymbolScatter]
	threshold := m.rules.ScatterBase
	if inBonus {
		threshold = m.rules.ScatterBonus
	}
	res.ScatterCandidate = res.ScatterCount >= threshold

	for sym := _minPaying; sym <= _maxPaying; sym++ {
		n := counts[sym]
		if n < m.rules.MinCluster {
			continue
		}
		win, err := m.winOf(sym, n, rec, bet)
		if err != nil {
			return Resolution{}, err
		}
		cw := ClusterWin{Symbol: sym, Count: n, Win: win, Cells: make([]Cell, 0, n)}
		for r := 0; r < Rows; r++ {
			for c := 0; c < Cols; c++ {
				if grid[r][c] == sym {
					cw.Cells = append(cw.Cells, Cell{Row: r, Col: c})
					res.Removal[r][c] = true
				}
			}
		}
		res.Winners = append(res.Winners, cw)
		res.StepWin = res.StepWin.Add(win)
	}
	return res, nil
}

func (m *MatchResolver) winOf(sym Symbol, count int, rec *TumbleRecord, bet decimal.Decimal) (decimal.Decimal, error) {
	if rec != nil {
		if w, ok := rec.WinOf(sym); ok {
			return w, nil
		}
	}
	if !m.rules.DemoMode {
		return decimal.Zero, fmt.Errorf("%w: no win recorded for symbol %d x%d", ErrMalformedPlan, sym, count)
	}
	m.log.Debugf("symbol %d x%d missing from record, using local paytable", sym, count)
	return m.pay.Win(sym, count, bet), nil
}

// countSymbols indexes paying codes and the scatter directly by code.
func countSymbols(g Grid) [_maxPaying + 1]int {
	var counts [_maxPaying + 1]int
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			if s := g[r][c]; s >= SymbolScatter && s <= _maxPaying {
				counts[s]++
			}
		}
	}
	return counts
}
