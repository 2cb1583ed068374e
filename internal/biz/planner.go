package biz

import (
	"sort"

	"github.com/shopspring/decimal"
)

const (
	_maxPlanSteps     = 64  // 单局最多消除次数
	_maxPlanFreeSpins = 100 // 免费游戏上限
)

// Planner computes complete outcomes locally. It stands in for the authority when
// the game runs offline and is never used to second-guess a live plan.
type Planner struct {
	rules *Rules
	pay   *Paytable
}

func NewPlanner(rules *Rules, pay *Paytable) *Planner {
	return &Planner{rules: rules, pay: pay}
}

// Plan returns a full outcome and the amount it credits, hazard multipliers included.
func (p *Planner) Plan(id string, bet decimal.Decimal, buyFeature, enhancedBet bool) (*SpinOutcome, decimal.Decimal) {
	force := 0
	if buyFeature {
		force = p.rules.ScatterBase
	}
	grid, tumbles, win, final := p.play(bet, false, enhancedBet, force)
	out := &SpinOutcome{ID: id, Grid: grid, TotalWin: win, Tumbles: tumbles}
	credited := ApplyMultiplier(win, CombineMultipliers(p.rules.HazardMode, FindHazards(final)))

	scatters := final.Count(SymbolScatter)
	if scatters < p.rules.ScatterBase {
		return out, credited
	}
	spins := p.rules.FreeSpinsFor(scatters)
	for i := 0; i < spins && i < _maxPlanFreeSpins; i++ {
		g, ts, w, f := p.play(bet, true, false, 0)
		out.FreeSpins = append(out.FreeSpins, FreeSpinEntry{Grid: g, TotalWin: w, Tumbles: ts})
		credited = credited.Add(ApplyMultiplier(w, CombineMultipliers(p.rules.HazardMode, FindHazards(f))))
		if f.Count(SymbolScatter) >= p.rules.ScatterBonus {
			spins += p.rules.Retrigger
		}
	}
	return out, credited
}

// play draws one grid and tumbles it to the end.
func (p *Planner) play(bet decimal.Decimal, bonus, enhanced bool, scatters int) (Grid, []TumbleRecord, decimal.Decimal, Grid) {
	var grid Grid
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			grid[r][c] = p.pay.Draw(bonus, enhanced)
		}
	}
	for grid.Count(SymbolScatter) < scatters {
		n := p.pay.Intn(Rows * Cols)
		grid[n/Cols][n%Cols] = SymbolScatter
	}

	start := grid
	total := decimal.Zero
	var tumbles []TumbleRecord
	for step := 0; step < _maxPlanSteps; step++ {
		counts := countSymbols(grid)
		var mask Mask
		var rec TumbleRecord
		for sym := _minPaying; sym <= _maxPaying; sym++ {
			if counts[sym] < p.rules.MinCluster {
				continue
			}
			w := p.pay.Win(sym, counts[sym], bet)
			rec.Wins = append(rec.Wins, SymbolWin{Symbol: sym, Win: w})
			total = total.Add(w)
			for r := 0; r < Rows; r++ {
				for c := 0; c < Cols; c++ {
					if grid[r][c] == sym {
						mask[r][c] = true
					}
				}
			}
		}
		if len(rec.Wins) == 0 {
			break
		}
		sort.Slice(rec.Wins, func(i, j int) bool { return rec.Wins[i].Symbol < rec.Wins[j].Symbol })
		var next Grid
		for c := 0; c < Cols; c++ {
			col, _, shortfall := collapseColumn(grid, mask, c)
			rec.Incoming[c] = make([]Symbol, shortfall)
			for r := 0; r < shortfall; r++ {
				rec.Incoming[c][r] = p.pay.Draw(bonus, enhanced)
				col[r] = rec.Incoming[c][r]
			}
			for r := 0; r < Rows; r++ {
				next[r][c] = col[r]
			}
		}
		tumbles = append(tumbles, rec)
		grid = next
	}
	return start, tumbles, total, grid
}
