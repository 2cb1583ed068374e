package biz

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// 本地赔率表, 仅离线/演示模式使用. 线上赢分一律以服务端 tumble 记录为准.
// 列: 8-9 个, 10-11 个, 12 个及以上 (倍数为押注的倍数)
var _payOdds = [_maxPaying + 1][3]float64{
	{},
	{10, 25, 50},
	{2.5, 10, 25},
	{2, 5, 15},
	{1.5, 2, 12},
	{1, 1.5, 10},
	{0.8, 1.2, 8},
	{0.5, 1, 5},
	{0.4, 0.9, 4},
	{0.25, 0.75, 2},
}

// 出现权重, 下标即符号
var _symbolWeight = [_maxPaying + 1]int{0, 4, 6, 8, 10, 12, 14, 16, 18, 20}

const (
	_scatterWeight         = 3  // 夺宝权重
	_scatterWeightEnhanced = 6  // 加注模式夺宝翻倍
	_hazardWeight          = 2  // 炸弹权重, 仅免费游戏
	_hazardTierCut         = 10 // 前 10 档炸弹较常见
)

// Paytable is the local odds table plus the random symbol source of the offline path.
type Paytable struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewPaytable() *Paytable {
	return NewSeededPaytable(uint64(time.Now().UnixNano()))
}

// NewSeededPaytable returns a paytable whose draws are reproducible.
func NewSeededPaytable(seed uint64) *Paytable {
	return &Paytable{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Odds returns the multiple of the bet paid for count occurrences of sym.
func (p *Paytable) Odds(sym Symbol, count int) decimal.Decimal {
	if !sym.IsPaying() || count < _defaultMinCluster {
		return decimal.Zero
	}
	col := 0
	switch {
	case count >= 12:
		col = 2
	case count >= 10:
		col = 1
	}
	return decimal.NewFromFloat(_payOdds[sym][col])
}

func (p *Paytable) Win(sym Symbol, count int, bet decimal.Decimal) decimal.Decimal {
	return p.Odds(sym, count).Mul(bet).Round(2)
}

// Draw picks one random symbol. Hazards only appear in bonus.
func (p *Paytable) Draw(bonus, enhanced bool) Symbol {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draw(bonus, enhanced)
}

// Filler returns n random symbols for an exhausted incoming queue.
func (p *Paytable) Filler(n int, bonus bool) []Symbol {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Symbol, n)
	for i := range out {
		out[i] = p.draw(bonus, false)
	}
	return out
}

// Intn exposes the shared source to the offline planner.
func (p *Paytable) Intn(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(n)
}

func (p *Paytable) draw(bonus, enhanced bool) Symbol {
	total := 0
	for _, w := range _symbolWeight {
		total += w
	}
	scatter := _scatterWeight
	if enhanced {
		scatter = _scatterWeightEnhanced
	}
	total += scatter
	if bonus {
		total += _hazardWeight
	}
	n := p.rng.IntN(total)
	for i, w := range _symbolWeight {
		if n < w {
			return Symbol(i)
		}
		n -= w
	}
	if n < scatter {
		return SymbolScatter
	}
	// 炸弹: 低倍数更常见
	tier := p.rng.IntN(_hazardTierCut)
	if p.rng.IntN(10) == 0 {
		tier = p.rng.IntN(len(_hazardTiers))
	}
	return _hazardMin + Symbol(tier)
}
