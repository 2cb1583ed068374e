package biz

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Symbol is a grid symbol code.
type Symbol int64

func (s Symbol) IsScatter() bool { return s == SymbolScatter }
func (s Symbol) IsPaying() bool  { return s >= _minPaying && s <= _maxPaying }
func (s Symbol) IsHazard() bool  { return s >= _hazardMin && s <= _hazardMax }

// HazardMultiplier returns the multiplier embedded in a hazard code, 0 otherwise.
func (s Symbol) HazardMultiplier() int {
	if !s.IsHazard() {
		return 0
	}
	return _hazardTiers[s-_hazardMin]
}

// HazardSymbol returns the hazard code carrying multiplier m.
func HazardSymbol(m int) (Symbol, bool) {
	for i, v := range _hazardTiers {
		if v == m {
			return _hazardMin + Symbol(i), true
		}
	}
	return SymbolEmpty, false
}

// Cell addresses one grid position.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Cell) String() string { return fmt.Sprintf("(%d,%d)", c.Row, c.Col) }

// Grid is row-major: Grid[row][col], row 0 on top.
type Grid [Rows][Cols]Symbol

// Mask marks cells removed by a tumble step.
type Mask [Rows][Cols]bool

func (m Mask) Count() int {
	n := 0
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			if m[r][c] {
				n++
			}
		}
	}
	return n
}

// Count returns the occurrences of sym.
func (g Grid) Count(sym Symbol) int {
	n := 0
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			if g[r][c] == sym {
				n++
			}
		}
	}
	return n
}

// Filled returns the number of non-empty cells.
func (g Grid) Filled() int {
	return Rows*Cols - g.Count(SymbolEmpty)
}

func (g Grid) String() string {
	var b strings.Builder
	b.Grow(Rows * Cols * 4)
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			if c > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strconv.FormatInt(int64(g[r][c]), 10))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// TransposeArea converts the backend's column-major area ([col][row]) into a Grid.
func TransposeArea(area [][]Symbol) (Grid, error) {
	var g Grid
	if len(area) != Cols {
		return g, fmt.Errorf("%w: area has %d columns, want %d", ErrMalformedPlan, len(area), Cols)
	}
	for c, col := range area {
		if len(col) != Rows {
			return g, fmt.Errorf("%w: area column %d has %d rows, want %d", ErrMalformedPlan, c, len(col), Rows)
		}
		for r, sym := range col {
			g[r][c] = sym
		}
	}
	return g, nil
}

// SymbolWin is the authoritative win of one code in one tumble step.
type SymbolWin struct {
	Symbol Symbol          `json:"symbol"`
	Win    decimal.Decimal `json:"win"`
}

// TumbleRecord is one authoritative cascade step.
type TumbleRecord struct {
	Incoming [Cols][]Symbol `json:"incoming"`
	Wins     []SymbolWin    `json:"wins"`
}

// WinOf returns the authoritative win for sym.
func (t TumbleRecord) WinOf(sym Symbol) (decimal.Decimal, bool) {
	for _, w := range t.Wins {
		if w.Symbol == sym {
			return w.Win, true
		}
	}
	return decimal.Zero, false
}

// Total sums every symbol win of the step.
func (t TumbleRecord) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, w := range t.Wins {
		sum = sum.Add(w.Win)
	}
	return sum
}

// FreeSpinEntry is one pre-computed free spin of a batch.
type FreeSpinEntry struct {
	Grid     Grid            `json:"grid"`
	TotalWin decimal.Decimal `json:"total_win"`
	Tumbles  []TumbleRecord  `json:"tumbles"`
}

// SpinOutcome is the authoritative plan of one spin.
type SpinOutcome struct {
	ID        string          `json:"id"`
	Grid      Grid            `json:"grid"`
	TotalWin  decimal.Decimal `json:"total_win"`
	Tumbles   []TumbleRecord  `json:"tumbles"`
	FreeSpins []FreeSpinEntry `json:"free_spins,omitempty"`
}

// SpinRequest is what the player asked for.
type SpinRequest struct {
	Bet         decimal.Decimal `json:"bet"`
	BuyFeature  bool            `json:"buy_feature"`
	EnhancedBet bool            `json:"enhanced_bet"`
}

// SessionState is owned by SpinUsecase; readers get copies.
type SessionState struct {
	Bet                decimal.Decimal `json:"bet"`
	IsBonusRound       bool            `json:"is_bonus_round"`
	IsSpinning         bool            `json:"is_spinning"`
	FreeSpinsRemaining int             `json:"free_spins_remaining"`
	TotalWinThisSpin   decimal.Decimal `json:"total_win_this_spin"`
	TotalBonusWin      decimal.Decimal `json:"total_bonus_win"`
	UsesAPIFreeSpins   bool            `json:"uses_api_free_spins"`
	APIFreeSpinList    []FreeSpinEntry `json:"-"`
	APIFreeSpinIndex   int             `json:"api_free_spin_index"`
	AutoplayRemaining  int             `json:"autoplay_remaining"`
	AutoplayPaused     bool            `json:"autoplay_paused"`
	LockoutUntil       time.Time       `json:"lockout_until"`
	LastSpinAt         time.Time       `json:"last_spin_at"`
	Balance            decimal.Decimal `json:"balance"`
}

// OverlayTier selects the celebration presentation.
type OverlayTier string

const (
	TierNone         OverlayTier = ""
	TierBig          OverlayTier = "big"
	TierMega         OverlayTier = "mega"
	TierEpic         OverlayTier = "epic"
	TierFreeSpinsWon OverlayTier = "free_spins_won"
	TierRetrigger    OverlayTier = "retrigger"
	TierBonusSummary OverlayTier = "bonus_summary"
)

var _ratioTiers = [...]OverlayTier{TierBig, TierMega, TierEpic}

// IsSentinel reports tiers that bypass the ratio table.
func (t OverlayTier) IsSentinel() bool {
	return t == TierFreeSpinsWon || t == TierRetrigger || t == TierBonusSummary
}

// OverlayRequest is immutable once enqueued.
type OverlayRequest struct {
	ID     uint64          `json:"id"`
	Amount decimal.Decimal `json:"amount"`
	Tier   OverlayTier     `json:"tier"`
}

// ClusterWin is the display data of one winning code.
type ClusterWin struct {
	Symbol Symbol          `json:"symbol"`
	Count  int             `json:"count"`
	Win    decimal.Decimal `json:"win"`
	Cells  []Cell          `json:"cells"`
}

// Hazard is one bomb cell awaiting its explosion.
type Hazard struct {
	Cell       Cell   `json:"cell"`
	Symbol     Symbol `json:"symbol"`
	Multiplier int    `json:"multiplier"`
}
