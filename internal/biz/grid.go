package biz

import (
	"sync"
)

// ActorID identifies one visual actor. Zero means no actor.
type ActorID uint64

type ActorKind int8

const (
	ActorNone ActorKind = iota
	ActorSymbol
	ActorHazard
)

func kindOf(s Symbol) ActorKind {
	switch {
	case s == SymbolEmpty:
		return ActorNone
	case s.IsHazard():
		return ActorHazard
	default:
		return ActorSymbol
	}
}

// VisualCell is the actor mapping of one cell. While a cascade is in flight a cell
// may hold an incoming Actor and a fading Outgoing actor at the same time.
type VisualCell struct {
	Kind     ActorKind `json:"kind"`
	Actor    ActorID   `json:"actor"`
	Outgoing ActorID   `json:"outgoing,omitempty"`
}

// Board is the grid store: the symbol matrix plus its cell -> actor mapping.
type Board struct {
	mu    sync.RWMutex
	grid  Grid
	cells [Rows][Cols]VisualCell
	seq   ActorID
}

func NewBoard() *Board {
	b := &Board{}
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			b.grid[r][c] = SymbolEmpty
		}
	}
	return b
}

func (b *Board) Grid() Grid {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.grid
}

func (b *Board) Cell(c Cell) VisualCell {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cells[c.Row][c.Col]
}

// Load replaces the whole board, giving every cell a fresh actor.
func (b *Board) Load(g Grid) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.grid = g
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			b.cells[r][c] = VisualCell{}
			if g[r][c] != SymbolEmpty {
				b.cells[r][c] = VisualCell{Kind: kindOf(g[r][c]), Actor: b.next()}
			}
		}
	}
}

// Remove empties the masked cells; their actors stay mapped as outgoing until released.
func (b *Board) Remove(mask Mask) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			if !mask[r][c] {
				continue
			}
			vc := &b.cells[r][c]
			if vc.Actor != 0 {
				vc.Outgoing = vc.Actor
			}
			vc.Actor, vc.Kind = 0, ActorNone
			b.grid[r][c] = SymbolEmpty
		}
	}
}

// Clear drops a cell and its actor at once.
func (b *Board) Clear(c Cell) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cells[c.Row][c.Col].Actor = 0
	b.cells[c.Row][c.Col].Kind = ActorNone
	b.grid[c.Row][c.Col] = SymbolEmpty
}

// move relocates the actor and symbol of m.From to m.To.
func (b *Board) move(m Move) {
	if m.From == m.To {
		return
	}
	src := &b.cells[m.From.Row][m.From.Col]
	dst := &b.cells[m.To.Row][m.To.Col]
	dst.Actor, dst.Kind = src.Actor, src.Kind
	b.grid[m.To.Row][m.To.Col] = b.grid[m.From.Row][m.From.Col]
	src.Actor, src.Kind = 0, ActorNone
	b.grid[m.From.Row][m.From.Col] = SymbolEmpty
}

// place puts a new actor for sym on c.
func (b *Board) place(c Cell, sym Symbol) ActorID {
	id := b.next()
	vc := &b.cells[c.Row][c.Col]
	vc.Actor, vc.Kind = id, kindOf(sym)
	b.grid[c.Row][c.Col] = sym
	return id
}

// Settle applies one column of a cascade: survivors move first, bottom-up, then the
// incoming symbols are placed. It returns the moves and spawns for the animator.
func (b *Board) Settle(col int, moves []Move, incoming []Symbol) ([]Move, []Spawn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Move, 0, len(moves))
	for i := len(moves) - 1; i >= 0; i-- {
		m := moves[i]
		m.Actor = b.cells[m.From.Row][m.From.Col].Actor
		b.move(m)
		out = append(out, m)
	}
	spawns := make([]Spawn, 0, len(incoming))
	for row, sym := range incoming {
		c := Cell{Row: row, Col: col}
		spawns = append(spawns, Spawn{Actor: b.place(c, sym), Cell: c, Symbol: sym})
	}
	return out, spawns
}

// ReleaseOutgoing unmaps every fading actor and returns them.
func (b *Board) ReleaseOutgoing() []ActorID {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []ActorID
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			if id := b.cells[r][c].Outgoing; id != 0 {
				ids = append(ids, id)
				b.cells[r][c].Outgoing = 0
			}
		}
	}
	return ids
}

// Fading counts cells that still map an outgoing actor.
func (b *Board) Fading() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			if b.cells[r][c].Outgoing != 0 {
				n++
			}
		}
	}
	return n
}

func (b *Board) next() ActorID {
	b.seq++
	return b.seq
}
