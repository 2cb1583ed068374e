package biz

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/log"
)

// EventKind names a notification emitted to the UI.
type EventKind string

const (
	EventSpinStart      EventKind = "spin_start"
	EventSpinEnd        EventKind = "spin_end"
	EventTumbleWin      EventKind = "tumble_win"
	EventMatchesDone    EventKind = "matches_done"
	EventTumblesDone    EventKind = "tumbles_done"
	EventOverlayShow    EventKind = "overlay_show"
	EventOverlayHide    EventKind = "overlay_hide"
	EventAutoplayPaused EventKind = "autoplay_paused"
	EventBalanceUpdate  EventKind = "balance_update"
	EventBonusEnter     EventKind = "bonus_enter"
	EventBonusExit      EventKind = "bonus_exit"
	EventSessionTimeout EventKind = "session_timeout"
	EventSpinError      EventKind = "spin_error"
)

// Event is one notification. Only the fields relevant to Kind are set.
type Event struct {
	Kind      EventKind       `json:"kind"`
	SpinID    string          `json:"spin_id,omitempty"`
	Step      int             `json:"step,omitempty"`
	Win       decimal.Decimal `json:"win"`
	Wins      []ClusterWin    `json:"wins,omitempty"`
	Overlay   *OverlayRequest `json:"overlay,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
	FreeSpins int             `json:"free_spins,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	At        time.Time       `json:"at"`
}

// Bus fans events out to subscribers. A slow subscriber loses events rather than
// stalling the pipeline.
type Bus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	seq  uint64
	log  *log.Helper
}

func NewBus(logger log.Logger) *Bus {
	return &Bus{
		subs: make(map[uint64]chan Event),
		log:  log.NewHelper(log.With(logger, "module", "biz/bus")),
	}
}

// Subscribe returns a channel of events and its cancel func.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	id := b.seq
	ch := make(chan Event, buffer)
	b.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.log.Warnf("subscriber %d is full, dropped %s", id, e.Kind)
		}
	}
}
