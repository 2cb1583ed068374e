package server

import (
	"net/http"
	"sync"
	"time"

	"bonanza/encoding"
	"bonanza/internal/biz"

	"github.com/gorilla/websocket"
	"github.com/yola1107/kratos/v2/log"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 30 * time.Second
	pingPeriod   = 25 * time.Second
	streamBuffer = 256
)

// command is the only inbound message: player input forwarded to the core.
type command struct {
	Action string `json:"action"`
}

// EventStream pushes every bus event to websocket clients as JSON.
type EventStream struct {
	uc       *biz.SpinUsecase
	bus      *biz.Bus
	upgrader websocket.Upgrader
	log      *log.Helper

	mu      sync.Mutex
	clients int
}

func NewEventStream(uc *biz.SpinUsecase, bus *biz.Bus, logger log.Logger) *EventStream {
	return &EventStream{
		uc:  uc,
		bus: bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log.NewHelper(log.With(logger, "module", "server/ws")),
	}
}

func (s *EventStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("upgrade %s: %v", r.RemoteAddr, err)
		return
	}
	events, cancel := s.bus.Subscribe(streamBuffer)
	s.track(1)
	s.log.Infof("stream client %s connected", r.RemoteAddr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.readPump(conn)
	}()
	s.writePump(conn, events, done)

	cancel()
	conn.Close()
	s.track(-1)
	s.log.Infof("stream client %s gone", r.RemoteAddr)
}

func (s *EventStream) track(delta int) {
	s.mu.Lock()
	s.clients += delta
	s.mu.Unlock()
}

// Clients returns the number of connected clients.
func (s *EventStream) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients
}

func (s *EventStream) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(1024)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd command
		if err := encoding.Unmarshal(msg, &cmd); err != nil {
			s.log.Debugf("bad command %q: %v", msg, err)
			continue
		}
		switch cmd.Action {
		case "dismiss":
			s.uc.DismissOverlay()
		case "stop_autoplay":
			s.uc.StopAutoplay()
		default:
			s.log.Debugf("unknown action %q", cmd.Action)
		}
	}
}

func (s *EventStream) writePump(conn *websocket.Conn, events <-chan biz.Event, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			body, err := encoding.Marshal(e)
			if err != nil {
				s.log.Errorf("encode %s: %v", e.Kind, err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
