package main

import (
	"flag"
	"os"
	"os/signal"
	"sync"
	"time"

	"bonanza/encoding"
	"bonanza/internal/biz"

	"github.com/gorilla/websocket"
	"github.com/yola1107/kratos/v2/log"
)

var (
	endpoint string
	dismiss  bool
)

func init() {
	flag.StringVar(&endpoint, "addr", "ws://127.0.0.1:8000/v1/events", "event stream endpoint")
	flag.BoolVar(&dismiss, "dismiss", false, "tap every win overlay away as soon as it shows")
}

func main() {
	flag.Parse()
	logger := log.NewHelper(log.With(log.DefaultLogger, "ts", log.DefaultTimestamp))

	logger.Infof("watching %s", endpoint)
	defer logger.Infof("close watcher")

	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// gorilla allows one concurrent writer
	var wmu sync.Mutex
	write := func(kind int, body []byte) error {
		wmu.Lock()
		defer wmu.Unlock()
		return conn.WriteMessage(kind, body)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				logger.Warnf("read: %v", err)
				return
			}
			var e biz.Event
			if err := encoding.Unmarshal(msg, &e); err != nil {
				logger.Errorf("decode %s: %v", msg, err)
				continue
			}
			logger.Infof("%-16s %s", e.Kind, msg)
			if dismiss && e.Kind == biz.EventOverlayShow {
				// the input lock swallows taps that come too early
				time.AfterFunc(time.Second, func() {
					_ = write(websocket.TextMessage, []byte(`{"action":"dismiss"}`))
				})
			}
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		_ = write(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}
