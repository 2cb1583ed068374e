package biz

import (
	"context"
	"sync"
	"time"
)

// _autoplayRetry paces retries when a spin is rejected for timing reasons.
const _autoplayRetry = 50 * time.Millisecond

type autoplay struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// StartAutoplay spins count times back to back in the background. It stops when the
// count runs out, on StopAutoplay, on an error, or when a bonus pauses it.
func (uc *SpinUsecase) StartAutoplay(req SpinRequest, count int) error {
	if !req.Bet.IsPositive() {
		return ErrInvalidBet
	}
	uc.auto.mu.Lock()
	defer uc.auto.mu.Unlock()
	if uc.auto.cancel != nil {
		uc.auto.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	uc.auto.cancel, uc.auto.done = cancel, done

	uc.sess.update(func(s *SessionState) {
		s.AutoplayRemaining = count
		s.AutoplayPaused = false
	})
	uc.overlay.SetAutoplay(true)
	go func() {
		defer close(done)
		uc.autoLoop(ctx, req)
		uc.auto.mu.Lock()
		if uc.auto.done == done {
			uc.overlay.SetAutoplay(false)
		}
		uc.auto.mu.Unlock()
	}()
	return nil
}

// StopAutoplay ends the loop after the spin in flight, if any.
func (uc *SpinUsecase) StopAutoplay() {
	uc.auto.mu.Lock()
	cancel := uc.auto.cancel
	uc.auto.cancel = nil
	uc.auto.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	uc.sess.update(func(s *SessionState) { s.AutoplayRemaining = 0 })
	uc.overlay.SetAutoplay(false)
}

// AutoplayDone is closed when the current loop exits.
func (uc *SpinUsecase) AutoplayDone() <-chan struct{} {
	uc.auto.mu.Lock()
	defer uc.auto.mu.Unlock()
	if uc.auto.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return uc.auto.done
}

func (uc *SpinUsecase) autoLoop(ctx context.Context, req SpinRequest) {
	for {
		st := uc.sess.snapshot()
		if st.AutoplayRemaining <= 0 || st.AutoplayPaused {
			uc.log.Infof("autoplay stopped: remaining=%d paused=%v", st.AutoplayRemaining, st.AutoplayPaused)
			return
		}
		if ctx.Err() != nil {
			return
		}
		switch reason := uc.acquire(ctx, false); reason {
		case "":
		case RejectSpinning, RejectInterval, RejectOverlay:
			if sleep(ctx, _autoplayRetry) != nil {
				return
			}
			continue
		default:
			uc.log.Infof("autoplay stopped: %s", reason)
			return
		}
		// counted after the spin so a bonus entered on the last one still pauses autoplay
		err := uc.run(context.WithoutCancel(ctx), req)
		uc.sess.update(func(s *SessionState) {
			if s.AutoplayRemaining > 0 {
				s.AutoplayRemaining--
			}
		})
		uc.release()
		if err != nil {
			uc.log.Warnf("autoplay stopped on error: %v", err)
			return
		}
	}
}
