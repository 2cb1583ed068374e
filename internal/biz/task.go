package biz

import (
	"context"
	"time"
)

// Task is a one-shot completion handle of an animation. It is closed when done.
type Task <-chan struct{}

var _doneTask = func() Task {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Done returns an already completed task.
func Done() Task { return _doneTask }

// After returns a task completing after d.
func After(d time.Duration) Task {
	if d <= 0 {
		return _doneTask
	}
	ch := make(chan struct{})
	time.AfterFunc(d, func() { close(ch) })
	return ch
}

// Wait blocks until t completes or ctx ends.
func Wait(ctx context.Context, t Task) error {
	if t == nil {
		return nil
	}
	select {
	case <-t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitAll joins every task; it never returns on the first one.
func WaitAll(ctx context.Context, tasks ...Task) error {
	for _, t := range tasks {
		if err := Wait(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// sleep is a plain deadline timer.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
