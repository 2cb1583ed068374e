package biz

import (
	"context"
	"testing"
	"time"
)

func TestBusFanOut(t *testing.T) {
	bus := NewBus(testLogger)
	a, cancelA := bus.Subscribe(4)
	b, cancelB := bus.Subscribe(1)
	defer cancelA()

	bus.Publish(Event{Kind: EventSpinStart})
	bus.Publish(Event{Kind: EventSpinEnd}) // b is full, dropped for b only

	if e := <-a; e.Kind != EventSpinStart || e.At.IsZero() {
		t.Fatalf("a got %+v", e)
	}
	if e := <-a; e.Kind != EventSpinEnd {
		t.Fatalf("a got %+v", e)
	}
	if e := <-b; e.Kind != EventSpinStart {
		t.Fatalf("b got %+v", e)
	}
	cancelB()
	cancelB()
	if _, ok := <-b; ok {
		t.Fatal("b still open after cancel")
	}
	bus.Publish(Event{Kind: EventSpinStart})
}

func TestWaitAll(t *testing.T) {
	start := time.Now()
	if err := WaitAll(context.Background(), After(5*time.Millisecond), Done(), After(10*time.Millisecond), nil); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatal("WaitAll returned before the slowest task")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := WaitAll(ctx, make(chan struct{})); err == nil {
		t.Fatal("want context error")
	}
}
