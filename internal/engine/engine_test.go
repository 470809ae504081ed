package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"papertrader/internal/model"
)

type countingObserver struct {
	n atomic.Int64
}

func (c *countingObserver) Observe(model.Tick) { c.n.Add(1) }

func TestLoopAppliesTicksInOrder(t *testing.T) {
	l := newTestLedger("1000")
	obs := &countingObserver{}
	loop := NewLoop(l, nil, obs)

	ticks := make(chan model.Tick, 8)
	for _, p := range []string{"100", "101", "102"} {
		ticks <- tick(p)
	}
	close(ticks)

	done := make(chan struct{})
	go func() {
		loop.Run(context.Background(), ticks)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not drain the channel")
	}

	if got := l.LastPrice(); !got.Equal(dec("102")) {
		t.Fatalf("last price: got %s, want 102", got)
	}
	if got := obs.n.Load(); got != 3 {
		t.Fatalf("observer calls: got %d, want 3", got)
	}
}

func TestLoopStopsOnCancel(t *testing.T) {
	l := newTestLedger("1000")
	loop := NewLoop(l, nil)

	ctx, cancel := context.WithCancel(context.Background())
	ticks := make(chan model.Tick)
	done := make(chan struct{})
	go func() {
		loop.Run(ctx, ticks)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop on cancel")
	}
}
