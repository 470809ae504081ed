package strategy

import (
	"testing"
	"time"

	"papertrader/internal/marketdata"
	"papertrader/internal/model"
	"papertrader/internal/types"

	"github.com/shopspring/decimal"
)

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()
	g, err := NewGenerator(Config{
		Interval: time.Second,
		Cooldown: time.Minute,
	}, []Strategy{
		NewMomentum(nil),
		NewMeanReversion(nil),
		NewTrendFollowing(nil),
	}, types.StrategyMomentum, marketdata.NewBus(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func observe(g *Generator, vals ...float64) {
	for _, v := range vals {
		g.Observe(model.Tick{Price: decimal.NewFromFloat(v), Timestamp: time.Now()})
	}
}

func TestGeneratorEmitsOnThreshold(t *testing.T) {
	g := newTestGenerator(t)
	observe(g, 100, 100, 100, 100, 102)

	g.analyzeOnce()
	select {
	case sig := <-g.Signals():
		if sig.Action != types.SignalBuy {
			t.Fatalf("action: got %q", sig.Action)
		}
		if sig.Strategy != types.StrategyMomentum {
			t.Fatalf("strategy: got %q", sig.Strategy)
		}
		if sig.Timestamp.IsZero() {
			t.Fatal("timestamp not set")
		}
	default:
		t.Fatal("expected a signal")
	}
}

func TestGeneratorCooldownSuppressesRepeat(t *testing.T) {
	g := newTestGenerator(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return base }
	observe(g, 100, 100, 100, 100, 102)

	g.analyzeOnce()
	if len(g.Signals()) != 1 {
		t.Fatalf("signals after first cycle: %d", len(g.Signals()))
	}

	// Still inside the cooldown: nothing new.
	g.now = func() time.Time { return base.Add(30 * time.Second) }
	g.analyzeOnce()
	if len(g.Signals()) != 1 {
		t.Fatalf("signal emitted inside cooldown")
	}

	// Past the cooldown the strategy may fire again.
	g.now = func() time.Time { return base.Add(2 * time.Minute) }
	g.analyzeOnce()
	if len(g.Signals()) != 2 {
		t.Fatalf("signals after cooldown: %d, want 2", len(g.Signals()))
	}
}

func TestGeneratorWindowBounded(t *testing.T) {
	g := newTestGenerator(t)
	for i := 0; i < WindowSize+25; i++ {
		observe(g, 100)
	}
	g.mu.Lock()
	n := len(g.window)
	g.mu.Unlock()
	if n != WindowSize {
		t.Fatalf("window length: got %d, want %d", n, WindowSize)
	}
}

func TestSetStrategy(t *testing.T) {
	g := newTestGenerator(t)
	if err := g.SetStrategy(types.StrategyTrendFollow); err != nil {
		t.Fatal(err)
	}
	if got := g.Current(); got != types.StrategyTrendFollow {
		t.Fatalf("current: got %q", got)
	}
	if err := g.SetStrategy("martingale"); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestIgnoresNonPositivePrices(t *testing.T) {
	g := newTestGenerator(t)
	g.Observe(model.Tick{Price: decimal.Zero})
	g.Observe(model.Tick{Price: decimal.NewFromInt(-5)})
	g.mu.Lock()
	n := len(g.window)
	g.mu.Unlock()
	if n != 0 {
		t.Fatalf("window length: got %d, want 0", n)
	}
}
