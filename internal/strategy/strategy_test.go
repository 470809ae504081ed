package strategy

import (
	"testing"

	"papertrader/internal/types"

	"github.com/shopspring/decimal"
)

func prices(vals ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}

func flat(n int, v float64) []decimal.Decimal {
	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}

func TestMomentumSignals(t *testing.T) {
	// Fallback disabled: a nil source means thresholds decide everything.
	m := NewMomentum(nil)

	if _, ok := m.Analyze(prices(100, 101, 102)); ok {
		t.Fatal("signal from a short window")
	}
	if _, ok := m.Analyze(flat(10, 100)); ok {
		t.Fatal("signal from a flat window")
	}

	sig, ok := m.Analyze(prices(100, 100, 100, 100, 100, 101))
	if !ok {
		t.Fatal("expected BUY on +1% move")
	}
	if sig.Action != types.SignalBuy {
		t.Fatalf("action: got %q", sig.Action)
	}
	if sig.Confidence != 60 {
		t.Fatalf("confidence: got %d, want 60", sig.Confidence)
	}
	if sig.Strategy != types.StrategyMomentum {
		t.Fatalf("strategy tag: got %q", sig.Strategy)
	}

	sig, ok = m.Analyze(prices(100, 100, 100, 100, 100, 99))
	if !ok || sig.Action != types.SignalSell {
		t.Fatalf("expected SELL on -1%% move, got %+v ok=%v", sig, ok)
	}
}

func TestMomentumConfidenceCapped(t *testing.T) {
	m := NewMomentum(nil)
	sig, ok := m.Analyze(prices(100, 100, 100, 100, 100, 200))
	if !ok {
		t.Fatal("expected signal")
	}
	if sig.Confidence != 95 {
		t.Fatalf("confidence: got %d, want cap 95", sig.Confidence)
	}
}

func TestMeanReversionSignals(t *testing.T) {
	m := NewMeanReversion(nil)

	if _, ok := m.Analyze(flat(9, 100)); ok {
		t.Fatal("signal from a short window")
	}
	if _, ok := m.Analyze(flat(10, 100)); ok {
		t.Fatal("signal from a flat window")
	}

	// Latest stretched above the 10-sample mean: expect reversion down.
	window := append(flat(9, 100), decimal.NewFromFloat(102))
	sig, ok := m.Analyze(window)
	if !ok || sig.Action != types.SignalSell {
		t.Fatalf("expected SELL above mean, got %+v ok=%v", sig, ok)
	}

	window = append(flat(9, 100), decimal.NewFromFloat(98))
	sig, ok = m.Analyze(window)
	if !ok || sig.Action != types.SignalBuy {
		t.Fatalf("expected BUY below mean, got %+v ok=%v", sig, ok)
	}
}

func TestTrendFollowingSignals(t *testing.T) {
	s := NewTrendFollowing(nil)

	if _, ok := s.Analyze(flat(19, 100)); ok {
		t.Fatal("signal below 20 samples")
	}
	if _, ok := s.Analyze(flat(20, 100)); ok {
		t.Fatal("signal from a flat window")
	}

	up := append(flat(15, 100), flat(5, 110)...)
	sig, ok := s.Analyze(up)
	if !ok || sig.Action != types.SignalBuy {
		t.Fatalf("expected BUY on rising means, got %+v ok=%v", sig, ok)
	}

	down := append(flat(15, 100), flat(5, 90)...)
	sig, ok = s.Analyze(down)
	if !ok || sig.Action != types.SignalSell {
		t.Fatalf("expected SELL on falling means, got %+v ok=%v", sig, ok)
	}
}
