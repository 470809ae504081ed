package autotrader

import (
	"context"
	"errors"
	"testing"
	"time"

	"papertrader/internal/engine"
	"papertrader/internal/executor"
	"papertrader/internal/marketdata"
	"papertrader/internal/model"
	"papertrader/internal/types"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newFixture(cash string, template OrderTemplate) (*AutoTrader, *engine.Ledger, chan model.Signal) {
	bus := marketdata.NewBus()
	ledger := engine.NewLedger(engine.LedgerConfig{
		Instrument:   "SIM-USD",
		StartingCash: dec(cash),
	}, bus, nil, nil)
	exec := executor.New(ledger, nil)
	signals := make(chan model.Signal, 4)
	return New(ledger, exec, signals, template, bus, nil), ledger, signals
}

func feedPrice(l *engine.Ledger, price string) {
	l.OnPriceTick(model.Tick{Price: dec(price), Timestamp: time.Now().UTC()})
}

func TestStateTransitions(t *testing.T) {
	tr, _, _ := newFixture("1000", OrderTemplate{Category: types.CategorySpot})
	if tr.State() != StateStopped {
		t.Fatalf("initial state: %q", tr.State())
	}

	if err := tr.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if tr.State() != StateRunning {
		t.Fatalf("state after start: %q", tr.State())
	}
	if err := tr.Start(context.Background()); !errors.Is(err, engine.ErrInvalidStateTransition) {
		t.Fatalf("double start: got %v", err)
	}

	tr.Stop()
	if tr.State() != StateStopped {
		t.Fatalf("state after stop: %q", tr.State())
	}
	tr.Stop() // no-op
}

func TestSetRiskRejectedWhileRunning(t *testing.T) {
	tr, _, _ := newFixture("1000", OrderTemplate{Category: types.CategorySpot})
	rs := DefaultRisk()
	rs.StopLossPct = dec("10")
	if err := tr.SetRisk(rs); err != nil {
		t.Fatal(err)
	}

	if err := tr.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer tr.Stop()

	if err := tr.SetRisk(rs); !errors.Is(err, engine.ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}
}

func TestSetRiskValidation(t *testing.T) {
	tr, _, _ := newFixture("1000", OrderTemplate{Category: types.CategorySpot})

	rs := DefaultRisk()
	rs.PositionSizePct = dec("150")
	if err := tr.SetRisk(rs); !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("oversized position pct: got %v", err)
	}
	rs = DefaultRisk()
	rs.StopLossPct = dec("-5")
	if err := tr.SetRisk(rs); !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("negative stop loss: got %v", err)
	}
}

func TestBuySignalSizedFromCash(t *testing.T) {
	tr, ledger, _ := newFixture("1000", OrderTemplate{Category: types.CategorySpot})
	feedPrice(ledger, "100")

	tr.handleSignal(model.Signal{
		Action:   types.SignalBuy,
		Strategy: types.StrategyMomentum,
		Price:    dec("100"),
	})

	trades := ledger.Trades()
	if len(trades) != 1 {
		t.Fatalf("trades: got %d, want 1", len(trades))
	}
	rec := trades[0]
	// Default 25% of 1000 cash at price 100.
	if !rec.Quantity.Equal(dec("2.5")) {
		t.Fatalf("qty: got %s, want 2.5", rec.Quantity)
	}
	if rec.Origin != types.OriginAuto {
		t.Fatalf("origin: got %q, want auto", rec.Origin)
	}
	if rec.Strategy != types.StrategyMomentum {
		t.Fatalf("strategy: got %q", rec.Strategy)
	}
}

func TestSellSignalWithNothingHeldSkipped(t *testing.T) {
	tr, ledger, _ := newFixture("1000", OrderTemplate{Category: types.CategorySpot})
	feedPrice(ledger, "100")

	tr.handleSignal(model.Signal{Action: types.SignalSell, Strategy: types.StrategyMomentum})
	if got := len(ledger.Trades()); got != 0 {
		t.Fatalf("trades: got %d, want 0", got)
	}
}

func TestSellSignalSizedFromHoldings(t *testing.T) {
	tr, ledger, _ := newFixture("1000", OrderTemplate{Category: types.CategorySpot})
	feedPrice(ledger, "100")
	if _, err := ledger.ApplyOrder(model.OrderRequest{
		Side: types.OrderSideBuy, Type: types.OrderTypeMarket,
		Quantity: dec("8"), Category: types.CategorySpot, Origin: types.OriginManual,
	}); err != nil {
		t.Fatal(err)
	}

	tr.handleSignal(model.Signal{Action: types.SignalSell, Strategy: types.StrategyMeanReversion})

	trades := ledger.Trades()
	if len(trades) != 2 {
		t.Fatalf("trades: got %d, want 2", len(trades))
	}
	if !trades[0].Quantity.Equal(dec("2")) {
		t.Fatalf("qty: got %s, want 2", trades[0].Quantity)
	}
}

func TestStopLossClosesPosition(t *testing.T) {
	tr, ledger, _ := newFixture("1000", OrderTemplate{Category: types.CategoryFutures, Leverage: 10})
	rs := DefaultRisk()
	rs.StopLossPct = dec("40")
	if err := tr.SetRisk(rs); err != nil {
		t.Fatal(err)
	}

	feedPrice(ledger, "100")
	if _, err := ledger.ApplyOrder(model.OrderRequest{
		Side: types.OrderSideBuy, Type: types.OrderTypeMarket,
		Quantity: dec("10"), Category: types.CategoryFutures, Leverage: 10,
		Origin: types.OriginManual,
	}); err != nil {
		t.Fatal(err)
	}

	// -50% on margin, past the 40% stop.
	feedPrice(ledger, "99.5")
	tr.enforceRisk()

	snap := ledger.Snapshot()
	if snap.Position.IsOpen() {
		t.Fatal("position still open after stop loss")
	}
	if ledger.Trades()[0].Action != model.ActionCloseLong {
		t.Fatalf("newest action: got %q", ledger.Trades()[0].Action)
	}
}

func TestTakeProfitClosesPosition(t *testing.T) {
	tr, ledger, _ := newFixture("1000", OrderTemplate{Category: types.CategoryFutures, Leverage: 10})
	rs := DefaultRisk()
	rs.TakeProfitPct = dec("40")
	if err := tr.SetRisk(rs); err != nil {
		t.Fatal(err)
	}

	feedPrice(ledger, "100")
	if _, err := ledger.ApplyOrder(model.OrderRequest{
		Side: types.OrderSideBuy, Type: types.OrderTypeMarket,
		Quantity: dec("10"), Category: types.CategoryFutures, Leverage: 10,
		Origin: types.OriginManual,
	}); err != nil {
		t.Fatal(err)
	}

	// +50% on margin.
	feedPrice(ledger, "100.5")
	tr.enforceRisk()

	if ledger.Snapshot().Position.IsOpen() {
		t.Fatal("position still open after take profit")
	}
	rec := ledger.Trades()[0]
	if !rec.RealizedProfit.Equal(dec("50")) {
		t.Fatalf("realized: got %s, want 50", rec.RealizedProfit)
	}
}

func TestMaxLossClosesAndStops(t *testing.T) {
	tr, ledger, _ := newFixture("1000", OrderTemplate{Category: types.CategoryFutures, Leverage: 10})
	rs := DefaultRisk()
	rs.MaxLossPct = dec("4")
	if err := tr.SetRisk(rs); err != nil {
		t.Fatal(err)
	}
	if err := tr.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	feedPrice(ledger, "100")
	if _, err := ledger.ApplyOrder(model.OrderRequest{
		Side: types.OrderSideBuy, Type: types.OrderTypeMarket,
		Quantity: dec("10"), Category: types.CategoryFutures, Leverage: 10,
		Origin: types.OriginManual,
	}); err != nil {
		t.Fatal(err)
	}

	// Equity 950 against initial 1000: 5% drawdown breaches the 4% cap.
	feedPrice(ledger, "99.5")
	tr.enforceRisk()

	if ledger.Snapshot().Position.IsOpen() {
		t.Fatal("position still open after max loss")
	}
	if tr.State() != StateStopped {
		t.Fatalf("state: got %q, want stopped", tr.State())
	}
}
