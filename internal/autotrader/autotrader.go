package autotrader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"papertrader/internal/engine"
	"papertrader/internal/executor"
	"papertrader/internal/marketdata"
	"papertrader/internal/model"
	"papertrader/internal/types"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
)

// DefaultRisk leaves every protective threshold disabled and sizes orders at
// a quarter of the available resource.
func DefaultRisk() model.RiskSettings {
	return model.RiskSettings{PositionSizePct: decimal.NewFromInt(25)}
}

// OrderTemplate fixes the category and leverage every auto order carries;
// both come from the session, not from the signal.
type OrderTemplate struct {
	Category types.InstrumentCategory
	Leverage int
}

// AutoTrader consumes signals while Running and turns each into a sized
// market order. It also polls the account between signals to enforce
// stop-loss, take-profit and max-loss closes.
type AutoTrader struct {
	mu     sync.Mutex
	state  State
	risk   model.RiskSettings
	cancel context.CancelFunc

	ledger   *engine.Ledger
	exec     *executor.Executor
	signals  <-chan model.Signal
	template OrderTemplate

	riskInterval time.Duration
	bus          *marketdata.Bus
	log          *zap.Logger
}

func New(ledger *engine.Ledger, exec *executor.Executor, signals <-chan model.Signal, template OrderTemplate, bus *marketdata.Bus, log *zap.Logger) *AutoTrader {
	if log == nil {
		log = zap.NewNop()
	}
	return &AutoTrader{
		state:        StateStopped,
		risk:         DefaultRisk(),
		ledger:       ledger,
		exec:         exec,
		signals:      signals,
		template:     template,
		riskInterval: 5 * time.Second,
		bus:          bus,
		log:          log,
	}
}

func (a *AutoTrader) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *AutoTrader) Risk() model.RiskSettings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.risk
}

// SetRisk replaces the risk settings. Rejected while Running so a cycle never
// runs against settings that changed underneath it.
func (a *AutoTrader) SetRisk(rs model.RiskSettings) error {
	if rs.PositionSizePct.LessThanOrEqual(decimal.Zero) || rs.PositionSizePct.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: position size must be within (0, 100]", engine.ErrValidation)
	}
	if rs.StopLossPct.IsNegative() || rs.TakeProfitPct.IsNegative() || rs.MaxLossPct.IsNegative() {
		return fmt.Errorf("%w: risk thresholds must not be negative", engine.ErrValidation)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateRunning {
		return fmt.Errorf("%w: stop the auto trader before changing risk settings", engine.ErrInvalidStateTransition)
	}
	a.risk = rs
	a.bus.Publish(marketdata.Event{Type: marketdata.EventRisk, Data: rs})
	return nil
}

// Start moves Stopped -> Running and launches the trading loop.
func (a *AutoTrader) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateRunning {
		return fmt.Errorf("%w: auto trader already running", engine.ErrInvalidStateTransition)
	}
	loopCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.state = StateRunning
	go a.run(loopCtx)
	a.bus.Publish(marketdata.Event{Type: marketdata.EventAutoTrader, Data: map[string]any{"state": StateRunning}})
	a.log.Info("auto trader started")
	return nil
}

// Stop cancels the loop. Ledger state is untouched; an open position stays
// open. Stopping an already stopped trader is a no-op.
func (a *AutoTrader) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked("requested")
}

func (a *AutoTrader) stopLocked(reason string) {
	if a.state != StateRunning {
		return
	}
	a.cancel()
	a.cancel = nil
	a.state = StateStopped
	a.bus.Publish(marketdata.Event{Type: marketdata.EventAutoTrader, Data: map[string]any{"state": StateStopped, "reason": reason}})
	a.log.Info("auto trader stopped", zap.String("reason", reason))
}

func (a *AutoTrader) run(ctx context.Context) {
	ticker := time.NewTicker(a.riskInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-a.signals:
			if !ok {
				return
			}
			a.handleSignal(sig)
		case <-ticker.C:
			a.enforceRisk()
		}
	}
}

// handleSignal sizes and submits one market order for the signal. Rejections
// (insufficient funds, margin, holdings) are logged and skipped; they do not
// stop the trader.
func (a *AutoTrader) handleSignal(sig model.Signal) {
	a.mu.Lock()
	pct := a.risk.PositionSizePct
	a.mu.Unlock()

	snap := a.ledger.Snapshot()
	var side types.OrderSide
	var qty decimal.Decimal
	switch sig.Action {
	case types.SignalBuy:
		side = types.OrderSideBuy
		qty = executor.QuantityForCashPercent(snap.CashBalance, snap.LastPrice, pct)
	case types.SignalSell:
		side = types.OrderSideSell
		qty = executor.QuantityForHoldingsPercent(snap.Position.Amount, pct)
	default:
		return
	}
	if qty.LessThanOrEqual(decimal.Zero) {
		a.log.Debug("signal skipped, nothing to size",
			zap.String("action", string(sig.Action)),
			zap.String("strategy", string(sig.Strategy)),
		)
		return
	}

	rec, err := a.exec.Submit(model.OrderRequest{
		Side:     side,
		Type:     types.OrderTypeMarket,
		Quantity: qty,
		Category: a.template.Category,
		Leverage: a.template.Leverage,
		Origin:   types.OriginAuto,
		Strategy: sig.Strategy,
	})
	if err != nil {
		a.log.Warn("auto order rejected", zap.Error(err))
		return
	}
	a.log.Info("auto order applied",
		zap.String("action", rec.Action),
		zap.String("qty", rec.Quantity.String()),
		zap.String("strategy", string(sig.Strategy)),
	)
}

// enforceRisk closes the open position when a configured threshold is hit.
// A max-loss breach also stops the trader.
func (a *AutoTrader) enforceRisk() {
	a.mu.Lock()
	risk := a.risk
	a.mu.Unlock()

	snap := a.ledger.Snapshot()

	if risk.MaxLossPct.IsPositive() && snap.InitialEquity.IsPositive() {
		drawdown := snap.InitialEquity.Sub(snap.Equity).Div(snap.InitialEquity).Mul(decimal.NewFromInt(100))
		if drawdown.GreaterThanOrEqual(risk.MaxLossPct) {
			a.closePosition(snap, "max_loss")
			a.mu.Lock()
			a.stopLocked("max_loss")
			a.mu.Unlock()
			return
		}
	}

	if !snap.Position.IsOpen() {
		return
	}
	pnlPct := snap.UnrealizedPnLPct
	switch {
	case risk.StopLossPct.IsPositive() && pnlPct.LessThanOrEqual(risk.StopLossPct.Neg()):
		a.closePosition(snap, "stop_loss")
	case risk.TakeProfitPct.IsPositive() && pnlPct.GreaterThanOrEqual(risk.TakeProfitPct):
		a.closePosition(snap, "take_profit")
	}
}

func (a *AutoTrader) closePosition(snap model.AccountState, reason string) {
	if !snap.Position.IsOpen() {
		return
	}
	side := types.OrderSideSell
	if snap.Position.Category == types.CategoryFutures && !snap.Position.IsLong() {
		side = types.OrderSideBuy
	}
	_, err := a.exec.Submit(model.OrderRequest{
		Side:     side,
		Type:     types.OrderTypeMarket,
		Quantity: snap.Position.Amount.Abs(),
		Category: snap.Position.Category,
		Leverage: snap.Position.Leverage,
		Origin:   types.OriginAuto,
	})
	if err != nil {
		a.log.Warn("risk close rejected", zap.String("reason", reason), zap.Error(err))
		return
	}
	a.bus.Publish(marketdata.Event{Type: marketdata.EventAutoTrader, Data: map[string]any{"state": a.State(), "reason": reason}})
	a.log.Info("position closed by risk rule", zap.String("reason", reason))
}
