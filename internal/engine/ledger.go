package engine

import (
	"fmt"
	"sync"
	"time"

	"papertrader/internal/history"
	"papertrader/internal/marketdata"
	"papertrader/internal/model"
	"papertrader/internal/types"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Recorder receives every applied trade record. Implementations must not
// block; the ledger calls it while holding its lock.
type Recorder interface {
	Record(rec model.TradeRecord)
}

type LedgerConfig struct {
	Instrument   string
	StartingCash decimal.Decimal
}

// Ledger is the authoritative account state for one (session, instrument).
// Every mutation happens under one mutex with short CPU-bound critical
// sections, so ticks and orders serialize through a single point and no
// caller ever observes a half-updated account.
type Ledger struct {
	mu sync.Mutex

	instrument    string
	cash          decimal.Decimal
	initialEquity decimal.Decimal
	pos           model.Position
	lastPrice     decimal.Decimal
	lastTickAt    time.Time

	trades  *history.Ring
	archive Recorder
	bus     *marketdata.Bus
	log     *zap.Logger
}

func NewLedger(cfg LedgerConfig, bus *marketdata.Bus, archive Recorder, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		instrument:    cfg.Instrument,
		cash:          cfg.StartingCash,
		initialEquity: cfg.StartingCash,
		pos:           model.Position{Instrument: cfg.Instrument},
		trades:        history.NewRing(history.DefaultCapacity),
		archive:       archive,
		bus:           bus,
		log:           log,
	}
}

// ApplyOrder executes the order all-or-nothing: on error the account state is
// unchanged. Market orders execute at the last applied tick price; limit
// orders execute immediately at the requested price (no book simulation).
func (l *Ledger) ApplyOrder(req model.OrderRequest) (model.TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if req.Quantity.LessThanOrEqual(decimal.Zero) {
		return model.TradeRecord{}, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	execPrice := l.lastPrice
	if req.Type == types.OrderTypeLimit {
		if req.LimitPrice.LessThanOrEqual(decimal.Zero) {
			return model.TradeRecord{}, fmt.Errorf("%w: limit price must be positive", ErrValidation)
		}
		execPrice = req.LimitPrice
	}
	if execPrice.LessThanOrEqual(decimal.Zero) {
		return model.TradeRecord{}, ErrNoMarketPrice
	}
	if l.pos.IsOpen() && l.pos.Category != req.Category {
		return model.TradeRecord{}, fmt.Errorf("%w: open position is %s, order is %s", ErrValidation, l.pos.Category, req.Category)
	}

	switch req.Category {
	case types.CategorySpot:
		return l.applySpot(req, execPrice)
	case types.CategoryFutures:
		return l.applyFutures(req, execPrice)
	default:
		return model.TradeRecord{}, fmt.Errorf("%w: unknown instrument category %q", ErrValidation, req.Category)
	}
}

// OnPriceTick revalues the position against the new price and force-closes a
// futures position whose margin fell through the maintenance requirement.
// Ticks must be delivered by a single goroutine so arrival order is applied
// order; the returned event is non-nil exactly when a liquidation fired.
func (l *Ledger) OnPriceTick(t model.Tick) *model.LiquidationEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	if t.Price.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	l.lastPrice = t.Price
	l.lastTickAt = t.Timestamp

	if l.pos.Category != types.CategoryFutures || !l.pos.IsOpen() {
		return nil
	}
	return l.checkLiquidation(t.Price, t.Timestamp)
}

// Snapshot returns a read-only view of the account at the last applied price.
func (l *Ledger) Snapshot() model.AccountState {
	l.mu.Lock()
	defer l.mu.Unlock()

	upnl := l.pos.UnrealizedPnL(l.lastPrice)
	equity := l.cash.Add(l.pos.UsedMargin()).Add(upnl)
	ret := decimal.Zero
	if l.initialEquity.IsPositive() {
		ret = equity.Sub(l.initialEquity).Div(l.initialEquity).Mul(decimal.NewFromInt(100))
	}
	return model.AccountState{
		Instrument:       l.instrument,
		CashBalance:      l.cash,
		InitialEquity:    l.initialEquity,
		Equity:           equity,
		ReturnPercent:    ret,
		Position:         l.pos,
		CurrentValue:     l.pos.CurrentValue(l.lastPrice),
		UnrealizedPnL:    upnl,
		UnrealizedPnLPct: l.pos.UnrealizedPnLPercent(l.lastPrice),
		LastPrice:        l.lastPrice,
		UpdatedAt:        l.lastTickAt,
	}
}

// Trades returns the bounded trade history, most recent first.
func (l *Ledger) Trades() []model.TradeRecord {
	return l.trades.List()
}

func (l *Ledger) LastPrice() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastPrice
}

// record appends an immutable trade record and publishes it. Caller holds the
// lock; state is already committed when this runs.
func (l *Ledger) record(rec model.TradeRecord) model.TradeRecord {
	l.trades.Add(rec)
	if l.archive != nil {
		l.archive.Record(rec)
	}
	l.bus.Publish(marketdata.Event{Type: marketdata.EventTrade, Data: rec})
	l.log.Info("trade applied",
		zap.String("action", rec.Action),
		zap.String("price", rec.ExecutionPrice.String()),
		zap.String("qty", rec.Quantity.String()),
		zap.String("pnl", rec.RealizedProfit.String()),
		zap.String("origin", string(rec.Origin)),
	)
	return rec
}
