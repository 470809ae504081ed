package model

import (
	"time"

	"papertrader/internal/types"

	"github.com/shopspring/decimal"
)

// Tick is one price update from the feed. Fields beyond Price exist for the
// serving surface; the engine itself only consumes Price and Timestamp.
type Tick struct {
	Instrument    string          `json:"instrument"`
	Price         decimal.Decimal `json:"price"`
	PriceText     string          `json:"price_text"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Volume        decimal.Decimal `json:"volume"`
	Timestamp     time.Time       `json:"timestamp"`
}

type OrderRequest struct {
	Side       types.OrderSide          `json:"side"`
	Type       types.OrderType          `json:"type"`
	Quantity   decimal.Decimal          `json:"qty"`
	LimitPrice decimal.Decimal          `json:"limit_price"` // zero unless Type is limit
	Category   types.InstrumentCategory `json:"category"`
	Leverage   int                      `json:"leverage"` // futures only
	Origin     types.TradeOrigin        `json:"origin"`
	Strategy   types.StrategyID         `json:"strategy,omitempty"`
}

// TradeRecord is an immutable account of one applied order (or liquidation).
type TradeRecord struct {
	Timestamp          time.Time         `json:"timestamp"`
	Action             string            `json:"action"`
	ExecutionPrice     decimal.Decimal   `json:"execution_price"`
	Quantity           decimal.Decimal   `json:"qty"`
	Leverage           int               `json:"leverage,omitempty"`
	RealizedProfit     decimal.Decimal   `json:"realized_profit"`
	RealizedProfitPct  decimal.Decimal   `json:"realized_profit_pct"`
	IsWin              bool              `json:"is_win"`
	Origin             types.TradeOrigin `json:"origin"`
	Strategy           types.StrategyID  `json:"strategy,omitempty"`
}

const (
	ActionBuy         = "buy"
	ActionSell        = "sell"
	ActionOpenLong    = "open_long"
	ActionOpenShort   = "open_short"
	ActionAddLong     = "add_long"
	ActionAddShort    = "add_short"
	ActionCloseLong   = "close_long"
	ActionCloseShort  = "close_short"
	ActionLiquidation = "liquidation"
)

// Position holds the signed amount and cost basis for one instrument.
// Spot amounts are never negative; futures amounts are positive for long,
// negative for short.
type Position struct {
	Instrument    string                   `json:"instrument"`
	Amount        decimal.Decimal          `json:"amount"`
	AvgEntryPrice decimal.Decimal          `json:"avg_entry_price"`
	Category      types.InstrumentCategory `json:"category"`
	Leverage      int                      `json:"leverage,omitempty"`
}

func (p Position) IsOpen() bool {
	return !p.Amount.IsZero()
}

func (p Position) IsLong() bool {
	return p.Amount.IsPositive()
}

// UsedMargin returns the collateral reserved against the position:
// entry * |amount| / leverage for futures, the full cost basis for spot.
func (p Position) UsedMargin() decimal.Decimal {
	if !p.IsOpen() {
		return decimal.Zero
	}
	notional := p.AvgEntryPrice.Mul(p.Amount.Abs())
	if p.Category == types.CategoryFutures && p.Leverage > 0 {
		return notional.Div(decimal.NewFromInt(int64(p.Leverage)))
	}
	return notional
}

// UnrealizedPnL marks the position to the given price. The signed amount makes
// one formula cover both directions: (price - entry) * amount * leverage.
func (p Position) UnrealizedPnL(price decimal.Decimal) decimal.Decimal {
	if !p.IsOpen() || price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	pnl := price.Sub(p.AvgEntryPrice).Mul(p.Amount)
	if p.Category == types.CategoryFutures && p.Leverage > 0 {
		pnl = pnl.Mul(decimal.NewFromInt(int64(p.Leverage)))
	}
	return pnl
}

// UnrealizedPnLPercent is the return on used margin.
func (p Position) UnrealizedPnLPercent(price decimal.Decimal) decimal.Decimal {
	margin := p.UsedMargin()
	if margin.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return p.UnrealizedPnL(price).Div(margin).Mul(decimal.NewFromInt(100))
}

// CurrentValue is the mark value of the held amount at the given price.
func (p Position) CurrentValue(price decimal.Decimal) decimal.Decimal {
	if !p.IsOpen() {
		return decimal.Zero
	}
	return price.Mul(p.Amount.Abs())
}

// AccountState is a read-only snapshot of the ledger.
type AccountState struct {
	Instrument       string          `json:"instrument"`
	CashBalance      decimal.Decimal `json:"cash_balance"`
	InitialEquity    decimal.Decimal `json:"initial_equity"`
	Equity           decimal.Decimal `json:"equity"`
	ReturnPercent    decimal.Decimal `json:"return_pct"`
	Position         Position        `json:"position"`
	CurrentValue     decimal.Decimal `json:"current_value"`
	UnrealizedPnL    decimal.Decimal `json:"unrealized_pnl"`
	UnrealizedPnLPct decimal.Decimal `json:"unrealized_pnl_pct"`
	LastPrice        decimal.Decimal `json:"last_price"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type Signal struct {
	Action     types.SignalAction `json:"action"`
	Confidence int                `json:"confidence"` // 0-100
	Timestamp  time.Time          `json:"timestamp"`
	Price      decimal.Decimal    `json:"price"`
	Strategy   types.StrategyID   `json:"strategy"`
	Reason     string             `json:"reason,omitempty"`
}

type RiskSettings struct {
	StopLossPct     decimal.Decimal `json:"stop_loss_pct"`
	TakeProfitPct   decimal.Decimal `json:"take_profit_pct"`
	MaxLossPct      decimal.Decimal `json:"max_loss_pct"`
	PositionSizePct decimal.Decimal `json:"position_size_pct"`
}

type LiquidationEvent struct {
	Instrument     string          `json:"instrument"`
	Price          decimal.Decimal `json:"price"`
	Quantity       decimal.Decimal `json:"qty"`
	RealizedPnL    decimal.Decimal `json:"realized_pnl"`
	ReturnedMargin decimal.Decimal `json:"returned_margin"`
	Timestamp      time.Time       `json:"timestamp"`
}
