package types

type OrderSide string

type OrderType string

type InstrumentCategory string

type TradeOrigin string

type StrategyID string

type SignalAction string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

const (
	CategorySpot    InstrumentCategory = "spot"
	CategoryFutures InstrumentCategory = "futures"
)

const (
	OriginManual TradeOrigin = "manual"
	OriginAuto   TradeOrigin = "auto"
	OriginSystem TradeOrigin = "system"
)

const (
	StrategyMomentum      StrategyID = "momentum"
	StrategyMeanReversion StrategyID = "mean_reversion"
	StrategyTrendFollow   StrategyID = "trend_following"
)

const (
	SignalBuy  SignalAction = "BUY"
	SignalSell SignalAction = "SELL"
)

// CategoryRules carries the margin/leverage rules of one instrument category.
// Category branching goes through this table instead of repeated string
// comparisons around the engine.
type CategoryRules struct {
	AllowShort            bool
	MinLeverage           int
	MaxLeverage           int
	MaintenanceMarginRate string // decimal fraction of notional
}

var categoryRules = map[InstrumentCategory]CategoryRules{
	CategorySpot:    {AllowShort: false, MinLeverage: 1, MaxLeverage: 1, MaintenanceMarginRate: "0"},
	CategoryFutures: {AllowShort: true, MinLeverage: 1, MaxLeverage: 100, MaintenanceMarginRate: "0.01"},
}

func (c InstrumentCategory) Rules() (CategoryRules, bool) {
	r, ok := categoryRules[c]
	return r, ok
}

func (c InstrumentCategory) Valid() bool {
	_, ok := categoryRules[c]
	return ok
}

func (s StrategyID) Valid() bool {
	switch s {
	case StrategyMomentum, StrategyMeanReversion, StrategyTrendFollow:
		return true
	}
	return false
}
