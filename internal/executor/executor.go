package executor

import (
	"fmt"

	"papertrader/internal/engine"
	"papertrader/internal/model"
	"papertrader/internal/types"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Executor validates and normalizes order requests before handing them to the
// ledger. Validation never touches account state; a request that passes here
// can still be rejected by the ledger on funds, margin or holdings.
type Executor struct {
	ledger *engine.Ledger
	log    *zap.Logger
}

func New(ledger *engine.Ledger, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{ledger: ledger, log: log}
}

func (e *Executor) Submit(req model.OrderRequest) (model.TradeRecord, error) {
	norm, err := Validate(req)
	if err != nil {
		e.log.Debug("order rejected", zap.Error(err))
		return model.TradeRecord{}, err
	}
	return e.ledger.ApplyOrder(norm)
}

// Validate checks a request against the static rules and returns the
// normalized form: defaulted origin and type, leverage forced to zero for
// spot. It does not consult the account.
func Validate(req model.OrderRequest) (model.OrderRequest, error) {
	if req.Quantity.LessThanOrEqual(decimal.Zero) {
		return model.OrderRequest{}, fmt.Errorf("%w: quantity must be positive", engine.ErrValidation)
	}

	switch req.Side {
	case types.OrderSideBuy, types.OrderSideSell:
	default:
		return model.OrderRequest{}, fmt.Errorf("%w: invalid side %q", engine.ErrValidation, req.Side)
	}

	if req.Type == "" {
		req.Type = types.OrderTypeMarket
	}
	switch req.Type {
	case types.OrderTypeMarket:
		if !req.LimitPrice.IsZero() {
			return model.OrderRequest{}, fmt.Errorf("%w: market orders must not carry a price", engine.ErrValidation)
		}
	case types.OrderTypeLimit:
		if req.LimitPrice.LessThanOrEqual(decimal.Zero) {
			return model.OrderRequest{}, fmt.Errorf("%w: limit orders require a positive price", engine.ErrValidation)
		}
	default:
		return model.OrderRequest{}, fmt.Errorf("%w: invalid order type %q", engine.ErrValidation, req.Type)
	}

	rules, ok := req.Category.Rules()
	if !ok {
		return model.OrderRequest{}, fmt.Errorf("%w: unknown instrument category %q", engine.ErrValidation, req.Category)
	}
	switch req.Category {
	case types.CategorySpot:
		if req.Leverage > 1 {
			return model.OrderRequest{}, fmt.Errorf("%w: leverage does not apply to spot orders", engine.ErrValidation)
		}
		req.Leverage = 0
	case types.CategoryFutures:
		if req.Leverage < rules.MinLeverage || req.Leverage > rules.MaxLeverage {
			return model.OrderRequest{}, fmt.Errorf("%w: leverage must be between %d and %d",
				engine.ErrValidation, rules.MinLeverage, rules.MaxLeverage)
		}
	}

	if req.Origin == "" {
		req.Origin = types.OriginManual
	}
	return req, nil
}

// QuantityForCashPercent sizes an order as a percentage of available cash at
// the given price. The percentage is clamped to [0, 100]; a non-positive
// price yields zero.
func QuantityForCashPercent(cash, price, pct decimal.Decimal) decimal.Decimal {
	if price.LessThanOrEqual(decimal.Zero) || cash.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	pct = clampPercent(pct)
	return cash.Mul(pct).Div(decimal.NewFromInt(100)).Div(price)
}

// QuantityForHoldingsPercent sizes an order as a percentage of the held
// amount, clamped to [0, 100].
func QuantityForHoldingsPercent(held, pct decimal.Decimal) decimal.Decimal {
	held = held.Abs()
	if held.IsZero() {
		return decimal.Zero
	}
	pct = clampPercent(pct)
	return held.Mul(pct).Div(decimal.NewFromInt(100))
}

func clampPercent(pct decimal.Decimal) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	if pct.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}
