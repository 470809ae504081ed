package engine

import (
	"fmt"
	"time"

	"papertrader/internal/model"
	"papertrader/internal/types"

	"github.com/shopspring/decimal"
)

// applySpot handles buy/sell against a non-leveraged holding. Caller holds
// the lock and has validated quantity and execution price.
func (l *Ledger) applySpot(req model.OrderRequest, execPrice decimal.Decimal) (model.TradeRecord, error) {
	switch req.Side {
	case types.OrderSideBuy:
		return l.spotBuy(req, execPrice)
	case types.OrderSideSell:
		return l.spotSell(req, execPrice)
	default:
		return model.TradeRecord{}, fmt.Errorf("%w: invalid side %q", ErrValidation, req.Side)
	}
}

func (l *Ledger) spotBuy(req model.OrderRequest, execPrice decimal.Decimal) (model.TradeRecord, error) {
	cost := execPrice.Mul(req.Quantity)
	if cost.GreaterThan(l.cash) {
		return model.TradeRecord{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, cost.String(), l.cash.String())
	}

	newAmount := l.pos.Amount.Add(req.Quantity)
	// Cost-weighted average over same-direction additions.
	prevCost := l.pos.AvgEntryPrice.Mul(l.pos.Amount)
	avg := prevCost.Add(cost).Div(newAmount)

	l.cash = l.cash.Sub(cost)
	l.pos.Amount = newAmount
	l.pos.AvgEntryPrice = avg
	l.pos.Category = types.CategorySpot

	return l.record(model.TradeRecord{
		Timestamp:      time.Now().UTC(),
		Action:         model.ActionBuy,
		ExecutionPrice: execPrice,
		Quantity:       req.Quantity,
		RealizedProfit: decimal.Zero,
		Origin:         req.Origin,
		Strategy:       req.Strategy,
	}), nil
}

func (l *Ledger) spotSell(req model.OrderRequest, execPrice decimal.Decimal) (model.TradeRecord, error) {
	// The ledger primitive rejects oversells; clamping is a convenience the
	// executor may apply before calling in here.
	if req.Quantity.GreaterThan(l.pos.Amount) {
		return model.TradeRecord{}, fmt.Errorf("%w: selling %s, holding %s", ErrInsufficientHoldings, req.Quantity.String(), l.pos.Amount.String())
	}

	proceeds := execPrice.Mul(req.Quantity)
	profit := execPrice.Sub(l.pos.AvgEntryPrice).Mul(req.Quantity)
	profitPct := decimal.Zero
	if l.pos.AvgEntryPrice.IsPositive() {
		profitPct = execPrice.Sub(l.pos.AvgEntryPrice).Div(l.pos.AvgEntryPrice).Mul(decimal.NewFromInt(100))
	}

	l.cash = l.cash.Add(proceeds)
	l.pos.Amount = l.pos.Amount.Sub(req.Quantity)
	if l.pos.Amount.IsZero() {
		l.pos.AvgEntryPrice = decimal.Zero
	}

	return l.record(model.TradeRecord{
		Timestamp:         time.Now().UTC(),
		Action:            model.ActionSell,
		ExecutionPrice:    execPrice,
		Quantity:          req.Quantity,
		RealizedProfit:    profit,
		RealizedProfitPct: profitPct,
		IsWin:             profit.IsPositive(),
		Origin:            req.Origin,
		Strategy:          req.Strategy,
	}), nil
}
