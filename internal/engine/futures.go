package engine

import (
	"fmt"
	"time"

	"papertrader/internal/marketdata"
	"papertrader/internal/model"
	"papertrader/internal/types"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var oneHundred = decimal.NewFromInt(100)

// applyFutures classifies the order against the existing position: none,
// same-direction, or opposite-direction. Caller holds the lock.
func (l *Ledger) applyFutures(req model.OrderRequest, execPrice decimal.Decimal) (model.TradeRecord, error) {
	if req.Side != types.OrderSideBuy && req.Side != types.OrderSideSell {
		return model.TradeRecord{}, fmt.Errorf("%w: invalid side %q", ErrValidation, req.Side)
	}
	wantLong := req.Side == types.OrderSideBuy

	if !l.pos.IsOpen() {
		return l.futuresOpen(req, execPrice, wantLong)
	}
	if l.pos.IsLong() == wantLong {
		return l.futuresAdd(req, execPrice)
	}
	return l.futuresReduce(req, execPrice)
}

func (l *Ledger) futuresOpen(req model.OrderRequest, execPrice decimal.Decimal, long bool) (model.TradeRecord, error) {
	lev := req.Leverage
	if lev < 1 {
		return model.TradeRecord{}, fmt.Errorf("%w: leverage must be at least 1", ErrValidation)
	}
	margin := requiredMargin(execPrice, req.Quantity, lev)
	if margin.GreaterThan(l.cash) {
		return model.TradeRecord{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientMargin, margin.String(), l.cash.String())
	}

	l.cash = l.cash.Sub(margin)
	amount := req.Quantity
	action := model.ActionOpenLong
	if !long {
		amount = amount.Neg()
		action = model.ActionOpenShort
	}
	l.pos = model.Position{
		Instrument:    l.instrument,
		Amount:        amount,
		AvgEntryPrice: execPrice,
		Category:      types.CategoryFutures,
		Leverage:      lev,
	}

	return l.record(model.TradeRecord{
		Timestamp:      time.Now().UTC(),
		Action:         action,
		ExecutionPrice: execPrice,
		Quantity:       req.Quantity,
		Leverage:       lev,
		RealizedProfit: decimal.Zero,
		Origin:         req.Origin,
		Strategy:       req.Strategy,
	}), nil
}

// futuresAdd grows the position in its own direction. Leverage is the open
// position's leverage, never the request's: it is fixed for the life of the
// position and a new value only applies to the next position opened from flat.
func (l *Ledger) futuresAdd(req model.OrderRequest, execPrice decimal.Decimal) (model.TradeRecord, error) {
	lev := l.pos.Leverage
	margin := requiredMargin(execPrice, req.Quantity, lev)
	if margin.GreaterThan(l.cash) {
		return model.TradeRecord{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientMargin, margin.String(), l.cash.String())
	}

	l.cash = l.cash.Sub(margin)
	prevAbs := l.pos.Amount.Abs()
	newAbs := prevAbs.Add(req.Quantity)
	// Notional-weighted average entry across the combined position.
	notional := l.pos.AvgEntryPrice.Mul(prevAbs).Add(execPrice.Mul(req.Quantity))
	l.pos.AvgEntryPrice = notional.Div(newAbs)

	action := model.ActionAddLong
	if l.pos.IsLong() {
		l.pos.Amount = newAbs
	} else {
		l.pos.Amount = newAbs.Neg()
		action = model.ActionAddShort
	}

	return l.record(model.TradeRecord{
		Timestamp:      time.Now().UTC(),
		Action:         action,
		ExecutionPrice: execPrice,
		Quantity:       req.Quantity,
		Leverage:       lev,
		RealizedProfit: decimal.Zero,
		Origin:         req.Origin,
		Strategy:       req.Strategy,
	}), nil
}

// futuresReduce closes up to the held amount at the execution price, realizing
// PnL, and only a strictly positive remainder may open a position in the new
// direction. If post-close cash cannot cover the remainder's margin, the order
// stops after the close and the position stays flat; that is not an error.
func (l *Ledger) futuresReduce(req model.OrderRequest, execPrice decimal.Decimal) (model.TradeRecord, error) {
	wasLong := l.pos.IsLong()
	lev := l.pos.Leverage
	entry := l.pos.AvgEntryPrice
	held := l.pos.Amount.Abs()

	closeAmount := decimal.Min(req.Quantity, held)
	levDec := decimal.NewFromInt(int64(lev))

	pnl := execPrice.Sub(entry).Mul(closeAmount).Mul(levDec)
	closeAction := model.ActionCloseLong
	if !wasLong {
		pnl = pnl.Neg()
		closeAction = model.ActionCloseShort
	}
	closedMargin := entry.Mul(closeAmount).Div(levDec)
	returned := closedMargin.Add(pnl)
	if returned.IsNegative() {
		returned = decimal.Zero
	}

	l.cash = l.cash.Add(returned)
	remainingAbs := held.Sub(closeAmount)
	if remainingAbs.IsZero() {
		l.pos.Amount = decimal.Zero
		l.pos.AvgEntryPrice = decimal.Zero
		l.pos.Leverage = 0
	} else if wasLong {
		l.pos.Amount = remainingAbs
	} else {
		l.pos.Amount = remainingAbs.Neg()
	}

	pnlPct := decimal.Zero
	if closedMargin.IsPositive() {
		pnlPct = pnl.Div(closedMargin).Mul(oneHundred)
	}
	closeRec := l.record(model.TradeRecord{
		Timestamp:         time.Now().UTC(),
		Action:            closeAction,
		ExecutionPrice:    execPrice,
		Quantity:          closeAmount,
		Leverage:          lev,
		RealizedProfit:    pnl,
		RealizedProfitPct: pnlPct,
		IsWin:             pnl.IsPositive(),
		Origin:            req.Origin,
		Strategy:          req.Strategy,
	})

	remainder := req.Quantity.Sub(closeAmount)
	if !remainder.IsPositive() {
		return closeRec, nil
	}

	newLev := req.Leverage
	if newLev < 1 {
		newLev = lev
	}
	margin := requiredMargin(execPrice, remainder, newLev)
	if margin.GreaterThan(l.cash) {
		l.log.Info("reversal remainder not opened, insufficient margin",
			zap.String("remainder", remainder.String()),
			zap.String("required", margin.String()),
			zap.String("cash", l.cash.String()),
		)
		return closeRec, nil
	}

	l.cash = l.cash.Sub(margin)
	openAction := model.ActionOpenLong
	amount := remainder
	if wasLong {
		// Reversal of a long opens short.
		openAction = model.ActionOpenShort
		amount = remainder.Neg()
	}
	l.pos = model.Position{
		Instrument:    l.instrument,
		Amount:        amount,
		AvgEntryPrice: execPrice,
		Category:      types.CategoryFutures,
		Leverage:      newLev,
	}

	return l.record(model.TradeRecord{
		Timestamp:      time.Now().UTC(),
		Action:         openAction,
		ExecutionPrice: execPrice,
		Quantity:       remainder,
		Leverage:       newLev,
		RealizedProfit: decimal.Zero,
		Origin:         req.Origin,
		Strategy:       req.Strategy,
	}), nil
}

// checkLiquidation force-closes the position when its remaining margin falls
// below the maintenance requirement. It never rejects, fully closes in one
// step, and can only fire once per crossing because the reset leaves no open
// position behind. Caller holds the lock.
func (l *Ledger) checkLiquidation(price decimal.Decimal, ts time.Time) *model.LiquidationEvent {
	rules, _ := types.CategoryFutures.Rules()
	maintenanceRate := decimal.RequireFromString(rules.MaintenanceMarginRate)

	usedMargin := l.pos.UsedMargin()
	upnl := l.pos.UnrealizedPnL(price)
	currentMargin := usedMargin.Add(upnl)
	maintenance := l.pos.Amount.Abs().Mul(price).Mul(maintenanceRate)

	if !currentMargin.LessThan(maintenance) || !currentMargin.LessThan(usedMargin) {
		return nil
	}

	returned := currentMargin
	if returned.IsNegative() {
		returned = decimal.Zero
	}
	qty := l.pos.Amount.Abs()
	lev := l.pos.Leverage
	pnlPct := decimal.Zero
	if usedMargin.IsPositive() {
		pnlPct = upnl.Div(usedMargin).Mul(oneHundred)
	}

	l.cash = l.cash.Add(returned)
	l.pos.Amount = decimal.Zero
	l.pos.AvgEntryPrice = decimal.Zero
	l.pos.Leverage = 0

	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	l.record(model.TradeRecord{
		Timestamp:         ts,
		Action:            model.ActionLiquidation,
		ExecutionPrice:    price,
		Quantity:          qty,
		Leverage:          lev,
		RealizedProfit:    upnl,
		RealizedProfitPct: pnlPct,
		Origin:            types.OriginSystem,
	})

	evt := &model.LiquidationEvent{
		Instrument:     l.instrument,
		Price:          price,
		Quantity:       qty,
		RealizedPnL:    upnl,
		ReturnedMargin: returned,
		Timestamp:      ts,
	}
	l.bus.Publish(marketdata.Event{Type: marketdata.EventLiquidation, Data: *evt})
	l.log.Warn("position liquidated",
		zap.String("price", price.String()),
		zap.String("qty", qty.String()),
		zap.String("returned_margin", returned.String()),
	)
	return evt
}

func requiredMargin(price, qty decimal.Decimal, leverage int) decimal.Decimal {
	return price.Mul(qty).Div(decimal.NewFromInt(int64(leverage)))
}
