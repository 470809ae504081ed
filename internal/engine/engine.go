package engine

import (
	"context"

	"papertrader/internal/model"

	"go.uber.org/zap"
)

// TickObserver receives each tick after the ledger has applied it. The loop
// calls observers on its own goroutine, so implementations must return fast.
type TickObserver interface {
	Observe(t model.Tick)
}

// Loop is the single goroutine through which all price ticks reach the
// ledger. One consumer per channel guarantees arrival order is applied order.
type Loop struct {
	ledger    *Ledger
	observers []TickObserver
	log       *zap.Logger
}

func NewLoop(ledger *Ledger, log *zap.Logger, observers ...TickObserver) *Loop {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{ledger: ledger, observers: observers, log: log}
}

// Run consumes ticks until the context is cancelled or the channel closes.
func (lp *Loop) Run(ctx context.Context, ticks <-chan model.Tick) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-ticks:
			if !ok {
				return
			}
			if evt := lp.ledger.OnPriceTick(t); evt != nil {
				lp.log.Info("liquidation event applied",
					zap.String("instrument", evt.Instrument),
					zap.String("price", evt.Price.String()),
				)
			}
			for _, o := range lp.observers {
				o.Observe(t)
			}
		}
	}
}
