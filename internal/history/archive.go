package history

import (
	"context"

	"papertrader/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const createTradesTable = `
CREATE TABLE IF NOT EXISTS trades (
    id BIGSERIAL PRIMARY KEY,
    ts TIMESTAMPTZ NOT NULL,
    action TEXT NOT NULL,
    execution_price NUMERIC NOT NULL,
    qty NUMERIC NOT NULL,
    leverage INT NOT NULL DEFAULT 0,
    realized_profit NUMERIC NOT NULL DEFAULT 0,
    realized_profit_pct NUMERIC NOT NULL DEFAULT 0,
    is_win BOOLEAN NOT NULL DEFAULT FALSE,
    origin TEXT NOT NULL,
    strategy TEXT NOT NULL DEFAULT ''
)`

const insertTrade = `
INSERT INTO trades
    (ts, action, execution_price, qty, leverage, realized_profit, realized_profit_pct, is_win, origin, strategy)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// Archive persists trade records to Postgres off the hot path. Record is
// called under the ledger lock, so it only enqueues; a full queue drops the
// record rather than blocking an order. The in-memory ring stays the source
// of truth for the serving surface.
type Archive struct {
	pool *pgxpool.Pool
	in   chan model.TradeRecord
	log  *zap.Logger
}

func NewArchive(pool *pgxpool.Pool, log *zap.Logger) *Archive {
	if log == nil {
		log = zap.NewNop()
	}
	return &Archive{
		pool: pool,
		in:   make(chan model.TradeRecord, 256),
		log:  log,
	}
}

// Init creates the trades table.
func (a *Archive) Init(ctx context.Context) error {
	_, err := a.pool.Exec(ctx, createTradesTable)
	return err
}

// Record enqueues without blocking.
func (a *Archive) Record(rec model.TradeRecord) {
	select {
	case a.in <- rec:
	default:
		a.log.Warn("trade archive queue full, record dropped")
	}
}

// Run drains the queue until the context is cancelled.
func (a *Archive) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case rec := <-a.in:
			a.insert(ctx, rec)
		}
	}
}

func (a *Archive) insert(ctx context.Context, rec model.TradeRecord) {
	_, err := a.pool.Exec(ctx, insertTrade,
		rec.Timestamp,
		rec.Action,
		rec.ExecutionPrice.String(),
		rec.Quantity.String(),
		rec.Leverage,
		rec.RealizedProfit.String(),
		rec.RealizedProfitPct.String(),
		rec.IsWin,
		string(rec.Origin),
		string(rec.Strategy),
	)
	if err != nil {
		a.log.Error("trade archive insert failed", zap.Error(err))
	}
}
