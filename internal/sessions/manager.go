package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	mathrand "math/rand"
	"sync"
	"time"

	"papertrader/internal/autotrader"
	"papertrader/internal/engine"
	"papertrader/internal/executor"
	"papertrader/internal/marketdata"
	"papertrader/internal/strategy"
	"papertrader/internal/types"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config carries the per-session defaults; every session trades the one
// configured instrument.
type Config struct {
	Instrument       string
	DefaultCash      decimal.Decimal
	AnalysisInterval time.Duration
	SignalCooldown   time.Duration
	StochasticDemo   bool // enable the strategies' stochastic fallback
}

// Session bundles one account's full stack: ledger, executor, signal
// generator and auto trader, all fed by one subscription to the shared feed.
type Session struct {
	ID        string
	CreatedAt time.Time

	Ledger    *engine.Ledger
	Exec      *executor.Executor
	Generator *strategy.Generator
	Trader    *autotrader.AutoTrader
	Bus       *marketdata.Bus

	Category types.InstrumentCategory
	Leverage int

	ctx    context.Context
	cancel context.CancelFunc
}

// Context is the session's lifetime context; it outlives any single request
// and is cancelled on teardown.
func (s *Session) Context() context.Context {
	return s.ctx
}

type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	cfg     Config
	feed    *marketdata.Feed
	archive engine.Recorder
	baseCtx context.Context
	log     *zap.Logger
}

func NewManager(ctx context.Context, cfg Config, feed *marketdata.Feed, archive engine.Recorder, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		feed:     feed,
		archive:  archive,
		baseCtx:  ctx,
		log:      log,
	}
}

// Create wires a new session and starts its feed loop and analysis cadence.
// Starting cash defaults to the configured value when zero.
func (m *Manager) Create(startingCash decimal.Decimal, category types.InstrumentCategory, leverage int) (*Session, error) {
	if startingCash.IsZero() {
		startingCash = m.cfg.DefaultCash
	}
	if startingCash.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: starting cash must be positive", engine.ErrValidation)
	}
	rules, ok := category.Rules()
	if !ok {
		return nil, fmt.Errorf("%w: unknown instrument category %q", engine.ErrValidation, category)
	}
	if category == types.CategoryFutures {
		if leverage < rules.MinLeverage || leverage > rules.MaxLeverage {
			return nil, fmt.Errorf("%w: leverage must be between %d and %d", engine.ErrValidation, rules.MinLeverage, rules.MaxLeverage)
		}
	} else {
		leverage = 0
	}

	id, err := newID()
	if err != nil {
		return nil, err
	}

	bus := marketdata.NewBus()
	log := m.log.With(zap.String("session", id))
	ledger := engine.NewLedger(engine.LedgerConfig{
		Instrument:   m.cfg.Instrument,
		StartingCash: startingCash,
	}, bus, m.archive, log)
	exec := executor.New(ledger, log)

	var rng *mathrand.Rand
	if m.cfg.StochasticDemo {
		rng = mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	}
	gen, err := strategy.NewGenerator(strategy.Config{
		Interval: m.cfg.AnalysisInterval,
		Cooldown: m.cfg.SignalCooldown,
	}, []strategy.Strategy{
		strategy.NewMomentum(rng),
		strategy.NewMeanReversion(rng),
		strategy.NewTrendFollowing(rng),
	}, types.StrategyMomentum, bus, log)
	if err != nil {
		return nil, err
	}

	trader := autotrader.New(ledger, exec, gen.Signals(), autotrader.OrderTemplate{
		Category: category,
		Leverage: leverage,
	}, bus, log)

	ctx, cancel := context.WithCancel(m.baseCtx)
	tickCh := m.feed.Subscribe()
	loop := engine.NewLoop(ledger, log, gen)
	go loop.Run(ctx, tickCh)
	go gen.Run(ctx)
	go func() {
		<-ctx.Done()
		m.feed.Unsubscribe(tickCh)
	}()

	s := &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		Ledger:    ledger,
		Exec:      exec,
		Generator: gen,
		Trader:    trader,
		Bus:       bus,
		Category:  category,
		Leverage:  leverage,
		ctx:       ctx,
		cancel:    cancel,
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	log.Info("session created",
		zap.String("category", string(category)),
		zap.String("starting_cash", startingCash.String()),
	)
	return s, nil
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	return s, ok
}

// Teardown stops the trader and cancels the session's timers and feed
// subscription. Ledger state is dropped with the session.
func (m *Manager) Teardown(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	s.Trader.Stop()
	s.cancel()
	m.log.Info("session torn down", zap.String("session", id))
	return true
}

func newID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
