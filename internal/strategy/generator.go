package strategy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"papertrader/internal/engine"
	"papertrader/internal/marketdata"
	"papertrader/internal/model"
	"papertrader/internal/types"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WindowSize bounds the rolling price history a strategy sees.
const WindowSize = 50

const (
	DefaultInterval = 10 * time.Second
	DefaultCooldown = 30 * time.Second
)

type Config struct {
	Interval time.Duration // analysis cadence
	Cooldown time.Duration // minimum gap between signals of one strategy
}

// Generator keeps the rolling price window and runs the selected strategy on
// its own cadence, decoupled from tick arrival. Emitted signals go to a
// bounded channel and onto the event bus; a full channel drops the signal
// rather than blocking the analysis loop.
type Generator struct {
	mu       sync.Mutex
	window   []decimal.Decimal
	current  types.StrategyID
	lastEmit map[types.StrategyID]time.Time

	strategies map[types.StrategyID]Strategy
	interval   time.Duration
	cooldown   time.Duration
	now        func() time.Time

	out chan model.Signal
	bus *marketdata.Bus
	log *zap.Logger
}

func NewGenerator(cfg Config, strategies []Strategy, initial types.StrategyID, bus *marketdata.Bus, log *zap.Logger) (*Generator, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if log == nil {
		log = zap.NewNop()
	}
	byID := make(map[types.StrategyID]Strategy, len(strategies))
	for _, s := range strategies {
		byID[s.ID()] = s
	}
	if _, ok := byID[initial]; !ok {
		return nil, fmt.Errorf("%w: unknown strategy %q", engine.ErrValidation, initial)
	}
	return &Generator{
		window:     make([]decimal.Decimal, 0, WindowSize),
		current:    initial,
		lastEmit:   make(map[types.StrategyID]time.Time),
		strategies: byID,
		interval:   cfg.Interval,
		cooldown:   cfg.Cooldown,
		now:        time.Now,
		out:        make(chan model.Signal, 16),
		bus:        bus,
		log:        log,
	}, nil
}

// Observe appends the tick price to the rolling window.
func (g *Generator) Observe(t model.Tick) {
	if t.Price.LessThanOrEqual(decimal.Zero) {
		return
	}
	g.mu.Lock()
	g.window = append(g.window, t.Price)
	if len(g.window) > WindowSize {
		g.window = g.window[len(g.window)-WindowSize:]
	}
	g.mu.Unlock()
}

// SetStrategy switches the active strategy; the change applies on the next
// analysis cycle, never mid-cycle.
func (g *Generator) SetStrategy(id types.StrategyID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.strategies[id]; !ok {
		return fmt.Errorf("%w: unknown strategy %q", engine.ErrValidation, id)
	}
	g.current = id
	return nil
}

func (g *Generator) Current() types.StrategyID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// Signals is the bounded stream of emitted signals.
func (g *Generator) Signals() <-chan model.Signal {
	return g.out
}

// Run drives the analysis cadence until the context is cancelled.
func (g *Generator) Run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.analyzeOnce()
		}
	}
}

// analyzeOnce evaluates the current strategy against a copy of the window and
// emits at most one signal, respecting the per-strategy cooldown.
func (g *Generator) analyzeOnce() {
	g.mu.Lock()
	strat := g.strategies[g.current]
	history := make([]decimal.Decimal, len(g.window))
	copy(history, g.window)
	last := g.lastEmit[strat.ID()]
	g.mu.Unlock()

	now := g.now()
	if !last.IsZero() && now.Sub(last) < g.cooldown {
		return
	}

	sig, ok := strat.Analyze(history)
	if !ok {
		return
	}
	sig.Timestamp = now

	g.mu.Lock()
	g.lastEmit[strat.ID()] = now
	g.mu.Unlock()

	select {
	case g.out <- sig:
	default:
		g.log.Warn("signal dropped, consumer behind", zap.String("strategy", string(sig.Strategy)))
	}
	g.bus.Publish(marketdata.Event{Type: marketdata.EventSignal, Data: sig})
	g.log.Info("signal emitted",
		zap.String("strategy", string(sig.Strategy)),
		zap.String("action", string(sig.Action)),
		zap.Int("confidence", sig.Confidence),
		zap.String("price", sig.Price.String()),
	)
}
