package marketdata

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"papertrader/internal/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type FeedConfig struct {
	Instrument string
	StartPrice float64
	Interval   time.Duration
	Volatility float64 // stddev of the per-tick percent move
	Drift      float64 // per-tick percent bias
}

// Feed generates a synthetic random-walk quote stream. It stands in for a
// real market transport: the engine consumes an ordered tick channel either
// way and never knows the difference. Volatility and drift are adjustable at
// runtime through the admin surface.
type Feed struct {
	mu         sync.Mutex
	instrument string
	interval   time.Duration
	volatility float64
	drift      float64

	price       float64
	sessionOpen float64
	high        float64
	low         float64
	volume      float64

	rng  *rand.Rand
	subs map[chan model.Tick]struct{}
	bus  *Bus
	log  *zap.Logger
}

func NewFeed(cfg FeedConfig, bus *Bus, log *zap.Logger) *Feed {
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	if cfg.StartPrice <= 0 {
		cfg.StartPrice = 100
	}
	if cfg.Volatility <= 0 {
		cfg.Volatility = 0.05
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Feed{
		instrument:  cfg.Instrument,
		interval:    cfg.Interval,
		volatility:  cfg.Volatility,
		drift:       cfg.Drift,
		price:       cfg.StartPrice,
		sessionOpen: cfg.StartPrice,
		high:        cfg.StartPrice,
		low:         cfg.StartPrice,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		subs:        make(map[chan model.Tick]struct{}),
		bus:         bus,
		log:         log,
	}
}

// Subscribe returns a tick channel. Consumers that fall behind lose ticks
// rather than stalling the feed.
func (f *Feed) Subscribe() chan model.Tick {
	ch := make(chan model.Tick, 100)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()
	return ch
}

func (f *Feed) Unsubscribe(ch chan model.Tick) {
	f.mu.Lock()
	if _, ok := f.subs[ch]; ok {
		delete(f.subs, ch)
		close(ch)
	}
	f.mu.Unlock()
}

// SetDynamics adjusts the walk's volatility and drift, both in percent per
// tick. Non-positive volatility is ignored.
func (f *Feed) SetDynamics(volatility, drift float64) {
	f.mu.Lock()
	if volatility > 0 {
		f.volatility = volatility
	}
	f.drift = drift
	f.mu.Unlock()
	f.log.Info("feed dynamics updated",
		zap.Float64("volatility", volatility),
		zap.Float64("drift", drift),
	)
}

func (f *Feed) Dynamics() (volatility, drift float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volatility, f.drift
}

// Run publishes ticks on the configured interval until the context is
// cancelled, then closes every subscriber channel.
func (f *Feed) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			f.closeAll()
			return
		case <-ticker.C:
			t := f.step()
			f.broadcast(t)
		}
	}
}

func (f *Feed) step() model.Tick {
	f.mu.Lock()
	defer f.mu.Unlock()

	pct := f.drift + f.rng.NormFloat64()*f.volatility
	next := f.price * (1 + pct/100)
	// The walk never touches zero; a price of zero would wedge the ledger's
	// market execution.
	if next < f.price*0.2 {
		next = f.price * 0.2
	}
	f.price = next
	f.high = math.Max(f.high, next)
	f.low = math.Min(f.low, next)
	f.volume += math.Abs(pct) * next

	price := decimal.NewFromFloat(next).Round(4)
	change := price.Sub(decimal.NewFromFloat(f.sessionOpen).Round(4))
	changePct := decimal.Zero
	if f.sessionOpen > 0 {
		changePct = change.Div(decimal.NewFromFloat(f.sessionOpen)).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return model.Tick{
		Instrument:    f.instrument,
		Price:         price,
		PriceText:     price.StringFixed(4),
		Change:        change,
		ChangePercent: changePct,
		High:          decimal.NewFromFloat(f.high).Round(4),
		Low:           decimal.NewFromFloat(f.low).Round(4),
		Volume:        decimal.NewFromFloat(f.volume).Round(2),
		Timestamp:     time.Now().UTC(),
	}
}

func (f *Feed) broadcast(t model.Tick) {
	f.bus.Publish(Event{Type: EventQuote, Data: t})
	f.mu.Lock()
	for ch := range f.subs {
		select {
		case ch <- t:
		default:
		}
	}
	f.mu.Unlock()
}

func (f *Feed) closeAll() {
	f.mu.Lock()
	for ch := range f.subs {
		delete(f.subs, ch)
		close(ch)
	}
	f.mu.Unlock()
}
