package marketdata

import (
	"sync"
)

// Event is the envelope every stream consumer receives. Transient display
// behavior (the 3s auto-expiry of notifications) belongs to the display
// layer; the bus only carries the underlying event.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const (
	EventQuote       = "quote"
	EventTrade       = "trade"
	EventLiquidation = "liquidation"
	EventSignal      = "signal"
	EventAutoTrader  = "autotrader"
	EventRisk        = "risk_settings"
)

// Bus fans events out to subscribers. Slow subscribers lose events rather
// than blocking the publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

func (b *Bus) Subscribe() chan Event {
	ch := make(chan Event, 100)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *Bus) Publish(evt Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.RUnlock()
}
