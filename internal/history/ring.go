package history

import (
	"sync"

	"papertrader/internal/model"
)

// DefaultCapacity bounds the in-memory trade history.
const DefaultCapacity = 50

// Ring keeps the most recent trade records, newest first. Once full, the
// oldest record is evicted on every append.
type Ring struct {
	mu   sync.RWMutex
	cap  int
	recs []model.TradeRecord
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{cap: capacity, recs: make([]model.TradeRecord, 0, capacity)}
}

func (r *Ring) Add(rec model.TradeRecord) {
	r.mu.Lock()
	if len(r.recs) == r.cap {
		r.recs = r.recs[:len(r.recs)-1]
	}
	r.recs = append([]model.TradeRecord{rec}, r.recs...)
	r.mu.Unlock()
}

// List returns a copy, newest first.
func (r *Ring) List() []model.TradeRecord {
	r.mu.RLock()
	out := make([]model.TradeRecord, len(r.recs))
	copy(out, r.recs)
	r.mu.RUnlock()
	return out
}

func (r *Ring) Len() int {
	r.mu.RLock()
	n := len(r.recs)
	r.mu.RUnlock()
	return n
}
