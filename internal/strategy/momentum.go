package strategy

import (
	"fmt"
	"math/rand"

	"papertrader/internal/model"
	"papertrader/internal/types"

	"github.com/shopspring/decimal"
)

// Momentum signals on the percent change across the most recent five samples:
// BUY above +threshold, SELL below -threshold.
type Momentum struct {
	threshold decimal.Decimal // percent
	rng       *rand.Rand
}

func NewMomentum(rng *rand.Rand) *Momentum {
	return &Momentum{threshold: decimal.NewFromFloat(0.5), rng: rng}
}

func (m *Momentum) ID() types.StrategyID { return types.StrategyMomentum }

func (m *Momentum) Analyze(history []decimal.Decimal) (model.Signal, bool) {
	if len(history) < 5 {
		return model.Signal{}, false
	}
	recent := history[len(history)-5:]
	last := recent[len(recent)-1]
	pct := percentChange(recent[0], last)

	switch {
	case pct.GreaterThan(m.threshold):
		return model.Signal{
			Action:     types.SignalBuy,
			Confidence: confidenceFor(pct, 10),
			Price:      last,
			Strategy:   m.ID(),
			Reason:     fmt.Sprintf("momentum %s%% over 5 samples", pct.Round(2)),
		}, true
	case pct.LessThan(m.threshold.Neg()):
		return model.Signal{
			Action:     types.SignalSell,
			Confidence: confidenceFor(pct, 10),
			Price:      last,
			Strategy:   m.ID(),
			Reason:     fmt.Sprintf("momentum %s%% over 5 samples", pct.Round(2)),
		}, true
	}
	return stochasticFallback(m.rng, m.ID(), last)
}
