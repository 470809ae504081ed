package strategy

import (
	"fmt"
	"math/rand"

	"papertrader/internal/model"
	"papertrader/internal/types"

	"github.com/shopspring/decimal"
)

// MeanReversion signals against the deviation of the latest sample from the
// mean of the last ten: stretched above the mean is a SELL, below a BUY.
type MeanReversion struct {
	threshold decimal.Decimal // percent deviation from the mean
	rng       *rand.Rand
}

func NewMeanReversion(rng *rand.Rand) *MeanReversion {
	return &MeanReversion{threshold: decimal.NewFromFloat(1.0), rng: rng}
}

func (m *MeanReversion) ID() types.StrategyID { return types.StrategyMeanReversion }

func (m *MeanReversion) Analyze(history []decimal.Decimal) (model.Signal, bool) {
	if len(history) < 10 {
		return model.Signal{}, false
	}
	window := history[len(history)-10:]
	last := window[len(window)-1]
	deviation := percentChange(mean(window), last)

	switch {
	case deviation.GreaterThan(m.threshold):
		return model.Signal{
			Action:     types.SignalSell,
			Confidence: confidenceFor(deviation, 8),
			Price:      last,
			Strategy:   m.ID(),
			Reason:     fmt.Sprintf("%s%% above 10-sample mean", deviation.Round(2)),
		}, true
	case deviation.LessThan(m.threshold.Neg()):
		return model.Signal{
			Action:     types.SignalBuy,
			Confidence: confidenceFor(deviation, 8),
			Price:      last,
			Strategy:   m.ID(),
			Reason:     fmt.Sprintf("%s%% below 10-sample mean", deviation.Abs().Round(2)),
		}, true
	}
	return stochasticFallback(m.rng, m.ID(), last)
}
