package strategy

import (
	"fmt"
	"math/rand"

	"papertrader/internal/model"
	"papertrader/internal/types"

	"github.com/shopspring/decimal"
)

// TrendFollowing compares the mean of the most recent five samples against
// the mean of the fifteen before them. It needs at least twenty samples.
type TrendFollowing struct {
	rng *rand.Rand
}

func NewTrendFollowing(rng *rand.Rand) *TrendFollowing {
	return &TrendFollowing{rng: rng}
}

func (t *TrendFollowing) ID() types.StrategyID { return types.StrategyTrendFollow }

func (t *TrendFollowing) Analyze(history []decimal.Decimal) (model.Signal, bool) {
	if len(history) < 20 {
		return model.Signal{}, false
	}
	window := history[len(history)-20:]
	prior := mean(window[:15])
	recent := mean(window[15:])
	last := window[len(window)-1]
	spread := percentChange(prior, recent)

	switch {
	case spread.IsPositive():
		return model.Signal{
			Action:     types.SignalBuy,
			Confidence: confidenceFor(spread, 12),
			Price:      last,
			Strategy:   t.ID(),
			Reason:     fmt.Sprintf("5-sample mean %s%% above prior 15", spread.Round(2)),
		}, true
	case spread.IsNegative():
		return model.Signal{
			Action:     types.SignalSell,
			Confidence: confidenceFor(spread, 12),
			Price:      last,
			Strategy:   t.ID(),
			Reason:     fmt.Sprintf("5-sample mean %s%% below prior 15", spread.Abs().Round(2)),
		}, true
	}
	return stochasticFallback(t.rng, t.ID(), last)
}
