package strategy

import (
	"math/rand"

	"papertrader/internal/model"
	"papertrader/internal/types"

	"github.com/shopspring/decimal"
)

// Strategy evaluates a price window, oldest first, and may emit a signal.
type Strategy interface {
	ID() types.StrategyID
	Analyze(history []decimal.Decimal) (model.Signal, bool)
}

// fallbackChance is the per-cycle probability that a strategy emits a
// low-confidence stochastic signal when no threshold was crossed. It keeps a
// demo account active through flat markets and is disabled by passing a nil
// rand source.
const fallbackChance = 0.15

func stochasticFallback(rng *rand.Rand, id types.StrategyID, price decimal.Decimal) (model.Signal, bool) {
	if rng == nil || rng.Float64() >= fallbackChance {
		return model.Signal{}, false
	}
	action := types.SignalBuy
	if rng.Intn(2) == 1 {
		action = types.SignalSell
	}
	return model.Signal{
		Action:     action,
		Confidence: 50 + rng.Intn(16),
		Price:      price,
		Strategy:   id,
		Reason:     "stochastic fallback",
	}, true
}

func mean(prices []decimal.Decimal) decimal.Decimal {
	if len(prices) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, p := range prices {
		sum = sum.Add(p)
	}
	return sum.Div(decimal.NewFromInt(int64(len(prices))))
}

// percentChange returns (to-from)/from*100, or zero when from is not positive.
func percentChange(from, to decimal.Decimal) decimal.Decimal {
	if from.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return to.Sub(from).Div(from).Mul(decimal.NewFromInt(100))
}

func confidenceFor(pct decimal.Decimal, scale int64) int {
	c := decimal.NewFromInt(50).Add(pct.Abs().Mul(decimal.NewFromInt(scale))).IntPart()
	if c > 95 {
		return 95
	}
	return int(c)
}
