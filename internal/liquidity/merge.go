package liquidity

import (
	"time"

	"wallscope/internal/model"
)

// AggregatedDEX tags distributions produced by merging several sources.
const AggregatedDEX = "aggregated"

// Merge concatenates the level lists of distributions over the same pair.
// The merged current price is weighted by each input's total liquidity,
// falling back to the plain mean when no input carries liquidity.
func Merge(dists ...model.LiquidityDistribution) model.LiquidityDistribution {
	if len(dists) == 0 {
		return model.LiquidityDistribution{DEX: AggregatedDEX, Timestamp: time.Now().UTC()}
	}

	out := model.LiquidityDistribution{
		Token0:    dists[0].Token0,
		Token1:    dists[0].Token1,
		DEX:       AggregatedDEX,
		ChainID:   dists[0].ChainID,
		Timestamp: time.Now().UTC(),
	}

	var weighted, totalWeight, priceSum float64
	for i := range dists {
		d := &dists[i]
		weight := d.TotalLiquidity()
		weighted += d.CurrentPrice * weight
		totalWeight += weight
		priceSum += d.CurrentPrice
		out.PriceLevels = append(out.PriceLevels, d.PriceLevels...)
	}
	if totalWeight > 0 {
		out.CurrentPrice = weighted / totalWeight
	} else {
		out.CurrentPrice = priceSum / float64(len(dists))
	}

	out.SortLevels()
	return out
}
