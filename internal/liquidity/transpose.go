package liquidity

import "wallscope/internal/model"

// Transpose reinterprets a (B, A) distribution as (A, B): tokens swap,
// every price becomes its reciprocal with the bounds exchanged, the two
// liquidity magnitudes swap and sides flip. Transpose is an involution.
// Levels whose bounds would divide by zero are dropped.
func Transpose(d model.LiquidityDistribution) model.LiquidityDistribution {
	out := model.LiquidityDistribution{
		Token0:    d.Token1,
		Token1:    d.Token0,
		DEX:       d.DEX,
		ChainID:   d.ChainID,
		Timestamp: d.Timestamp,
	}
	if d.CurrentPrice > 0 {
		out.CurrentPrice = 1 / d.CurrentPrice
	}

	for _, l := range d.PriceLevels {
		if l.LowerPrice <= 0 || l.UpperPrice <= 0 {
			continue
		}
		out.PriceLevels = append(out.PriceLevels, model.PriceLevel{
			Side:            l.Side.Flip(),
			LowerPrice:      1 / l.UpperPrice,
			UpperPrice:      1 / l.LowerPrice,
			Token0Liquidity: l.Token1Liquidity,
			Token1Liquidity: l.Token0Liquidity,
			Timestamp:       l.Timestamp,
		})
	}
	out.SortLevels()
	return out
}
