package liquidity

import (
	"math"

	"wallscope/internal/model"
)

// Rebase requotes a (T, Q) distribution into (T, quote) using a locally
// constant reference price k = price(Q, quote): prices and the Q-side
// liquidity scale by k, the T side is untouched. Linear, so it ignores the
// curvature a true two-hop synthesis would model.
func Rebase(d model.LiquidityDistribution, quote model.Token, k float64) model.LiquidityDistribution {
	out := model.LiquidityDistribution{
		Token0:    d.Token0,
		Token1:    quote,
		DEX:       d.DEX,
		ChainID:   d.ChainID,
		Timestamp: d.Timestamp,
	}
	if !isFinitePositive(k) {
		return out
	}
	out.CurrentPrice = d.CurrentPrice * k

	for _, l := range d.PriceLevels {
		out.PriceLevels = append(out.PriceLevels, model.PriceLevel{
			Side:            l.Side,
			LowerPrice:      l.LowerPrice * k,
			UpperPrice:      l.UpperPrice * k,
			Token0Liquidity: l.Token0Liquidity,
			Token1Liquidity: l.Token1Liquidity * k,
			Timestamp:       l.Timestamp,
		})
	}
	out.Sanitize()
	return out
}

// Synthesize crosses a (T, Q) distribution with a (Q, quote) distribution
// into a synthetic (T, quote) distribution. Every pair of levels produces
// one synthetic level whose liquidity is bottlenecked by the smaller Q-side
// magnitude, back-converted through the two upper prices. Quadratic in the
// inputs, so callers re-bucket afterwards.
func Synthesize(a, b model.LiquidityDistribution) model.LiquidityDistribution {
	out := model.LiquidityDistribution{
		Token0:       a.Token0,
		Token1:       b.Token1,
		DEX:          a.DEX,
		ChainID:      a.ChainID,
		CurrentPrice: a.CurrentPrice * b.CurrentPrice,
		Timestamp:    a.Timestamp,
	}

	for _, la := range a.PriceLevels {
		if la.UpperPrice <= 0 {
			continue
		}
		for _, lb := range b.PriceLevels {
			qAmount := math.Min(la.Token1Liquidity, lb.Token0Liquidity)
			if qAmount <= 0 {
				continue
			}
			upper := la.UpperPrice * lb.UpperPrice
			side := model.SideSell
			if upper <= out.CurrentPrice {
				side = model.SideBuy
			}
			out.PriceLevels = append(out.PriceLevels, model.PriceLevel{
				Side:            side,
				LowerPrice:      la.LowerPrice * lb.LowerPrice,
				UpperPrice:      upper,
				Token0Liquidity: qAmount / la.UpperPrice,
				Token1Liquidity: qAmount * lb.UpperPrice,
				Timestamp:       a.Timestamp,
			})
		}
	}
	out.Sanitize()
	return out
}

func isFinitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
