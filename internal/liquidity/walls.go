package liquidity

import "wallscope/internal/model"

// ExtractWalls turns price bins into buy and sell walls around the current
// price. A bin's value is its token1 liquidity plus its token0 liquidity
// valued at the bin midpoint, all in quote units. Bins straddling the
// current price belong to neither side and are dropped; so are empty bins.
func ExtractWalls(buckets []Bucket, currentPrice float64) (buy, sell []model.LiquidityWall) {
	for _, b := range buckets {
		mid := b.Midpoint()
		sources := make(map[string]float64, len(b.Sources))
		var value float64
		for dex, s := range b.Sources {
			v := s.Token1 + s.Token0*mid
			if v <= 0 {
				continue
			}
			sources[dex] = v
			value += v
		}
		if value <= 0 {
			continue
		}

		wall := model.LiquidityWall{
			PriceLower:     b.Lower,
			PriceUpper:     b.Upper,
			LiquidityValue: value,
			DexSources:     sources,
		}
		switch {
		case b.Upper <= currentPrice:
			buy = append(buy, wall)
		case b.Lower >= currentPrice:
			sell = append(sell, wall)
		}
	}
	return buy, sell
}
