package liquidity

import (
	"testing"

	"github.com/stretchr/testify/require"

	"wallscope/internal/model"
)

// One-unit-wide levels covering [95, 105] around a current price of 100.
func spanDistribution() model.LiquidityDistribution {
	d := model.LiquidityDistribution{
		Token0:       tok("0xaaa", 18),
		Token1:       usdcToken(1),
		CurrentPrice: 100,
		DEX:          "uniswap_v3",
		ChainID:      1,
	}
	for p := 95.0; p < 100; p++ {
		d.PriceLevels = append(d.PriceLevels, model.PriceLevel{
			Side: model.SideBuy, LowerPrice: p, UpperPrice: p + 1, Token1Liquidity: 10,
		})
	}
	for p := 100.0; p < 105; p++ {
		d.PriceLevels = append(d.PriceLevels, model.PriceLevel{
			Side: model.SideSell, LowerPrice: p, UpperPrice: p + 1, Token0Liquidity: 1,
		})
	}
	return d
}

func TestRebucketAndExtractWalls(t *testing.T) {
	d := spanDistribution()
	buckets := Rebucket([]model.LiquidityDistribution{d}, 10)
	require.Len(t, buckets, 10)
	require.InDelta(t, 95.0, buckets[0].Lower, 1e-12)
	require.InDelta(t, 105.0, buckets[9].Upper, 1e-12)

	buy, sell := ExtractWalls(buckets, 100)
	require.Len(t, buy, 5)
	require.Len(t, sell, 5)

	for _, w := range buy {
		require.LessOrEqual(t, w.PriceUpper, 100.0)
		require.InDelta(t, 10.0, w.LiquidityValue, 1e-9)
		require.InDelta(t, 10.0, w.DexSources["uniswap_v3"], 1e-9)
	}
	for _, w := range sell {
		require.GreaterOrEqual(t, w.PriceLower, 100.0)
		// token0 valued at the bin midpoint.
		mid := (w.PriceLower + w.PriceUpper) / 2
		require.InDelta(t, mid, w.LiquidityValue, 1e-9)
	}
}

func TestExtractWallsDropsStraddlingBin(t *testing.T) {
	d := spanDistribution()
	// Three bins over [95, 105] put the middle one across the current price.
	buckets := Rebucket([]model.LiquidityDistribution{d}, 3)
	buy, sell := ExtractWalls(buckets, 100)

	for _, w := range buy {
		require.LessOrEqual(t, w.PriceUpper, 100.0)
	}
	for _, w := range sell {
		require.GreaterOrEqual(t, w.PriceLower, 100.0)
	}
	require.Len(t, buy, 1)
	require.Len(t, sell, 1)
}

func TestRebucketOverlapWeighting(t *testing.T) {
	d := model.LiquidityDistribution{
		DEX: "uniswap_v2",
		PriceLevels: []model.PriceLevel{
			// Spans [0, 10]; half its width falls into each of two bins.
			{Side: model.SideBuy, LowerPrice: 0, UpperPrice: 10, Token1Liquidity: 8},
		},
	}
	buckets := Rebucket([]model.LiquidityDistribution{d}, 2)
	require.Len(t, buckets, 2)
	require.InDelta(t, 4.0, buckets[0].Sources["uniswap_v2"].Token1, 1e-9)
	require.InDelta(t, 4.0, buckets[1].Sources["uniswap_v2"].Token1, 1e-9)
}

func TestRebucketPointDistribution(t *testing.T) {
	d := model.LiquidityDistribution{
		DEX:          "uniswap_v2",
		CurrentPrice: 3,
		PriceLevels: []model.PriceLevel{
			{Side: model.SideBuy, LowerPrice: 3, UpperPrice: 3, Token0Liquidity: 1000, Token1Liquidity: 3000},
		},
	}
	buckets := Rebucket([]model.LiquidityDistribution{d}, 64)
	require.Len(t, buckets, 1)
	require.InDelta(t, 3000.0, buckets[0].Sources["uniswap_v2"].Token1, 1e-9)
}

func TestRebucketEmpty(t *testing.T) {
	require.Nil(t, Rebucket(nil, 64))
	require.Nil(t, Rebucket([]model.LiquidityDistribution{{}}, 64))
}

func TestRebucketPerDexAttribution(t *testing.T) {
	a := model.LiquidityDistribution{
		DEX: "uniswap_v2",
		PriceLevels: []model.PriceLevel{
			{Side: model.SideBuy, LowerPrice: 0, UpperPrice: 10, Token1Liquidity: 6},
		},
	}
	b := model.LiquidityDistribution{
		DEX: "sushiswap",
		PriceLevels: []model.PriceLevel{
			{Side: model.SideBuy, LowerPrice: 0, UpperPrice: 10, Token1Liquidity: 4},
		},
	}
	buckets := Rebucket([]model.LiquidityDistribution{a, b}, 1)
	require.Len(t, buckets, 1)
	require.InDelta(t, 6.0, buckets[0].Sources["uniswap_v2"].Token1, 1e-9)
	require.InDelta(t, 4.0, buckets[0].Sources["sushiswap"].Token1, 1e-9)

	buy, _ := ExtractWalls(buckets, 100)
	require.Len(t, buy, 1)
	require.InDelta(t, 10.0, buy[0].LiquidityValue, 1e-9)
}
