package dex

import (
	"math"
	"math/big"
	"testing"
	"time"

	"wallscope/internal/model"
)

func v3TestPool() model.Pool {
	return model.Pool{
		Address: "0x0000000000000000000000000000000000000def",
		ChainID: 1,
		DEX:     "uniswap_v3",
		Token0:  model.Token{Address: "0xaaa", ChainID: 1, Symbol: "AAA", Decimals: 18},
		Token1:  model.Token{Address: "0xbbb", ChainID: 1, Symbol: "BBB", Decimals: 18},
		Fee:     3000,
	}
}

func oneEth() *big.Int {
	n, _ := new(big.Int).SetString("1000000000000000000", 10)
	return n
}

func TestProfileDistributionBelowCurrent(t *testing.T) {
	ticks := []PopulatedTick{
		{Tick: -1000, LiquidityNet: oneEth()},
		{Tick: 0, LiquidityNet: new(big.Int).Neg(oneEth())},
	}
	sqrtCurrent, err := SqrtRatioAtTick(1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dist, err := profileDistribution(v3TestPool(), ticks, sqrtCurrent, nil, time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(dist.PriceLevels) != 1 {
		t.Fatalf("expected one level, got %d", len(dist.PriceLevels))
	}
	level := dist.PriceLevels[0]
	if level.Side != model.SideBuy {
		t.Fatalf("side = %s, want buy", level.Side)
	}
	if level.Token0Liquidity != 0 {
		t.Fatalf("token0 liquidity = %v, want 0", level.Token0Liquidity)
	}
	want := 1 - math.Pow(1.0001, -500)
	if math.Abs(level.Token1Liquidity-want)/want > 1e-9 {
		t.Fatalf("token1 liquidity = %v, want %v", level.Token1Liquidity, want)
	}
	if level.UpperPrice > dist.CurrentPrice {
		t.Fatalf("buy level upper %v above current price %v", level.UpperPrice, dist.CurrentPrice)
	}
}

func TestProfileDistributionEmpty(t *testing.T) {
	sqrtCurrent, err := SqrtRatioAtTick(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dist, err := profileDistribution(v3TestPool(), nil, sqrtCurrent, nil, time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dist.PriceLevels) != 0 {
		t.Fatalf("expected empty distribution, got %d levels", len(dist.PriceLevels))
	}
}

func TestProfileDistributionStraddle(t *testing.T) {
	ticks := []PopulatedTick{
		{Tick: -1000, LiquidityNet: oneEth()},
		{Tick: 1000, LiquidityNet: new(big.Int).Neg(oneEth())},
	}
	sqrtCurrent, err := SqrtRatioAtTick(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dist, err := profileDistribution(v3TestPool(), ticks, sqrtCurrent, nil, time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(dist.PriceLevels) != 2 {
		t.Fatalf("expected straddle split into two levels, got %d", len(dist.PriceLevels))
	}
	buy, sell := dist.PriceLevels[0], dist.PriceLevels[1]
	if buy.Side != model.SideBuy || sell.Side != model.SideSell {
		t.Fatalf("sides = (%s, %s), want (buy, sell)", buy.Side, sell.Side)
	}
	if buy.UpperPrice != dist.CurrentPrice || sell.LowerPrice != dist.CurrentPrice {
		t.Fatalf("split not at current price %v: buy upper %v, sell lower %v",
			dist.CurrentPrice, buy.UpperPrice, sell.LowerPrice)
	}
	if buy.Token1Liquidity <= 0 || buy.Token0Liquidity != 0 {
		t.Fatalf("buy half liquidity = (%v, %v), want token1 only", buy.Token0Liquidity, buy.Token1Liquidity)
	}
	if sell.Token0Liquidity <= 0 || sell.Token1Liquidity != 0 {
		t.Fatalf("sell half liquidity = (%v, %v), want token0 only", sell.Token0Liquidity, sell.Token1Liquidity)
	}
	// Symmetric range around the current tick holds near-equal amounts.
	if math.Abs(buy.Token1Liquidity-sell.Token0Liquidity)/buy.Token1Liquidity > 1e-3 {
		t.Fatalf("expected near-symmetric halves, got %v vs %v", buy.Token1Liquidity, sell.Token0Liquidity)
	}
}

func TestProfileDistributionAnchorsActiveLiquidity(t *testing.T) {
	ticks := []PopulatedTick{
		{Tick: -1000, LiquidityNet: oneEth()},
		{Tick: 1000, LiquidityNet: new(big.Int).Neg(oneEth())},
	}
	sqrtCurrent, err := SqrtRatioAtTick(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	now := time.Now().UTC()

	plain, err := profileDistribution(v3TestPool(), ticks, sqrtCurrent, nil, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The pool reports twice the liquidity visible in the fetched window,
	// as if half of it came from ticks below the window.
	doubled := new(big.Int).Mul(oneEth(), big.NewInt(2))
	anchored, err := profileDistribution(v3TestPool(), ticks, sqrtCurrent, doubled, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(plain.PriceLevels) != 2 || len(anchored.PriceLevels) != 2 {
		t.Fatalf("levels = (%d, %d), want (2, 2)", len(plain.PriceLevels), len(anchored.PriceLevels))
	}
	gotRatio := anchored.PriceLevels[0].Token1Liquidity / plain.PriceLevels[0].Token1Liquidity
	if math.Abs(gotRatio-2) > 1e-9 {
		t.Fatalf("anchored buy half scaled by %v, want 2", gotRatio)
	}
	gotRatio = anchored.PriceLevels[1].Token0Liquidity / plain.PriceLevels[1].Token0Liquidity
	if math.Abs(gotRatio-2) > 1e-9 {
		t.Fatalf("anchored sell half scaled by %v, want 2", gotRatio)
	}
}

func TestProfileDistributionSorted(t *testing.T) {
	ticks := []PopulatedTick{
		{Tick: -2000, LiquidityNet: oneEth()},
		{Tick: -1000, LiquidityNet: oneEth()},
		{Tick: 0, LiquidityNet: new(big.Int).Neg(oneEth())},
		{Tick: 1000, LiquidityNet: new(big.Int).Neg(oneEth())},
	}
	sqrtCurrent, err := SqrtRatioAtTick(2000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dist, err := profileDistribution(v3TestPool(), ticks, sqrtCurrent, nil, time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dist.PriceLevels) != 3 {
		t.Fatalf("expected three levels, got %d", len(dist.PriceLevels))
	}
	for i := 1; i < len(dist.PriceLevels); i++ {
		if dist.PriceLevels[i].LowerPrice < dist.PriceLevels[i-1].LowerPrice {
			t.Fatalf("levels not sorted at index %d", i)
		}
	}
}
