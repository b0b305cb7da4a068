package dex

import (
	"math"
	"math/big"

	"wallscope/internal/errs"
)

// Tick bounds of the concentrated-liquidity design: price(MinTick) is the
// smallest representable sqrt ratio, price(MaxTick) the largest.
const (
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

var (
	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	q32        = new(big.Int).Lsh(big.NewInt(1), 32)
	q96        = new(big.Int).Lsh(big.NewInt(1), 96)

	// Per-bit multipliers for sqrt(1.0001^-tick) in Q128, applied for each
	// set bit of |tick|.
	sqrtRatioMagic = []struct {
		bit  uint32
		mult *big.Int
	}{
		{0x2, hexBig("fff97272373d413259a46990580e213a")},
		{0x4, hexBig("fff2e50f5f656932ef12357cf3c7fdcc")},
		{0x8, hexBig("ffe5caca7e10e4e61c3624eaa0941cd0")},
		{0x10, hexBig("ffcb9843d60f6159c9db58835c926644")},
		{0x20, hexBig("ff973b41fa98c081472e6896dfb254c0")},
		{0x40, hexBig("ff2ea16466c96a3843ec78b326b52861")},
		{0x80, hexBig("fe5dee046a99a2a811c461f1969c3053")},
		{0x100, hexBig("fcbe86c7900a88aedcffc83b479aa3a4")},
		{0x200, hexBig("f987a7253ac413176f2b074cf7815e54")},
		{0x400, hexBig("f3392b0822b70005940c7a398e4b70f3")},
		{0x800, hexBig("e7159475a2c29b7443b29c7fa6e889d9")},
		{0x1000, hexBig("d097f3bdfd2022b8845ad8f792aa5825")},
		{0x2000, hexBig("a9f746462d870fdf8a65dc1f90e061e5")},
		{0x4000, hexBig("70d869a156d2a1b890bb3df62baf32f7")},
		{0x8000, hexBig("31be135f97d08fd981231505542fcfa6")},
		{0x10000, hexBig("9aa508b5b7a84e1c677de54f3e99bc9")},
		{0x20000, hexBig("5d6af8dedb81196699c329225ee604")},
		{0x40000, hexBig("2216e584f5fa1ea926041bedfe98")},
		{0x80000, hexBig("48a170391f7dc42444e8fa2")},
	}
)

func hexBig(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("bad hex constant: " + s)
	}
	return n
}

// SqrtRatioAtTick returns sqrt(1.0001^tick) as a Q64.96 fixed-point value.
func SqrtRatioAtTick(tick int32) (*big.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, errs.Newf(errs.Dex, "tick %d out of range", tick)
	}

	absTick := uint32(tick)
	if tick < 0 {
		absTick = uint32(-tick)
	}

	ratio := new(big.Int).Lsh(big.NewInt(1), 128)
	if absTick&0x1 != 0 {
		ratio = hexBig("fffcb933bd6fad37aa2d162d1a594001")
	}
	for _, m := range sqrtRatioMagic {
		if absTick&m.bit != 0 {
			ratio.Mul(ratio, m.mult)
			ratio.Rsh(ratio, 128)
		}
	}

	if tick > 0 {
		ratio.Div(maxUint256, ratio)
	}

	// Round up on the Q128 -> Q96 truncation.
	rem := new(big.Int).Mod(ratio, q32)
	ratio.Rsh(ratio, 32)
	if rem.Sign() != 0 {
		ratio.Add(ratio, big.NewInt(1))
	}
	return ratio, nil
}

// Amount0Delta returns the raw token0 amount held between two sqrt ratios for
// active liquidity L: L * (sqrtB - sqrtA) * 2^96 / (sqrtA * sqrtB).
func Amount0Delta(liquidity, sqrtA, sqrtB *big.Int) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	if sqrtA.Sign() == 0 {
		return new(big.Int)
	}
	num := new(big.Int).Lsh(liquidity, 96)
	num.Mul(num, new(big.Int).Sub(sqrtB, sqrtA))
	num.Div(num, sqrtB)
	num.Div(num, sqrtA)
	return num
}

// Amount1Delta returns the raw token1 amount held between two sqrt ratios for
// active liquidity L: L * (sqrtB - sqrtA) / 2^96.
func Amount1Delta(liquidity, sqrtA, sqrtB *big.Int) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	out := new(big.Int).Sub(sqrtB, sqrtA)
	out.Mul(out, liquidity)
	out.Div(out, q96)
	return out
}

// PriceAtTick converts a tick index into a human-scaled token1-per-token0
// price: 1.0001^tick * 10^(d0-d1).
func PriceAtTick(tick int32, decimals0, decimals1 uint8) float64 {
	return math.Pow(1.0001, float64(tick)) * math.Pow(10, float64(int(decimals0)-int(decimals1)))
}

// PriceFromSqrtX96 converts a Q64.96 sqrt price into a human-scaled
// token1-per-token0 price.
func PriceFromSqrtX96(sqrtPriceX96 *big.Int, decimals0, decimals1 uint8) float64 {
	sqrt := new(big.Float).SetInt(sqrtPriceX96)
	sqrt.Quo(sqrt, new(big.Float).SetInt(q96))
	ratio, _ := new(big.Float).Mul(sqrt, sqrt).Float64()
	return ratio * math.Pow(10, float64(int(decimals0)-int(decimals1)))
}
