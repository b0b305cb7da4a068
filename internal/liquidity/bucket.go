package liquidity

import (
	"math"

	"wallscope/internal/model"
)

// DefaultBuckets is the walls granularity when no value is configured.
const DefaultBuckets = 64

// SourceLiquidity is one DEX's contribution to a bucket, still split by
// token side.
type SourceLiquidity struct {
	Token0 float64
	Token1 float64
}

// Bucket is one uniform price bin covering part of [p_min, p_max] with the
// per-DEX liquidity that overlaps it.
type Bucket struct {
	Lower   float64
	Upper   float64
	Sources map[string]SourceLiquidity
}

// Midpoint is the price at which token0 contributions are valued.
func (b Bucket) Midpoint() float64 {
	return (b.Lower + b.Upper) / 2
}

// Rebucket partitions the combined price span of the inputs into n uniform
// bins and distributes every level's liquidity over the bins it overlaps,
// weighted by the overlapped fraction of the level's interval. Each input
// keeps its dex tag so walls can attribute per source. Degenerate point
// levels land whole in their containing bin.
func Rebucket(dists []model.LiquidityDistribution, n int) []Bucket {
	if n <= 0 {
		n = DefaultBuckets
	}

	pMin, pMax := math.Inf(1), math.Inf(-1)
	total := 0
	for i := range dists {
		for _, l := range dists[i].PriceLevels {
			pMin = math.Min(pMin, l.LowerPrice)
			pMax = math.Max(pMax, l.UpperPrice)
			total++
		}
	}
	if total == 0 {
		return nil
	}
	if pMax <= pMin {
		// All evidence at a single price point: one bin holds everything.
		bucket := Bucket{Lower: pMin, Upper: pMax, Sources: make(map[string]SourceLiquidity)}
		for i := range dists {
			for _, l := range dists[i].PriceLevels {
				addSource(bucket.Sources, dists[i].DEX, l.Token0Liquidity, l.Token1Liquidity)
			}
		}
		return []Bucket{bucket}
	}

	width := (pMax - pMin) / float64(n)
	buckets := make([]Bucket, n)
	for i := range buckets {
		buckets[i] = Bucket{
			Lower:   pMin + float64(i)*width,
			Upper:   pMin + float64(i+1)*width,
			Sources: make(map[string]SourceLiquidity),
		}
	}

	clamp := func(i int) int {
		if i < 0 {
			return 0
		}
		if i >= n {
			return n - 1
		}
		return i
	}

	for i := range dists {
		dex := dists[i].DEX
		for _, l := range dists[i].PriceLevels {
			span := l.UpperPrice - l.LowerPrice
			if span <= 0 {
				idx := clamp(int((l.LowerPrice - pMin) / width))
				addSource(buckets[idx].Sources, dex, l.Token0Liquidity, l.Token1Liquidity)
				continue
			}
			first := clamp(int((l.LowerPrice - pMin) / width))
			last := clamp(int((l.UpperPrice - pMin) / width))
			for b := first; b <= last; b++ {
				overlap := math.Min(l.UpperPrice, buckets[b].Upper) - math.Max(l.LowerPrice, buckets[b].Lower)
				if overlap <= 0 {
					continue
				}
				frac := overlap / span
				addSource(buckets[b].Sources, dex, l.Token0Liquidity*frac, l.Token1Liquidity*frac)
			}
		}
	}
	return buckets
}

func addSource(sources map[string]SourceLiquidity, dex string, t0, t1 float64) {
	s := sources[dex]
	s.Token0 += t0
	s.Token1 += t1
	sources[dex] = s
}
