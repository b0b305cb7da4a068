package model

import (
	"math"
	"sort"
	"time"
)

// Side tags a price level as sitting below (buy) or above (sell) the
// pool's current price.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Flip returns the opposite side.
func (s Side) Flip() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// PriceLevel is a half-open price interval [LowerPrice, UpperPrice) holding
// liquidity in human-scaled token units. For a constant-product pool the
// interval degenerates to a point.
type PriceLevel struct {
	Side            Side      `json:"side"`
	LowerPrice      float64   `json:"lower_price"`
	UpperPrice      float64   `json:"upper_price"`
	Token0Liquidity float64   `json:"token0_liquidity"`
	Token1Liquidity float64   `json:"token1_liquidity"`
	Timestamp       time.Time `json:"timestamp"`
}

// Valid reports whether the level's prices are finite, positive and ordered.
func (l PriceLevel) Valid() bool {
	for _, v := range []float64{l.LowerPrice, l.UpperPrice, l.Token0Liquidity, l.Token1Liquidity} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return l.UpperPrice > 0 && l.LowerPrice <= l.UpperPrice &&
		l.Token0Liquidity >= 0 && l.Token1Liquidity >= 0
}

// LiquidityDistribution is the normalized view of one pool snapshot:
// current price quoted as token1 per token0 and a list of price levels
// sorted by lower price, each lying entirely on one side of the current
// price.
type LiquidityDistribution struct {
	Token0       Token        `json:"token0"`
	Token1       Token        `json:"token1"`
	CurrentPrice float64      `json:"current_price"`
	DEX          string       `json:"dex"`
	ChainID      uint64       `json:"chain_id"`
	PriceLevels  []PriceLevel `json:"price_levels"`
	Timestamp    time.Time    `json:"timestamp"`
}

// TotalLiquidity sums both liquidity magnitudes over all levels.
func (d *LiquidityDistribution) TotalLiquidity() float64 {
	var total float64
	for _, l := range d.PriceLevels {
		total += l.Token0Liquidity + l.Token1Liquidity
	}
	return total
}

// SortLevels orders the level list by lower price ascending.
func (d *LiquidityDistribution) SortLevels() {
	sort.Slice(d.PriceLevels, func(i, j int) bool {
		return d.PriceLevels[i].LowerPrice < d.PriceLevels[j].LowerPrice
	})
}

// Sanitize drops invalid levels (non-finite, non-positive upper, inverted
// bounds, negative liquidity) and sorts the remainder. It returns the number
// of levels dropped so callers can log.
func (d *LiquidityDistribution) Sanitize() int {
	kept := d.PriceLevels[:0]
	dropped := 0
	for _, l := range d.PriceLevels {
		if !l.Valid() {
			dropped++
			continue
		}
		kept = append(kept, l)
	}
	d.PriceLevels = kept
	d.SortLevels()
	return dropped
}
