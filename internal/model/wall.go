package model

import "time"

// LiquidityWall is a price interval with aggregated liquidity denominated
// in the quote token, attributed per source DEX. Sell-side walls are quoted
// in the quote token at the wall's own price band, same as the buy side.
type LiquidityWall struct {
	PriceLower     float64            `json:"price_lower"`
	PriceUpper     float64            `json:"price_upper"`
	LiquidityValue float64            `json:"liquidity_value"`
	DexSources     map[string]float64 `json:"dex_sources"`
}

// WallsResponse is the query-time view of aggregated buy and sell walls
// around the current price.
type WallsResponse struct {
	Token0    Token           `json:"token0"`
	Token1    Token           `json:"token1"`
	Price     float64         `json:"price"`
	BuyWalls  []LiquidityWall `json:"buy_walls"`
	SellWalls []LiquidityWall `json:"sell_walls"`
	Timestamp time.Time       `json:"timestamp"`
}
