package liquidity

import "wallscope/internal/model"

// Mainnet routing quote tokens. The aggregator walks pair distributions of
// the base token against each of these and requotes everything into USDC.
const (
	USDCAddress = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	WETHAddress = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	DAIAddress  = "0x6b175474e89094c44da98b954eedeac495271d0f"
	USDTAddress = "0xdac17f958d2ee523a2206206994597c13d831ec7"
	WBTCAddress = "0x2260fac5e5542a773aa44fbcfedf7c193bc2c599"
)

// RoutingQuotes lists the quote tokens in walk order, USDC first.
var RoutingQuotes = []string{USDCAddress, WETHAddress, USDTAddress, DAIAddress, WBTCAddress}

// stableQuotes may assume a 1.0 USDC reference price when no reference
// distribution is stored. Volatile quotes without a reference are dropped.
var stableQuotes = map[string]bool{
	USDTAddress: true,
	DAIAddress:  true,
}

func usdcToken(chainID uint64) model.Token {
	return model.Token{
		Address:  USDCAddress,
		ChainID:  chainID,
		Symbol:   "USDC",
		Name:     "USD Coin",
		Decimals: 6,
	}
}
