package model

// Token is ERC20 metadata keyed by (address, chain_id).
type Token struct {
	Address  string `json:"address"`
	ChainID  uint64 `json:"chain_id"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
}
