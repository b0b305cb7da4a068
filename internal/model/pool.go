package model

import (
	"strings"
	"time"
)

// Pool is a liquidity pool record. Token0 and Token1 are ordered so that
// token0.address < token1.address lexicographically; every downstream
// consumer relies on that ordering. CreatedBlock is zero when the pool was
// discovered without its creation event (the pair factories enumerate by
// index).
type Pool struct {
	Address          string    `json:"address"`
	ChainID          uint64    `json:"chain_id"`
	DEX              string    `json:"dex"`
	Token0           Token     `json:"token0"`
	Token1           Token     `json:"token1"`
	Fee              uint32    `json:"fee"`
	CreatedBlock     uint64    `json:"created_block"`
	CreatedAt        time.Time `json:"created_at"`
	LastUpdatedBlock uint64    `json:"last_updated_block"`
	LastUpdatedAt    time.Time `json:"last_updated_at"`
}

// OrderTokens returns the two tokens in canonical pool order.
func OrderTokens(a, b Token) (Token, Token) {
	if strings.ToLower(a.Address) < strings.ToLower(b.Address) {
		return a, b
	}
	return b, a
}
