package storage

import (
	"context"

	"wallscope/internal/model"
)

// Store is the durable keyed store of tokens, pools and the latest liquidity
// distribution per (token0, token1, dex, chain_id). Lookups return nil when
// the key is absent. Distribution lookups are exact-key: the store never
// swaps the token order for the caller.
type Store interface {
	UpsertToken(ctx context.Context, token model.Token) error
	GetToken(ctx context.Context, chainID uint64, address string) (*model.Token, error)

	// UpsertPool writes the pool and both of its token rows in a single
	// transaction.
	UpsertPool(ctx context.Context, pool model.Pool) error
	GetPool(ctx context.Context, chainID uint64, address string) (*model.Pool, error)
	ListPools(ctx context.Context, dex string, chainID uint64, limit, offset int) ([]model.Pool, error)

	// PoolsByToken finds pools holding the token on either side of the pair.
	PoolsByToken(ctx context.Context, chainID uint64, address string) ([]model.Pool, error)

	// UpsertDistribution replaces the latest distribution for its four-tuple
	// key, writing the token rows in the same transaction.
	UpsertDistribution(ctx context.Context, dist model.LiquidityDistribution) error
	GetDistribution(ctx context.Context, token0, token1, dex string, chainID uint64) (*model.LiquidityDistribution, error)

	// ListDistributions returns the latest distribution of every DEX for the
	// exact pair order.
	ListDistributions(ctx context.Context, token0, token1 string, chainID uint64) ([]model.LiquidityDistribution, error)

	Close()
}
