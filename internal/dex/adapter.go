package dex

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"wallscope/internal/chain"
	"wallscope/internal/config"
	"wallscope/internal/errs"
	"wallscope/internal/model"
)

// Adapter is the per-DEX capability set. One adapter serves one DEX family on
// one chain; dispatch is by DEX tag at construction time.
type Adapter interface {
	Name() string
	ChainID() uint64
	Factory() common.Address

	// ListPools enumerates pools on the factory, up to limit.
	ListPools(ctx context.Context, limit int) ([]model.Pool, error)

	// FetchPool loads one pool's metadata, including both token records.
	FetchPool(ctx context.Context, address common.Address) (model.Pool, error)

	// Distribution snapshots the pool and produces the normalized
	// price-bucketed liquidity distribution.
	Distribution(ctx context.Context, pool model.Pool) (model.LiquidityDistribution, error)
}

// Known reports whether the DEX tag has an adapter.
func Known(name string) bool {
	switch name {
	case "uniswap_v2", "sushiswap", "uniswap_v3":
		return true
	}
	return false
}

// New builds the adapter for a configured DEX. The sushiswap tag runs on the
// constant-product adapter with its own factory.
func New(cfg config.DexConfig, client *chain.Client, logger *zap.Logger) (Adapter, error) {
	if !common.IsHexAddress(cfg.FactoryAddress) {
		return nil, errs.Newf(errs.Config, "dex %s: bad factory address %q", cfg.Name, cfg.FactoryAddress)
	}
	factory := common.HexToAddress(cfg.FactoryAddress)

	switch cfg.Name {
	case "uniswap_v2", "sushiswap":
		return NewConstantProduct(cfg.Name, cfg.ChainID, factory, client, logger), nil
	case "uniswap_v3":
		return NewConcentrated(cfg.Name, cfg.ChainID, factory, client, logger), nil
	default:
		return nil, errs.Newf(errs.UnknownDEX, "unknown dex %q", cfg.Name)
	}
}
