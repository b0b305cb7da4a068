package liquidity

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"wallscope/internal/config"
	"wallscope/internal/errs"
	"wallscope/internal/model"
	"wallscope/internal/storage"
)

// Aggregator answers walls queries: given a base token it walks the stored
// pair distributions against every routing quote, requotes them into USDC,
// merges the evidence and extracts walls. It only reads the store; the
// indexer writes.
type Aggregator struct {
	store     storage.Store
	logger    *zap.Logger
	buckets   int
	synthesis bool
}

func NewAggregator(store storage.Store, cfg config.AggregatorConfig, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	buckets := cfg.Buckets
	if buckets <= 0 {
		buckets = DefaultBuckets
	}
	return &Aggregator{
		store:     store,
		logger:    logger,
		buckets:   buckets,
		synthesis: cfg.Synthesis,
	}
}

// Walls computes the aggregated (base, USDC) walls view on one chain,
// optionally restricted to a single DEX. Absent routing legs are dropped
// silently; no evidence at all is a not-found error.
func (a *Aggregator) Walls(ctx context.Context, base string, chainID uint64, dexFilter string) (*model.WallsResponse, error) {
	base = strings.ToLower(base)

	var evidence []model.LiquidityDistribution
	for _, quote := range RoutingQuotes {
		if quote == base {
			continue
		}
		dists, err := a.pairDistributions(ctx, base, quote, chainID, dexFilter)
		if err != nil {
			return nil, err
		}
		if len(dists) == 0 {
			continue
		}
		if quote == USDCAddress {
			evidence = append(evidence, dists...)
			continue
		}

		k, direct, ok, err := a.referencePrice(ctx, quote, chainID)
		if err != nil {
			return nil, err
		}
		if !ok {
			a.logger.Debug("no reference price, dropping routing leg",
				zap.String("quote", quote), zap.Uint64("chain_id", chainID))
			continue
		}
		for _, d := range dists {
			if a.synthesis && direct != nil {
				evidence = append(evidence, Synthesize(d, *direct))
			} else {
				evidence = append(evidence, Rebase(d, usdcToken(chainID), k))
			}
		}
	}
	if len(evidence) == 0 {
		return nil, errs.New(errs.NotFound, "USDC pair distribution not found")
	}

	merged := Merge(evidence...)
	buckets := Rebucket(evidence, a.buckets)
	buy, sell := ExtractWalls(buckets, merged.CurrentPrice)

	return &model.WallsResponse{
		Token0:    a.tokenOrStub(ctx, chainID, base),
		Token1:    usdcToken(chainID),
		Price:     merged.CurrentPrice,
		BuyWalls:  buy,
		SellWalls: sell,
		Timestamp: time.Now().UTC(),
	}, nil
}

// pairDistributions fetches the stored distributions for (base, quote),
// falling back to the transposed (quote, base) key. The store is exact-key,
// so the order swap happens here.
func (a *Aggregator) pairDistributions(ctx context.Context, base, quote string, chainID uint64, dexFilter string) ([]model.LiquidityDistribution, error) {
	if dexFilter != "" {
		dist, err := a.store.GetDistribution(ctx, base, quote, dexFilter, chainID)
		if err != nil {
			return nil, err
		}
		if dist != nil {
			return []model.LiquidityDistribution{*dist}, nil
		}
		dist, err = a.store.GetDistribution(ctx, quote, base, dexFilter, chainID)
		if err != nil {
			return nil, err
		}
		if dist == nil {
			return nil, nil
		}
		return []model.LiquidityDistribution{Transpose(*dist)}, nil
	}

	dists, err := a.store.ListDistributions(ctx, base, quote, chainID)
	if err != nil {
		return nil, err
	}
	if len(dists) > 0 {
		return dists, nil
	}
	swapped, err := a.store.ListDistributions(ctx, quote, base, chainID)
	if err != nil {
		return nil, err
	}
	out := make([]model.LiquidityDistribution, 0, len(swapped))
	for _, d := range swapped {
		out = append(out, Transpose(d))
	}
	return out, nil
}

// referencePrice resolves price(quote, USDC) from any stored (quote, USDC)
// distribution, in either key order. Stable quotes fall back to 1.0 when no
// reference exists; volatile quotes report no price. The direct distribution
// is returned too, for synthesis.
func (a *Aggregator) referencePrice(ctx context.Context, quote string, chainID uint64) (float64, *model.LiquidityDistribution, bool, error) {
	dists, err := a.pairDistributions(ctx, quote, USDCAddress, chainID, "")
	if err != nil {
		return 0, nil, false, err
	}
	for i := range dists {
		if isFinitePositive(dists[i].CurrentPrice) {
			return dists[i].CurrentPrice, &dists[i], true, nil
		}
	}
	if stableQuotes[quote] {
		return 1.0, nil, true, nil
	}
	return 0, nil, false, nil
}

func (a *Aggregator) tokenOrStub(ctx context.Context, chainID uint64, address string) model.Token {
	token, err := a.store.GetToken(ctx, chainID, address)
	if err != nil {
		a.logger.Warn("token lookup failed", zap.String("token", address), zap.Error(err))
	}
	if token != nil {
		return *token
	}
	return model.Token{Address: address, ChainID: chainID, Decimals: 18}
}
