package dex

import (
	"context"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"wallscope/internal/chain"
	"wallscope/internal/errs"
	"wallscope/internal/model"
)

// Canonical TickLens lens contract, same address on mainnet and the major L2s.
const tickLensAddressHex = "0xbfd8137f7d1516D3ea5cA83523914859ec47F573"

// How many 256-tick bitmap words to read on each side of the current word.
// Wider means more of the tail of the liquidity profile at more RPC calls.
const tickWordRadius = 4

// How far back ListPools scans factory PoolCreated events, and the chunk size
// for each log query.
const (
	poolScanLookback  = 100_000
	poolScanChunkSize = 10_000
)

// PopulatedTick is one initialized tick of a concentrated-liquidity pool.
type PopulatedTick struct {
	Tick         int32
	LiquidityNet *big.Int
}

// Concentrated serves v3-family pools: tick-range liquidity reconstructed
// from the pool's bitmap via the TickLens contract.
type Concentrated struct {
	name     string
	chainID  uint64
	factory  common.Address
	tickLens common.Address
	client   *chain.Client
	logger   *zap.Logger
	tokens   *tokenCache
}

func NewConcentrated(name string, chainID uint64, factory common.Address, client *chain.Client, logger *zap.Logger) *Concentrated {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Concentrated{
		name:     name,
		chainID:  chainID,
		factory:  factory,
		tickLens: common.HexToAddress(tickLensAddressHex),
		client:   client,
		logger:   logger,
		tokens:   newTokenCache(),
	}
}

func (a *Concentrated) Name() string            { return a.name }
func (a *Concentrated) ChainID() uint64         { return a.chainID }
func (a *Concentrated) Factory() common.Address { return a.factory }

// ListPools scans recent PoolCreated events on the factory. The factory has
// no enumeration method, so discovery is bounded to a recent block window.
func (a *Concentrated) ListPools(ctx context.Context, limit int) ([]model.Pool, error) {
	factoryABI, err := V3FactoryABI()
	if err != nil {
		return nil, errs.Wrap(errs.Dex, "parse factory abi", err)
	}
	createdTopic := factoryABI.Events["PoolCreated"].ID

	head, err := a.client.LatestBlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	from := uint64(0)
	if head > poolScanLookback {
		from = head - poolScanLookback
	}

	var pools []model.Pool
	for start := from; start <= head; start += poolScanChunkSize {
		end := start + poolScanChunkSize - 1
		if end > head {
			end = head
		}
		logs, err := a.client.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(start),
			ToBlock:   new(big.Int).SetUint64(end),
			Addresses: []common.Address{a.factory},
			Topics:    [][]common.Hash{{createdTopic}},
		})
		if err != nil {
			return nil, err
		}
		for _, lg := range logs {
			if len(lg.Data) < 64 {
				continue
			}
			poolAddr := common.BytesToAddress(lg.Data[44:64])
			pool, err := a.FetchPool(ctx, poolAddr)
			if err != nil {
				a.logger.Warn("skipping pool",
					zap.String("dex", a.name),
					zap.String("pool", poolAddr.Hex()),
					zap.Error(err))
				continue
			}
			pool.CreatedBlock = lg.BlockNumber
			if ts, err := a.client.BlockTimestamp(ctx, lg.BlockNumber); err != nil {
				a.logger.Warn("block timestamp lookup failed",
					zap.Uint64("block", lg.BlockNumber), zap.Error(err))
			} else {
				pool.CreatedAt = time.Unix(int64(ts), 0).UTC()
			}
			pools = append(pools, pool)
			if limit > 0 && len(pools) >= limit {
				return pools, nil
			}
		}
	}
	return pools, nil
}

// FetchPool loads the pool's token pair and fee tier.
func (a *Concentrated) FetchPool(ctx context.Context, address common.Address) (model.Pool, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return model.Pool{}, errs.Wrap(errs.Dex, "parse pool abi", err)
	}

	values, err := callMethod(ctx, a.client, address, poolABI, "token0")
	if err != nil {
		return model.Pool{}, errs.Wrap(errs.Dex, "token0", err)
	}
	addr0, err := asAddress(values[0])
	if err != nil {
		return model.Pool{}, errs.Wrap(errs.Dex, "token0", err)
	}

	values, err = callMethod(ctx, a.client, address, poolABI, "token1")
	if err != nil {
		return model.Pool{}, errs.Wrap(errs.Dex, "token1", err)
	}
	addr1, err := asAddress(values[0])
	if err != nil {
		return model.Pool{}, errs.Wrap(errs.Dex, "token1", err)
	}

	values, err = callMethod(ctx, a.client, address, poolABI, "fee")
	if err != nil {
		return model.Pool{}, errs.Wrap(errs.Dex, "fee", err)
	}
	feeInt, err := asBigInt(values[0])
	if err != nil {
		return model.Pool{}, errs.Wrap(errs.Dex, "fee", err)
	}

	token0, err := a.token(ctx, addr0)
	if err != nil {
		return model.Pool{}, err
	}
	token1, err := a.token(ctx, addr1)
	if err != nil {
		return model.Pool{}, err
	}
	token0, token1 = model.OrderTokens(token0, token1)

	head, err := a.client.LatestBlockNumber(ctx)
	if err != nil {
		a.logger.Debug("latest block lookup failed", zap.Error(err))
	}

	now := time.Now().UTC()
	return model.Pool{
		Address:          strings.ToLower(address.Hex()),
		ChainID:          a.chainID,
		DEX:              a.name,
		Token0:           token0,
		Token1:           token1,
		Fee:              uint32(feeInt.Uint64()),
		CreatedAt:        now,
		LastUpdatedBlock: head,
		LastUpdatedAt:    now,
	}, nil
}

// Distribution snapshots slot0 plus the populated ticks around the current
// price and rebuilds the piecewise-constant liquidity profile. Any failed
// tick word read rejects the whole snapshot.
func (a *Concentrated) Distribution(ctx context.Context, pool model.Pool) (model.LiquidityDistribution, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return model.LiquidityDistribution{}, errs.Wrap(errs.Dex, "parse pool abi", err)
	}
	poolAddr := common.HexToAddress(pool.Address)

	values, err := callMethod(ctx, a.client, poolAddr, poolABI, "slot0")
	if err != nil {
		return model.LiquidityDistribution{}, errs.Wrap(errs.Dex, "slot0", err)
	}
	if len(values) < 2 {
		return model.LiquidityDistribution{}, errs.New(errs.Dex, "slot0 returned short tuple")
	}
	sqrtPriceX96, err := asBigInt(values[0])
	if err != nil {
		return model.LiquidityDistribution{}, errs.Wrap(errs.Dex, "sqrtPriceX96", err)
	}
	tickInt, err := asBigInt(values[1])
	if err != nil {
		return model.LiquidityDistribution{}, errs.Wrap(errs.Dex, "tick", err)
	}
	currentTick, err := int24FromBig(tickInt)
	if err != nil {
		return model.LiquidityDistribution{}, errs.Wrap(errs.Dex, "tick", err)
	}

	values, err = callMethod(ctx, a.client, poolAddr, poolABI, "tickSpacing")
	if err != nil {
		return model.LiquidityDistribution{}, errs.Wrap(errs.Dex, "tickSpacing", err)
	}
	spacingInt, err := asBigInt(values[0])
	if err != nil {
		return model.LiquidityDistribution{}, errs.Wrap(errs.Dex, "tickSpacing", err)
	}
	spacing, err := int24FromBig(spacingInt)
	if err != nil || spacing <= 0 {
		return model.LiquidityDistribution{}, errs.Newf(errs.Dex, "bad tick spacing %s", spacingInt)
	}

	values, err = callMethod(ctx, a.client, poolAddr, poolABI, "liquidity")
	if err != nil {
		return model.LiquidityDistribution{}, errs.Wrap(errs.Dex, "liquidity", err)
	}
	activeLiquidity, err := asBigInt(values[0])
	if err != nil {
		return model.LiquidityDistribution{}, errs.Wrap(errs.Dex, "liquidity", err)
	}

	ticks, err := a.populatedTicks(ctx, poolAddr, currentTick, spacing)
	if err != nil {
		return model.LiquidityDistribution{}, err
	}

	return profileDistribution(pool, ticks, sqrtPriceX96, activeLiquidity, time.Now().UTC())
}

// populatedTicks reads the bitmap words around the current tick via TickLens.
// A failed word read fails the snapshot; a later cycle retries from scratch.
func (a *Concentrated) populatedTicks(ctx context.Context, pool common.Address, currentTick, spacing int32) ([]PopulatedTick, error) {
	lensABI, err := TickLensABI()
	if err != nil {
		return nil, errs.Wrap(errs.Dex, "parse ticklens abi", err)
	}

	word := floorDiv(floorDiv(currentTick, spacing), 256)
	var ticks []PopulatedTick
	for w := word - tickWordRadius; w <= word+tickWordRadius; w++ {
		values, err := callMethod(ctx, a.client, a.tickLens, lensABI, "getPopulatedTicksInWord", pool, int16(w))
		if err != nil {
			return nil, errs.Wrap(errs.Dex, "getPopulatedTicksInWord", err)
		}
		raw := *abi.ConvertType(values[0], new([]struct {
			Tick           *big.Int
			LiquidityNet   *big.Int
			LiquidityGross *big.Int
		})).(*[]struct {
			Tick           *big.Int
			LiquidityNet   *big.Int
			LiquidityGross *big.Int
		})
		for _, t := range raw {
			tick, err := int24FromBig(t.Tick)
			if err != nil {
				return nil, errs.Wrap(errs.Dex, "populated tick", err)
			}
			ticks = append(ticks, PopulatedTick{
				Tick:         tick,
				LiquidityNet: new(big.Int).Set(t.LiquidityNet),
			})
		}
	}

	sort.Slice(ticks, func(i, j int) bool { return ticks[i].Tick < ticks[j].Tick })
	return ticks, nil
}

// profileDistribution converts a sorted populated-tick set into price levels.
// Active liquidity between adjacent ticks is the cumulative liquidityNet sum
// from the lowest fetched tick. The fetch window misses ticks below it, so
// when activeLiquidity (the pool's reported in-range liquidity) is known the
// whole profile is shifted so the range holding the current price matches it.
// That range is split at the current price.
func profileDistribution(pool model.Pool, ticks []PopulatedTick, sqrtPriceX96, activeLiquidity *big.Int, now time.Time) (model.LiquidityDistribution, error) {
	d0, d1 := pool.Token0.Decimals, pool.Token1.Decimals
	currentPrice := PriceFromSqrtX96(sqrtPriceX96, d0, d1)

	dist := model.LiquidityDistribution{
		Token0:       pool.Token0,
		Token1:       pool.Token1,
		CurrentPrice: currentPrice,
		DEX:          pool.DEX,
		ChainID:      pool.ChainID,
		Timestamp:    now,
	}
	if len(ticks) < 2 {
		return dist, nil
	}

	sqrts := make([]*big.Int, len(ticks))
	for i, tk := range ticks {
		s, err := SqrtRatioAtTick(tk.Tick)
		if err != nil {
			return model.LiquidityDistribution{}, err
		}
		sqrts[i] = s
	}

	cumulative := make([]*big.Int, len(ticks)-1)
	running := new(big.Int)
	for i := 0; i < len(ticks)-1; i++ {
		running.Add(running, ticks[i].LiquidityNet)
		cumulative[i] = new(big.Int).Set(running)
	}

	offset := new(big.Int)
	if activeLiquidity != nil {
		for i := range cumulative {
			if sqrts[i].Cmp(sqrtPriceX96) < 0 && sqrtPriceX96.Cmp(sqrts[i+1]) < 0 {
				offset.Sub(activeLiquidity, cumulative[i])
				break
			}
		}
	}

	for i := 0; i < len(ticks)-1; i++ {
		liquidity := new(big.Int).Add(cumulative[i], offset)
		if liquidity.Sign() <= 0 {
			continue
		}

		lowerTick, upperTick := ticks[i].Tick, ticks[i+1].Tick
		sqrtLower, sqrtUpper := sqrts[i], sqrts[i+1]

		switch {
		case sqrtUpper.Cmp(sqrtPriceX96) <= 0:
			// Entirely below price: only token1.
			dist.PriceLevels = append(dist.PriceLevels, model.PriceLevel{
				Side:            model.SideBuy,
				LowerPrice:      PriceAtTick(lowerTick, d0, d1),
				UpperPrice:      PriceAtTick(upperTick, d0, d1),
				Token1Liquidity: humanAmount(Amount1Delta(liquidity, sqrtLower, sqrtUpper), d1),
				Timestamp:       now,
			})
		case sqrtLower.Cmp(sqrtPriceX96) >= 0:
			// Entirely above price: only token0.
			dist.PriceLevels = append(dist.PriceLevels, model.PriceLevel{
				Side:            model.SideSell,
				LowerPrice:      PriceAtTick(lowerTick, d0, d1),
				UpperPrice:      PriceAtTick(upperTick, d0, d1),
				Token0Liquidity: humanAmount(Amount0Delta(liquidity, sqrtLower, sqrtUpper), d0),
				Timestamp:       now,
			})
		default:
			// Straddles the current price: split into a token1 half below
			// and a token0 half above.
			dist.PriceLevels = append(dist.PriceLevels,
				model.PriceLevel{
					Side:            model.SideBuy,
					LowerPrice:      PriceAtTick(lowerTick, d0, d1),
					UpperPrice:      currentPrice,
					Token1Liquidity: humanAmount(Amount1Delta(liquidity, sqrtLower, sqrtPriceX96), d1),
					Timestamp:       now,
				},
				model.PriceLevel{
					Side:            model.SideSell,
					LowerPrice:      currentPrice,
					UpperPrice:      PriceAtTick(upperTick, d0, d1),
					Token0Liquidity: humanAmount(Amount0Delta(liquidity, sqrtPriceX96, sqrtUpper), d0),
					Timestamp:       now,
				})
		}
	}

	dist.SortLevels()
	dist.Sanitize()
	return dist, nil
}

func (a *Concentrated) token(ctx context.Context, address common.Address) (model.Token, error) {
	if tok, ok := a.tokens.get(address); ok {
		return tok, nil
	}
	tok, err := FetchToken(ctx, a.client, address, a.chainID, a.logger)
	if err != nil {
		a.logger.Warn("token metadata fetch failed, using fallbacks",
			zap.String("token", address.Hex()), zap.Error(err))
	}
	a.tokens.set(address, tok)
	return tok, nil
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
