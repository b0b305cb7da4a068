package dex

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"wallscope/internal/chain"
	"wallscope/internal/errs"
	"wallscope/internal/model"
)

// Fee tier for the classic 0.30% constant-product factories, in 1/1,000,000
// units.
const constantProductFee uint32 = 3000

// ConstantProduct serves v2-family pools: a pair contract with two reserves
// and a single spot price. Both the uniswap_v2 and sushiswap tags run on it.
type ConstantProduct struct {
	name    string
	chainID uint64
	factory common.Address
	client  *chain.Client
	logger  *zap.Logger
	tokens  *tokenCache
}

func NewConstantProduct(name string, chainID uint64, factory common.Address, client *chain.Client, logger *zap.Logger) *ConstantProduct {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConstantProduct{
		name:    name,
		chainID: chainID,
		factory: factory,
		client:  client,
		logger:  logger,
		tokens:  newTokenCache(),
	}
}

func (a *ConstantProduct) Name() string            { return a.name }
func (a *ConstantProduct) ChainID() uint64         { return a.chainID }
func (a *ConstantProduct) Factory() common.Address { return a.factory }

// ListPools walks the factory pair array from the front, up to limit pairs.
func (a *ConstantProduct) ListPools(ctx context.Context, limit int) ([]model.Pool, error) {
	factoryABI, err := V2FactoryABI()
	if err != nil {
		return nil, errs.Wrap(errs.Dex, "parse factory abi", err)
	}

	values, err := callMethod(ctx, a.client, a.factory, factoryABI, "allPairsLength")
	if err != nil {
		return nil, errs.Wrap(errs.Dex, "allPairsLength", err)
	}
	length, err := asBigInt(values[0])
	if err != nil {
		return nil, errs.Wrap(errs.Dex, "allPairsLength", err)
	}

	total := int(length.Int64())
	if limit > 0 && total > limit {
		total = limit
	}

	pools := make([]model.Pool, 0, total)
	for i := 0; i < total; i++ {
		values, err := callMethod(ctx, a.client, a.factory, factoryABI, "allPairs", big.NewInt(int64(i)))
		if err != nil {
			return nil, errs.Wrap(errs.Dex, "allPairs", err)
		}
		pairAddr, err := asAddress(values[0])
		if err != nil {
			return nil, errs.Wrap(errs.Dex, "allPairs", err)
		}
		pool, err := a.FetchPool(ctx, pairAddr)
		if err != nil {
			a.logger.Warn("skipping pair",
				zap.String("dex", a.name),
				zap.String("pair", pairAddr.Hex()),
				zap.Error(err))
			continue
		}
		pools = append(pools, pool)
	}
	return pools, nil
}

// FetchPool loads the pair's token addresses and both tokens' metadata.
func (a *ConstantProduct) FetchPool(ctx context.Context, address common.Address) (model.Pool, error) {
	pairABI, err := V2PairABI()
	if err != nil {
		return model.Pool{}, errs.Wrap(errs.Dex, "parse pair abi", err)
	}

	values, err := callMethod(ctx, a.client, address, pairABI, "token0")
	if err != nil {
		return model.Pool{}, errs.Wrap(errs.Dex, "token0", err)
	}
	addr0, err := asAddress(values[0])
	if err != nil {
		return model.Pool{}, errs.Wrap(errs.Dex, "token0", err)
	}

	values, err = callMethod(ctx, a.client, address, pairABI, "token1")
	if err != nil {
		return model.Pool{}, errs.Wrap(errs.Dex, "token1", err)
	}
	addr1, err := asAddress(values[0])
	if err != nil {
		return model.Pool{}, errs.Wrap(errs.Dex, "token1", err)
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
		Fee:              constantProductFee,
		CreatedAt:        now,
		LastUpdatedBlock: head,
		LastUpdatedAt:    now,
	}, nil
}

// Distribution reads the reserves and emits the single-point distribution.
func (a *ConstantProduct) Distribution(ctx context.Context, pool model.Pool) (model.LiquidityDistribution, error) {
	pairABI, err := V2PairABI()
	if err != nil {
		return model.LiquidityDistribution{}, errs.Wrap(errs.Dex, "parse pair abi", err)
	}

	values, err := callMethod(ctx, a.client, common.HexToAddress(pool.Address), pairABI, "getReserves")
	if err != nil {
		return model.LiquidityDistribution{}, errs.Wrap(errs.Dex, "getReserves", err)
	}
	if len(values) < 2 {
		return model.LiquidityDistribution{}, errs.New(errs.Dex, "getReserves returned short tuple")
	}
	r0, err := asBigInt(values[0])
	if err != nil {
		return model.LiquidityDistribution{}, errs.Wrap(errs.Dex, "reserve0", err)
	}
	r1, err := asBigInt(values[1])
	if err != nil {
		return model.LiquidityDistribution{}, errs.Wrap(errs.Dex, "reserve1", err)
	}

	return reservesDistribution(pool, r0, r1, time.Now().UTC()), nil
}

// reservesDistribution converts raw reserves into the normalized single-level
// distribution. Zero reserve0 means the spot price is undefined: zero price,
// no levels.
func reservesDistribution(pool model.Pool, r0, r1 *big.Int, now time.Time) model.LiquidityDistribution {
	dist := model.LiquidityDistribution{
		Token0:    pool.Token0,
		Token1:    pool.Token1,
		DEX:       pool.DEX,
		ChainID:   pool.ChainID,
		Timestamp: now,
	}

	reserve0 := humanAmount(r0, pool.Token0.Decimals)
	reserve1 := humanAmount(r1, pool.Token1.Decimals)
	if reserve0 <= 0 {
		return dist
	}

	price := reserve1 / reserve0
	dist.CurrentPrice = price
	dist.PriceLevels = []model.PriceLevel{{
		Side:            model.SideBuy,
		LowerPrice:      price,
		UpperPrice:      price,
		Token0Liquidity: reserve0,
		Token1Liquidity: reserve1,
		Timestamp:       now,
	}}
	dist.Sanitize()
	return dist
}

// PriceImpact estimates the relative spot-price move, in percent, of swapping
// amountIn of tokenIn against the pool's current reserves.
func (a *ConstantProduct) PriceImpact(ctx context.Context, pool model.Pool, tokenIn string, amountIn float64) (float64, error) {
	pairABI, err := V2PairABI()
	if err != nil {
		return 0, errs.Wrap(errs.Dex, "parse pair abi", err)
	}
	values, err := callMethod(ctx, a.client, common.HexToAddress(pool.Address), pairABI, "getReserves")
	if err != nil {
		return 0, errs.Wrap(errs.Dex, "getReserves", err)
	}
	r0, err := asBigInt(values[0])
	if err != nil {
		return 0, errs.Wrap(errs.Dex, "reserve0", err)
	}
	r1, err := asBigInt(values[1])
	if err != nil {
		return 0, errs.Wrap(errs.Dex, "reserve1", err)
	}

	reserveIn := humanAmount(r0, pool.Token0.Decimals)
	reserveOut := humanAmount(r1, pool.Token1.Decimals)
	if !strings.EqualFold(tokenIn, pool.Token0.Address) {
		reserveIn, reserveOut = reserveOut, reserveIn
	}
	if reserveIn <= 0 || reserveOut <= 0 {
		return 0, errs.New(errs.Dex, "pool has no reserves")
	}
	return priceImpact(reserveIn, reserveOut, amountIn), nil
}

// priceImpact is the constant-product x*y=k spot move, in percent.
func priceImpact(reserveIn, reserveOut, amountIn float64) float64 {
	priceBefore := reserveOut / reserveIn
	amountOut := (reserveOut * amountIn) / (reserveIn + amountIn)
	priceAfter := (reserveOut - amountOut) / (reserveIn + amountIn)
	return (priceBefore - priceAfter) / priceBefore * 100
}

func (a *ConstantProduct) token(ctx context.Context, address common.Address) (model.Token, error) {
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

func humanAmount(raw *big.Int, decimals uint8) float64 {
	return decimal.NewFromBigInt(raw, -int32(decimals)).InexactFloat64()
}
