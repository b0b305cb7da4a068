package indexer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"wallscope/internal/config"
	"wallscope/internal/dex"
	"wallscope/internal/model"
	"wallscope/internal/storage"
)

type fakeAdapter struct {
	name     string
	pools    []model.Pool
	failAddr string
	listErr  error
	listCall int
}

func (f *fakeAdapter) Name() string            { return f.name }
func (f *fakeAdapter) ChainID() uint64         { return 1 }
func (f *fakeAdapter) Factory() common.Address { return common.Address{} }

func (f *fakeAdapter) ListPools(_ context.Context, limit int) ([]model.Pool, error) {
	f.listCall++
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit > 0 && len(f.pools) > limit {
		return f.pools[:limit], nil
	}
	return f.pools, nil
}

func (f *fakeAdapter) FetchPool(_ context.Context, address common.Address) (model.Pool, error) {
	for _, p := range f.pools {
		if common.HexToAddress(p.Address) == address {
			return p, nil
		}
	}
	return model.Pool{}, errors.New("no such pool")
}

func (f *fakeAdapter) Distribution(_ context.Context, pool model.Pool) (model.LiquidityDistribution, error) {
	if pool.Address == f.failAddr {
		return model.LiquidityDistribution{}, errors.New("rpc timeout")
	}
	return model.LiquidityDistribution{
		Token0:       pool.Token0,
		Token1:       pool.Token1,
		CurrentPrice: 2.0,
		DEX:          pool.DEX,
		ChainID:      pool.ChainID,
		PriceLevels: []model.PriceLevel{{
			Side: model.SideBuy, LowerPrice: 2, UpperPrice: 2, Token1Liquidity: 1,
		}},
		Timestamp: time.Now().UTC(),
	}, nil
}

func fakePool(addr string) model.Pool {
	return model.Pool{
		Address: addr,
		ChainID: 1,
		DEX:     "uniswap_v2",
		Token0:  model.Token{Address: "0xaaa", ChainID: 1, Decimals: 18},
		Token1:  model.Token{Address: "0xbbb", ChainID: 1, Decimals: 18},
	}
}

func TestCycleSkipsFailingPool(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	adapter := &fakeAdapter{
		name:     "uniswap_v2",
		pools:    []model.Pool{fakePool("0x1"), fakePool("0x2")},
		failAddr: "0x2",
	}
	r := NewRunner(config.IndexerConfig{BatchSize: 10}, []dex.Adapter{adapter}, store, zap.NewNop())

	r.Cycle(ctx)

	// Both pools are recorded even though one snapshot failed.
	for _, addr := range []string{"0x1", "0x2"} {
		pool, err := store.GetPool(ctx, 1, addr)
		if err != nil || pool == nil {
			t.Fatalf("pool %s not stored (err=%v)", addr, err)
		}
	}
	dist, err := store.GetDistribution(ctx, "0xaaa", "0xbbb", "uniswap_v2", 1)
	if err != nil {
		t.Fatalf("get distribution: %v", err)
	}
	if dist == nil {
		t.Fatal("healthy pool's distribution not stored")
	}
}

func TestCycleAbandonsAdapterOnListFailure(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	failing := &fakeAdapter{name: "uniswap_v3", listErr: errors.New("rpc down")}
	healthy := &fakeAdapter{name: "uniswap_v2", pools: []model.Pool{fakePool("0x1")}}
	r := NewRunner(config.IndexerConfig{BatchSize: 10}, []dex.Adapter{failing, healthy}, store, zap.NewNop())

	r.Cycle(ctx)

	// Enumeration is retried, then the adapter is abandoned for the cycle.
	if failing.listCall != maxRetries+1 {
		t.Fatalf("list calls = %d, want %d", failing.listCall, maxRetries+1)
	}
	dist, err := store.GetDistribution(ctx, "0xaaa", "0xbbb", "uniswap_v2", 1)
	if err != nil || dist == nil {
		t.Fatalf("other adapter did not continue (dist=%v err=%v)", dist, err)
	}
}

func TestCycleBoundedParallelism(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	var pools []model.Pool
	for _, addr := range []string{"0x1", "0x2", "0x3", "0x4", "0x5"} {
		pools = append(pools, fakePool(addr))
	}
	adapter := &fakeAdapter{name: "uniswap_v2", pools: pools}
	r := NewRunner(config.IndexerConfig{BatchSize: 10, MaxParallelPools: 3}, []dex.Adapter{adapter}, store, zap.NewNop())

	r.Cycle(ctx)

	listed, err := store.ListPools(ctx, "uniswap_v2", 1, 10, 0)
	if err != nil {
		t.Fatalf("list pools: %v", err)
	}
	if len(listed) != 5 {
		t.Fatalf("stored %d pools, want 5", len(listed))
	}
}

func TestIndexPoolSingle(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	addr := "0x0000000000000000000000000000000000000001"
	adapter := &fakeAdapter{name: "uniswap_v2", pools: []model.Pool{fakePool(addr)}}
	r := NewRunner(config.IndexerConfig{}, []dex.Adapter{adapter}, store, zap.NewNop())

	if err := r.IndexPool(ctx, "uniswap_v2", addr); err != nil {
		t.Fatalf("index pool: %v", err)
	}
	dist, err := store.GetDistribution(ctx, "0xaaa", "0xbbb", "uniswap_v2", 1)
	if err != nil || dist == nil {
		t.Fatalf("distribution not stored (err=%v)", err)
	}

	if err := r.IndexPool(ctx, "nope", addr); err == nil {
		t.Fatal("expected unknown dex error")
	}
	if err := r.IndexPool(ctx, "uniswap_v2", "not-an-address"); err == nil {
		t.Fatal("expected invalid address error")
	}
}
