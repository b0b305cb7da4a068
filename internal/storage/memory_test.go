package storage

import (
	"context"
	"testing"
	"time"

	"wallscope/internal/model"
)

func testPool(addr, dex string, t0, t1 model.Token) model.Pool {
	return model.Pool{
		Address: addr,
		ChainID: 1,
		DEX:     dex,
		Token0:  t0,
		Token1:  t1,
		Fee:     3000,
	}
}

func TestMemoryTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	token := model.Token{Address: "0xAAA", ChainID: 1, Symbol: "AAA", Decimals: 18}
	if err := store.UpsertToken(ctx, token); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Lookup is case-insensitive on the address.
	got, err := store.GetToken(ctx, 1, "0xaaa")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Symbol != "AAA" {
		t.Fatalf("got %+v, want the stored token", got)
	}

	missing, err := store.GetToken(ctx, 1, "0xbbb")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing token, got %+v", missing)
	}
}

func TestMemoryPoolWritesTokens(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	t0 := model.Token{Address: "0xaaa", ChainID: 1, Symbol: "AAA", Decimals: 18}
	t1 := model.Token{Address: "0xbbb", ChainID: 1, Symbol: "BBB", Decimals: 6}
	if err := store.UpsertPool(ctx, testPool("0x111", "uniswap_v2", t0, t1)); err != nil {
		t.Fatalf("upsert pool: %v", err)
	}

	for _, addr := range []string{"0xaaa", "0xbbb"} {
		tok, err := store.GetToken(ctx, 1, addr)
		if err != nil {
			t.Fatalf("get token %s: %v", addr, err)
		}
		if tok == nil {
			t.Fatalf("pool upsert did not write token %s", addr)
		}
	}

	pool, err := store.GetPool(ctx, 1, "0x111")
	if err != nil {
		t.Fatalf("get pool: %v", err)
	}
	if pool == nil || pool.DEX != "uniswap_v2" {
		t.Fatalf("got %+v, want the stored pool", pool)
	}
}

func TestMemoryListPoolsPagination(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	t0 := model.Token{Address: "0xaaa", ChainID: 1, Decimals: 18}
	t1 := model.Token{Address: "0xbbb", ChainID: 1, Decimals: 18}
	addrs := []string{"0x1", "0x2", "0x3", "0x4"}
	for _, addr := range addrs {
		if err := store.UpsertPool(ctx, testPool(addr, "uniswap_v2", t0, t1)); err != nil {
			t.Fatalf("upsert %s: %v", addr, err)
		}
	}
	if err := store.UpsertPool(ctx, testPool("0x5", "sushiswap", t0, t1)); err != nil {
		t.Fatalf("upsert 0x5: %v", err)
	}

	page, err := store.ListPools(ctx, "uniswap_v2", 1, 2, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || page[0].Address != "0x2" || page[1].Address != "0x3" {
		t.Fatalf("page = %+v, want pools 0x2 and 0x3", page)
	}

	empty, err := store.ListPools(ctx, "uniswap_v2", 1, 10, 10)
	if err != nil {
		t.Fatalf("list past end: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty page, got %d", len(empty))
	}
}

func TestMemoryPoolsByToken(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	t0 := model.Token{Address: "0xaaa", ChainID: 1, Decimals: 18}
	t1 := model.Token{Address: "0xbbb", ChainID: 1, Decimals: 18}
	t2 := model.Token{Address: "0xccc", ChainID: 1, Decimals: 18}
	store.UpsertPool(ctx, testPool("0x1", "uniswap_v2", t0, t1))
	store.UpsertPool(ctx, testPool("0x2", "uniswap_v2", t1, t2))
	store.UpsertPool(ctx, testPool("0x3", "uniswap_v2", t0, t2))

	// 0xbbb sits on either side of two pools.
	pools, err := store.PoolsByToken(ctx, 1, "0xBBB")
	if err != nil {
		t.Fatalf("pools by token: %v", err)
	}
	if len(pools) != 2 {
		t.Fatalf("got %d pools, want 2", len(pools))
	}
}

func TestMemoryDistributionLatestOnly(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	t0 := model.Token{Address: "0xaaa", ChainID: 1, Decimals: 18}
	t1 := model.Token{Address: "0xbbb", ChainID: 1, Decimals: 6}
	dist := model.LiquidityDistribution{
		Token0:       t0,
		Token1:       t1,
		CurrentPrice: 3.0,
		DEX:          "uniswap_v2",
		ChainID:      1,
		PriceLevels: []model.PriceLevel{{
			Side: model.SideBuy, LowerPrice: 3, UpperPrice: 3,
			Token0Liquidity: 1000, Token1Liquidity: 3000,
		}},
		Timestamp: time.Now().UTC(),
	}
	if err := store.UpsertDistribution(ctx, dist); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	dist.CurrentPrice = 4.0
	if err := store.UpsertDistribution(ctx, dist); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := store.GetDistribution(ctx, "0xaaa", "0xbbb", "uniswap_v2", 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.CurrentPrice != 4.0 {
		t.Fatalf("got %+v, want only the latest snapshot", got)
	}

	// Exact-key semantics: the swapped order is a different key.
	swapped, err := store.GetDistribution(ctx, "0xbbb", "0xaaa", "uniswap_v2", 1)
	if err != nil {
		t.Fatalf("get swapped: %v", err)
	}
	if swapped != nil {
		t.Fatalf("expected nil for swapped key, got %+v", swapped)
	}
}

func TestMemoryListDistributionsAcrossDexes(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	t0 := model.Token{Address: "0xaaa", ChainID: 1, Decimals: 18}
	t1 := model.Token{Address: "0xbbb", ChainID: 1, Decimals: 18}
	for _, dex := range []string{"uniswap_v2", "uniswap_v3", "sushiswap"} {
		dist := model.LiquidityDistribution{
			Token0: t0, Token1: t1, DEX: dex, ChainID: 1,
			CurrentPrice: 2.0, Timestamp: time.Now().UTC(),
		}
		if err := store.UpsertDistribution(ctx, dist); err != nil {
			t.Fatalf("upsert %s: %v", dex, err)
		}
	}

	dists, err := store.ListDistributions(ctx, "0xaaa", "0xbbb", 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(dists) != 3 {
		t.Fatalf("got %d distributions, want 3", len(dists))
	}
}
