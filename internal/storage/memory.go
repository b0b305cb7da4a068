package storage

import (
	"context"
	"strings"
	"sync"

	"wallscope/internal/model"
)

type tokenKey struct {
	chainID uint64
	address string
}

type poolKey struct {
	chainID uint64
	address string
}

type distKey struct {
	token0  string
	token1  string
	dex     string
	chainID uint64
}

// Memory is a map-backed Store. It backs tests and the "memory" database URL.
type Memory struct {
	mu        sync.RWMutex
	tokens    map[tokenKey]model.Token
	pools     map[poolKey]model.Pool
	poolOrder []poolKey
	dists     map[distKey]model.LiquidityDistribution
}

func NewMemory() *Memory {
	return &Memory{
		tokens: make(map[tokenKey]model.Token),
		pools:  make(map[poolKey]model.Pool),
		dists:  make(map[distKey]model.LiquidityDistribution),
	}
}

func (m *Memory) UpsertToken(_ context.Context, token model.Token) error {
	m.mu.Lock()
	m.tokens[tokenKey{token.ChainID, strings.ToLower(token.Address)}] = token
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetToken(_ context.Context, chainID uint64, address string) (*model.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	token, ok := m.tokens[tokenKey{chainID, strings.ToLower(address)}]
	if !ok {
		return nil, nil
	}
	return &token, nil
}

func (m *Memory) UpsertPool(_ context.Context, pool model.Pool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[tokenKey{pool.Token0.ChainID, strings.ToLower(pool.Token0.Address)}] = pool.Token0
	m.tokens[tokenKey{pool.Token1.ChainID, strings.ToLower(pool.Token1.Address)}] = pool.Token1
	key := poolKey{pool.ChainID, strings.ToLower(pool.Address)}
	if _, ok := m.pools[key]; !ok {
		m.poolOrder = append(m.poolOrder, key)
	}
	m.pools[key] = pool
	return nil
}

func (m *Memory) GetPool(_ context.Context, chainID uint64, address string) (*model.Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pool, ok := m.pools[poolKey{chainID, strings.ToLower(address)}]
	if !ok {
		return nil, nil
	}
	return &pool, nil
}

// ListPools pages through pools in insertion order.
func (m *Memory) ListPools(_ context.Context, dex string, chainID uint64, limit, offset int) ([]model.Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []model.Pool
	for _, key := range m.poolOrder {
		pool := m.pools[key]
		if pool.DEX == dex && pool.ChainID == chainID {
			matched = append(matched, pool)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *Memory) PoolsByToken(_ context.Context, chainID uint64, address string) ([]model.Pool, error) {
	addr := strings.ToLower(address)
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []model.Pool
	for _, key := range m.poolOrder {
		pool := m.pools[key]
		if pool.ChainID != chainID {
			continue
		}
		if strings.ToLower(pool.Token0.Address) == addr || strings.ToLower(pool.Token1.Address) == addr {
			matched = append(matched, pool)
		}
	}
	return matched, nil
}

func (m *Memory) UpsertDistribution(_ context.Context, dist model.LiquidityDistribution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[tokenKey{dist.Token0.ChainID, strings.ToLower(dist.Token0.Address)}] = dist.Token0
	m.tokens[tokenKey{dist.Token1.ChainID, strings.ToLower(dist.Token1.Address)}] = dist.Token1
	m.dists[distKey{
		token0:  strings.ToLower(dist.Token0.Address),
		token1:  strings.ToLower(dist.Token1.Address),
		dex:     dist.DEX,
		chainID: dist.ChainID,
	}] = dist
	return nil
}

func (m *Memory) GetDistribution(_ context.Context, token0, token1, dex string, chainID uint64) (*model.LiquidityDistribution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dist, ok := m.dists[distKey{
		token0:  strings.ToLower(token0),
		token1:  strings.ToLower(token1),
		dex:     dex,
		chainID: chainID,
	}]
	if !ok {
		return nil, nil
	}
	return &dist, nil
}

func (m *Memory) ListDistributions(_ context.Context, token0, token1 string, chainID uint64) ([]model.LiquidityDistribution, error) {
	t0, t1 := strings.ToLower(token0), strings.ToLower(token1)
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.LiquidityDistribution
	for key, dist := range m.dists {
		if key.token0 == t0 && key.token1 == t1 && key.chainID == chainID {
			out = append(out, dist)
		}
	}
	return out, nil
}

func (m *Memory) Close() {}
