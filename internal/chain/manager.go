package chain

import (
	"context"

	"wallscope/internal/config"
	"wallscope/internal/errs"
)

// Manager holds one Client per configured chain.
type Manager struct {
	clients map[uint64]*Client
}

// NewManager dials a client for each chain that has an RPC URL configured.
// Chains without a URL are skipped.
func NewManager(ctx context.Context, cfg *config.Config) (*Manager, error) {
	m := &Manager{clients: make(map[uint64]*Client)}

	for _, chainID := range []uint64{1, 137, 42161, 10} {
		rpcCfg, ok := cfg.RPCByChain(chainID)
		if !ok || rpcCfg.URL == "" {
			continue
		}
		client, err := NewClient(ctx, rpcCfg.URL, rpcCfg.Timeout())
		if err != nil {
			m.Close()
			return nil, err
		}
		reported, err := client.ChainID(ctx)
		if err != nil {
			client.Close()
			m.Close()
			return nil, err
		}
		if reported.Uint64() != chainID {
			client.Close()
			m.Close()
			return nil, errs.Newf(errs.Config, "rpc endpoint for chain %d reports chain %s", chainID, reported)
		}
		m.clients[chainID] = client
	}

	if len(m.clients) == 0 {
		return nil, errs.New(errs.Config, "no chain rpc endpoints configured")
	}
	return m, nil
}

// Client returns the client for a chain ID.
func (m *Manager) Client(chainID uint64) (*Client, error) {
	client, ok := m.clients[chainID]
	if !ok {
		return nil, errs.Newf(errs.Provider, "no provider for chain %d", chainID)
	}
	return client, nil
}

// Close closes all clients.
func (m *Manager) Close() {
	for _, client := range m.clients {
		client.Close()
	}
}
