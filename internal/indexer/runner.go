package indexer

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"wallscope/internal/config"
	"wallscope/internal/dex"
	"wallscope/internal/errs"
	"wallscope/internal/metrics"
	"wallscope/internal/model"
	"wallscope/internal/storage"
)

const (
	defaultInterval  = 60 * time.Second
	defaultBatchSize = 100
	maxRetries       = 3
	retryBackoff     = 500 * time.Millisecond
)

// Runner drives the timed indexing loop: each tick it walks the adapters
// sequentially, snapshots their pools and upserts the distributions. Per-pool
// failures are logged and skipped; an enumeration failure abandons that
// adapter's cycle. The loop is cancellable between ticks.
type Runner struct {
	cfg      config.IndexerConfig
	adapters []dex.Adapter
	store    storage.Store
	logger   *zap.Logger
}

func NewRunner(cfg config.IndexerConfig, adapters []dex.Adapter, store storage.Store, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:      cfg,
		adapters: adapters,
		store:    store,
		logger:   logger,
	}
}

// Run executes cycles until the context is cancelled. The first cycle starts
// immediately.
func (r *Runner) Run(ctx context.Context) error {
	if r.store == nil {
		return errs.New(errs.Config, "store is nil")
	}
	if len(r.adapters) == 0 {
		return errs.New(errs.Config, "no adapters configured")
	}

	interval := time.Duration(r.cfg.IntervalSecs) * time.Second
	if interval <= 0 {
		interval = defaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r.Cycle(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Cycle runs one pass over all adapters.
func (r *Runner) Cycle(ctx context.Context) {
	started := time.Now()
	for _, adapter := range r.adapters {
		if ctx.Err() != nil {
			return
		}
		if err := r.indexAdapter(ctx, adapter); err != nil {
			r.logger.Warn("adapter cycle abandoned",
				zap.String("dex", adapter.Name()),
				zap.Uint64("chain_id", adapter.ChainID()),
				zap.Error(err))
		}
	}
	metrics.IndexerCycles.Inc()
	r.logger.Info("indexing cycle finished", zap.Duration("took", time.Since(started)))
}

func (r *Runner) indexAdapter(ctx context.Context, adapter dex.Adapter) error {
	batch := r.cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	var pools []model.Pool
	err := withRetry(ctx, maxRetries, retryBackoff, func(ctx context.Context) error {
		listed, err := adapter.ListPools(ctx, batch)
		if err != nil {
			return err
		}
		pools = listed
		return nil
	})
	if err != nil {
		return err
	}

	parallel := int64(r.cfg.MaxParallelPools)
	if parallel <= 0 {
		parallel = 1
	}
	sem := semaphore.NewWeighted(parallel)

	for i := range pools {
		pool := pools[i]
		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		go func() {
			defer sem.Release(1)
			r.indexPool(ctx, adapter, pool)
		}()
	}
	// Wait for the in-flight pools before moving to the next adapter.
	if err := sem.Acquire(ctx, parallel); err != nil {
		return err
	}
	sem.Release(parallel)

	return nil
}

func (r *Runner) indexPool(ctx context.Context, adapter dex.Adapter, pool model.Pool) {
	log := r.logger.With(
		zap.String("dex", adapter.Name()),
		zap.String("pool", pool.Address))

	if err := r.store.UpsertPool(ctx, pool); err != nil {
		log.Warn("pool upsert failed", zap.Error(err))
		metrics.PoolErrors.WithLabelValues(adapter.Name()).Inc()
		return
	}

	dist, err := adapter.Distribution(ctx, pool)
	if err != nil {
		log.Warn("distribution snapshot failed, skipping pool", zap.Error(err))
		metrics.PoolErrors.WithLabelValues(adapter.Name()).Inc()
		return
	}
	if err := r.store.UpsertDistribution(ctx, dist); err != nil {
		log.Warn("distribution upsert failed", zap.Error(err))
		metrics.PoolErrors.WithLabelValues(adapter.Name()).Inc()
		return
	}
	metrics.DistributionUpserts.WithLabelValues(adapter.Name()).Inc()
}

// IndexPool snapshots a single pool once, for the CLI's single-pair mode.
func (r *Runner) IndexPool(ctx context.Context, dexName, pair string) error {
	if !common.IsHexAddress(pair) {
		return errs.Newf(errs.InvalidAddress, "invalid pool address %q", pair)
	}
	for _, adapter := range r.adapters {
		if adapter.Name() != dexName {
			continue
		}
		pool, err := adapter.FetchPool(ctx, common.HexToAddress(pair))
		if err != nil {
			return err
		}
		if err := r.store.UpsertPool(ctx, pool); err != nil {
			return err
		}
		dist, err := adapter.Distribution(ctx, pool)
		if err != nil {
			return err
		}
		if err := r.store.UpsertDistribution(ctx, dist); err != nil {
			return err
		}
		metrics.DistributionUpserts.WithLabelValues(adapter.Name()).Inc()
		return nil
	}
	return errs.Newf(errs.UnknownDEX, "unknown dex %q", dexName)
}
