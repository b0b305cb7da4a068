package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IndexerCycles counts completed indexer ticks.
	IndexerCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wallscope_indexer_cycles_total",
		Help: "Completed indexing cycles.",
	})

	// PoolErrors counts per-pool snapshot failures, by DEX tag.
	PoolErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallscope_pool_errors_total",
		Help: "Pool snapshots that failed and were skipped.",
	}, []string{"dex"})

	// DistributionUpserts counts persisted distributions, by DEX tag.
	DistributionUpserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallscope_distribution_upserts_total",
		Help: "Liquidity distributions written to the store.",
	}, []string{"dex"})

	// WallsQueryDuration tracks walls endpoint latency.
	WallsQueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wallscope_walls_query_seconds",
		Help:    "Latency of aggregated walls queries.",
		Buckets: prometheus.DefBuckets,
	})
)
