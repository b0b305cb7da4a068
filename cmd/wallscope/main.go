package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"wallscope/internal/api"
	"wallscope/internal/chain"
	"wallscope/internal/config"
	"wallscope/internal/dex"
	"wallscope/internal/errs"
	"wallscope/internal/indexer"
	"wallscope/internal/liquidity"
	"wallscope/internal/storage"
)

func main() {
	root := &cobra.Command{
		Use:          "wallscope",
		Short:        "DEX liquidity wall aggregator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	apiCmd := &cobra.Command{
		Use:   "api",
		Short: "Serve the liquidity walls HTTP API",
		RunE:  runAPI,
	}

	apiCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(apiCmd)

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Run the pool indexing loop",
		RunE:  runIndex,
	}

	indexCmd.Flags().String("dex", "", "index a single DEX (pair mode)")
	indexCmd.Flags().String("pair", "", "index a single pool address and exit")
	indexCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(indexCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAPI(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer store.Close()

	aggregator := liquidity.NewAggregator(store, cfg.Aggregator, logger)
	server := api.NewServer(store, aggregator, logger)

	logger.Info("api start",
		zap.String("addr", cfg.ListenAddr()),
		zap.String("database", cfg.Database.URL),
		zap.Int("buckets", cfg.Aggregator.Buckets),
	)

	return server.Run(ctx, cfg.ListenAddr())
}

func runIndex(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager, err := chain.NewManager(ctx, &cfg)
	if err != nil {
		return err
	}
	defer manager.Close()

	store, err := storage.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer store.Close()

	dexFilter, _ := cmd.Flags().GetString("dex")
	pair, _ := cmd.Flags().GetString("pair")

	var adapters []dex.Adapter
	for _, d := range cfg.Dexes {
		if !d.Enabled {
			continue
		}
		if dexFilter != "" && d.Name != dexFilter {
			continue
		}
		client, err := manager.Client(d.ChainID)
		if err != nil {
			logger.Warn("dex skipped, chain not configured",
				zap.String("dex", d.Name),
				zap.Uint64("chain_id", d.ChainID),
			)
			continue
		}
		adapter, err := dex.New(d, client, logger)
		if err != nil {
			return err
		}
		adapters = append(adapters, adapter)
	}

	runner := indexer.NewRunner(cfg.Indexer, adapters, store, logger)

	logger.Info("indexer start",
		zap.Int("adapters", len(adapters)),
		zap.Uint64("interval_secs", cfg.Indexer.IntervalSecs),
		zap.Int("batch_size", cfg.Indexer.BatchSize),
		zap.String("database", cfg.Database.URL),
	)

	if pair != "" {
		if dexFilter == "" {
			return errs.New(errs.Config, "--pair requires --dex")
		}
		return runner.IndexPool(ctx, dexFilter, pair)
	}
	return runner.Run(ctx)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
