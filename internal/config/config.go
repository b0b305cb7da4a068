package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"wallscope/internal/errs"
)

// RPCConfig locates one chain's JSON-RPC endpoint.
type RPCConfig struct {
	URL         string `mapstructure:"url"`
	TimeoutSecs uint64 `mapstructure:"timeout_secs"`
}

// Timeout returns the per-call RPC deadline.
func (c RPCConfig) Timeout() time.Duration {
	if c.TimeoutSecs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSecs) * time.Second
}

// DatabaseConfig locates the durable store. The special value "memory"
// selects the in-process store.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// APIConfig holds the HTTP listen address.
type APIConfig struct {
	Host string `mapstructure:"host"`
	Port uint16 `mapstructure:"port"`
}

// IndexerConfig controls the indexing loop.
type IndexerConfig struct {
	IntervalSecs uint64 `mapstructure:"interval_secs"`
	BatchSize    int    `mapstructure:"batch_size"`
	// MaxParallelPools bounds concurrent per-pool fetches within one DEX
	// cycle; 1 keeps the loop fully sequential.
	MaxParallelPools int64 `mapstructure:"max_parallel_pools"`
}

// AggregatorConfig controls merge-time behavior.
type AggregatorConfig struct {
	// Buckets is the number of uniform price bins used for re-bucketing
	// and wall extraction.
	Buckets int `mapstructure:"buckets"`
	// Synthesis switches routing legs from the linear rebase to the
	// bilinear two-hop synthesis when a direct quote/USDC distribution
	// exists.
	Synthesis bool `mapstructure:"synthesis"`
}

// DexConfig describes one DEX deployment to index.
type DexConfig struct {
	Name           string `mapstructure:"name"`
	ChainID        uint64 `mapstructure:"chain_id"`
	FactoryAddress string `mapstructure:"factory_address"`
	Enabled        bool   `mapstructure:"enabled"`
}

// Config is the full process configuration.
type Config struct {
	Ethereum   RPCConfig        `mapstructure:"ethereum"`
	Polygon    *RPCConfig       `mapstructure:"polygon"`
	Arbitrum   *RPCConfig       `mapstructure:"arbitrum"`
	Optimism   *RPCConfig       `mapstructure:"optimism"`
	Database   DatabaseConfig   `mapstructure:"database"`
	API        APIConfig        `mapstructure:"api"`
	Indexer    IndexerConfig    `mapstructure:"indexer"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Dexes      []DexConfig      `mapstructure:"dexes"`
	LogLevel   string           `mapstructure:"log_level"`
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WALLSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("ethereum.timeout_secs", uint64(30))
	v.SetDefault("database.url", "memory")
	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", uint16(8080))
	v.SetDefault("indexer.interval_secs", uint64(600))
	v.SetDefault("indexer.batch_size", 1000)
	v.SetDefault("indexer.max_parallel_pools", int64(1))
	v.SetDefault("aggregator.buckets", 64)
	v.SetDefault("aggregator.synthesis", false)
	v.SetDefault("log_level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, errs.Wrap(errs.Config, "bind flags", err)
		}
		// The flag spelling differs from the config key.
		if f := flags.Lookup("log-level"); f != nil {
			if err := v.BindPFlag("log_level", f); err != nil {
				return Config{}, errs.Wrap(errs.Config, "bind flags", err)
			}
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errs.Wrap(errs.Config, "read config", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, errs.Wrap(errs.Config, "read config", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(errs.Config, "decode config", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Indexer.IntervalSecs == 0 {
		return errs.New(errs.Config, "indexer.interval_secs must be > 0")
	}
	if c.Indexer.BatchSize <= 0 {
		return errs.New(errs.Config, "indexer.batch_size must be > 0")
	}
	if c.Indexer.MaxParallelPools <= 0 {
		c.Indexer.MaxParallelPools = 1
	}
	if c.Aggregator.Buckets <= 0 {
		c.Aggregator.Buckets = 64
	}
	for _, dex := range c.Dexes {
		if dex.Name == "" {
			return errs.New(errs.Config, "dexes[].name is required")
		}
		if dex.Enabled && dex.FactoryAddress == "" {
			return errs.Newf(errs.Config, "dexes[%s].factory_address is required", dex.Name)
		}
	}
	return nil
}

// RPCByChain returns the RPC config for a chain id, if configured.
func (c *Config) RPCByChain(chainID uint64) (RPCConfig, bool) {
	switch chainID {
	case 1:
		if c.Ethereum.URL != "" {
			return c.Ethereum, true
		}
	case 137:
		if c.Polygon != nil && c.Polygon.URL != "" {
			return *c.Polygon, true
		}
	case 42161:
		if c.Arbitrum != nil && c.Arbitrum.URL != "" {
			return *c.Arbitrum, true
		}
	case 10:
		if c.Optimism != nil && c.Optimism.URL != "" {
			return *c.Optimism, true
		}
	}
	return RPCConfig{}, false
}

// ListenAddr formats the API bind address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}
