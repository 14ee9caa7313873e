// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults applied when the environment leaves a value unset.
const (
	DefaultWorkers         = 5
	DefaultRatePerSecond   = 5.0
	DefaultMinTrades       = 5
	DefaultMaxTransactions = 500
	DefaultRiskFreeRate    = 0.05
	DefaultCacheTTL        = time.Hour
	DefaultWalletTimeout   = 5 * time.Minute
)

// Config carries all runtime settings. DSNs and the Redis address are
// optional; empty values mean the corresponding backend is not wired.
type Config struct {
	// Solana access
	RPCEndpoint string
	WSEndpoint  string

	// Price feed
	PriceAPIBaseURL string
	PriceAPIKey     string

	// Caching and persistence
	RedisAddr     string
	CacheTTL      time.Duration
	PostgresDSN   string
	ClickhouseDSN string

	// TokenRegistryFile optionally extends the built-in mint allow-list
	// with entries from a JSON file.
	TokenRegistryFile string

	// Analysis
	Workers         int
	RatePerSecond   float64
	MinTrades       int
	MaxTransactions int
	WalletTimeout   time.Duration
	RiskFreeRate    float64

	// Observability
	MetricsAddr string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first without overriding already-set variables.
func Load() (*Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{
		RPCEndpoint:     os.Getenv("SOLANA_RPC_ENDPOINT"),
		WSEndpoint:      os.Getenv("SOLANA_WS_ENDPOINT"),
		PriceAPIBaseURL: os.Getenv("PRICE_API_BASE_URL"),
		PriceAPIKey:     os.Getenv("PRICE_API_KEY"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		ClickhouseDSN:   os.Getenv("CLICKHOUSE_DSN"),
		MetricsAddr:     os.Getenv("METRICS_ADDR"),

		TokenRegistryFile: os.Getenv("TOKEN_REGISTRY_FILE"),
	}

	var err error
	if cfg.Workers, err = envInt("ANALYZER_WORKERS", DefaultWorkers); err != nil {
		return nil, err
	}
	if cfg.RatePerSecond, err = envFloat("ANALYZER_RATE_PER_SECOND", DefaultRatePerSecond); err != nil {
		return nil, err
	}
	if cfg.MinTrades, err = envInt("ANALYZER_MIN_TRADES", DefaultMinTrades); err != nil {
		return nil, err
	}
	if cfg.MaxTransactions, err = envInt("ANALYZER_MAX_TRANSACTIONS", DefaultMaxTransactions); err != nil {
		return nil, err
	}
	if cfg.WalletTimeout, err = envDuration("ANALYZER_WALLET_TIMEOUT", DefaultWalletTimeout); err != nil {
		return nil, err
	}
	if cfg.RiskFreeRate, err = envFloat("METRICS_RISK_FREE_RATE", DefaultRiskFreeRate); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = envDuration("PRICE_CACHE_TTL", DefaultCacheTTL); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func envFloat(key string, def float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}
