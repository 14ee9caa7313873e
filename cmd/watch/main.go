// Package main watches wallets over a WebSocket subscription and re-runs
// the analysis when new transactions land.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"solana-wallet-analytics/internal/analyzer"
	"solana-wallet-analytics/internal/config"
	"solana-wallet-analytics/internal/domain"
	"solana-wallet-analytics/internal/metrics"
	"solana-wallet-analytics/internal/pricing"
	"solana-wallet-analytics/internal/solana"
	"solana-wallet-analytics/internal/storage"
	"solana-wallet-analytics/internal/storage/memory"
	"solana-wallet-analytics/internal/storage/migrations"
	pgstore "solana-wallet-analytics/internal/storage/postgres"
	"solana-wallet-analytics/internal/tokens"
)

// debounceWindow batches notification bursts into one re-analysis.
const debounceWindow = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	wallets := flag.String("wallets", "", "Comma-separated wallet addresses to watch")
	rpcEndpoint := flag.String("rpc-endpoint", cfg.RPCEndpoint, "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", cfg.WSEndpoint, "Solana WebSocket endpoint")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL DSN for metrics (optional)")
	verbose := flag.Bool("verbose", false, "Debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()

	addresses := splitList(*wallets)
	if len(addresses) == 0 {
		logger.Fatal().Msg("--wallets is required")
	}
	if *rpcEndpoint == "" || *wsEndpoint == "" {
		logger.Fatal().Msg("--rpc-endpoint and --ws-endpoint are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down watcher")
		cancel()
	}()

	store, cleanup, err := createMetricsStore(ctx, *postgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("create metrics store")
	}
	defer cleanup()

	var priceOpts []pricing.HTTPSourceOption
	if cfg.PriceAPIBaseURL != "" {
		priceOpts = append(priceOpts, pricing.WithBaseURL(cfg.PriceAPIBaseURL))
	}
	if cfg.PriceAPIKey != "" {
		priceOpts = append(priceOpts, pricing.WithAPIKey(cfg.PriceAPIKey))
	}
	var prices pricing.Source = pricing.NewHTTPSource(logger, priceOpts...)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		prices = pricing.NewRedisCache(prices, client, cfg.CacheTTL, logger)
	}

	registry := tokens.NewRegistry()
	if cfg.TokenRegistryFile != "" {
		if err := registry.LoadFile(cfg.TokenRegistryFile); err != nil {
			logger.Fatal().Err(err).Str("path", cfg.TokenRegistryFile).Msg("load token registry")
		}
	}

	mc := metrics.DefaultConfig()
	mc.AnnualRiskFreeRate = cfg.RiskFreeRate

	a := analyzer.New(analyzer.Options{
		Source:        solana.NewHTTPClient(*rpcEndpoint),
		Prices:        prices,
		Registry:      registry,
		Logger:        logger,
		MetricsConfig: &mc,
		RatePerSecond: cfg.RatePerSecond,
	})

	ws, err := solana.NewWSClient(ctx, *wsEndpoint, logger, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect websocket")
	}
	defer ws.Close()

	runCfg := domain.AnalysisConfig{
		MaxTransactions: cfg.MaxTransactions,
		MinTrades:       cfg.MinTrades,
		Timeout:         cfg.WalletTimeout,
	}

	var wg sync.WaitGroup
	for _, wallet := range addresses {
		notifs, err := ws.SubscribeWallet(ctx, wallet)
		if err != nil {
			logger.Fatal().Err(err).Str("wallet", wallet).Msg("subscribe wallet")
		}

		wg.Add(1)
		go func(wallet string, notifs <-chan solana.LogNotification) {
			defer wg.Done()
			watchWallet(ctx, a, store, wallet, runCfg, notifs, logger)
		}(wallet, notifs)
	}

	logger.Info().Int("wallets", len(addresses)).Msg("watching wallets")
	wg.Wait()
}

// watchWallet re-analyzes wallet after each burst of transaction
// notifications, debounced so rapid activity produces one run.
func watchWallet(ctx context.Context, a *analyzer.Analyzer, store storage.MetricsStore,
	wallet string, cfg domain.AnalysisConfig, notifs <-chan solana.LogNotification, logger zerolog.Logger) {

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case n, ok := <-notifs:
			if !ok {
				logger.Warn().Str("wallet", wallet).Msg("subscription closed")
				return
			}
			if n.Err != nil {
				continue
			}
			logger.Debug().Str("wallet", wallet).Str("signature", n.Signature).
				Msg("wallet activity")
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(debounceWindow)
			}

		case <-timerC:
			timer = nil
			timerC = nil

			res := a.AnalyzeWallet(ctx, wallet, cfg)
			logger.Info().Str("wallet", wallet).Str("status", res.Status).
				Int("trades", len(res.Trades)).Msg("re-analysis finished")

			if res.Metrics != nil {
				if err := store.Upsert(ctx, res.Metrics); err != nil {
					logger.Error().Err(err).Str("wallet", wallet).Msg("store metrics")
				}
			}
		}
	}
}

func createMetricsStore(ctx context.Context, dsn string) (storage.MetricsStore, func(), error) {
	if dsn == "" {
		return memory.NewMetricsStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pgstore.NewMetricsStore(pool), pool.Close, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
