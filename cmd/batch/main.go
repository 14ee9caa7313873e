// Package main runs batch wallet analysis: a list of wallets through the
// analyzer pool, metrics into storage, and a report to disk.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"solana-wallet-analytics/internal/analyzer"
	"solana-wallet-analytics/internal/config"
	"solana-wallet-analytics/internal/domain"
	"solana-wallet-analytics/internal/metrics"
	"solana-wallet-analytics/internal/observability"
	"solana-wallet-analytics/internal/pricing"
	"solana-wallet-analytics/internal/reporting"
	"solana-wallet-analytics/internal/solana"
	"solana-wallet-analytics/internal/storage"
	chstore "solana-wallet-analytics/internal/storage/clickhouse"
	"solana-wallet-analytics/internal/storage/memory"
	"solana-wallet-analytics/internal/storage/migrations"
	pgstore "solana-wallet-analytics/internal/storage/postgres"
	"solana-wallet-analytics/internal/tokens"
)

// stores groups the persistence backends behind their interfaces.
type stores struct {
	metrics storage.MetricsStore
	archive storage.TradeArchive
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	wallets := flag.String("wallets", "", "Comma-separated wallet addresses")
	walletsFile := flag.String("wallets-file", "", "File with one wallet address per line")
	rpcEndpoint := flag.String("rpc-endpoint", cfg.RPCEndpoint, "Solana RPC HTTP endpoint")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL DSN for metrics")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse DSN for trade archive")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of databases")
	outputDir := flag.String("output-dir", "output", "Output directory for reports")
	workers := flag.Int("workers", cfg.Workers, "Concurrent wallet analyses")
	priority := flag.String("priority", "normal", "Informational batch priority label")
	startTime := flag.Int64("start", 0, "Window start (Unix seconds, 0 = unbounded)")
	endTime := flag.Int64("end", 0, "Window end (Unix seconds, 0 = unbounded)")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Prometheus metrics HTTP address (empty = disabled)")
	verbose := flag.Bool("verbose", false, "Debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()

	addresses, err := resolveWallets(*wallets, *walletsFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("resolve wallets")
	}
	if len(addresses) == 0 {
		logger.Fatal().Msg("no wallets given; use --wallets or --wallets-file")
	}
	if *rpcEndpoint == "" {
		logger.Fatal().Msg("--rpc-endpoint or SOLANA_RPC_ENDPOINT is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("cancelling batch")
		cancel()
	}()

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, logger)
	}

	st, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatal().Err(err).Msg("create stores")
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
		Workers:       *workers,
		RatePerSecond: cfg.RatePerSecond,
	})

	batch := a.AnalyzeBatch(ctx, &domain.BatchRequest{
		WalletAddresses: addresses,
		Priority:        *priority,
		Config: domain.AnalysisConfig{
			StartTime:       *startTime,
			EndTime:         *endTime,
			MaxTransactions: cfg.MaxTransactions,
			MinTrades:       cfg.MinTrades,
			Timeout:         cfg.WalletTimeout,
		},
	})

	persistResults(ctx, st, batch, logger)

	if err := writeReports(ctx, st, batch, *outputDir); err != nil {
		logger.Fatal().Err(err).Msg("write reports")
	}

	logger.Info().
		Int("wallets", len(batch.Results)).
		Int("completed", batch.Completed).
		Int("partial", batch.Partial).
		Int("failed", batch.Failed).
		Str("output_dir", *outputDir).
		Msg("batch finished")

	if batch.Failed == len(batch.Results) {
		os.Exit(1)
	}
}

// resolveWallets merges the flag list and the file list, deduplicated in
// first-seen order.
func resolveWallets(list, file string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string

	add := func(raw string) {
		addr := strings.TrimSpace(raw)
		if addr == "" || strings.HasPrefix(addr, "#") || seen[addr] {
			return
		}
		seen[addr] = true
		out = append(out, addr)
	}

	for _, w := range strings.Split(list, ",") {
		add(w)
	}

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read wallets file: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			add(line)
		}
	}

	return out, nil
}

// createStores wires the metrics store and trade archive, falling back to
// memory when requested or when a DSN is missing.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*stores, func(), error) {
	st := &stores{
		metrics: memory.NewMetricsStore(),
		archive: memory.NewTradeArchive(),
	}
	cleanup := func() {}
	if useMemory {
		return st, cleanup, nil
	}

	var closers []func()
	if postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		st.metrics = pgstore.NewMetricsStore(pool)
		closers = append(closers, pool.Close)
	}

	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			for _, c := range closers {
				c()
			}
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		st.archive = chstore.NewTradeArchive(conn)
		closers = append(closers, func() { conn.Close() })
	}

	cleanup = func() {
		for _, c := range closers {
			c()
		}
	}
	return st, cleanup, nil
}

// persistResults stores metrics and archives trades for every non-failed
// wallet. Storage errors degrade to log lines; the batch already ran.
func persistResults(ctx context.Context, st *stores, batch *domain.BatchAnalysisResult, logger zerolog.Logger) {
	for _, res := range batch.Results {
		if res == nil || res.Failed() || res.Metrics == nil {
			continue
		}
		if err := st.metrics.Upsert(ctx, res.Metrics); err != nil {
			logger.Error().Err(err).Str("wallet", res.WalletAddress).Msg("store metrics")
		}
		if err := st.archive.ArchiveTrades(ctx, res.Trades); err != nil {
			logger.Error().Err(err).Str("wallet", res.WalletAddress).Msg("archive trades")
		}
		if err := st.archive.ArchiveSwaps(ctx, res.Swaps); err != nil {
			logger.Error().Err(err).Str("wallet", res.WalletAddress).Msg("archive swaps")
		}
	}
}

// writeReports renders REPORT.md plus the metric and trade CSVs.
func writeReports(ctx context.Context, st *stores, batch *domain.BatchAnalysisResult, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	report, err := reporting.NewGenerator(st.metrics).Generate(ctx, batch)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	var trades []*domain.CompletedTrade
	for _, res := range batch.Results {
		if res != nil {
			trades = append(trades, res.Trades...)
		}
	}

	files := map[string]string{
		"REPORT.md":          reporting.RenderMarkdown(report),
		"wallet_metrics.csv": reporting.RenderMetricsCSV(report.Leaderboard),
		"trades.csv":         reporting.RenderTradesCSV(trades),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

func serveMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info().Str("addr", addr).Msg("serving prometheus metrics")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server stopped")
	}
}
