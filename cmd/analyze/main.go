// Package main analyzes the trading performance of a single wallet and
// prints the computed metrics.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"solana-wallet-analytics/internal/analyzer"
	"solana-wallet-analytics/internal/config"
	"solana-wallet-analytics/internal/domain"
	"solana-wallet-analytics/internal/metrics"
	"solana-wallet-analytics/internal/pricing"
	"solana-wallet-analytics/internal/solana"
	"solana-wallet-analytics/internal/storage/migrations"
	pgstore "solana-wallet-analytics/internal/storage/postgres"
	"solana-wallet-analytics/internal/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	wallet := flag.String("wallet", "", "Wallet address to analyze (required)")
	rpcEndpoint := flag.String("rpc-endpoint", cfg.RPCEndpoint, "Solana RPC HTTP endpoint")
	startTime := flag.Int64("start", 0, "Window start (Unix seconds, 0 = unbounded)")
	endTime := flag.Int64("end", 0, "Window end (Unix seconds, 0 = unbounded)")
	maxTransactions := flag.Int("max-transactions", cfg.MaxTransactions, "Signature fetch cap")
	minTrades := flag.Int("min-trades", cfg.MinTrades, "Completed trades required for completed status")
	minTradeValue := flag.Float64("min-trade-value", 0, "Drop trades below this exit value in USD")
	includeTokens := flag.String("include-tokens", "", "Comma-separated mint allow filter")
	excludeTokens := flag.String("exclude-tokens", "", "Comma-separated mint deny filter")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL DSN for storing metrics (optional)")
	jsonOut := flag.Bool("json", false, "Print the full result as JSON")
	verbose := flag.Bool("verbose", false, "Debug logging")
	flag.Parse()

	logger := newLogger(*verbose)

	if *wallet == "" {
		logger.Fatal().Msg("--wallet is required")
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
		logger.Info().Str("signal", sig.String()).Msg("cancelling analysis")
		cancel()
	}()

	prices := buildPriceSource(cfg, logger)

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
	})

	res := a.AnalyzeWallet(ctx, *wallet, domain.AnalysisConfig{
		StartTime:        *startTime,
		EndTime:          *endTime,
		MaxTransactions:  *maxTransactions,
		MinTrades:        *minTrades,
		MinTradeValueUsd: *minTradeValue,
		IncludeTokens:    splitList(*includeTokens),
		ExcludeTokens:    splitList(*excludeTokens),
		Timeout:          cfg.WalletTimeout,
	})

	if *postgresDSN != "" && res.Metrics != nil {
		if err := storeMetrics(ctx, *postgresDSN, res.Metrics); err != nil {
			logger.Error().Err(err).Msg("store metrics")
		}
	}

	printResult(res, *jsonOut, logger)

	if res.Failed() {
		os.Exit(1)
	}
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

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()
}

func buildPriceSource(cfg *config.Config, logger zerolog.Logger) pricing.Source {
	var opts []pricing.HTTPSourceOption
	if cfg.PriceAPIBaseURL != "" {
		opts = append(opts, pricing.WithBaseURL(cfg.PriceAPIBaseURL))
	}
	if cfg.PriceAPIKey != "" {
		opts = append(opts, pricing.WithAPIKey(cfg.PriceAPIKey))
	}

	var source pricing.Source = pricing.NewHTTPSource(logger, opts...)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		source = pricing.NewRedisCache(source, client, cfg.CacheTTL, logger)
	}
	return source
}

func storeMetrics(ctx context.Context, dsn string, m *domain.WalletPerformanceMetrics) error {
	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return err
	}
	return pgstore.NewMetricsStore(pool).Upsert(ctx, m)
}

func printResult(res *domain.WalletAnalysisResult, asJSON bool, logger zerolog.Logger) {
	if asJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			logger.Fatal().Err(err).Msg("marshal result")
		}
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Wallet:   %s\n", res.WalletAddress)
	fmt.Printf("Status:   %s\n", res.Status)
	fmt.Printf("Fetched:  %d transactions, %d swaps parsed\n", res.TransactionsFetched, res.SwapsParsed)
	fmt.Printf("Trades:   %d completed, %d positions open\n", len(res.Trades), len(res.OpenPositions))

	if m := res.Metrics; m != nil {
		fmt.Printf("\nNet ROI:        %.2f%%\n", m.NetRoiPercent)
		fmt.Printf("Realized PnL:   $%.2f\n", m.RealizedPnlUsd)
		fmt.Printf("Unrealized PnL: $%.2f\n", m.UnrealizedPnlUsd)
		fmt.Printf("Max Drawdown:   %.2f%%\n", m.MaxDrawdownPercent)
		fmt.Printf("Sharpe Ratio:   %.2f\n", m.SharpeRatio)
		fmt.Printf("Win Rate:       %.1f%% (%d/%d)\n", m.WinRate*100, m.WinningTrades, m.TotalTrades)
		fmt.Printf("Confidence:     %.1f (%s)\n", m.ConfidenceScore, m.QualityTier)
	}

	for _, w := range res.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	if len(res.Errors) > 0 {
		fmt.Printf("\n%d errors during analysis:\n", len(res.Errors))
		for _, e := range res.Errors {
			fmt.Printf("  - %s\n", e.Error())
		}
	}
}
