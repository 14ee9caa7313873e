// Package analyzer orchestrates the per-wallet analysis pipeline:
// signature listing, transaction fetch, swap parsing, ledger replay, and
// metric computation. Every stage degrades into the result object; a wallet
// run never returns an error to the caller.
package analyzer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"solana-wallet-analytics/internal/domain"
	"solana-wallet-analytics/internal/ledger"
	"solana-wallet-analytics/internal/metrics"
	"solana-wallet-analytics/internal/observability"
	"solana-wallet-analytics/internal/parser"
	"solana-wallet-analytics/internal/pricing"
	"solana-wallet-analytics/internal/solana"
	"solana-wallet-analytics/internal/tokens"
)

const (
	defaultMaxTransactions = 500
	defaultMinTrades       = 5
	defaultWorkers         = 5
	defaultRatePerSecond   = 5
	signaturePageSize      = 1000
)

// Analyzer runs wallet analyses against a transaction source and a price
// source. Safe for concurrent use; each run builds its own ledger.
type Analyzer struct {
	source  solana.TransactionSource
	prices  pricing.Source
	parser  *parser.Parser
	logger  zerolog.Logger
	compute metrics.Config
	workers int
	limiter *rate.Limiter
}

// Options configures an Analyzer. Source, Prices, and Registry are required.
type Options struct {
	Source   solana.TransactionSource
	Prices   pricing.Source
	Registry *tokens.Registry
	Logger   zerolog.Logger

	// MetricsConfig overrides the metric computation defaults when non-nil.
	MetricsConfig *metrics.Config

	// Workers is the batch worker pool size. Defaults to 5.
	Workers int
	// RatePerSecond caps wallet pipeline starts across the pool.
	// Defaults to 5.
	RatePerSecond float64
}

// New creates an Analyzer with defaults applied.
func New(opts Options) *Analyzer {
	a := &Analyzer{
		source:  opts.Source,
		prices:  opts.Prices,
		parser:  parser.NewParser(opts.Registry),
		logger:  opts.Logger.With().Str("component", "analyzer").Logger(),
		compute: metrics.DefaultConfig(),
		workers: opts.Workers,
	}
	if opts.MetricsConfig != nil {
		a.compute = *opts.MetricsConfig
	}
	if a.workers <= 0 {
		a.workers = defaultWorkers
	}
	rps := opts.RatePerSecond
	if rps <= 0 {
		rps = defaultRatePerSecond
	}
	a.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	return a
}

// AnalyzeWallet runs the full pipeline for one wallet. It never returns an
// error: failures are reported through the result's status and error list,
// and a panic anywhere in the pipeline becomes a failed result.
func (a *Analyzer) AnalyzeWallet(ctx context.Context, wallet string, cfg domain.AnalysisConfig) (res *domain.WalletAnalysisResult) {
	started := time.Now()
	res = &domain.WalletAnalysisResult{
		WalletAddress: wallet,
		Status:        domain.StatusFailed,
		StartedAt:     started,
	}

	defer func() {
		if r := recover(); r != nil {
			res.Status = domain.StatusFailed
			res.Metrics = nil
			res.Errors = append(res.Errors, domain.Errorf(
				domain.ErrKindCalculation, wallet, "pipeline panic: %v", r))
			a.logger.Error().Str("wallet", wallet).Interface("panic", r).
				Msg("wallet pipeline panicked")
		}
		res.Duration = time.Since(started)
		observability.RecordWalletAnalyzed(res.Status, res.Duration.Seconds())
	}()

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if err := domain.ValidateWalletAddress(wallet); err != nil {
		res.Errors = append(res.Errors, domain.NewAnalysisError(
			domain.ErrKindParsing, wallet, err))
		return res
	}

	sigs, err := a.listSignatures(ctx, wallet, cfg)
	if err != nil {
		res.Errors = append(res.Errors, a.stageError(ctx, wallet, domain.ErrKindFetch, "list signatures", err))
		return res
	}
	if len(sigs) == 0 {
		res.Errors = append(res.Errors, domain.Errorf(
			domain.ErrKindFetch, wallet, "no transactions found in window"))
		return res
	}

	txs := a.fetchTransactions(ctx, wallet, sigs, res)
	res.TransactionsFetched = len(txs)
	if len(txs) == 0 {
		res.Errors = append(res.Errors, a.stageError(ctx, wallet, domain.ErrKindFetch,
			"fetch transactions", fmt.Errorf("all %d fetches failed", len(sigs))))
		return res
	}

	swaps, parseErrs := a.parser.ParseBatch(txs, wallet)
	res.Errors = append(res.Errors, parseErrs...)
	for range swaps {
		observability.RecordSwapParsed()
	}
	for range parseErrs {
		observability.RecordSwapRejected("parse_error")
	}
	res.SwapsParsed = len(swaps)

	swaps = filterSwaps(swaps, cfg)
	sort.SliceStable(swaps, func(i, j int) bool {
		return swaps[i].BlockTime < swaps[j].BlockTime
	})

	led := ledger.New(wallet, a.prices, ledger.WithLogger(a.logger))
	out, err := led.ProcessSwaps(ctx, swaps)
	if err != nil {
		res.Errors = append(res.Errors, a.stageError(ctx, wallet, domain.ErrKindCalculation, "ledger", err))
		return res
	}
	res.Errors = append(res.Errors, out.Errors...)

	if len(out.EnhancedSwaps) == 0 {
		res.Errors = append(res.Errors, domain.Errorf(
			domain.ErrKindFetch, wallet, "no valid swaps after parsing and pricing"))
		return res
	}

	res.Swaps = out.EnhancedSwaps
	res.Trades = filterTrades(out.Trades, cfg.MinTradeValueUsd)
	res.OpenPositions = out.Positions

	computeCfg := a.compute
	computeCfg.PriceCoverage = coverage(out.SwapsProcessed, out.SwapsSkipped)

	windowStart, windowEnd := window(cfg, swaps)
	res.Metrics = metrics.Compute(wallet, res.Swaps, res.Trades, res.OpenPositions,
		windowStart, windowEnd, computeCfg)

	res.Warnings = append(res.Warnings, validate(res)...)

	minTrades := cfg.MinTrades
	if minTrades <= 0 {
		minTrades = defaultMinTrades
	}
	if len(res.Trades) >= minTrades {
		res.Status = domain.StatusCompleted
	} else {
		res.Status = domain.StatusPartial
	}

	a.logger.Info().
		Str("wallet", wallet).
		Str("status", res.Status).
		Int("transactions", res.TransactionsFetched).
		Int("swaps", res.SwapsParsed).
		Int("trades", len(res.Trades)).
		Dur("duration", time.Since(started)).
		Msg("wallet analysis finished")

	return res
}

// stageError tags a pipeline-stage failure, converting context deadline
// expiry into a timeout error so callers can tell slow wallets from broken
// upstreams.
func (a *Analyzer) stageError(ctx context.Context, wallet string, kind domain.ErrorKind, stage string, err error) *domain.AnalysisError {
	if ctx.Err() == context.DeadlineExceeded {
		kind = domain.ErrKindTimeout
	}
	return domain.NewAnalysisError(kind, wallet, fmt.Errorf("%s: %w", stage, err))
}

// listSignatures pages through the wallet's signature history, newest
// first, up to the configured cap, dropping failed transactions and
// signatures outside the time window.
func (a *Analyzer) listSignatures(ctx context.Context, wallet string, cfg domain.AnalysisConfig) ([]solana.SignatureInfo, error) {
	maxTx := cfg.MaxTransactions
	if maxTx <= 0 {
		maxTx = defaultMaxTransactions
	}

	var collected []solana.SignatureInfo
	var before string
	for len(collected) < maxTx {
		limit := signaturePageSize
		if remaining := maxTx - len(collected); remaining < limit {
			limit = remaining
		}

		page, err := a.source.GetSignaturesForAddress(ctx, wallet, &solana.SignaturesOpts{
			Before: before,
			Limit:  limit,
		})
		if err != nil {
			return nil, err
		}
		collected = append(collected, page...)
		if len(page) < limit {
			break
		}
		before = page[len(page)-1].Signature
	}

	kept := collected[:0]
	for _, sig := range collected {
		if sig.Err != nil {
			continue
		}
		if sig.BlockTime != nil && !inWindow(*sig.BlockTime, cfg) {
			continue
		}
		kept = append(kept, sig)
	}
	return kept, nil
}

func inWindow(blockTime int64, cfg domain.AnalysisConfig) bool {
	if cfg.StartTime > 0 && blockTime < cfg.StartTime {
		return false
	}
	if cfg.EndTime > 0 && blockTime > cfg.EndTime {
		return false
	}
	return true
}

// fetchTransactions retrieves transaction bodies one signature at a time.
// Individual fetch failures degrade into FetchError entries on the result.
func (a *Analyzer) fetchTransactions(ctx context.Context, wallet string, sigs []solana.SignatureInfo, res *domain.WalletAnalysisResult) []*solana.Transaction {
	txs := make([]*solana.Transaction, 0, len(sigs))
	for _, sig := range sigs {
		if ctx.Err() != nil {
			res.Errors = append(res.Errors, a.stageError(ctx, wallet,
				domain.ErrKindFetch, "fetch transactions", ctx.Err()))
			break
		}

		tx, err := a.source.GetTransaction(ctx, sig.Signature)
		if err == nil && tx == nil {
			err = fmt.Errorf("transaction not found")
		}
		if err != nil {
			observability.DefaultMetrics.TxFetchErrors.Inc()
			res.Errors = append(res.Errors, a.stageError(ctx, wallet,
				domain.ErrKindFetch, "fetch transaction", err).WithSignature(sig.Signature))
			continue
		}

		observability.DefaultMetrics.TxsFetched.Inc()
		txs = append(txs, tx)
	}
	return txs
}

// filterSwaps applies the include/exclude mint filters. A swap passes the
// include filter when either leg is listed, so funding legs in quote tokens
// do not hide trades in the tokens of interest.
func filterSwaps(swaps []*domain.Swap, cfg domain.AnalysisConfig) []*domain.Swap {
	if len(cfg.IncludeTokens) == 0 && len(cfg.ExcludeTokens) == 0 {
		return swaps
	}

	include := toSet(cfg.IncludeTokens)
	exclude := toSet(cfg.ExcludeTokens)

	kept := swaps[:0]
	for _, s := range swaps {
		if exclude[s.TokenIn.Mint] || exclude[s.TokenOut.Mint] {
			continue
		}
		if len(include) > 0 && !include[s.TokenIn.Mint] && !include[s.TokenOut.Mint] {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

// filterTrades drops dust trades below the configured exit value.
func filterTrades(trades []*domain.CompletedTrade, minValueUsd float64) []*domain.CompletedTrade {
	if minValueUsd <= 0 {
		return trades
	}
	kept := trades[:0]
	for _, t := range trades {
		if t.ExitValueUsd >= minValueUsd {
			kept = append(kept, t)
		}
	}
	return kept
}

func toSet(mints []string) map[string]bool {
	if len(mints) == 0 {
		return nil
	}
	set := make(map[string]bool, len(mints))
	for _, m := range mints {
		set[m] = true
	}
	return set
}

func coverage(processed, skipped int) float64 {
	total := processed + skipped
	if total == 0 {
		return 1
	}
	return float64(processed) / float64(total)
}

// window resolves the metric window bounds, falling back to the observed
// swap range when the config leaves a side open.
func window(cfg domain.AnalysisConfig, swaps []*domain.Swap) (int64, int64) {
	start, end := cfg.StartTime, cfg.EndTime
	if len(swaps) > 0 {
		if start == 0 {
			start = swaps[0].BlockTime
		}
		if end == 0 {
			end = swaps[len(swaps)-1].BlockTime
		}
	}
	return start, end
}

// validate runs range-sanity checks over the computed metrics. Findings are
// warnings: the result stays usable, the caller decides what to trust.
func validate(res *domain.WalletAnalysisResult) []string {
	m := res.Metrics
	if m == nil {
		return nil
	}

	var warnings []string
	if math.Abs(m.NetRoiPercent) > 10000 {
		warnings = append(warnings, fmt.Sprintf(
			"net ROI magnitude suspicious: %.1f%%", m.NetRoiPercent))
	}
	if m.MaxDrawdownPercent > 100 {
		warnings = append(warnings, fmt.Sprintf(
			"max drawdown exceeds 100%%: %.1f%%", m.MaxDrawdownPercent))
	}
	if m.TotalTrades != len(res.Trades) {
		warnings = append(warnings, fmt.Sprintf(
			"trade count mismatch: metrics %d vs ledger %d", m.TotalTrades, len(res.Trades)))
	}
	if m.WinningTrades+m.LosingTrades > m.TotalTrades {
		warnings = append(warnings, fmt.Sprintf(
			"win/loss counts exceed total: %d+%d > %d",
			m.WinningTrades, m.LosingTrades, m.TotalTrades))
	}
	return warnings
}
