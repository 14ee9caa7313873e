package reporting

import (
	"context"
	"time"

	"solana-wallet-analytics/internal/domain"
	"solana-wallet-analytics/internal/storage"
)

// DefaultLeaderboardSize limits the leaderboard table.
const DefaultLeaderboardSize = 25

// Generator produces reports from a batch run and the persisted metrics.
type Generator struct {
	metricsStore storage.MetricsStore
	limit        int
	now          func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. The metrics store supplies
// the leaderboard; it may contain wallets from earlier runs.
func NewGenerator(metricsStore storage.MetricsStore) *Generator {
	return &Generator{
		metricsStore: metricsStore,
		limit:        DefaultLeaderboardSize,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithLeaderboardSize overrides the leaderboard row cap.
func (g *Generator) WithLeaderboardSize(n int) *Generator {
	g.limit = n
	return g
}

// Generate produces a complete report for one batch run.
func (g *Generator) Generate(ctx context.Context, batch *domain.BatchAnalysisResult) (*Report, error) {
	board, err := g.metricsStore.Leaderboard(ctx, g.limit)
	if err != nil {
		return nil, err
	}

	rows := make([]WalletMetricRow, len(board))
	for i, m := range board {
		rows[i] = WalletMetricRow{
			Rank:            i + 1,
			WalletAddress:   m.WalletAddress,
			NetRoiPercent:   m.NetRoiPercent,
			TotalPnlUsd:     m.TotalPnlUsd,
			MaxDrawdownPct:  m.MaxDrawdownPercent,
			SharpeRatio:     m.SharpeRatio,
			WinRate:         m.WinRate,
			TotalTrades:     m.TotalTrades,
			ConfidenceScore: m.ConfidenceScore,
			QualityTier:     m.QualityTier,
		}
	}

	sections := make([]WalletSection, 0, len(batch.Results))
	for _, res := range batch.Results {
		if res == nil {
			continue
		}
		sections = append(sections, WalletSection{
			WalletAddress: res.WalletAddress,
			Status:        res.Status,
			Trades:        len(res.Trades),
			OpenPositions: len(res.OpenPositions),
			ErrorCount:    len(res.Errors),
			Warnings:      res.Warnings,
			Duration:      res.Duration,
		})
	}

	return &Report{
		GeneratedAt: g.now(),
		Summary: BatchSummary{
			Wallets:       len(batch.Results),
			Completed:     batch.Completed,
			Partial:       batch.Partial,
			Failed:        batch.Failed,
			TotalDuration: batch.TotalDuration,
			AvgDuration:   batch.AvgDuration,
		},
		Leaderboard: rows,
		Wallets:     sections,
	}, nil
}
