// Package storage defines the persistence boundary for analysis output.
// The analysis engine itself is stateless; persistence is optional wiring
// done by the CLI entrypoints.
package storage

import (
	"context"

	"solana-wallet-analytics/internal/domain"
)

// MetricsStore holds the latest WalletPerformanceMetrics per wallet.
// Metrics are recomputed from scratch on every run, so writes replace.
type MetricsStore interface {
	// Upsert stores the metrics for a wallet, replacing any previous run.
	Upsert(ctx context.Context, m *domain.WalletPerformanceMetrics) error

	// GetByWallet retrieves the latest metrics for a wallet. Returns
	// ErrNotFound if the wallet was never analyzed.
	GetByWallet(ctx context.Context, wallet string) (*domain.WalletPerformanceMetrics, error)

	// Leaderboard retrieves up to limit wallets ordered by net ROI
	// descending, ties broken by total P&L descending.
	Leaderboard(ctx context.Context, limit int) ([]*domain.WalletPerformanceMetrics, error)
}

// TradeArchive is the append-only history of per-run analysis artifacts.
// Rows are never updated; re-running a wallet appends a new generation.
type TradeArchive interface {
	// ArchiveTrades appends completed trades for a wallet.
	ArchiveTrades(ctx context.Context, trades []*domain.CompletedTrade) error

	// ArchiveSwaps appends enhanced swaps for a wallet.
	ArchiveSwaps(ctx context.Context, swaps []*domain.EnhancedSwap) error

	// TradesByWallet retrieves archived trades for a wallet, ordered by
	// exit time ascending.
	TradesByWallet(ctx context.Context, wallet string) ([]*domain.CompletedTrade, error)
}
