// Package reporting renders batch analysis results as Markdown and CSV.
package reporting

import "time"

// Report is the renderable summary of one batch analysis run.
type Report struct {
	GeneratedAt time.Time

	Summary     BatchSummary
	Leaderboard []WalletMetricRow
	Wallets     []WalletSection
}

// BatchSummary aggregates terminal statuses across the batch.
type BatchSummary struct {
	Wallets       int
	Completed     int
	Partial       int
	Failed        int
	TotalDuration time.Duration
	AvgDuration   time.Duration
}

// WalletMetricRow is one leaderboard entry.
type WalletMetricRow struct {
	Rank            int
	WalletAddress   string
	NetRoiPercent   float64
	TotalPnlUsd     float64
	MaxDrawdownPct  float64
	SharpeRatio     float64
	WinRate         float64
	TotalTrades     int
	ConfidenceScore float64
	QualityTier     string
}

// WalletSection carries the per-wallet detail rendered below the leaderboard.
type WalletSection struct {
	WalletAddress string
	Status        string
	Trades        int
	OpenPositions int
	ErrorCount    int
	Warnings      []string
	Duration      time.Duration
}
