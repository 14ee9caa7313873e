package domain

// WinLossRatioCap is the sentinel returned when a wallet has wins and zero
// losses. The ratio is undefined at the upper bound; callers treat values at
// or above the cap as "no losing trades".
const WinLossRatioCap = 99999.0

// Data quality tiers, ordered best to worst.
const (
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityFair      = "fair"
	QualityPoor      = "poor"
)

// WalletPerformanceMetrics is the per-wallet analytics output for one
// analysis window. Recomputed from scratch on every run, never updated
// incrementally.
type WalletPerformanceMetrics struct {
	WalletAddress string
	WindowStart   int64 // Unix seconds, inclusive
	WindowEnd     int64 // Unix seconds, inclusive

	// Headline metrics
	NetRoiPercent      float64
	MaxDrawdownPercent float64
	SharpeRatio        float64 // annualized
	WinLossRatio       float64 // WinLossRatioCap when losses == 0 and wins > 0
	TotalTrades        int

	// P&L breakdown
	RealizedPnlUsd   float64
	UnrealizedPnlUsd float64
	TotalPnlUsd      float64

	// Supporting statistics
	TotalVolumeUsd     float64
	TotalFeesUsd       float64
	AvgTradeSizeUsd    float64
	AvgHoldingDays     float64
	WinRate            float64 // fraction of trades with positive P&L
	WinningTrades      int
	LosingTrades       int
	LargestWinUsd      float64
	LargestLossUsd     float64 // negative or zero
	ProfitFactor       float64
	VolatilityPercent  float64 // stdev of per-trade ROI
	ValueAtRisk5Usd    float64 // 5th percentile of per-trade P&L
	CalmarRatio        float64
	BestMonth          string // "2024-03" format
	BestMonthPnlUsd    float64
	WorstMonth         string
	WorstMonthPnlUsd   float64
	LongestWinStreak   int
	LongestLossStreak  int
	OpenPositionCount  int

	// Data quality
	ConfidenceScore float64 // 0-100
	QualityTier     string  // excellent | good | fair | poor
	PriceCoverage   float64 // fraction of swaps with both legs priced
}
