package domain

import "time"

// Analysis status constants.
const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// AnalysisConfig carries optional per-run filters and limits. Zero values
// mean "no filter"; defaults for limits are applied by the analyzer.
type AnalysisConfig struct {
	StartTime        int64 // Unix seconds, 0 = unbounded
	EndTime          int64 // Unix seconds, 0 = unbounded
	MaxTransactions  int   // signature fetch cap, 0 = analyzer default
	MinTradeValueUsd float64
	IncludeTokens    []string // mint allow filter, empty = all registry tokens
	ExcludeTokens    []string // mint deny filter
	MinTrades        int      // completed-status threshold, 0 = analyzer default
	Timeout          time.Duration
}

// WalletAnalysisResult is the terminal outcome of one wallet's pipeline run.
// Every run produces exactly one result; failures are carried inside it.
type WalletAnalysisResult struct {
	WalletAddress string
	Status        string // completed | partial | failed

	Metrics       *WalletPerformanceMetrics // nil when Status == failed
	Swaps         []*EnhancedSwap
	Trades        []*CompletedTrade
	OpenPositions []*TokenPosition

	TransactionsFetched int
	SwapsParsed         int

	Errors   []*AnalysisError
	Warnings []string

	StartedAt time.Time
	Duration  time.Duration
}

// Failed reports whether the run produced no usable analytics.
func (r *WalletAnalysisResult) Failed() bool {
	return r.Status == StatusFailed
}

// BatchRequest describes one batch analysis job.
type BatchRequest struct {
	WalletAddresses []string
	Config          AnalysisConfig
	Priority        string // informational, recorded in the batch result
}

// BatchAnalysisResult aggregates the terminal results of a batch run.
// len(Results) always equals len(request.WalletAddresses).
type BatchAnalysisResult struct {
	Results []*WalletAnalysisResult

	Completed int
	Partial   int
	Failed    int

	Priority      string
	TotalDuration time.Duration
	AvgDuration   time.Duration
	StartedAt     time.Time
}
