// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Analysis metrics
	WalletsAnalyzed  *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	BatchesRun       prometheus.Counter
	BatchWallets     prometheus.Histogram

	// Parser metrics
	SwapsParsed   prometheus.Counter
	SwapsRejected *prometheus.CounterVec
	TxsFetched    prometheus.Counter
	TxFetchErrors prometheus.Counter

	// Ledger metrics
	TradesCompleted    prometheus.Counter
	ShortSaleFallbacks prometheus.Counter
	SwapsSkipped       *prometheus.CounterVec

	// Price metrics
	PriceLookups *prometheus.CounterVec

	// Storage metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "wallet_analytics"
	}

	return &Metrics{
		// Analysis metrics
		WalletsAnalyzed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "wallets_analyzed_total",
			Help:      "Total number of wallet analyses by terminal status",
		}, []string{"status"}),
		AnalysisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "analysis_duration_seconds",
			Help:      "Single wallet pipeline duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		BatchesRun: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "batches_run_total",
			Help:      "Total number of batch analysis runs",
		}),
		BatchWallets: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "batch_wallets",
			Help:      "Number of wallets per batch run",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),

		// Parser metrics
		SwapsParsed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "swaps_parsed_total",
			Help:      "Total number of swaps successfully parsed",
		}),
		SwapsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "swaps_rejected_total",
			Help:      "Total number of transactions rejected by reason",
		}, []string{"reason"}),
		TxsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "transactions_fetched_total",
			Help:      "Total number of transaction bodies fetched",
		}),
		TxFetchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "transaction_fetch_errors_total",
			Help:      "Total number of transaction fetch failures",
		}),

		// Ledger metrics
		TradesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "trades_completed_total",
			Help:      "Total number of completed trades emitted",
		}),
		ShortSaleFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "short_sale_fallbacks_total",
			Help:      "Sales exceeding tracked position, closed at zero cost basis",
		}),
		SwapsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "swaps_skipped_total",
			Help:      "Swaps excluded from P&L by reason",
		}, []string{"reason"}),

		// Price metrics
		PriceLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "lookups_total",
			Help:      "Total number of price lookups by outcome",
		}, []string{"outcome"}),

		// Storage metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordWalletAnalyzed records a terminal wallet analysis outcome.
func RecordWalletAnalyzed(status string, durationSeconds float64) {
	DefaultMetrics.WalletsAnalyzed.WithLabelValues(status).Inc()
	DefaultMetrics.AnalysisDuration.Observe(durationSeconds)
}

// RecordBatch records one batch run of n wallets.
func RecordBatch(n int) {
	DefaultMetrics.BatchesRun.Inc()
	DefaultMetrics.BatchWallets.Observe(float64(n))
}

// RecordSwapParsed increments the parsed swap counter.
func RecordSwapParsed() {
	DefaultMetrics.SwapsParsed.Inc()
}

// RecordSwapRejected records a parser rejection.
func RecordSwapRejected(reason string) {
	DefaultMetrics.SwapsRejected.WithLabelValues(reason).Inc()
}

// RecordTradeCompleted increments the completed trade counter.
func RecordTradeCompleted() {
	DefaultMetrics.TradesCompleted.Inc()
}

// RecordShortSaleFallback increments the zero-cost-basis fallback counter.
func RecordShortSaleFallback() {
	DefaultMetrics.ShortSaleFallbacks.Inc()
}

// RecordSwapSkipped records a swap excluded from P&L.
func RecordSwapSkipped(reason string) {
	DefaultMetrics.SwapsSkipped.WithLabelValues(reason).Inc()
}

// RecordPriceLookup records a price lookup outcome: hit, miss, or error.
func RecordPriceLookup(outcome string) {
	DefaultMetrics.PriceLookups.WithLabelValues(outcome).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
