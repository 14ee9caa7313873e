package metrics

import (
	"solana-wallet-analytics/internal/domain"
)

// ScoringConfig holds the tunable thresholds and weights behind the
// confidence score. Weights should sum to 100; targets are the activity
// levels at which a component earns its full weight.
type ScoringConfig struct {
	SwapVolumeTarget   int     // swaps in window for full volume credit
	TradeCountTarget   int     // completed trades for full trade credit
	TimeSpanTargetDays float64 // trading span for full coverage credit

	WeightVolume      float64
	WeightCoverage    float64 // price-data completeness
	WeightTrades      float64
	WeightTimeSpan    float64
	WeightConsistency float64

	// Tier boundaries on the 0-100 score, inclusive lower bounds.
	ExcellentThreshold float64
	GoodThreshold      float64
	FairThreshold      float64
}

// DefaultScoringConfig returns the production thresholds.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		SwapVolumeTarget:   50,
		TradeCountTarget:   20,
		TimeSpanTargetDays: 30,

		WeightVolume:      20,
		WeightCoverage:    30,
		WeightTrades:      20,
		WeightTimeSpan:    15,
		WeightConsistency: 15,

		ExcellentThreshold: 80,
		GoodThreshold:      60,
		FairThreshold:      40,
	}
}

// confidence scores how much the computed metrics can be trusted. Each
// component earns a fraction of its weight, capped at the full weight.
// Trades must be sorted by exit time.
func confidence(sorted []*domain.CompletedTrade, swapCount int, priceCoverage float64, cfg ScoringConfig) (float64, string) {
	score := 0.0

	if cfg.SwapVolumeTarget > 0 {
		score += capRatio(float64(swapCount)/float64(cfg.SwapVolumeTarget)) * cfg.WeightVolume
	}

	score += capRatio(priceCoverage) * cfg.WeightCoverage

	if cfg.TradeCountTarget > 0 {
		score += capRatio(float64(len(sorted))/float64(cfg.TradeCountTarget)) * cfg.WeightTrades
	}

	if cfg.TimeSpanTargetDays > 0 && len(sorted) > 0 {
		spanDays := float64(sorted[len(sorted)-1].ExitTime-sorted[0].EntryTime) / secondsPerDay
		score += capRatio(spanDays/cfg.TimeSpanTargetDays) * cfg.WeightTimeSpan
	}

	score += consistencyRatio(sorted) * cfg.WeightConsistency

	if score > 100 {
		score = 100
	}
	return score, tierFor(score, cfg)
}

// consistencyRatio measures internal data quality as the fraction of trades
// with a known cost basis. Zero-cost-basis fallbacks mean the entry side of
// the trade was never observed, so their P&L is an estimate.
func consistencyRatio(sorted []*domain.CompletedTrade) float64 {
	if len(sorted) == 0 {
		return 0
	}
	known := 0
	for _, t := range sorted {
		if !t.ZeroCostBasis {
			known++
		}
	}
	return float64(known) / float64(len(sorted))
}

func capRatio(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

func tierFor(score float64, cfg ScoringConfig) string {
	switch {
	case score >= cfg.ExcellentThreshold:
		return domain.QualityExcellent
	case score >= cfg.GoodThreshold:
		return domain.QualityGood
	case score >= cfg.FairThreshold:
		return domain.QualityFair
	default:
		return domain.QualityPoor
	}
}
