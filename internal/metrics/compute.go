// Package metrics derives wallet performance analytics from one analysis
// window's completed trades, enhanced swaps, and open positions. All
// functions are pure: no I/O, no clock reads, deterministic for a given
// input.
package metrics

import (
	"math"
	"sort"
	"time"

	"solana-wallet-analytics/internal/domain"
)

const (
	secondsPerDay = 86400
	// Crypto markets trade every day, but 252 is the industry convention
	// for annualizing a daily Sharpe and keeps scores comparable with
	// equity benchmarks.
	tradingDaysPerYear = 252
)

// Config carries the per-run inputs that are not derivable from the trade
// set itself.
type Config struct {
	// AnnualRiskFreeRate is de-annualized with compound-interest
	// inversion before entering the Sharpe calculation.
	AnnualRiskFreeRate float64

	// PriceCoverage is the fraction of parsed swaps whose legs were both
	// priced, reported by the ledger stage. Feeds the confidence score.
	PriceCoverage float64

	Scoring ScoringConfig
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		AnnualRiskFreeRate: 0.05,
		PriceCoverage:      1.0,
		Scoring:            DefaultScoringConfig(),
	}
}

// Compute calculates the full metric set for one wallet over one window.
// A nil or empty trade slice yields zeroed metrics rather than an error so
// thin wallets still produce a rankable result.
func Compute(wallet string, swaps []*domain.EnhancedSwap, trades []*domain.CompletedTrade, positions []*domain.TokenPosition, windowStart, windowEnd int64, cfg Config) *domain.WalletPerformanceMetrics {
	m := &domain.WalletPerformanceMetrics{
		WalletAddress:     wallet,
		WindowStart:       windowStart,
		WindowEnd:         windowEnd,
		TotalTrades:       len(trades),
		OpenPositionCount: len(positions),
		PriceCoverage:     cfg.PriceCoverage,
	}

	// Order-dependent metrics need exit-time order; sort a copy so the
	// caller's slice is untouched.
	sorted := make([]*domain.CompletedTrade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ExitTime < sorted[j].ExitTime
	})

	var realizedPnl, realizedCost float64
	for _, t := range sorted {
		realizedPnl += t.RealizedPnlUsd
		realizedCost += t.EntryValueUsd
	}

	marks := lastObservedPrices(swaps)
	var unrealizedPnl, unrealizedCost float64
	for _, pos := range positions {
		unrealizedCost += pos.TotalCostBasisUsd
		if price, ok := marks[pos.Mint]; ok {
			unrealizedPnl += pos.UnrealizedPnlUsd(price)
		}
	}

	m.RealizedPnlUsd = realizedPnl
	m.UnrealizedPnlUsd = unrealizedPnl
	m.TotalPnlUsd = realizedPnl + unrealizedPnl

	totalCost := realizedCost + unrealizedCost
	if totalCost > domain.AmountEpsilon {
		m.NetRoiPercent = m.TotalPnlUsd / totalCost * 100
	}

	m.MaxDrawdownPercent = maxDrawdownPercent(sorted)
	m.SharpeRatio = annualizedSharpe(sorted, cfg.AnnualRiskFreeRate)

	fillTradeStats(m, sorted)
	fillSwapStats(m, swaps)
	fillMonths(m, sorted)

	if m.MaxDrawdownPercent > 0 {
		m.CalmarRatio = annualizedReturnPercent(m.NetRoiPercent, windowStart, windowEnd) / m.MaxDrawdownPercent
	}

	m.ConfidenceScore, m.QualityTier = confidence(sorted, len(swaps), cfg.PriceCoverage, cfg.Scoring)
	return m
}

// lastObservedPrices extracts the most recent USD price seen for each mint
// across both legs of the swap stream. Open positions are marked at these
// prices; a mint never priced in the window contributes zero unrealized P&L.
func lastObservedPrices(swaps []*domain.EnhancedSwap) map[string]float64 {
	marks := make(map[string]float64, len(swaps))
	seen := make(map[string]int64, len(swaps))
	for _, s := range swaps {
		if s.BlockTime >= seen[s.TokenIn.Mint] {
			marks[s.TokenIn.Mint] = s.TokenInPriceUsd
			seen[s.TokenIn.Mint] = s.BlockTime
		}
		if s.BlockTime >= seen[s.TokenOut.Mint] {
			marks[s.TokenOut.Mint] = s.TokenOutPriceUsd
			seen[s.TokenOut.Mint] = s.BlockTime
		}
	}
	return marks
}

// maxDrawdownPercent walks the cumulative realized P&L curve in exit order
// and reports the worst peak-to-trough decline as a percentage of the
// largest peak. A curve that never rises above zero has no drawdown.
func maxDrawdownPercent(sorted []*domain.CompletedTrade) float64 {
	var cumulative, peak, maxDrawdown float64
	for _, t := range sorted {
		cumulative += t.RealizedPnlUsd
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	if peak <= 0 {
		return 0
	}
	return maxDrawdown / peak * 100
}

// annualizedSharpe buckets trades by exit calendar day, computes daily
// returns on invested capital, and annualizes the daily Sharpe by √252.
// Fewer than two distinct trading days with non-zero investment yields 0.
func annualizedSharpe(sorted []*domain.CompletedTrade, annualRf float64) float64 {
	type dayBucket struct {
		pnl  float64
		cost float64
	}
	buckets := make(map[int64]*dayBucket)
	for _, t := range sorted {
		day := t.ExitTime / secondsPerDay
		b, ok := buckets[day]
		if !ok {
			b = &dayBucket{}
			buckets[day] = b
		}
		b.pnl += t.RealizedPnlUsd
		b.cost += t.EntryValueUsd
	}

	var returns []float64
	for _, b := range buckets {
		if b.cost > domain.AmountEpsilon {
			returns = append(returns, b.pnl/b.cost)
		}
	}
	if len(returns) < 2 {
		return 0
	}

	dailyRf := math.Pow(1+annualRf, 1.0/365.0) - 1

	mean := computeMean(returns)
	stddev := computeStddev(returns, mean)
	if stddev == 0 {
		return 0
	}
	return (mean - dailyRf) / stddev * math.Sqrt(tradingDaysPerYear)
}

func fillTradeStats(m *domain.WalletPerformanceMetrics, sorted []*domain.CompletedTrade) {
	n := len(sorted)
	if n == 0 {
		return
	}

	var grossWins, grossLosses float64
	var sumExitValue, sumHold float64
	var winStreak, lossStreak int
	var curWinRun, curLossRun int
	rois := make([]float64, 0, n)
	pnls := make([]float64, 0, n)

	for _, t := range sorted {
		pnl := t.RealizedPnlUsd
		pnls = append(pnls, pnl)
		rois = append(rois, t.RoiPercent)
		sumExitValue += t.ExitValueUsd
		sumHold += t.HoldingDays

		switch {
		case pnl > 0:
			m.WinningTrades++
			grossWins += pnl
			if pnl > m.LargestWinUsd {
				m.LargestWinUsd = pnl
			}
			curWinRun++
			curLossRun = 0
		case pnl < 0:
			m.LosingTrades++
			grossLosses += -pnl
			if pnl < m.LargestLossUsd {
				m.LargestLossUsd = pnl
			}
			curLossRun++
			curWinRun = 0
		default:
			curWinRun = 0
			curLossRun = 0
		}
		if curWinRun > winStreak {
			winStreak = curWinRun
		}
		if curLossRun > lossStreak {
			lossStreak = curLossRun
		}
	}

	m.AvgTradeSizeUsd = sumExitValue / float64(n)
	m.AvgHoldingDays = sumHold / float64(n)
	m.WinRate = float64(m.WinningTrades) / float64(n)
	m.LongestWinStreak = winStreak
	m.LongestLossStreak = lossStreak

	switch {
	case m.LosingTrades > 0:
		m.WinLossRatio = float64(m.WinningTrades) / float64(m.LosingTrades)
	case m.WinningTrades > 0:
		m.WinLossRatio = domain.WinLossRatioCap
	}

	switch {
	case grossLosses > 0:
		m.ProfitFactor = grossWins / grossLosses
	case grossWins > 0:
		m.ProfitFactor = domain.WinLossRatioCap
	}

	m.VolatilityPercent = computeStddev(rois, computeMean(rois))

	sort.Float64s(pnls)
	m.ValueAtRisk5Usd = computePercentile(pnls, 0.05)
}

func fillSwapStats(m *domain.WalletPerformanceMetrics, swaps []*domain.EnhancedSwap) {
	for _, s := range swaps {
		m.TotalVolumeUsd += s.TokenInValueUsd
		m.TotalFeesUsd += s.FeeUsd
	}
}

// fillMonths buckets realized P&L by exit calendar month (UTC) and records
// the best and worst months.
func fillMonths(m *domain.WalletPerformanceMetrics, sorted []*domain.CompletedTrade) {
	if len(sorted) == 0 {
		return
	}

	months := make(map[string]float64)
	for _, t := range sorted {
		key := time.Unix(t.ExitTime, 0).UTC().Format("2006-01")
		months[key] += t.RealizedPnlUsd
	}

	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	first := true
	for _, k := range keys {
		pnl := months[k]
		if first || pnl > m.BestMonthPnlUsd {
			m.BestMonth = k
			m.BestMonthPnlUsd = pnl
		}
		if first || pnl < m.WorstMonthPnlUsd {
			m.WorstMonth = k
			m.WorstMonthPnlUsd = pnl
		}
		first = false
	}
}

// annualizedReturnPercent linearly scales the window ROI to a 365-day
// horizon for the Calmar numerator. Windows shorter than a day are clamped
// to one day to keep the scaling bounded.
func annualizedReturnPercent(netRoiPercent float64, windowStart, windowEnd int64) float64 {
	days := float64(windowEnd-windowStart) / secondsPerDay
	if days < 1 {
		days = 1
	}
	return netRoiPercent * 365 / days
}

// computeMean calculates the arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates the sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation over a pre-sorted slice.
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
