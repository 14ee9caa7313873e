package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Wallet Performance Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Batch Summary
	sb.WriteString("## Batch Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Wallets | %d |\n", r.Summary.Wallets))
	sb.WriteString(fmt.Sprintf("| Completed | %d |\n", r.Summary.Completed))
	sb.WriteString(fmt.Sprintf("| Partial | %d |\n", r.Summary.Partial))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", r.Summary.Failed))
	sb.WriteString(fmt.Sprintf("| Total Duration | %s |\n", r.Summary.TotalDuration))
	sb.WriteString(fmt.Sprintf("| Avg Duration | %s |\n", r.Summary.AvgDuration))
	sb.WriteString("\n")

	// Leaderboard
	sb.WriteString("## Leaderboard\n\n")
	if len(r.Leaderboard) > 0 {
		sb.WriteString("| Rank | Wallet | NetROI% | PnL USD | MaxDD% | Sharpe | WinRate | Trades | Confidence | Tier |\n")
		sb.WriteString("|------|--------|---------|---------|--------|--------|---------|--------|------------|------|\n")
		for _, row := range r.Leaderboard {
			sb.WriteString(fmt.Sprintf("| %d | %s | %.2f | %.2f | %.2f | %.2f | %.4f | %d | %.1f | %s |\n",
				row.Rank, row.WalletAddress,
				row.NetRoiPercent, row.TotalPnlUsd, row.MaxDrawdownPct, row.SharpeRatio,
				row.WinRate, row.TotalTrades, row.ConfidenceScore, row.QualityTier))
		}
	} else {
		sb.WriteString("No wallet metrics available.\n")
	}
	sb.WriteString("\n")

	// Per-wallet detail
	sb.WriteString("## Wallet Runs\n\n")
	if len(r.Wallets) > 0 {
		sb.WriteString("| Wallet | Status | Trades | Open Positions | Errors | Duration |\n")
		sb.WriteString("|--------|--------|--------|----------------|--------|----------|\n")
		for _, w := range r.Wallets {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %s |\n",
				w.WalletAddress, w.Status, w.Trades, w.OpenPositions, w.ErrorCount, w.Duration))
		}
		sb.WriteString("\n")

		for _, w := range r.Wallets {
			if len(w.Warnings) == 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf("### Warnings: %s\n\n", w.WalletAddress))
			for _, warning := range w.Warnings {
				sb.WriteString(fmt.Sprintf("- %s\n", warning))
			}
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("No wallet runs in this batch.\n\n")
	}

	return sb.String()
}
