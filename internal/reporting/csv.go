package reporting

import (
	"fmt"
	"strings"

	"solana-wallet-analytics/internal/domain"
)

// RenderMetricsCSV renders leaderboard rows as CSV string.
func RenderMetricsCSV(rows []WalletMetricRow) string {
	var sb strings.Builder

	sb.WriteString("rank,wallet_address,net_roi_percent,total_pnl_usd,max_drawdown_percent,")
	sb.WriteString("sharpe_ratio,win_rate,total_trades,confidence_score,quality_tier\n")

	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("%d,%s,%.6f,%.6f,%.6f,%.6f,%.6f,%d,%.2f,%s\n",
			row.Rank,
			row.WalletAddress,
			row.NetRoiPercent,
			row.TotalPnlUsd,
			row.MaxDrawdownPct,
			row.SharpeRatio,
			row.WinRate,
			row.TotalTrades,
			row.ConfidenceScore,
			row.QualityTier,
		))
	}

	return sb.String()
}

// RenderTradesCSV renders completed trades as CSV string.
func RenderTradesCSV(trades []*domain.CompletedTrade) string {
	var sb strings.Builder

	sb.WriteString("wallet_address,mint,symbol,entry_time,entry_price_usd,entry_value_usd,")
	sb.WriteString("exit_time,exit_price_usd,exit_value_usd,quantity,realized_pnl_usd,")
	sb.WriteString("roi_percent,holding_days,zero_cost_basis\n")

	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%.8f,%.6f,%d,%.8f,%.6f,%.6f,%.6f,%.4f,%.4f,%t\n",
			t.WalletAddress,
			t.Mint,
			t.Symbol,
			t.EntryTime,
			t.EntryPriceUsd,
			t.EntryValueUsd,
			t.ExitTime,
			t.ExitPriceUsd,
			t.ExitValueUsd,
			t.Quantity,
			t.RealizedPnlUsd,
			t.RoiPercent,
			t.HoldingDays,
			t.ZeroCostBasis,
		))
	}

	return sb.String()
}
