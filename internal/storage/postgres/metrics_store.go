package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-wallet-analytics/internal/domain"
	"solana-wallet-analytics/internal/observability"
	"solana-wallet-analytics/internal/storage"
)

// MetricsStore implements storage.MetricsStore using PostgreSQL. One row
// per wallet; re-analysis replaces the row.
type MetricsStore struct {
	pool *Pool
}

// NewMetricsStore creates a new MetricsStore.
func NewMetricsStore(pool *Pool) *MetricsStore {
	return &MetricsStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MetricsStore = (*MetricsStore)(nil)

const metricsColumns = `
	wallet_address, window_start, window_end,
	net_roi_percent, max_drawdown_percent, sharpe_ratio, win_loss_ratio, total_trades,
	realized_pnl_usd, unrealized_pnl_usd, total_pnl_usd,
	total_volume_usd, total_fees_usd, avg_trade_size_usd, avg_holding_days,
	win_rate, winning_trades, losing_trades, largest_win_usd, largest_loss_usd,
	profit_factor, volatility_percent, value_at_risk5_usd, calmar_ratio,
	best_month, best_month_pnl_usd, worst_month, worst_month_pnl_usd,
	longest_win_streak, longest_loss_streak, open_position_count,
	confidence_score, quality_tier, price_coverage`

// Upsert stores the metrics for a wallet, replacing any previous run.
func (s *MetricsStore) Upsert(ctx context.Context, m *domain.WalletPerformanceMetrics) error {
	if m == nil || m.WalletAddress == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO wallet_metrics (` + metricsColumns + `
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7, $8,
			$9, $10, $11,
			$12, $13, $14, $15,
			$16, $17, $18, $19, $20,
			$21, $22, $23, $24,
			$25, $26, $27, $28,
			$29, $30, $31,
			$32, $33, $34
		)
		ON CONFLICT (wallet_address) DO UPDATE SET
			window_start = EXCLUDED.window_start,
			window_end = EXCLUDED.window_end,
			net_roi_percent = EXCLUDED.net_roi_percent,
			max_drawdown_percent = EXCLUDED.max_drawdown_percent,
			sharpe_ratio = EXCLUDED.sharpe_ratio,
			win_loss_ratio = EXCLUDED.win_loss_ratio,
			total_trades = EXCLUDED.total_trades,
			realized_pnl_usd = EXCLUDED.realized_pnl_usd,
			unrealized_pnl_usd = EXCLUDED.unrealized_pnl_usd,
			total_pnl_usd = EXCLUDED.total_pnl_usd,
			total_volume_usd = EXCLUDED.total_volume_usd,
			total_fees_usd = EXCLUDED.total_fees_usd,
			avg_trade_size_usd = EXCLUDED.avg_trade_size_usd,
			avg_holding_days = EXCLUDED.avg_holding_days,
			win_rate = EXCLUDED.win_rate,
			winning_trades = EXCLUDED.winning_trades,
			losing_trades = EXCLUDED.losing_trades,
			largest_win_usd = EXCLUDED.largest_win_usd,
			largest_loss_usd = EXCLUDED.largest_loss_usd,
			profit_factor = EXCLUDED.profit_factor,
			volatility_percent = EXCLUDED.volatility_percent,
			value_at_risk5_usd = EXCLUDED.value_at_risk5_usd,
			calmar_ratio = EXCLUDED.calmar_ratio,
			best_month = EXCLUDED.best_month,
			best_month_pnl_usd = EXCLUDED.best_month_pnl_usd,
			worst_month = EXCLUDED.worst_month,
			worst_month_pnl_usd = EXCLUDED.worst_month_pnl_usd,
			longest_win_streak = EXCLUDED.longest_win_streak,
			longest_loss_streak = EXCLUDED.longest_loss_streak,
			open_position_count = EXCLUDED.open_position_count,
			confidence_score = EXCLUDED.confidence_score,
			quality_tier = EXCLUDED.quality_tier,
			price_coverage = EXCLUDED.price_coverage,
			updated_at = now()
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		m.WalletAddress, m.WindowStart, m.WindowEnd,
		m.NetRoiPercent, m.MaxDrawdownPercent, m.SharpeRatio, m.WinLossRatio, m.TotalTrades,
		m.RealizedPnlUsd, m.UnrealizedPnlUsd, m.TotalPnlUsd,
		m.TotalVolumeUsd, m.TotalFeesUsd, m.AvgTradeSizeUsd, m.AvgHoldingDays,
		m.WinRate, m.WinningTrades, m.LosingTrades, m.LargestWinUsd, m.LargestLossUsd,
		m.ProfitFactor, m.VolatilityPercent, m.ValueAtRisk5Usd, m.CalmarRatio,
		m.BestMonth, m.BestMonthPnlUsd, m.WorstMonth, m.WorstMonthPnlUsd,
		m.LongestWinStreak, m.LongestLossStreak, m.OpenPositionCount,
		m.ConfidenceScore, m.QualityTier, m.PriceCoverage,
	)
	observability.RecordDBQuery("postgres", "upsert_metrics", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("upsert wallet metrics: %w", err)
	}
	return nil
}

// GetByWallet retrieves the latest metrics for a wallet.
func (s *MetricsStore) GetByWallet(ctx context.Context, wallet string) (*domain.WalletPerformanceMetrics, error) {
	query := `SELECT ` + metricsColumns + ` FROM wallet_metrics WHERE wallet_address = $1`

	start := time.Now()
	row := s.pool.QueryRow(ctx, query, wallet)
	m, err := scanMetrics(row)
	observability.RecordDBQuery("postgres", "get_metrics", time.Since(start).Seconds(), err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get wallet metrics: %w", err)
	}
	return m, nil
}

// Leaderboard retrieves up to limit wallets by net ROI descending.
func (s *MetricsStore) Leaderboard(ctx context.Context, limit int) ([]*domain.WalletPerformanceMetrics, error) {
	query := `
		SELECT ` + metricsColumns + `
		FROM wallet_metrics
		ORDER BY net_roi_percent DESC, total_pnl_usd DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, args...)
	observability.RecordDBQuery("postgres", "leaderboard", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var result []*domain.WalletPerformanceMetrics
	for rows.Next() {
		m, err := scanMetrics(rows)
		if err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard rows: %w", err)
	}
	return result, nil
}

// scanMetrics scans one row in metricsColumns order.
func scanMetrics(row pgx.Row) (*domain.WalletPerformanceMetrics, error) {
	var m domain.WalletPerformanceMetrics

	err := row.Scan(
		&m.WalletAddress, &m.WindowStart, &m.WindowEnd,
		&m.NetRoiPercent, &m.MaxDrawdownPercent, &m.SharpeRatio, &m.WinLossRatio, &m.TotalTrades,
		&m.RealizedPnlUsd, &m.UnrealizedPnlUsd, &m.TotalPnlUsd,
		&m.TotalVolumeUsd, &m.TotalFeesUsd, &m.AvgTradeSizeUsd, &m.AvgHoldingDays,
		&m.WinRate, &m.WinningTrades, &m.LosingTrades, &m.LargestWinUsd, &m.LargestLossUsd,
		&m.ProfitFactor, &m.VolatilityPercent, &m.ValueAtRisk5Usd, &m.CalmarRatio,
		&m.BestMonth, &m.BestMonthPnlUsd, &m.WorstMonth, &m.WorstMonthPnlUsd,
		&m.LongestWinStreak, &m.LongestLossStreak, &m.OpenPositionCount,
		&m.ConfidenceScore, &m.QualityTier, &m.PriceCoverage,
	)
	if err != nil {
		return nil, err
	}

	return &m, nil
}
