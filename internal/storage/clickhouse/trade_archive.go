package clickhouse

import (
	"context"
	"fmt"

	"solana-wallet-analytics/internal/domain"
	"solana-wallet-analytics/internal/storage"
)

// TradeArchive implements storage.TradeArchive using ClickHouse.
type TradeArchive struct {
	conn *Conn
}

// NewTradeArchive creates a new TradeArchive.
func NewTradeArchive(conn *Conn) *TradeArchive {
	return &TradeArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeArchive = (*TradeArchive)(nil)

// ArchiveTrades appends completed trades to the archive. Re-analysis of the
// same wallet appends a new generation; readers take the latest.
func (a *TradeArchive) ArchiveTrades(ctx context.Context, trades []*domain.CompletedTrade) error {
	if len(trades) == 0 {
		return nil
	}
	for _, t := range trades {
		if t == nil || t.WalletAddress == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO trade_archive (
			wallet_address, mint, symbol,
			entry_time, entry_price_usd, entry_value_usd, entry_signature,
			exit_time, exit_price_usd, exit_value_usd, exit_signature,
			quantity, realized_pnl_usd, roi_percent, holding_days, zero_cost_basis
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare trade batch: %w", err)
	}

	for _, t := range trades {
		err = batch.Append(
			t.WalletAddress, t.Mint, t.Symbol,
			t.EntryTime, t.EntryPriceUsd, t.EntryValueUsd, t.EntrySignature,
			t.ExitTime, t.ExitPriceUsd, t.ExitValueUsd, t.ExitSignature,
			t.Quantity, t.RealizedPnlUsd, t.RoiPercent, t.HoldingDays, t.ZeroCostBasis,
		)
		if err != nil {
			return fmt.Errorf("append trade to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send trade batch: %w", err)
	}

	return nil
}

// ArchiveSwaps appends enhanced swaps to the archive.
func (a *TradeArchive) ArchiveSwaps(ctx context.Context, swaps []*domain.EnhancedSwap) error {
	if len(swaps) == 0 {
		return nil
	}
	for _, s := range swaps {
		if s == nil || s.WalletAddress == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO swap_archive (
			signature, wallet_address, block_time, slot,
			token_in_mint, token_in_symbol, token_in_amount,
			token_out_mint, token_out_symbol, token_out_amount,
			fee_lamports, pool_id, swap_type,
			token_in_price_usd, token_out_price_usd,
			token_in_value_usd, token_out_value_usd,
			realized_pnl_usd, slippage_percent, fee_usd
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare swap batch: %w", err)
	}

	for _, s := range swaps {
		err = batch.Append(
			s.Signature, s.WalletAddress, s.BlockTime, s.Slot,
			s.TokenIn.Mint, s.TokenIn.Symbol, s.TokenIn.Amount,
			s.TokenOut.Mint, s.TokenOut.Symbol, s.TokenOut.Amount,
			s.FeeLamports, s.PoolID, s.SwapType,
			s.TokenInPriceUsd, s.TokenOutPriceUsd,
			s.TokenInValueUsd, s.TokenOutValueUsd,
			s.RealizedPnlUsd, s.SlippagePercent, s.FeeUsd,
		)
		if err != nil {
			return fmt.Errorf("append swap to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send swap batch: %w", err)
	}

	return nil
}

// TradesByWallet retrieves archived trades for a wallet, exit time ascending.
func (a *TradeArchive) TradesByWallet(ctx context.Context, wallet string) ([]*domain.CompletedTrade, error) {
	query := `
		SELECT
			wallet_address, mint, symbol,
			entry_time, entry_price_usd, entry_value_usd, entry_signature,
			exit_time, exit_price_usd, exit_value_usd, exit_signature,
			quantity, realized_pnl_usd, roi_percent, holding_days, zero_cost_basis
		FROM trade_archive
		WHERE wallet_address = ?
		ORDER BY exit_time ASC
	`

	rows, err := a.conn.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("query trades by wallet: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanTrades scans multiple rows into a slice.
func scanTrades(rows chRows) ([]*domain.CompletedTrade, error) {
	var trades []*domain.CompletedTrade

	for rows.Next() {
		var t domain.CompletedTrade

		err := rows.Scan(
			&t.WalletAddress, &t.Mint, &t.Symbol,
			&t.EntryTime, &t.EntryPriceUsd, &t.EntryValueUsd, &t.EntrySignature,
			&t.ExitTime, &t.ExitPriceUsd, &t.ExitValueUsd, &t.ExitSignature,
			&t.Quantity, &t.RealizedPnlUsd, &t.RoiPercent, &t.HoldingDays, &t.ZeroCostBasis,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}

		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
