package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-wallet-analytics/internal/domain"
	"solana-wallet-analytics/internal/storage"
)

func archivedTrade(wallet, mint string, exitTime int64, pnl float64) *domain.CompletedTrade {
	return &domain.CompletedTrade{
		WalletAddress:  wallet,
		Mint:           mint,
		Symbol:         "TEST",
		EntryTime:      exitTime - 86400,
		EntryPriceUsd:  1.0,
		EntryValueUsd:  100,
		EntrySignature: "entry-sig",
		ExitTime:       exitTime,
		ExitPriceUsd:   1.2,
		ExitValueUsd:   100 + pnl,
		ExitSignature:  "exit-sig",
		Quantity:       100,
		RealizedPnlUsd: pnl,
		RoiPercent:     pnl,
		HoldingDays:    1.0,
	}
}

func TestTradeArchive_ArchiveAndFetch(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	archive := NewTradeArchive(conn)

	err := archive.ArchiveTrades(ctx, []*domain.CompletedTrade{
		archivedTrade("w1", "m1", 2000, 20),
		archivedTrade("w1", "m1", 1000, -5),
		archivedTrade("w2", "m2", 1500, 3),
	})
	require.NoError(t, err)

	trades, err := archive.TradesByWallet(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, int64(1000), trades[0].ExitTime)
	assert.Equal(t, int64(2000), trades[1].ExitTime)
	assert.InDelta(t, -5.0, trades[0].RealizedPnlUsd, 0.0001)
	assert.InDelta(t, 20.0, trades[1].RealizedPnlUsd, 0.0001)
	assert.Equal(t, "m1", trades[0].Mint)
	assert.Equal(t, "entry-sig", trades[0].EntrySignature)
	assert.False(t, trades[0].ZeroCostBasis)
}

func TestTradeArchive_ZeroCostBasisRoundTrip(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	archive := NewTradeArchive(conn)

	short := archivedTrade("w1", "m1", 1000, 60)
	short.ZeroCostBasis = true
	short.EntryValueUsd = 0
	require.NoError(t, archive.ArchiveTrades(ctx, []*domain.CompletedTrade{short}))

	trades, err := archive.TradesByWallet(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].ZeroCostBasis)
	assert.InDelta(t, 0.0, trades[0].EntryValueUsd, 0.0001)
}

func TestTradeArchive_ArchiveSwaps(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	archive := NewTradeArchive(conn)

	swaps := []*domain.EnhancedSwap{
		{
			Swap: domain.Swap{
				Signature:     "sig-1",
				WalletAddress: "w1",
				BlockTime:     1700000000,
				Slot:          250000000,
				TokenIn:       domain.TokenAmount{Mint: "usdc", Symbol: "USDC", Amount: 1000},
				TokenOut:      domain.TokenAmount{Mint: "sol", Symbol: "SOL", Amount: 10},
				FeeLamports:   5000,
				PoolID:        "pool-1",
				SwapType:      domain.SwapTypeBaseIn,
			},
			TokenInPriceUsd:  1.0,
			TokenOutPriceUsd: 100.0,
			TokenInValueUsd:  1000,
			TokenOutValueUsd: 1000,
			FeeUsd:           0.0005,
		},
	}
	require.NoError(t, archive.ArchiveSwaps(ctx, swaps))

	var count uint64
	err := conn.QueryRow(ctx, `SELECT count(*) FROM swap_archive WHERE wallet_address = ?`, "w1").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestTradeArchive_RejectsInvalid(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	archive := NewTradeArchive(conn)

	assert.ErrorIs(t, archive.ArchiveTrades(ctx, []*domain.CompletedTrade{{}}), storage.ErrInvalidInput)
	assert.ErrorIs(t, archive.ArchiveSwaps(ctx, []*domain.EnhancedSwap{{}}), storage.ErrInvalidInput)
}

func TestTradeArchive_EmptyWallet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	archive := NewTradeArchive(conn)

	trades, err := archive.TradesByWallet(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Empty(t, trades)
}
