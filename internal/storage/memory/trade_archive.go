package memory

import (
	"context"
	"sort"
	"sync"

	"solana-wallet-analytics/internal/domain"
	"solana-wallet-analytics/internal/storage"
)

// TradeArchive is an in-memory implementation of storage.TradeArchive.
type TradeArchive struct {
	mu     sync.RWMutex
	trades []*domain.CompletedTrade
	swaps  []*domain.EnhancedSwap
}

// NewTradeArchive creates an empty in-memory archive.
func NewTradeArchive() *TradeArchive {
	return &TradeArchive{}
}

var _ storage.TradeArchive = (*TradeArchive)(nil)

// ArchiveTrades appends completed trades to the archive.
func (a *TradeArchive) ArchiveTrades(_ context.Context, trades []*domain.CompletedTrade) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, t := range trades {
		if t == nil || t.WalletAddress == "" {
			return storage.ErrInvalidInput
		}
		copy := *t
		a.trades = append(a.trades, &copy)
	}
	return nil
}

// ArchiveSwaps appends enhanced swaps to the archive.
func (a *TradeArchive) ArchiveSwaps(_ context.Context, swaps []*domain.EnhancedSwap) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range swaps {
		if s == nil || s.WalletAddress == "" {
			return storage.ErrInvalidInput
		}
		copy := *s
		a.swaps = append(a.swaps, &copy)
	}
	return nil
}

// TradesByWallet retrieves archived trades for a wallet, exit time ascending.
func (a *TradeArchive) TradesByWallet(_ context.Context, wallet string) ([]*domain.CompletedTrade, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var result []*domain.CompletedTrade
	for _, t := range a.trades {
		if t.WalletAddress == wallet {
			copy := *t
			result = append(result, &copy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ExitTime < result[j].ExitTime
	})
	return result, nil
}

// SwapCount reports the number of archived swaps, used by tests and the
// batch summary.
func (a *TradeArchive) SwapCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.swaps)
}
