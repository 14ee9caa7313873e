// Package memory provides in-memory storage implementations used by tests
// and as the default when no DSN is configured.
package memory

import (
	"context"
	"sort"
	"sync"

	"solana-wallet-analytics/internal/domain"
	"solana-wallet-analytics/internal/storage"
)

// MetricsStore is an in-memory implementation of storage.MetricsStore.
type MetricsStore struct {
	mu   sync.RWMutex
	data map[string]*domain.WalletPerformanceMetrics // keyed by wallet address
}

// NewMetricsStore creates an empty in-memory metrics store.
func NewMetricsStore() *MetricsStore {
	return &MetricsStore{
		data: make(map[string]*domain.WalletPerformanceMetrics),
	}
}

var _ storage.MetricsStore = (*MetricsStore)(nil)

// Upsert stores the metrics for a wallet, replacing any previous run.
func (s *MetricsStore) Upsert(_ context.Context, m *domain.WalletPerformanceMetrics) error {
	if m == nil || m.WalletAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *m
	s.data[m.WalletAddress] = &copy
	return nil
}

// GetByWallet retrieves the latest metrics for a wallet.
func (s *MetricsStore) GetByWallet(_ context.Context, wallet string) (*domain.WalletPerformanceMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.data[wallet]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *m
	return &copy, nil
}

// Leaderboard retrieves up to limit wallets by net ROI descending.
func (s *MetricsStore) Leaderboard(_ context.Context, limit int) ([]*domain.WalletPerformanceMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.WalletPerformanceMetrics, 0, len(s.data))
	for _, m := range s.data {
		copy := *m
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].NetRoiPercent != result[j].NetRoiPercent {
			return result[i].NetRoiPercent > result[j].NetRoiPercent
		}
		return result[i].TotalPnlUsd > result[j].TotalPnlUsd
	})

	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}
