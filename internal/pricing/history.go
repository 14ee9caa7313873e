package pricing

import (
	"context"
	"sort"
	"sync"
)

// PricePoint is one observed price for a mint.
type PricePoint struct {
	Timestamp int64 // Unix seconds
	PriceUsd  float64
}

// History is an in-memory as-of-timestamp price series per mint. Used as
// the fixture source in tests and CLI runs, and as a preloaded backing
// store in front of slower sources.
type History struct {
	mu     sync.RWMutex
	series map[string][]PricePoint // sorted by Timestamp ascending
}

var _ Source = (*History)(nil)

// NewHistory creates an empty price history.
func NewHistory() *History {
	return &History{series: make(map[string][]PricePoint)}
}

// Add inserts one price observation, keeping the series sorted.
func (h *History) Add(mint string, ts int64, price float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.series[mint]
	s = append(s, PricePoint{Timestamp: ts, PriceUsd: price})
	sort.Slice(s, func(i, j int) bool { return s[i].Timestamp < s[j].Timestamp })
	h.series[mint] = s
}

// SetSeries replaces the full series for a mint.
func (h *History) SetSeries(mint string, points []PricePoint) {
	sorted := make([]PricePoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	h.mu.Lock()
	defer h.mu.Unlock()
	h.series[mint] = sorted
}

// PriceAt returns the closest price at or before unixTime. When every
// observation is newer than unixTime the first available price is used as
// an approximation. Returns ErrUnavailable for mints with no data.
func (h *History) PriceAt(_ context.Context, mint string, unixTime int64) (float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s := h.series[mint]
	if len(s) == 0 {
		return 0, ErrUnavailable
	}

	// Binary search for the first point after unixTime.
	i := sort.Search(len(s), func(i int) bool { return s[i].Timestamp > unixTime })
	if i == 0 {
		return s[0].PriceUsd, nil
	}
	return s[i-1].PriceUsd, nil
}
