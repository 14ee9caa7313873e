// Package tokens holds the mint allow-list used to scope analysis to
// well-known tokens with reliable price history.
package tokens

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Well-known mint addresses.
const (
	MintSOL  = "So11111111111111111111111111111111111111112"
	MintUSDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	MintUSDT = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
	MintRAY  = "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R"
	MintBONK = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	MintJUP  = "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"
)

// Info describes one supported token.
type Info struct {
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// Registry is a read-mostly mint allow-list. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	mints map[string]Info
}

// NewRegistry returns a registry preloaded with the default token set.
func NewRegistry() *Registry {
	return &Registry{mints: map[string]Info{
		MintSOL:  {Symbol: "SOL", Decimals: 9},
		MintUSDC: {Symbol: "USDC", Decimals: 6},
		MintUSDT: {Symbol: "USDT", Decimals: 6},
		MintRAY:  {Symbol: "RAY", Decimals: 6},
		MintBONK: {Symbol: "BONK", Decimals: 5},
		MintJUP:  {Symbol: "JUP", Decimals: 6},
	}}
}

// NewEmptyRegistry returns a registry with no entries.
func NewEmptyRegistry() *Registry {
	return &Registry{mints: map[string]Info{}}
}

// Lookup returns the token info for mint and whether it is supported.
func (r *Registry) Lookup(mint string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.mints[mint]
	return info, ok
}

// Supported reports whether mint is in the allow-list.
func (r *Registry) Supported(mint string) bool {
	_, ok := r.Lookup(mint)
	return ok
}

// Add registers or overwrites a mint entry.
func (r *Registry) Add(mint string, info Info) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mints[mint] = info
}

// Mints returns all supported mint addresses in stable order.
func (r *Registry) Mints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.mints))
	for mint := range r.mints {
		out = append(out, mint)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered mints.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.mints)
}

// LoadFile merges entries from a JSON file shaped as
/// {"<mint>": {"symbol": "X", "decimals": 6}, ...} into the registry.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read token registry: %w", err)
	}
	var entries map[string]Info
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse token registry: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for mint, info := range entries {
		if info.Symbol == "" || info.Decimals < 0 {
			return fmt.Errorf("token registry entry %s: missing symbol or bad decimals", mint)
		}
		r.mints[mint] = info
	}
	return nil
}
