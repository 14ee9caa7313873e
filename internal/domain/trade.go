package domain

// CompletedTrade records the full or partial close of a position against one
// specific purchase lot during one sale swap. A sale that consumes several
// lots emits one CompletedTrade per lot, oldest lot first. Immutable once
// created.
type CompletedTrade struct {
	WalletAddress string
	Mint          string
	Symbol        string

	// Entry (from the consumed lot)
	EntryTime      int64
	EntryPriceUsd  float64
	EntryValueUsd  float64
	EntrySignature string

	// Exit (from the sale swap)
	ExitTime      int64
	ExitPriceUsd  float64
	ExitValueUsd  float64
	ExitSignature string

	Quantity       float64
	RealizedPnlUsd float64
	RoiPercent     float64
	HoldingDays    float64

	// ZeroCostBasis marks the uncovered remainder of a short sale: the
	// wallet sold more than the ledger had tracked, so the excess carries
	// no entry cost and the entire proceeds count as realized gain.
	ZeroCostBasis bool
}

// Win reports whether the trade closed with positive realized P&L.
func (t *CompletedTrade) Win() bool {
	return t.RealizedPnlUsd > 0
}
