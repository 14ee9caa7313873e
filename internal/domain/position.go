package domain

// AmountEpsilon is the tolerance used for "is this lot/position empty"
// checks. Floating accumulation across partial lot consumption leaves
// residues; exact zero comparison would strand dust positions forever.
const AmountEpsilon = 1e-9

// PurchaseLot is an open, partially consumable unit of cost basis for one
// token. Lots are kept in acquisition order; disposals consume oldest first.
type PurchaseLot struct {
	Amount       float64 // remaining amount, non-increasing
	CostBasisUsd float64 // USD cost basis for the remaining amount
	AcquiredAt   int64   // Unix timestamp in seconds
	Signature    string  // originating swap signature
}

// UnitCostUsd returns the per-unit cost basis of the lot.
func (l *PurchaseLot) UnitCostUsd() float64 {
	if l.Amount <= AmountEpsilon {
		return 0
	}
	return l.CostBasisUsd / l.Amount
}

// TokenPosition aggregates all open lots for one (wallet, mint) pair.
// Invariant: TotalAmount and TotalCostBasisUsd equal the sums over Lots,
// reconciled after every mutation.
type TokenPosition struct {
	WalletAddress     string
	Mint              string
	Symbol            string
	Lots              []*PurchaseLot // FIFO queue, oldest first
	TotalAmount       float64
	TotalCostBasisUsd float64
	FirstAcquiredAt   int64
	LastActivityAt    int64
}

// AvgCostBasisUsd returns the volume-weighted average unit cost.
func (p *TokenPosition) AvgCostBasisUsd() float64 {
	if p.TotalAmount <= AmountEpsilon {
		return 0
	}
	return p.TotalCostBasisUsd / p.TotalAmount
}

// UnrealizedPnlUsd returns paper P&L of the open position at currentPrice.
func (p *TokenPosition) UnrealizedPnlUsd(currentPrice float64) float64 {
	return p.TotalAmount*currentPrice - p.TotalCostBasisUsd
}
