package domain

// TokenAmount is one leg of a swap: a token identity plus a decimal amount.
type TokenAmount struct {
	Mint     string  // token mint address
	Symbol   string  // registry symbol, e.g. "SOL"
	Amount   float64 // UI amount (raw amount scaled by decimals)
	Decimals int     // token decimal places
}

// Swap represents one AMM exchange event attributable to the analyzed wallet.
// Produced by the parser from one raw transaction; immutable thereafter.
type Swap struct {
	Signature     string // Solana transaction signature (natural key)
	WalletAddress string
	BlockTime     int64 // Unix timestamp in seconds
	Slot          int64
	TokenIn       TokenAmount // token the wallet gave up
	TokenOut      TokenAmount // token the wallet received
	FeeLamports   int64       // network fee in lamports
	PoolID        string      // AMM pool account
	SwapType      string      // instruction subtype
}

// Swap instruction subtypes.
const (
	SwapTypeBaseIn  = "swapBaseIn"
	SwapTypeBaseOut = "swapBaseOut"
	SwapTypeUnknown = "swap"
)

// EnhancedSwap is a Swap annotated with USD valuations at its historical
// timestamp plus the realized P&L attributed to it by the position ledger.
type EnhancedSwap struct {
	Swap

	TokenInPriceUsd  float64
	TokenOutPriceUsd float64
	TokenInValueUsd  float64
	TokenOutValueUsd float64
	RealizedPnlUsd   float64 // sum over trades closed by this swap
	SlippagePercent  float64 // relative in/out USD value deviation, clamped >= 0
	FeeUsd           float64
}
