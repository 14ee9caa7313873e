package solana

import "context"

// TransactionSource defines the transaction-history capability consumed by
// the analyzer. Implementations may return partial results plus per-item
// errors; callers treat fetch errors as degraded input.
type TransactionSource interface {
	// GetSignaturesForAddress retrieves signatures for an address, newest
	// first, with pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetTransaction retrieves a transaction by signature. Returns
	// (nil, nil) when the transaction is unknown to the node.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
}

// Transaction represents a Solana transaction with the metadata needed to
// reconstruct token movements.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction execution metadata.
type TransactionMeta struct {
	Err               interface{} // non-nil when the transaction failed on-chain
	Fee               int64       // lamports
	LogMessages       []string
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// TokenBalance is one SPL token account balance snapshot from transaction
// meta, taken before or after execution.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	UIAmount     float64
	Decimals     int
}

// TransactionMessage contains the parsed transaction message.
type TransactionMessage struct {
	AccountKeys  []string
	Instructions []Instruction
}

// Instruction references program and accounts by message account index.
type Instruction struct {
	ProgramIDIndex int
	Accounts       []int
	Data           string // base58 encoded
}

// ProgramID resolves the instruction's program address against keys.
// Returns "" when the index is out of range.
func (in Instruction) ProgramID(keys []string) string {
	if in.ProgramIDIndex < 0 || in.ProgramIDIndex >= len(keys) {
		return ""
	}
	return keys[in.ProgramIDIndex]
}
