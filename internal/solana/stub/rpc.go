// Package stub provides an in-memory transaction source for tests and the
// fixture CLI path.
package stub

import (
	"context"
	"errors"

	"solana-wallet-analytics/internal/solana"
)

// ErrNotFound is returned when a transaction is not in the stub store.
var ErrNotFound = errors.New("not found")

// TransactionSource implements solana.TransactionSource over in-memory maps.
// Failures can be scripted per address or per signature to exercise
// degraded-input paths.
type TransactionSource struct {
	Transactions map[string]*solana.Transaction
	Signatures   map[string][]solana.SignatureInfo

	// SignatureErrs fails GetSignaturesForAddress for an address.
	SignatureErrs map[string]error
	// TransactionErrs fails GetTransaction for a signature.
	TransactionErrs map[string]error
}

var _ solana.TransactionSource = (*TransactionSource)(nil)

// NewTransactionSource creates an empty stub source.
func NewTransactionSource() *TransactionSource {
	return &TransactionSource{
		Transactions:    make(map[string]*solana.Transaction),
		Signatures:      make(map[string][]solana.SignatureInfo),
		SignatureErrs:   make(map[string]error),
		TransactionErrs: make(map[string]error),
	}
}

// GetSignaturesForAddress retrieves scripted signatures for an address.
func (s *TransactionSource) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	if err, ok := s.SignatureErrs[address]; ok {
		return nil, err
	}

	sigs := s.Signatures[address]
	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		return sigs[:opts.Limit], nil
	}
	return sigs, nil
}

// GetTransaction retrieves a transaction by signature from the stub store.
func (s *TransactionSource) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	if err, ok := s.TransactionErrs[signature]; ok {
		return nil, err
	}
	tx, ok := s.Transactions[signature]
	if !ok {
		return nil, ErrNotFound
	}
	return tx, nil
}

// AddTransaction adds a transaction and registers its signature for the
// given wallet address.
func (s *TransactionSource) AddTransaction(address string, tx *solana.Transaction) {
	s.Transactions[tx.Signature] = tx
	bt := tx.BlockTime
	s.Signatures[address] = append(s.Signatures[address], solana.SignatureInfo{
		Signature: tx.Signature,
		Slot:      tx.Slot,
		BlockTime: &bt,
	})
}

// FailAddress scripts a signature-listing failure for address.
func (s *TransactionSource) FailAddress(address string, err error) {
	s.SignatureErrs[address] = err
}

// FailSignature scripts a transaction-fetch failure for signature.
func (s *TransactionSource) FailSignature(signature string, err error) {
	s.TransactionErrs[signature] = err
}
