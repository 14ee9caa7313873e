package domain

import "fmt"

// ErrorKind is the closed set of recoverable failure categories produced by
// the analysis pipeline.
type ErrorKind string

const (
	ErrKindParsing          ErrorKind = "ParsingError"
	ErrKindPriceUnavailable ErrorKind = "PriceUnavailable"
	ErrKindCalculation      ErrorKind = "CalculationError"
	ErrKindTimeout          ErrorKind = "TimeoutError"
	ErrKindFetch            ErrorKind = "FetchError"
)

// AnalysisError is a tagged error carrying the context needed to attribute a
// failure to a specific wallet, transaction, or token without string
// matching. Context fields are optional; empty means not applicable.
type AnalysisError struct {
	Kind      ErrorKind
	Wallet    string
	Signature string
	Mint      string
	Timestamp int64
	Err       error
}

func (e *AnalysisError) Error() string {
	msg := string(e.Kind)
	if e.Signature != "" {
		msg += " sig=" + e.Signature
	}
	if e.Mint != "" {
		msg += " mint=" + e.Mint
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// NewAnalysisError builds a tagged error wrapping cause.
func NewAnalysisError(kind ErrorKind, wallet string, cause error) *AnalysisError {
	return &AnalysisError{Kind: kind, Wallet: wallet, Err: cause}
}

// WithSignature returns a copy of e annotated with the transaction signature.
func (e *AnalysisError) WithSignature(sig string) *AnalysisError {
	c := *e
	c.Signature = sig
	return &c
}

// WithMint returns a copy of e annotated with the token mint.
func (e *AnalysisError) WithMint(mint string) *AnalysisError {
	c := *e
	c.Mint = mint
	return &c
}

// WithTimestamp returns a copy of e annotated with the relevant Unix time.
func (e *AnalysisError) WithTimestamp(ts int64) *AnalysisError {
	c := *e
	c.Timestamp = ts
	return &c
}

// Errorf is shorthand for NewAnalysisError with a formatted cause.
func Errorf(kind ErrorKind, wallet, format string, args ...any) *AnalysisError {
	return &AnalysisError{Kind: kind, Wallet: wallet, Err: fmt.Errorf(format, args...)}
}
