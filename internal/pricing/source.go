// Package pricing provides historical USD price lookup for supported
// tokens. Price unavailability is a valid outcome, not a failure: callers
// degrade the affected swap and continue.
package pricing

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no USD price exists at or near the
// requested timestamp. Callers must treat it as a non-exceptional outcome.
var ErrUnavailable = errors.New("price unavailable")

// Source resolves a token's USD price as of a Unix timestamp (seconds).
// Implementations must be safe for concurrent use.
type Source interface {
	PriceAt(ctx context.Context, mint string, unixTime int64) (float64, error)
}
