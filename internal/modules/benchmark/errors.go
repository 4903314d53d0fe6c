package benchmark

import (
	"errors"
	"fmt"
	"time"
)

// ErrPriceMissing is the sentinel for benchmark price lookups that found no
// data. Match with errors.Is.
var ErrPriceMissing = errors.New("benchmark price missing")

// LookupError names the date (and symbol, when known) a price lookup failed
// for. It is propagated, never silently defaulted; callers opt into the
// nearest-prior-day fallback explicitly via FallbackNearestPrior.
type LookupError struct {
	Symbol string
	Date   time.Time
}

func (e *LookupError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("no price for %s on %s", e.Symbol, e.Date.Format("2006-01-02"))
	}
	return fmt.Sprintf("no price on %s", e.Date.Format("2006-01-02"))
}

// Is makes errors.Is(err, ErrPriceMissing) match.
func (e *LookupError) Is(target error) bool {
	return target == ErrPriceMissing
}
