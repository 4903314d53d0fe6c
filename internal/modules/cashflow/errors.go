package cashflow

import (
	"errors"
	"fmt"
	"time"
)

// ErrDataConsistency is the sentinel for all data-consistency faults: series
// that cannot form a solvable equation, or benchmark replays that contradict
// the recorded flows. Match with errors.Is.
var ErrDataConsistency = errors.New("cash flow data consistency fault")

// DataConsistencyError describes a data-consistency fault in enough detail
// for the caller to render it. It is a recoverable, expected condition for
// unattended financial data, not a programming error.
type DataConsistencyError struct {
	Account string    // account identifier, empty when not account-specific
	Date    time.Time // offending date, zero when not date-specific
	Reason  string
}

func (e *DataConsistencyError) Error() string {
	msg := e.Reason
	if e.Account != "" {
		msg = fmt.Sprintf("account %s: %s", e.Account, msg)
	}
	return msg
}

// Is makes errors.Is(err, ErrDataConsistency) match.
func (e *DataConsistencyError) Is(target error) bool {
	return target == ErrDataConsistency
}
