// Package cashflow provides the dated cash flow types that feed all rate
// calculations. A Series is the canonical input to the solver: the real
// (signed) flows of a brokerage account plus the terminal value of the
// account at the valuation date.
//
// Sign convention: money leaving the investor (a deposit into the account)
// is negative; money returned to the investor (payouts, settlements, and the
// terminal value) is positive.
package cashflow

import (
	"fmt"
	"sort"
	"time"
)

// CashFlow is a single dated, signed amount.
type CashFlow struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// Series is an immutable, date-ordered sequence of cash flows plus one
// terminal flow (the current account value at the valuation date).
// Construct it with NewSeries; the solver never mutates it.
type Series struct {
	account   string
	flows     []CashFlow // real flows, sorted ascending by date
	terminal  CashFlow   // valuation date, +current value
	flowCount int
}

// NewSeries validates and builds a Series.
//
// Validation rules:
//   - the valuation date must not precede any flow date,
//   - the series must span a non-zero period (a same-day deposit and
//     valuation cannot be annualized),
//   - at least one negative and one positive amount must exist among the
//     flows and the terminal value, otherwise no rate is meaningful.
//
// Violations are reported as *DataConsistencyError.
func NewSeries(account string, flows []CashFlow, terminalValue float64, valuationDate time.Time) (*Series, error) {
	if len(flows) == 0 {
		return nil, &DataConsistencyError{
			Account: account,
			Reason:  "series has no cash flows",
		}
	}

	sorted := make([]CashFlow, len(flows))
	copy(sorted, flows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	last := sorted[len(sorted)-1].Date
	if valuationDate.Before(last) {
		return nil, &DataConsistencyError{
			Account: account,
			Date:    last,
			Reason: fmt.Sprintf("valuation date %s precedes flow dated %s",
				valuationDate.Format("2006-01-02"), last.Format("2006-01-02")),
		}
	}

	s := &Series{
		account:   account,
		flows:     sorted,
		terminal:  CashFlow{Date: valuationDate, Amount: terminalValue},
		flowCount: len(sorted),
	}

	if s.spanDays() == 0 {
		return nil, &DataConsistencyError{
			Account: account,
			Date:    valuationDate,
			Reason:  "all flows and the valuation date fall on the same day (zero date span)",
		}
	}

	hasNegative, hasPositive := false, terminalValue > 0
	for _, f := range sorted {
		if f.Amount < 0 {
			hasNegative = true
		}
		if f.Amount > 0 {
			hasPositive = true
		}
	}
	if !hasNegative || !hasPositive {
		return nil, &DataConsistencyError{
			Account: account,
			Reason:  "series needs at least one invested (negative) and one returned (positive) amount",
		}
	}

	return s, nil
}

// Account returns the account identifier the series belongs to.
func (s *Series) Account() string { return s.account }

// Flows returns a copy of the real (non-terminal) flows, ordered by date.
func (s *Series) Flows() []CashFlow {
	out := make([]CashFlow, len(s.flows))
	copy(out, s.flows)
	return out
}

// Terminal returns the terminal flow (valuation date, current value).
func (s *Series) Terminal() CashFlow { return s.terminal }

// ValuationDate returns the date of the terminal flow.
func (s *Series) ValuationDate() time.Time { return s.terminal.Date }

// All returns every flow including the terminal one, ordered by date.
func (s *Series) All() []CashFlow {
	out := make([]CashFlow, 0, len(s.flows)+1)
	out = append(out, s.flows...)
	out = append(out, s.terminal)
	return out
}

// Earliest returns the date of the first flow, the common time origin for
// discounting.
func (s *Series) Earliest() time.Time { return s.flows[0].Date }

// FlowCount returns the number of real (non-terminal) flows.
func (s *Series) FlowCount() int { return s.flowCount }

// TotalInvested returns the sum of invested amounts as a positive number.
func (s *Series) TotalInvested() float64 {
	total := 0.0
	for _, f := range s.flows {
		if f.Amount < 0 {
			total += -f.Amount
		}
	}
	return total
}

// TotalWithdrawn returns the sum of withdrawn amounts (excluding the
// terminal value).
func (s *Series) TotalWithdrawn() float64 {
	total := 0.0
	for _, f := range s.flows {
		if f.Amount > 0 {
			total += f.Amount
		}
	}
	return total
}

// spanDays returns the whole days between the earliest flow and the
// valuation date.
func (s *Series) spanDays() int {
	return int(s.terminal.Date.Sub(s.flows[0].Date).Hours() / 24)
}

// Combine concatenates the real flows of several account series into one
// combined series. Flows on identical dates are kept as separate entries;
// terminal values are summed into a single terminal flow dated at the latest
// valuation date across the inputs.
func Combine(series ...*Series) (*Series, error) {
	if len(series) == 0 {
		return nil, &DataConsistencyError{Reason: "no series to combine"}
	}

	var flows []CashFlow
	terminal := 0.0
	var valuation time.Time
	for _, s := range series {
		flows = append(flows, s.flows...)
		terminal += s.terminal.Amount
		if s.terminal.Date.After(valuation) {
			valuation = s.terminal.Date
		}
	}

	return NewSeries("combined", flows, terminal, valuation)
}
