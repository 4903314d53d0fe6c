// Package solver computes the annualized rate of return (XIRR) of a cash
// flow series by finding the root of its net present value. It layers three
// strategies in a fixed fallback order: Newton-Raphson, a bracketing
// bisection/secant hybrid, and a fine grid search. The whole chain is pure
// and deterministic: the same series always yields the same result.
package solver

import (
	"errors"
	"math"
	"time"

	"github.com/ankitjgd/xirrcalc/internal/modules/cashflow"
)

// DaysPerYear is the annualization basis for converting day offsets into
// year fractions.
const DaysPerYear = 365.0

// ErrRateDomain reports a candidate rate at or below -1, where the discount
// base (1+r) stops being positive and fractional powers are undefined. The
// chain absorbs it internally; it never escapes a Solve call.
var ErrRateDomain = errors.New("rate outside valid domain (r <= -1)")

// Evaluator computes NPV and its analytic derivative for one series. The
// flow amounts and year offsets are extracted once at construction so every
// strategy in the chain prices against identical inputs.
type Evaluator struct {
	amounts []float64
	years   []float64
}

// NewEvaluator builds an Evaluator over the series' flows plus its terminal
// value, with the earliest flow date as the common time origin. Using the
// earliest date keeps all exponents non-negative, which keeps the powers
// numerically stable near r = -1.
func NewEvaluator(s *cashflow.Series) *Evaluator {
	flows := s.All()
	t0 := s.Earliest()

	ev := &Evaluator{
		amounts: make([]float64, len(flows)),
		years:   make([]float64, len(flows)),
	}
	for i, f := range flows {
		ev.amounts[i] = f.Amount
		ev.years[i] = yearFraction(t0, f.Date)
	}
	return ev
}

// NPV returns the net present value at annual rate r:
//
//	NPV(r) = sum( amount / (1+r)^years )
func (ev *Evaluator) NPV(r float64) (float64, error) {
	if r <= -1 {
		return 0, ErrRateDomain
	}
	total := 0.0
	for i, a := range ev.amounts {
		total += a / math.Pow(1+r, ev.years[i])
	}
	return total, nil
}

// Derivative returns dNPV/dr at rate r, in closed form:
//
//	dNPV/dr = sum( -years * amount / (1+r)^(years+1) )
func (ev *Evaluator) Derivative(r float64) (float64, error) {
	if r <= -1 {
		return 0, ErrRateDomain
	}
	total := 0.0
	for i, a := range ev.amounts {
		total += -ev.years[i] * a / math.Pow(1+r, ev.years[i]+1)
	}
	return total, nil
}

// yearFraction converts the day offset between two dates into years on the
// 365-day basis.
func yearFraction(t0, t time.Time) float64 {
	return t.Sub(t0).Hours() / 24 / DaysPerYear
}
