package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankitjgd/xirrcalc/internal/modules/cashflow"
)

func TestEvaluator_NPVClosedForm(t *testing.T) {
	s := mustSeries(t,
		[]cashflow.CashFlow{{Date: date(2023, 1, 1), Amount: -100}},
		110, date(2024, 1, 1))
	ev := NewEvaluator(s)

	// Exactly one year apart: NPV(0.1) = -100 + 110/1.1 = 0.
	npv, err := ev.NPV(0.1)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, npv, 1e-9)

	// NPV(0) is just the flow sum.
	npv, err = ev.NPV(0)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, npv, 1e-9)
}

func TestEvaluator_DerivativeClosedForm(t *testing.T) {
	s := mustSeries(t,
		[]cashflow.CashFlow{{Date: date(2023, 1, 1), Amount: -100}},
		110, date(2024, 1, 1))
	ev := NewEvaluator(s)

	// The deposit sits at the time origin, so only the terminal value
	// contributes: dNPV/dr = -1 * 110 / (1.1)^2.
	deriv, err := ev.Derivative(0.1)
	require.NoError(t, err)
	assert.InDelta(t, -110.0/(1.1*1.1), deriv, 1e-9)
}

func TestEvaluator_DerivativeMatchesFiniteDifference(t *testing.T) {
	s := mustSeries(t,
		[]cashflow.CashFlow{
			{Date: date(2022, 1, 1), Amount: -5000},
			{Date: date(2022, 8, 15), Amount: 1200},
			{Date: date(2023, 3, 4), Amount: -3000},
		},
		8500, date(2024, 1, 1))
	ev := NewEvaluator(s)

	const r, h = 0.07, 1e-6
	hi, err := ev.NPV(r + h)
	require.NoError(t, err)
	lo, err := ev.NPV(r - h)
	require.NoError(t, err)

	deriv, err := ev.Derivative(r)
	require.NoError(t, err)
	assert.InDelta(t, (hi-lo)/(2*h), deriv, 1e-2)
}

func TestEvaluator_RateDomain(t *testing.T) {
	s := mustSeries(t,
		[]cashflow.CashFlow{{Date: date(2023, 1, 1), Amount: -100}},
		110, date(2024, 1, 1))
	ev := NewEvaluator(s)

	_, err := ev.NPV(-1)
	assert.ErrorIs(t, err, ErrRateDomain)

	_, err = ev.Derivative(-1.5)
	assert.ErrorIs(t, err, ErrRateDomain)

	// Just inside the domain is fine.
	_, err = ev.NPV(-0.999)
	assert.NoError(t, err)
}
