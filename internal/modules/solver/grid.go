package solver

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Grid stage tuning.
const (
	gridStep        = 0.001
	gridAcceptance  = 1.0    // |NPV| below this counts as converged
	gridHardCeiling = 1000.0 // best |NPV| above this means no plausible rate exists
)

// gridStage is the terminal chain stage: an exhaustive fine scan of the rate
// range that always yields an answer. It returns the rate minimizing |NPV|,
// flagged converged only under a looser criterion than the analytic stages.
// When even the best point leaves |NPV| above the hard ceiling the series
// admits no plausible rate (terminal value near zero after a total loss) and
// the result is marked undeterminable so callers can render a qualitative
// message instead of a misleading percentage.
type gridStage struct{}

func (gridStage) Name() Method { return MethodGrid }

func (gridStage) Attempt(ev *Evaluator) (Result, bool) {
	n := int(math.Round((scanHigh-scanLow)/gridStep)) + 1
	rates := floats.Span(make([]float64, n), scanLow, scanHigh)

	bestRate := scanLow
	bestNPV := math.Inf(1)
	for _, r := range rates {
		v, err := ev.NPV(r)
		if err != nil {
			continue
		}
		if abs := math.Abs(v); abs < bestNPV {
			bestNPV = abs
			bestRate = r
		}
	}

	res := Result{
		Rate:       bestRate,
		Method:     MethodGrid,
		Iterations: n,
		Converged:  bestNPV < gridAcceptance,
	}
	if bestNPV > gridHardCeiling {
		res.Converged = false
		res.Undeterminable = true
		res.Rate = 0
	}
	return res, true
}
