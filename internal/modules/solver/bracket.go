package solver

import "math"

// Bracketing stage tuning. The scan range deliberately covers deeply
// negative rates (near-total losses) up to 1000% annualized.
const (
	scanLow       = -0.99
	scanHigh      = 10.0
	scanStep      = 0.1
	bracketMaxRef = 200 // refinement iteration cap
)

// bracketStage is the second chain stage. It scans the rate range for a sign
// change of NPV and refines the bracket with a bisection/secant hybrid. The
// intermediate value theorem guarantees a root inside any bracket found, so
// this stage recovers series that are well behaved but Newton-hostile. With
// no sign change anywhere in the range it falls through.
//
// Acceptance is on the residual only. A narrow bracket is not convergence:
// where NPV is steep, a bracket a millionth wide can still leave a residual
// of whole currency units, and a Converged result must actually price the
// series to zero. If the bracket collapses to float resolution before the
// residual criterion holds, the stage falls through to the grid.
type bracketStage struct{}

func (bracketStage) Name() Method { return MethodBracket }

func (bracketStage) Attempt(ev *Evaluator) (Result, bool) {
	a, b, fa, fb, found := findBracket(ev)
	if !found {
		return Result{}, false
	}

	for iter := 1; iter <= bracketMaxRef; iter++ {
		mid := secantPoint(a, b, fa, fb)
		if mid <= a || mid >= b {
			// No representable rate strictly inside the bracket remains.
			return Result{}, false
		}
		fmid, err := ev.NPV(mid)
		if err != nil {
			return Result{}, false
		}

		if math.Abs(fmid) < npvEpsilon {
			return Result{Rate: mid, Method: MethodBracket, Iterations: iter, Converged: true}, true
		}

		if (fa < 0) != (fmid < 0) {
			b, fb = mid, fmid
		} else {
			a, fa = mid, fmid
		}
	}

	return Result{}, false
}

// findBracket walks the scan range in coarse steps looking for two adjacent
// points where NPV changes sign.
func findBracket(ev *Evaluator) (a, b, fa, fb float64, found bool) {
	prev := scanLow
	fprev, err := ev.NPV(prev)
	if err != nil {
		return 0, 0, 0, 0, false
	}

	for x := scanLow + scanStep; x <= scanHigh+scanStep/2; x += scanStep {
		if x > scanHigh {
			x = scanHigh
		}
		fx, err := ev.NPV(x)
		if err != nil {
			return 0, 0, 0, 0, false
		}
		if (fprev < 0) != (fx < 0) {
			return prev, x, fprev, fx, true
		}
		prev, fprev = x, fx
	}
	return 0, 0, 0, 0, false
}

// secantPoint proposes the secant intersection when it falls safely inside
// the bracket, otherwise the bisection midpoint. The guard keeps convergence
// at worst bisection-fast when the function is badly scaled.
func secantPoint(a, b, fa, fb float64) float64 {
	if fb != fa {
		x := a - fa*(b-a)/(fb-fa)
		margin := (b - a) * 1e-3
		if x > a+margin && x < b-margin {
			return x
		}
	}
	return (a + b) / 2
}
