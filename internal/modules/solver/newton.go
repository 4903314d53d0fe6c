package solver

import "math"

// Newton-Raphson stage tuning.
const (
	newtonGuess     = 0.1  // initial rate
	newtonMaxIter   = 100  // hard iteration cap
	npvEpsilon      = 1e-6 // |NPV| convergence threshold, in currency units
	stepEpsilon     = 1e-8 // |delta r| convergence threshold
	derivativeFloor = 1e-12
)

// newtonStage is the first chain stage. Fast on well-behaved series, but it
// diverges on ill-conditioned flow patterns (heavy early losses), so any
// domain violation, derivative collapse or iteration cap makes it fall
// through instead of failing the solve.
type newtonStage struct{}

func (newtonStage) Name() Method { return MethodNewton }

func (newtonStage) Attempt(ev *Evaluator) (Result, bool) {
	r := newtonGuess

	for iter := 1; iter <= newtonMaxIter; iter++ {
		value, err := ev.NPV(r)
		if err != nil {
			return Result{}, false
		}
		if math.Abs(value) < npvEpsilon {
			return Result{Rate: r, Method: MethodNewton, Iterations: iter, Converged: true}, true
		}

		deriv, err := ev.Derivative(r)
		if err != nil || math.Abs(deriv) < derivativeFloor {
			// Derivative collapse: the update would explode.
			return Result{}, false
		}

		step := value / deriv
		next := r - step
		if next <= -1 {
			return Result{}, false
		}

		if math.Abs(step) < stepEpsilon {
			// The update has stopped moving; accept the fixed point.
			return Result{Rate: next, Method: MethodNewton, Iterations: iter, Converged: true}, true
		}
		r = next
	}

	return Result{}, false
}
