package solver

import (
	"github.com/rs/zerolog"

	"github.com/ankitjgd/xirrcalc/internal/modules/cashflow"
)

// Chain runs the ordered fallback strategies over a series. Every stage runs
// at most once per solve; the first stage that signals success wins. The
// grid stage always signals success, so Solve always returns a Result and
// never an error: "no good rate exists" is reported through the Converged
// and Undeterminable flags, because it is an expected outcome for
// extreme-loss portfolios, not a fault.
type Chain struct {
	stages []Strategy
	log    zerolog.Logger
}

// NewChain creates a solver chain with the standard stage order:
// Newton-Raphson, bracketing, grid search.
func NewChain(log zerolog.Logger) *Chain {
	return &Chain{
		stages: []Strategy{newtonStage{}, bracketStage{}, gridStage{}},
		log:    log.With().Str("component", "solver").Logger(),
	}
}

// Solve computes the annualized rate of return for the series.
func (c *Chain) Solve(s *cashflow.Series) Result {
	ev := NewEvaluator(s)

	for _, stage := range c.stages {
		res, ok := stage.Attempt(ev)
		if !ok {
			c.log.Debug().
				Str("account", s.Account()).
				Str("stage", string(stage.Name())).
				Msg("Stage did not converge, falling through")
			continue
		}

		c.log.Debug().
			Str("account", s.Account()).
			Str("method", string(res.Method)).
			Float64("rate", res.Rate).
			Int("iterations", res.Iterations).
			Bool("converged", res.Converged).
			Msg("Solve finished")
		return res
	}

	// Unreachable: the grid stage always returns a result. Kept as a
	// guard so a future stage-list change cannot silently panic callers.
	return Result{Method: MethodGrid, Undeterminable: true}
}
