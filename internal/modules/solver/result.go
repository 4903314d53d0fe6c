package solver

// Method identifies which chain stage produced a result.
type Method string

const (
	MethodNewton  Method = "newton"
	MethodBracket Method = "bracket"
	MethodGrid    Method = "grid"
)

// Result is the outcome of one solve. Rate is the annualized rate of return
// as a decimal (0.1234 means 12.34%). When Undeterminable is true no
// plausible rate exists anywhere in the scanned range (typical after a
// near-total capital loss) and Rate must not be presented as a percentage.
type Result struct {
	Rate           float64 `json:"rate"`
	Method         Method  `json:"method"`
	Iterations     int     `json:"iterations"`
	Converged      bool    `json:"converged"`
	Undeterminable bool    `json:"undeterminable,omitempty"`
}

// Strategy is one root-finding stage. Attempt reports whether the stage
// produced a result the chain should return; a false second value means
// fall through to the next stage. Implementations run exactly once per
// solve and must be deterministic.
type Strategy interface {
	Name() Method
	Attempt(ev *Evaluator) (Result, bool)
}
