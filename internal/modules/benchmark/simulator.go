// Package benchmark replays an account's real cash flows against an index
// price history to produce a hypothetical unit-holding position and its own
// XIRR, enabling an apples-to-apples comparison: the benchmark series is
// solved through exactly the same solver chain as the real account.
package benchmark

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ankitjgd/xirrcalc/internal/modules/cashflow"
	"github.com/ankitjgd/xirrcalc/internal/modules/solver"
)

// PriceSource looks up benchmark unit prices by calendar date. The history
// repository implements it; tests use an in-memory map.
type PriceSource interface {
	// PriceOn returns the closing price on exactly the given date.
	// A missing date is reported via ErrPriceMissing.
	PriceOn(date time.Time) (float64, error)

	// LatestOnOrBefore returns the most recent price at or before the
	// given date, with its actual date.
	LatestOnOrBefore(date time.Time) (float64, time.Time, error)
}

// FallbackPolicy controls what happens when a flow date has no price
// (weekends, market holidays). The default propagates a LookupError; the
// caller must opt into the nearest-prior-day policy explicitly.
type FallbackPolicy int

const (
	FallbackNone FallbackPolicy = iota
	FallbackNearestPrior
)

// Position is the replayed hypothetical holding in the benchmark.
type Position struct {
	Units           float64          `json:"units"`
	LatestPrice     float64          `json:"latest_price"`
	LatestPriceDate time.Time        `json:"latest_price_date"`
	TerminalValue   float64          `json:"terminal_value"`
	Series          *cashflow.Series `json:"-"`
}

// Simulator replays cash flow series against a benchmark price history.
type Simulator struct {
	chain  *solver.Chain
	policy FallbackPolicy
	log    zerolog.Logger
}

// NewSimulator creates a Simulator solving through the given chain.
func NewSimulator(chain *solver.Chain, policy FallbackPolicy, log zerolog.Logger) *Simulator {
	return &Simulator{
		chain:  chain,
		policy: policy,
		log:    log.With().Str("component", "benchmark").Logger(),
	}
}

// Replay walks the series' real flows in date order: an invested flow buys
// amount/price units, a withdrawn flow sells amount/price units. Selling
// more units than the position holds contradicts the recorded flows and is
// reported as a DataConsistencyError naming the date, never silently
// clamped. The terminal value is the unit total priced at the latest
// available date on or before the valuation date; the resulting mirrored
// series is solved with the identical NPV/solver path as the real account.
func (sim *Simulator) Replay(series *cashflow.Series, prices PriceSource) (*Position, solver.Result, error) {
	units := 0.0
	for _, f := range series.Flows() {
		price, err := sim.resolvePrice(prices, f.Date)
		if err != nil {
			return nil, solver.Result{}, err
		}

		switch {
		case f.Amount < 0:
			units += -f.Amount / price
		case f.Amount > 0:
			sell := f.Amount / price
			// Tolerance absorbs float accumulation over long replays.
			if sell > units*(1+1e-9) {
				return nil, solver.Result{}, &cashflow.DataConsistencyError{
					Account: series.Account(),
					Date:    f.Date,
					Reason: "withdrawal on " + f.Date.Format("2006-01-02") +
						" would sell more benchmark units than held",
				}
			}
			units -= sell
			if units < 0 {
				units = 0
			}
		}
	}

	latestPrice, latestDate, err := prices.LatestOnOrBefore(series.ValuationDate())
	if err != nil {
		return nil, solver.Result{}, err
	}

	pos := &Position{
		Units:           units,
		LatestPrice:     latestPrice,
		LatestPriceDate: latestDate,
		TerminalValue:   units * latestPrice,
	}

	mirrored, err := cashflow.NewSeries(series.Account()+"-benchmark", series.Flows(), pos.TerminalValue, series.ValuationDate())
	if err != nil {
		return nil, solver.Result{}, err
	}
	pos.Series = mirrored

	sim.log.Debug().
		Str("account", series.Account()).
		Float64("units", units).
		Float64("terminal_value", pos.TerminalValue).
		Msg("Benchmark replay complete")

	return pos, sim.chain.Solve(mirrored), nil
}

// resolvePrice applies the configured fallback policy.
func (sim *Simulator) resolvePrice(prices PriceSource, date time.Time) (float64, error) {
	price, err := prices.PriceOn(date)
	if err == nil {
		return price, nil
	}
	if sim.policy != FallbackNearestPrior {
		return 0, err
	}

	price, actual, err := prices.LatestOnOrBefore(date)
	if err != nil {
		return 0, err
	}
	sim.log.Debug().
		Time("requested", date).
		Time("used", actual).
		Msg("No price on flow date, using nearest prior trading day")
	return price, nil
}
