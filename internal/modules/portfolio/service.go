// Package portfolio aggregates per-account cash flow series into account
// level and combined rate-of-return analyses.
package portfolio

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/ankitjgd/xirrcalc/internal/modules/cashflow"
	"github.com/ankitjgd/xirrcalc/internal/modules/solver"
)

// Stats holds the presentation figures derived from one series, independent
// of the solved rate.
type Stats struct {
	Account        string    `json:"account"`
	FirstDate      time.Time `json:"first_date"`
	DaysInvested   int       `json:"days_invested"`
	YearsInvested  float64   `json:"years_invested"`
	TotalInvested  float64   `json:"total_invested"`
	TotalWithdrawn float64   `json:"total_withdrawn"`
	CurrentValue   float64   `json:"current_value"`
	NetGain        float64   `json:"net_gain"`
	SimpleReturn   float64   `json:"simple_return"` // percentage
	FlowCount      int       `json:"flow_count"`
}

// Analysis pairs a series' stats with its solve result.
type Analysis struct {
	Stats Stats         `json:"stats"`
	XIRR  solver.Result `json:"xirr"`
}

// CombinedAnalysis is the outcome of a multi-account run.
type CombinedAnalysis struct {
	Accounts []Analysis `json:"accounts"`
	Combined Analysis   `json:"combined"`
	Skipped  []string   `json:"skipped,omitempty"` // accounts excluded for having no real flows
}

// Account is the raw material for one account's analysis: the classified
// flows from the ingestion collaborator plus the caller-supplied terminal
// value (holdings + cash) at the valuation date.
type Account struct {
	Name          string
	Flows         []cashflow.CashFlow
	TerminalValue float64
	ValuationDate time.Time
}

// Service drives per-account and combined solves.
type Service struct {
	chain *solver.Chain
	log   zerolog.Logger
}

// NewService creates a portfolio service.
func NewService(chain *solver.Chain, log zerolog.Logger) *Service {
	return &Service{
		chain: chain,
		log:   log.With().Str("component", "portfolio").Logger(),
	}
}

// Solve runs the solver chain on one series and derives its stats.
func (s *Service) Solve(series *cashflow.Series) Analysis {
	return Analysis{
		Stats: ComputeStats(series),
		XIRR:  s.chain.Solve(series),
	}
}

// SolveCombined analyzes each account plus a combined series built by
// concatenating all real flows, with terminal values summed at the latest
// valuation date. Accounts without real flows are excluded with a warning,
// not a fatal error. Per-account solves share no state, so they run
// concurrently.
func (s *Service) SolveCombined(accounts []Account) (CombinedAnalysis, error) {
	var kept []*cashflow.Series
	var skipped []string
	for _, acc := range accounts {
		if len(acc.Flows) == 0 {
			s.log.Warn().Str("account", acc.Name).Msg("Account has no real flows, excluding from analysis")
			skipped = append(skipped, acc.Name)
			continue
		}
		series, err := cashflow.NewSeries(acc.Name, acc.Flows, acc.TerminalValue, acc.ValuationDate)
		if err != nil {
			return CombinedAnalysis{}, err
		}
		kept = append(kept, series)
	}

	combined, err := cashflow.Combine(kept...)
	if err != nil {
		return CombinedAnalysis{}, err
	}

	results := make([]Analysis, len(kept))
	var wg sync.WaitGroup
	for i, acc := range kept {
		wg.Add(1)
		go func(i int, acc *cashflow.Series) {
			defer wg.Done()
			results[i] = s.Solve(acc)
		}(i, acc)
	}
	wg.Wait()

	return CombinedAnalysis{
		Accounts: results,
		Combined: s.Solve(combined),
		Skipped:  skipped,
	}, nil
}

// ComputeStats derives the presentation figures from a series.
func ComputeStats(series *cashflow.Series) Stats {
	var invested, withdrawn []float64
	for _, f := range series.Flows() {
		if f.Amount < 0 {
			invested = append(invested, -f.Amount)
		} else if f.Amount > 0 {
			withdrawn = append(withdrawn, f.Amount)
		}
	}

	totalInvested := floats.Sum(invested)
	totalWithdrawn := floats.Sum(withdrawn)
	current := series.Terminal().Amount
	netGain := current + totalWithdrawn - totalInvested

	days := int(series.ValuationDate().Sub(series.Earliest()).Hours() / 24)

	st := Stats{
		Account:        series.Account(),
		FirstDate:      series.Earliest(),
		DaysInvested:   days,
		YearsInvested:  float64(days) / solver.DaysPerYear,
		TotalInvested:  totalInvested,
		TotalWithdrawn: totalWithdrawn,
		CurrentValue:   current,
		NetGain:        netGain,
		FlowCount:      series.FlowCount(),
	}
	if totalInvested > 0 {
		st.SimpleReturn = netGain / totalInvested * 100
	}
	return st
}
