package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/ankitjgd/xirrcalc/internal/modules/portfolio"
	"github.com/ankitjgd/xirrcalc/internal/modules/solver"
)

const rule = "============================================================"

// Render writes a human-readable version of the report to w.
func Render(w io.Writer, r *RunReport) {
	if len(r.Accounts) > 1 {
		for _, acc := range r.Accounts {
			renderAnalysis(w, acc, "Account: "+acc.Stats.Account)
		}
		renderAnalysis(w, r.Combined, "Combined Portfolio")
		renderSummaryTable(w, r)
	} else {
		renderAnalysis(w, r.Combined, "Portfolio Summary")
	}

	for _, name := range r.Skipped {
		fmt.Fprintf(w, "\nNote: account %s had no cash flows and was excluded.\n", name)
	}

	if r.Benchmark != nil {
		renderBenchmark(w, r)
	}
}

func renderAnalysis(w io.Writer, a portfolio.Analysis, title string) {
	st := a.Stats
	fmt.Fprintf(w, "\n%s\n  %s\n%s\n", rule, title, rule)
	fmt.Fprintf(w, "First investment date: %s\n", st.FirstDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Investment period: %d days (%.2f years)\n", st.DaysInvested, st.YearsInvested)
	fmt.Fprintf(w, "Total invested:  %14.2f\n", st.TotalInvested)
	fmt.Fprintf(w, "Total withdrawn: %14.2f\n", st.TotalWithdrawn)
	fmt.Fprintf(w, "Current value:   %14.2f\n", st.CurrentValue)
	fmt.Fprintf(w, "Net gain/loss:   %14.2f\n", st.NetGain)
	fmt.Fprintf(w, "Simple return:   %13.2f%%\n", st.SimpleReturn)
	renderRate(w, a.XIRR)
}

func renderRate(w io.Writer, res solver.Result) {
	switch {
	case res.Undeterminable:
		fmt.Fprintf(w, "XIRR: cannot be determined - no discount rate reconciles these flows\n")
		fmt.Fprintf(w, "      (this indicates extreme losses; the simple return above reflects performance)\n")
	case res.Converged:
		fmt.Fprintf(w, "XIRR (annualized): %.2f%% [%s]\n", res.Rate*100, res.Method)
		if res.Rate < 0 {
			fmt.Fprintf(w, "Note: negative XIRR indicates a loss on investment.\n")
		} else if res.Rate > 0.5 {
			fmt.Fprintf(w, "Note: very high XIRR - please verify input values.\n")
		}
	default:
		fmt.Fprintf(w, "XIRR (best effort): %.2f%% [%s, not converged]\n", res.Rate*100, res.Method)
	}
}

func renderSummaryTable(w io.Writer, r *RunReport) {
	fmt.Fprintf(w, "\n%s\n", strings.Repeat("-", 75))
	fmt.Fprintf(w, "%-20s %13s %13s %13s %13s\n", "Account", "Invested", "Withdrawn", "Current", "Gain/Loss")
	for _, acc := range r.Accounts {
		st := acc.Stats
		fmt.Fprintf(w, "%-20s %13.2f %13.2f %13.2f %13.2f\n",
			st.Account, st.TotalInvested, st.TotalWithdrawn, st.CurrentValue, st.NetGain)
	}
	st := r.Combined.Stats
	fmt.Fprintf(w, "%-20s %13.2f %13.2f %13.2f %13.2f\n",
		"COMBINED", st.TotalInvested, st.TotalWithdrawn, st.CurrentValue, st.NetGain)
}

func renderBenchmark(w io.Writer, r *RunReport) {
	b := r.Benchmark
	fmt.Fprintf(w, "\n%s\n  %s BENCHMARK COMPARISON\n%s\n", rule, b.Symbol, rule)
	fmt.Fprintf(w, "If the same amounts had been invested in %s on the same dates:\n", b.Symbol)
	fmt.Fprintf(w, "  Portfolio value: %14.2f\n", b.Position.TerminalValue)
	fmt.Fprintf(w, "  Units held:      %14.4f\n", b.Position.Units)
	fmt.Fprintf(w, "  Latest price:    %14.2f (%s)\n", b.Position.LatestPrice, b.Position.LatestPriceDate.Format("2006-01-02"))
	renderRate(w, b.XIRR)

	if b.Outperformance != nil {
		delta := *b.Outperformance
		switch {
		case delta > 0:
			fmt.Fprintf(w, "\nYour portfolio OUTPERFORMED %s by %.2f%%\n", b.Symbol, delta)
		case delta < 0:
			fmt.Fprintf(w, "\nYour portfolio UNDERPERFORMED %s by %.2f%%\n", b.Symbol, -delta)
		default:
			fmt.Fprintf(w, "\nYour portfolio matched %s performance\n", b.Symbol)
		}
		fmt.Fprintf(w, "Value difference: %.2f\n", b.ValueDifference)
	}
}
