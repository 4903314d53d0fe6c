// Package report assembles the results of an analysis run into a single
// document: per-account figures, the combined portfolio, and the optional
// benchmark comparison. It renders to text for the CLI and archives as JSON
// for later inspection.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ankitjgd/xirrcalc/internal/modules/benchmark"
	"github.com/ankitjgd/xirrcalc/internal/modules/portfolio"
	"github.com/ankitjgd/xirrcalc/internal/modules/solver"
)

// BenchmarkComparison captures the hypothetical index investment next to
// the real portfolio.
type BenchmarkComparison struct {
	Symbol          string             `json:"symbol"`
	Position        benchmark.Position `json:"position"`
	XIRR            solver.Result      `json:"xirr"`
	Outperformance  *float64           `json:"outperformance,omitempty"` // portfolio rate - benchmark rate, percentage points
	ValueDifference float64            `json:"value_difference"`         // portfolio value - benchmark value
}

// RunReport is one complete analysis run.
type RunReport struct {
	ID          string               `json:"id"`
	GeneratedAt time.Time            `json:"generated_at"`
	Accounts    []portfolio.Analysis `json:"accounts"`
	Combined    portfolio.Analysis   `json:"combined"`
	Skipped     []string             `json:"skipped,omitempty"`
	Benchmark   *BenchmarkComparison `json:"benchmark,omitempty"`
}

// Builder assembles and archives run reports.
type Builder struct {
	log zerolog.Logger
}

// NewBuilder creates a report builder.
func NewBuilder(log zerolog.Logger) *Builder {
	return &Builder{log: log.With().Str("component", "report").Logger()}
}

// Build assembles a RunReport with a fresh run id.
func (b *Builder) Build(analysis portfolio.CombinedAnalysis, bench *BenchmarkComparison) *RunReport {
	r := &RunReport{
		ID:          uuid.New().String(),
		GeneratedAt: time.Now().UTC(),
		Accounts:    analysis.Accounts,
		Combined:    analysis.Combined,
		Skipped:     analysis.Skipped,
		Benchmark:   bench,
	}

	if bench != nil && bench.XIRR.Converged && r.Combined.XIRR.Converged {
		delta := (r.Combined.XIRR.Rate - bench.XIRR.Rate) * 100
		r.Benchmark.Outperformance = &delta
		r.Benchmark.ValueDifference = r.Combined.Stats.CurrentValue - bench.Position.TerminalValue
	}
	return r
}

// Archive writes the report as pretty-printed JSON under dir and returns
// the file path.
func (b *Builder) Archive(r *RunReport, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	name := fmt.Sprintf("xirr_report_%s_%s.json", r.GeneratedAt.Format("20060102_150405"), r.ID[:8])
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	b.log.Info().Str("path", path).Msg("Report archived")
	return path, nil
}
