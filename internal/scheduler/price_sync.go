package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ankitjgd/xirrcalc/internal/modules/history"
)

// HistoryFetcher is the slice of the market-data client the sync job needs.
type HistoryFetcher interface {
	DailyHistory(symbol string, start, end time.Time) ([]history.DailyClose, error)
}

// PriceSyncJob refreshes the stored benchmark price history. On an empty
// store it backfills LookbackDays; afterwards it tops up from the last
// stored date.
type PriceSyncJob struct {
	Symbol       string
	LookbackDays int
	Fetcher      HistoryFetcher
	Repo         *history.Repository
	Log          zerolog.Logger
}

// Name implements Job.
func (j *PriceSyncJob) Name() string { return "benchmark_price_sync" }

// Run implements Job.
func (j *PriceSyncJob) Run() error {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -j.LookbackDays)

	// Top up from the last stored close instead of refetching the full
	// lookback on every run.
	if _, last, err := j.Repo.LatestOnOrBefore(j.Symbol, end); err == nil && last.After(start) {
		start = last
	}

	closes, err := j.Fetcher.DailyHistory(j.Symbol, start, end)
	if err != nil {
		return fmt.Errorf("price sync for %s: %w", j.Symbol, err)
	}

	written, err := j.Repo.Upsert(j.Symbol, closes)
	if err != nil {
		return fmt.Errorf("price sync for %s: %w", j.Symbol, err)
	}

	j.Log.Info().
		Str("symbol", j.Symbol).
		Int("rows", written).
		Msg("Benchmark prices synced")
	return nil
}
