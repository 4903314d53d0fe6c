package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ankitjgd/xirrcalc/internal/clients/yahoo"
	"github.com/ankitjgd/xirrcalc/internal/config"
	"github.com/ankitjgd/xirrcalc/internal/database"
	"github.com/ankitjgd/xirrcalc/internal/modules/benchmark"
	"github.com/ankitjgd/xirrcalc/internal/modules/cashflow"
	"github.com/ankitjgd/xirrcalc/internal/modules/history"
	"github.com/ankitjgd/xirrcalc/internal/modules/ledger"
	"github.com/ankitjgd/xirrcalc/internal/modules/portfolio"
	"github.com/ankitjgd/xirrcalc/internal/modules/report"
	"github.com/ankitjgd/xirrcalc/internal/modules/solver"
	"github.com/ankitjgd/xirrcalc/internal/scheduler"
)

type analyzeOptions struct {
	Benchmark bool
	Archive   bool
}

// runAnalyze is the interactive pipeline: parse every ledger export, prompt
// for terminal values, solve per-account and combined, optionally replay
// against the benchmark, and render the report.
func runAnalyze(cfg *config.Config, log zerolog.Logger, opts analyzeOptions) error {
	files, err := ledger.FindLedgerFiles(cfg.LedgerDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no ledger CSV files found in %s, export your broker ledger there first", cfg.LedgerDir)
	}

	parser := ledger.NewParser(log)
	valuation, err := PromptValuationDate()
	if err != nil {
		return err
	}

	var accounts []portfolio.Account
	for _, file := range files {
		res, err := parser.ParseFile(file)
		if err != nil {
			return err
		}

		holdings, err := PromptHoldingsValue(res.Account)
		if err != nil {
			return err
		}
		cash, err := PromptCashBalance(res.Account)
		if err != nil {
			return err
		}

		accounts = append(accounts, portfolio.Account{
			Name:          res.Account,
			Flows:         res.Flows,
			TerminalValue: holdings + cash,
			ValuationDate: valuation,
		})
	}

	chain := solver.NewChain(log)
	svc := portfolio.NewService(chain, log)

	analysis, err := svc.SolveCombined(accounts)
	if err != nil {
		return err
	}

	var bench *report.BenchmarkComparison
	if opts.Benchmark {
		bench, err = compareBenchmark(cfg, log, chain, accounts)
		if err != nil {
			// A missing price history should not sink the whole run.
			log.Warn().Err(err).Msg("Benchmark comparison unavailable")
		}
	}

	builder := report.NewBuilder(log)
	rep := builder.Build(analysis, bench)
	report.Render(os.Stdout, rep)

	if opts.Archive {
		dir := cfg.ReportsDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(cfg.DataDir, dir)
		}
		path, err := builder.Archive(rep, dir)
		if err != nil {
			return err
		}
		fmt.Printf("\nReport archived: %s\n", path)
	}

	return nil
}

// compareBenchmark replays the combined flows against the benchmark index.
// The price store is synced first so the replay covers the full flow range.
func compareBenchmark(
	cfg *config.Config,
	log zerolog.Logger,
	chain *solver.Chain,
	accounts []portfolio.Account,
) (*report.BenchmarkComparison, error) {
	combined, err := combinedSeries(accounts)
	if err != nil {
		return nil, err
	}

	repo, db, err := openHistory(cfg, log)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	lookback := int(time.Since(combined.Earliest()).Hours()/24) + 30
	if lookback < cfg.PriceLookbackDays {
		lookback = cfg.PriceLookbackDays
	}
	sync := &scheduler.PriceSyncJob{
		Symbol:       cfg.BenchmarkSymbol,
		LookbackDays: lookback,
		Fetcher:      yahoo.NewClient(log),
		Repo:         repo,
		Log:          log,
	}
	if err := sync.Run(); err != nil {
		// Stored prices may still cover the range.
		log.Warn().Err(err).Msg("Benchmark price refresh failed, using stored prices")
	}

	fallback := benchmark.FallbackNone
	if cfg.BenchmarkFallback {
		fallback = benchmark.FallbackNearestPrior
	}
	sim := benchmark.NewSimulator(chain, fallback, log)

	position, result, err := sim.Replay(combined, repo.Source(cfg.BenchmarkSymbol))
	if err != nil {
		if errors.Is(err, benchmark.ErrPriceMissing) {
			return nil, fmt.Errorf("benchmark price history incomplete: %w", err)
		}
		return nil, err
	}

	comparison := &report.BenchmarkComparison{
		Symbol:   cfg.BenchmarkSymbol,
		Position: *position,
		XIRR:     result,
	}
	return comparison, nil
}

// combinedSeries rebuilds the combined flow series from the raw accounts,
// skipping the same zero-flow accounts the portfolio service skips.
func combinedSeries(accounts []portfolio.Account) (*cashflow.Series, error) {
	var kept []*cashflow.Series
	for _, acc := range accounts {
		if len(acc.Flows) == 0 {
			continue
		}
		s, err := cashflow.NewSeries(acc.Name, acc.Flows, acc.TerminalValue, acc.ValuationDate)
		if err != nil {
			return nil, err
		}
		kept = append(kept, s)
	}
	return cashflow.Combine(kept...)
}

// runPriceSync refreshes the benchmark price store from Yahoo Finance.
func runPriceSync(cfg *config.Config, log zerolog.Logger) error {
	repo, db, err := openHistory(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	sync := &scheduler.PriceSyncJob{
		Symbol:       cfg.BenchmarkSymbol,
		LookbackDays: cfg.PriceLookbackDays,
		Fetcher:      yahoo.NewClient(log),
		Repo:         repo,
		Log:          log,
	}
	return sync.Run()
}

func openHistory(cfg *config.Config, log zerolog.Logger) (*history.Repository, *database.DB, error) {
	db, err := database.New(database.Config{
		Path:    cfg.HistoryDBPath(),
		Profile: database.ProfileStandard,
		Name:    "history",
		Log:     log,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history database: %w", err)
	}

	repo, err := history.NewRepository(db.Conn(), log)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return repo, db, nil
}
