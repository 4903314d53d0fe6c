// Command server runs the cash flow valuation HTTP API.
//
// Startup sequence:
//  1. Loads configuration from environment variables (.env supported)
//  2. Initializes the structured logger
//  3. Opens the price history and calculation cache databases
//  4. Wires the solver chain, portfolio service, and benchmark simulator
//  5. Starts the cron scheduler with the benchmark price sync job
//  6. Starts the HTTP server
//  7. Waits for shutdown signal and performs graceful shutdown
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ankitjgd/xirrcalc/internal/clients/yahoo"
	"github.com/ankitjgd/xirrcalc/internal/config"
	"github.com/ankitjgd/xirrcalc/internal/database"
	"github.com/ankitjgd/xirrcalc/internal/modules/benchmark"
	"github.com/ankitjgd/xirrcalc/internal/modules/calculations"
	"github.com/ankitjgd/xirrcalc/internal/modules/history"
	"github.com/ankitjgd/xirrcalc/internal/modules/portfolio"
	"github.com/ankitjgd/xirrcalc/internal/modules/solver"
	"github.com/ankitjgd/xirrcalc/internal/scheduler"
	"github.com/ankitjgd/xirrcalc/internal/server"
	"github.com/ankitjgd/xirrcalc/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting xirrcalc server")

	// Databases: history holds benchmark daily closes, cache holds
	// msgpack-encoded solve results.
	historyDB, err := database.New(database.Config{
		Path:    cfg.HistoryDBPath(),
		Profile: database.ProfileStandard,
		Name:    "history",
		Log:     log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    cfg.CacheDBPath(),
		Profile: database.ProfileCache,
		Name:    "cache",
		Log:     log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	historyRepo, err := history.NewRepository(historyDB.Conn(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize price history repository")
	}

	calcCache, err := calculations.NewCache(cacheDB.Conn(), calculations.DefaultTTL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize calculation cache")
	}

	// Core services: one solver chain shared by the portfolio service and
	// the benchmark simulator, so both series solve identically.
	chain := solver.NewChain(log)
	portfolioSvc := portfolio.NewService(chain, log)

	fallback := benchmark.FallbackNone
	if cfg.BenchmarkFallback {
		fallback = benchmark.FallbackNearestPrior
	}
	simulator := benchmark.NewSimulator(chain, fallback, log)

	// Scheduler keeps the benchmark price history current.
	yahooClient := yahoo.NewClient(log)
	priceSync := &scheduler.PriceSyncJob{
		Symbol:       cfg.BenchmarkSymbol,
		LookbackDays: cfg.PriceLookbackDays,
		Fetcher:      yahooClient,
		Repo:         historyRepo,
		Log:          log,
	}

	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.PriceSyncSchedule, priceSync); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule benchmark price sync")
	}
	sched.Start()
	defer sched.Stop()

	// Seed the price store in the background so the first compare request
	// does not block on a full Yahoo backfill.
	go func() {
		if err := sched.RunNow(priceSync); err != nil {
			log.Error().Err(err).Msg("Initial benchmark price sync failed")
		}
	}()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		HistoryDB: historyDB,
		CacheDB:   cacheDB,
		Portfolio: portfolioSvc,
		Simulator: simulator,
		History:   historyRepo,
		Cache:     calcCache,
		PriceSync: priceSync,
		Scheduler: sched,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
