// Package cli implements the interactive analysis command: it ingests
// ledger exports, prompts for terminal values, runs the solver chain, and
// renders the report.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ankitjgd/xirrcalc/internal/config"
	"github.com/ankitjgd/xirrcalc/pkg/logger"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "xirrcalc",
		Short: "xirrcalc - annualized return calculator for brokerage accounts",
		Long: `xirrcalc computes the money-weighted annualized return (XIRR) of one or
more brokerage accounts from their ledger CSV exports, and compares the
result against a buy-the-index benchmark over the identical cash flows.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyzeFromFlags(cmd)
		},
	}

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newVersionCmd())

	addAnalyzeFlags(rootCmd)

	return rootCmd
}

func addAnalyzeFlags(cmd *cobra.Command) {
	cmd.Flags().String("ledger-dir", "", "Directory containing ledger CSV exports (default from config)")
	cmd.Flags().Bool("benchmark", true, "Compare the combined portfolio against the benchmark index")
	cmd.Flags().Bool("archive", false, "Archive the report as JSON in the reports directory")
	cmd.Flags().Bool("debug", false, "Enable debug logging")
}

// newAnalyzeCmd creates the analyze command, an explicit alias of the root
// behavior.
func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze ledger exports and report per-account and combined XIRR",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyzeFromFlags(cmd)
		},
	}
	addAnalyzeFlags(cmd)
	return cmd
}

// newSyncCmd creates the prices sync command
func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Refresh the stored benchmark price history",
		RunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			cfg, log, err := bootstrap(debug)
			if err != nil {
				return err
			}
			return runPriceSync(cfg, log)
		},
	}
	cmd.Flags().Bool("debug", false, "Enable debug logging")
	return cmd
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("xirrcalc v1.0.0")
		},
	}
}

func runAnalyzeFromFlags(cmd *cobra.Command) error {
	debug, _ := cmd.Flags().GetBool("debug")
	cfg, log, err := bootstrap(debug)
	if err != nil {
		return err
	}

	if dir, _ := cmd.Flags().GetString("ledger-dir"); dir != "" {
		cfg.LedgerDir = dir
	}
	withBenchmark, _ := cmd.Flags().GetBool("benchmark")
	archive, _ := cmd.Flags().GetBool("archive")

	return runAnalyze(cfg, log, analyzeOptions{
		Benchmark: withBenchmark,
		Archive:   archive,
	})
}

func bootstrap(debug bool) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Logger{}, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	log := logger.New(logger.Config{Level: level, Pretty: true})
	logger.SetGlobalLogger(log)

	return cfg, log, nil
}
