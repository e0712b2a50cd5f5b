package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quantlab/backtest/config"
	"github.com/quantlab/backtest/engine"
	"github.com/quantlab/backtest/journal"
	"github.com/quantlab/backtest/logger"
	"github.com/quantlab/backtest/marketdata"
	"github.com/quantlab/backtest/pkg/id"
	"github.com/quantlab/backtest/reporting"
	"github.com/quantlab/backtest/strategies"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest from a config file",
	Long: `Run a backtest using settings from a configuration file.

The config file specifies initial cash, the data directory and symbols, the
strategy and its parameters, and optional journaling.

Example:
  backtest run -f examples/configs/ma-crossover.yaml`,
	RunE: runRun,
}

var (
	runConfigPath string
	runOutPath    string
	runVerbose    bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().StringVarP(&runOutPath, "out", "o", "", "write the result set as JSON to this path")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "log engine activity to stderr")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.Nop()
	if runVerbose {
		if log, err = logger.NewDevelopment(); err != nil {
			return fmt.Errorf("logger: %w", err)
		}
	}
	defer log.Sync()

	table, err := marketdata.LoadDir(cfg.Data.Dir, cfg.Data.Symbols)
	if err != nil {
		return fmt.Errorf("load data: %w", err)
	}

	strat, err := strategies.New(cfg.Strategy.Name, cfg.Strategy.Params, log)
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	fmt.Printf("Running backtest with config: %s\n", runConfigPath)
	fmt.Printf("  Strategy: %s on %s\n", strat.Name(), instrumentKey(cfg))
	fmt.Printf("  Bars: %d, Initial Cash: $%.2f\n\n", table.Len(), cfg.Backtest.InitialCash)

	eng := engine.New(cfg.Backtest.InitialCash, log)
	eng.SetData(table)
	eng.SetStrategy(strat)

	res, err := eng.Run()
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	analyzer := reporting.NewAnalyzer(res.EquityCurve, res.Fills, res.ClosedTrades,
		cfg.Backtest.RiskFreeRate, cfg.Backtest.VaRConfidence)
	report := analyzer.Report()

	fmt.Println("Backtest Complete!")
	for _, name := range report.Names() {
		value, _ := report.Get(name)
		fmt.Printf("  %-22s %.4f\n", name, value)
	}

	if cfg.Journal.Type != "" {
		runID, err := saveRun(cfg, strat.Name(), res, report)
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		fmt.Printf("\nJournaled as run %s\n", runID)
	}

	if runOutPath != "" {
		if err := writeResultSet(cfg, strat.Name(), res, report); err != nil {
			return fmt.Errorf("write result set: %w", err)
		}
		fmt.Printf("Result set written to %s\n", runOutPath)
	}
	return nil
}

// instrumentKey is the symbol for single-leg runs and "A-B" for pairs.
func instrumentKey(cfg *config.Config) string {
	if cfg.Strategy.Params.Symbol2 != "" {
		return reporting.PairKey(cfg.Strategy.Params.Symbol, cfg.Strategy.Params.Symbol2)
	}
	return cfg.Strategy.Params.Symbol
}

func openJournal(cfg *config.Config) (journal.Journal, error) {
	if cfg.Journal.Type == "csv" {
		return journal.NewCSV(cfg.Journal.Dir)
	}
	return journal.NewSQLite(cfg.Journal.DBPath)
}

func saveRun(cfg *config.Config, strategy string, res *engine.Result, report *reporting.Report) (string, error) {
	j, err := openJournal(cfg)
	if err != nil {
		return "", err
	}
	defer j.Close()

	runID := id.New()
	err = journal.Save(j, journal.Run{
		RunID:       runID,
		Instrument:  instrumentKey(cfg),
		Strategy:    strategy,
		InitialCash: cfg.Backtest.InitialCash,
	}, res.EquityCurve, res.Fills, res.ClosedTrades, report)
	if err != nil {
		return "", err
	}
	return runID, nil
}

func writeResultSet(cfg *config.Config, strategy string, res *engine.Result, report *reporting.Report) error {
	f, err := os.Create(runOutPath)
	if err != nil {
		return err
	}
	defer f.Close()

	rs := reporting.ResultSet{}
	rs.Add(instrumentKey(cfg), strategy, reporting.RunResult{
		EquityCurve:       res.EquityCurve,
		PerformanceReport: report,
	})
	return rs.WriteJSON(f)
}
