package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantlab/backtest/journal"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Query journaled backtest runs",
	Long: `Query and display journaled backtest runs from a SQLite database.

Subcommands:
  list  - List journaled runs, most recent first
  show  - Show the performance report of a specific run

Examples:
  backtest report list
  backtest report show <run-id>`,
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journaled runs",
	Args:  cobra.NoArgs,
	RunE:  runReportList,
}

var reportShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the performance report of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportShow,
}

var reportDBPath string

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportListCmd)
	reportCmd.AddCommand(reportShowCmd)

	reportCmd.PersistentFlags().StringVarP(&reportDBPath, "db", "d", "./runs.sqlite", "path to SQLite journal DB")
}

func runReportList(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(reportDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	runs, err := j.ListRuns()
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No journaled runs.")
		return nil
	}

	fmt.Printf("%-26s  %-12s  %-16s  %12s  %12s\n",
		"RUN ID", "INSTRUMENT", "STRATEGY", "INITIAL", "FINAL")
	for _, r := range runs {
		fmt.Printf("%-26s  %-12s  %-16s  %12.2f  %12.2f\n",
			r.RunID, r.Instrument, r.Strategy, r.InitialCash, r.FinalEquity)
	}
	return nil
}

func runReportShow(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(reportDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	runID := args[0]
	report, err := j.LoadReport(runID)
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}
	if report.Len() == 0 {
		return fmt.Errorf("no report found for run %s", runID)
	}

	curve, err := j.LoadEquityCurve(runID)
	if err != nil {
		return fmt.Errorf("load equity curve: %w", err)
	}

	fmt.Printf("Run %s (%d equity points)\n", runID, len(curve))
	for _, name := range report.Names() {
		value, _ := report.Get(name)
		fmt.Printf("  %-22s %.4f\n", name, value)
	}
	return nil
}
