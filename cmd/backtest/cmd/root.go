package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "backtest",
	Short: "A time-stepped backtesting engine for trading strategies",
	Long: `Backtest replays historical daily bars through a trading strategy and
reports how the resulting portfolio performed.

It provides tools for:
  - Running backtests over per-symbol CSV price files
  - Built-in strategies: ma-crossover, rsi, mean-reversion, pairs-trading, predictive
  - Portfolio accounting with long/short positions and closed-trade P/L
  - Performance metrics (Sharpe, Sortino, drawdown, CAGR, VaR)
  - Journaling runs to SQLite or CSV and reloading them later`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
