package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "backtester",
	Short: "An event-driven backtesting engine for trading strategies",
	Long: `Backtester replays historical price bars through pluggable strategies,
simulates order execution with configurable fees and slippage, and
tracks the resulting portfolio to produce a NAV curve and fill ledger.

It provides tools for:
  - Running single backtests from CSV bar data
  - Sweeping strategy parameters across parallel runs
  - Persisting fills and equity curves to CSV or SQLite
  - Summarizing performance and trade statistics`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
