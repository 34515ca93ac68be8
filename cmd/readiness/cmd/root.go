package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "readiness",
	Short: "Live-readiness workflow runner for an algorithmic trading bot",
	Long: `Readiness gates a trading bot's transition from simulated to real capital.

It provides tools for:
  - Running the phased readiness workflow (data, strategy, exchange)
  - Enforcing the live-trading safety gate and kill switch
  - Recording every transition in an append-only session event log
  - Querying event history and derived run summaries

The workflow exits 0 only when every phase succeeds.`,

	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
