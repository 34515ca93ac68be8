package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/readiness/eventlog"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the derived summary for a run",
	Long: `Recompute and display a run's summary from its event sequence.

The summary is a pure fold over the append-only log, so repeated calls
always produce the same result for the same run.

Example:
  readiness summary --run 01J9ZK4W5R8GQ3T2M1N0P7XCVB`,
	RunE: runSummary,
}

var summaryRunID string

func init() {
	rootCmd.AddCommand(summaryCmd)

	summaryCmd.Flags().StringVarP(&eventsDBPath, "db", "d", "./readiness.sqlite", "path to SQLite event store")
	summaryCmd.Flags().StringVar(&eventsLogPath, "log", "", "path to JSONL event log (overrides --db)")
	summaryCmd.Flags().StringVarP(&summaryRunID, "run", "r", "", "run ID (required)")
	summaryCmd.MarkFlagRequired("run")
}

func runSummary(cmd *cobra.Command, args []string) error {
	store, err := openQueryStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	s, err := eventlog.SummarizeRun(store, summaryRunID)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}

	fmt.Printf("Run:             %s\n", s.RunID)
	fmt.Printf("Status:          %s\n", s.Status)
	fmt.Printf("Initial Capital: %.2f\n", s.InitialCapital)
	fmt.Printf("Current Equity:  %.2f\n", s.CurrentEquity)
	fmt.Printf("Total PnL:       %.2f\n", s.TotalPnL)
	fmt.Printf("ROI:             %.4f\n", s.ROI)
	fmt.Printf("Errors:          %d\n", s.ErrorsCount)
	fmt.Printf("Duration:        %.1fs\n", s.DurationSeconds)
	if len(s.PhasesCompleted) > 0 {
		fmt.Println("Phases:")
		for _, p := range s.PhasesCompleted {
			fmt.Printf("  %-10s %-10s %.1fs\n", p.Name, p.Status, p.DurationSeconds)
		}
	}
	return nil
}
