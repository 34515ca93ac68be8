package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/readiness/eventlog"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Query the session event log",
	Long: `Query and display session events from the append-only event store.

Without --run, lists the recorded run IDs. With --run, prints that run's
events in append order.

Examples:
  readiness events
  readiness events --run 01J9ZK4W5R8GQ3T2M1N0P7XCVB`,
	RunE: runEvents,
}

var (
	eventsDBPath  string
	eventsLogPath string
	eventsRunID   string
)

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().StringVarP(&eventsDBPath, "db", "d", "./readiness.sqlite", "path to SQLite event store")
	eventsCmd.Flags().StringVar(&eventsLogPath, "log", "", "path to JSONL event log (overrides --db)")
	eventsCmd.Flags().StringVarP(&eventsRunID, "run", "r", "", "run ID to display")
}

func runEvents(cmd *cobra.Command, args []string) error {
	store, err := openQueryStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	if eventsRunID == "" {
		runs, err := store.ListRuns()
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("no runs recorded")
			return nil
		}
		for _, r := range runs {
			fmt.Println(r)
		}
		return nil
	}

	events, err := store.ReadAll(eventsRunID)
	if err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	if len(events) == 0 {
		return fmt.Errorf("no events for run %q", eventsRunID)
	}

	for _, e := range events {
		phase := e.Phase
		if phase == "" {
			phase = "-"
		}
		fmt.Printf("%s  %-12s %-8s %-10s %s\n",
			e.Time.Format(time.RFC3339), e.Type, e.Level, phase, e.Message)
	}
	return nil
}

func openQueryStore() (eventlog.Store, error) {
	if eventsLogPath != "" {
		return eventlog.NewJSONL(eventsLogPath)
	}
	return eventlog.NewSQLite(eventsDBPath)
}
