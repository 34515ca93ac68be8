package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/readiness/config"
	"github.com/rustyeddy/readiness/creds"
	"github.com/rustyeddy/readiness/eventlog"
	"github.com/rustyeddy/readiness/exchange"
	"github.com/rustyeddy/readiness/metrics"
	"github.com/rustyeddy/readiness/runner"
	"github.com/rustyeddy/readiness/safety"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the readiness workflow from a config file",
	Long: `Run the phased readiness workflow using settings from a configuration file.

Phases execute strictly in order (data, strategy, exchange) with per-phase
timeouts and retry budgets. In live mode the safety gate must pass before
the exchange phase, and the kill switch (a KILL file in the state dir) is
honored at all times.

Example:
  readiness run -f readiness.yaml
  readiness run -f readiness.yaml --live --ack "$READINESS_ACK"`,
	RunE: runRun,
}

var (
	runConfigPath string
	runLive       bool
	runAck        string
	metricsAddr   string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON)")
	runCmd.Flags().BoolVar(&runLive, "live", false, "run in live mode (requires acknowledgment)")
	runCmd.Flags().StringVar(&runAck, "ack", os.Getenv("READINESS_ACK"), "live-trading confirmation token")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if runConfigPath != "" {
		loaded, err := config.LoadFromFile(runConfigPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if runLive {
		cfg.Run.Mode = "live"
	}

	if metricsAddr != "" {
		go func() {
			if err := metrics.Serve(metricsAddr); err != nil {
				log.Printf("metrics server: %v", err)
			}
		}()
	}

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open event store: %w", err)
	}
	defer store.Close()

	provider := credProvider(cfg)
	client, err := buildClient(cfg, provider)
	if err != nil {
		return fmt.Errorf("build exchange client: %w", err)
	}

	state := safety.NewState(runAck, safety.FileKillSwitch(filepath.Join(cfg.Run.StateDir, "KILL")))
	gate := &safety.Gate{
		State:  state,
		Client: client,
		Creds:  provider,
		Config: safety.GateConfig{
			Pair:            cfg.Safety.Pair,
			QuoteCurrency:   cfg.Safety.QuoteCurrency,
			MinQuoteBalance: decimal.NewFromFloat(cfg.Safety.MinQuoteBalance),
			MaxClockSkew:    time.Duration(cfg.Safety.MaxClockSkewMS) * time.Millisecond,
		},
	}

	phases, err := buildPhases(cfg, client, state)
	if err != nil {
		return fmt.Errorf("build phases: %w", err)
	}

	opts := runner.Options{
		Mode:           runner.Mode(cfg.Run.Mode),
		InitialCapital: cfg.Run.InitialCapital,
	}
	if cfg.Run.HeartbeatInterval != "" {
		opts.HeartbeatInterval, _ = time.ParseDuration(cfg.Run.HeartbeatInterval)
	}
	if cfg.Run.SelfCheckTimeout != "" {
		opts.SelfCheckTimeout, _ = time.ParseDuration(cfg.Run.SelfCheckTimeout)
	}
	if cfg.Run.BackoffCap != "" {
		opts.BackoffCap, _ = time.ParseDuration(cfg.Run.BackoffCap)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := runner.New(phases, store, gate, opts).Run(ctx)
	if run != nil {
		fmt.Printf("\nRun %s finished: %s\n", run.RunID, run.Status)
		for _, p := range run.Phases {
			fmt.Printf("  %-10s %-10s attempts=%d duration=%s\n",
				p.Name, p.Status, p.Attempts, p.Duration.Round(time.Millisecond))
		}
	}
	return err
}

func openStore(cfg *config.Config) (eventlog.Store, error) {
	if cfg.EventLog.Type == "jsonl" {
		return eventlog.NewJSONL(cfg.EventLog.LogPath)
	}
	return eventlog.NewSQLite(cfg.EventLog.DBPath)
}

func credProvider(cfg *config.Config) creds.Provider {
	return creds.Chain{
		creds.Env{},
		creds.File{Path: filepath.Join(cfg.Run.StateDir, "credentials.env")},
	}
}

func buildClient(cfg *config.Config, provider creds.Provider) (exchange.Client, error) {
	if cfg.Exchange.Sim {
		sim := exchange.NewSim()
		sim.SetBalance(cfg.Safety.QuoteCurrency, decimal.NewFromFloat(cfg.Run.InitialCapital))
		sim.SetPair(exchange.PairMetadata{
			Pair:         cfg.Safety.Pair,
			Enabled:      true,
			MinOrderSize: decimal.RequireFromString("0.0001"),
			MaxOrderSize: decimal.NewFromInt(10000),
		}, decimal.NewFromInt(100))
		return sim, nil
	}

	// Live mode never accepts credentials from plain config values; they
	// come only through the provider.
	c, err := provider.Resolve()
	if err != nil {
		return nil, err
	}
	return exchange.NewREST(cfg.Exchange.BaseURL, c.Key, c.Secret), nil
}

// buildPhases wires the three readiness phases. The bodies validate what
// each phase establishes for the next: market data access, strategy order
// sizing within venue filters, authenticated exchange connectivity.
func buildPhases(cfg *config.Config, client exchange.Client, state *safety.State) ([]runner.Phase, error) {
	dataTimeout, _ := cfg.Phases.Data.ParseTimeout()
	dataBackoff, _ := cfg.Phases.Data.ParseBackoffBase()
	stratTimeout, _ := cfg.Phases.Strategy.ParseTimeout()
	stratBackoff, _ := cfg.Phases.Strategy.ParseBackoffBase()
	exchTimeout, _ := cfg.Phases.Exchange.ParseTimeout()
	exchBackoff, _ := cfg.Phases.Exchange.ParseBackoffBase()

	pair := cfg.Safety.Pair
	quote := cfg.Safety.QuoteCurrency
	// The exchange phase goes through the guarded client: any order call
	// made on it probes the kill switch first.
	guarded := safety.Guard(client, state)

	return []runner.Phase{
		{
			Name:        runner.PhaseData,
			Timeout:     dataTimeout,
			MaxRetries:  cfg.Phases.Data.MaxRetries,
			BackoffBase: dataBackoff,
			Body: func(ctx context.Context) error {
				_, err := client.PairMetadata(ctx, pair)
				return err
			},
			SelfCheck: func(ctx context.Context) error {
				meta, err := client.PairMetadata(ctx, pair)
				if err != nil {
					return err
				}
				if !meta.Enabled {
					return fmt.Errorf("pair %s not enabled", pair)
				}
				return nil
			},
		},
		{
			Name:        runner.PhaseStrategy,
			Timeout:     stratTimeout,
			MaxRetries:  cfg.Phases.Strategy.MaxRetries,
			BackoffBase: stratBackoff,
			Body: func(ctx context.Context) error {
				meta, err := client.PairMetadata(ctx, pair)
				if err != nil {
					return err
				}
				// The smallest order the strategy would place must clear
				// the venue's filters, or live trading can never act.
				if !meta.WithinBounds(meta.MinOrderSize) {
					return fmt.Errorf("pair %s size filters reject their own minimum", pair)
				}
				return nil
			},
		},
		{
			Name:        runner.PhaseExchange,
			Timeout:     exchTimeout,
			MaxRetries:  cfg.Phases.Exchange.MaxRetries,
			BackoffBase: exchBackoff,
			Body: func(ctx context.Context) error {
				if err := guarded.Ping(ctx); err != nil {
					return err
				}
				_, err := guarded.Balance(ctx, quote)
				return err
			},
			SelfCheck: func(ctx context.Context) error {
				_, err := guarded.ServerTime(ctx)
				return err
			},
		},
	}, nil
}
