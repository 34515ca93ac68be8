package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "dry-run", cfg.Run.Mode)
	assert.Equal(t, 1000, cfg.Safety.MaxClockSkewMS)
	assert.InDelta(t, 10.0, cfg.Safety.MinQuoteBalance, 1e-9)
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	yml := `
run:
  mode: dry-run
  initial_capital: 5000
  heartbeat_interval: 10s
  state_dir: /tmp/readiness
phases:
  data:
    timeout: 10m
    max_retries: 2
    backoff_base: 1s
  strategy:
    timeout: 20m
    max_retries: 1
    backoff_base: 2s
  exchange:
    timeout: 5m
    max_retries: 3
    backoff_base: 1s
safety:
  pair: ETH-USD
  quote_currency: USD
  min_quote_balance: 25
  max_clock_skew_ms: 500
exchange:
  sim: true
event_log:
  type: jsonl
  log_path: ./events.jsonl
`
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(yml), 0644))

	cfg, err := LoadFromFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "ETH-USD", cfg.Safety.Pair)
	assert.Equal(t, 500, cfg.Safety.MaxClockSkewMS)
	assert.Equal(t, "jsonl", cfg.EventLog.Type)

	d, err := cfg.Phases.Data.ParseTimeout()
	assert.NoError(t, err)
	assert.Equal(t, "10m0s", d.String())
}

func TestSaveAndReloadRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"cfg.yaml", "cfg.json"} {
		path := filepath.Join(dir, name)

		orig := Default()
		orig.Safety.Pair = "SOL-USD"
		assert.NoError(t, orig.SaveToFile(path))

		loaded, err := LoadFromFile(path)
		assert.NoError(t, err)
		assert.Equal(t, orig, loaded)
	}
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad mode", func(c *Config) { c.Run.Mode = "paper" }, "run.mode"},
		{"zero capital", func(c *Config) { c.Run.InitialCapital = 0 }, "initial_capital"},
		{"bad heartbeat", func(c *Config) { c.Run.HeartbeatInterval = "soon" }, "heartbeat_interval"},
		{"missing timeout", func(c *Config) { c.Phases.Data.Timeout = "" }, "phases.data.timeout"},
		{"negative retries", func(c *Config) { c.Phases.Strategy.MaxRetries = -1 }, "phases.strategy.max_retries"},
		{"bad backoff", func(c *Config) { c.Phases.Exchange.BackoffBase = "fast" }, "phases.exchange.backoff_base"},
		{"missing pair", func(c *Config) { c.Safety.Pair = "" }, "safety.pair"},
		{"missing quote", func(c *Config) { c.Safety.QuoteCurrency = "" }, "safety.quote_currency"},
		{"negative balance", func(c *Config) { c.Safety.MinQuoteBalance = -1 }, "min_quote_balance"},
		{"zero skew", func(c *Config) { c.Safety.MaxClockSkewMS = 0 }, "max_clock_skew_ms"},
		{"no base url", func(c *Config) { c.Exchange.Sim = false }, "base_url"},
		{"bad store type", func(c *Config) { c.EventLog.Type = "csv" }, "event_log.type"},
		{"sqlite no path", func(c *Config) { c.EventLog.DBPath = "" }, "db_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	assert.NoError(t, os.WriteFile(path, []byte("{{{not config"), 0644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}
