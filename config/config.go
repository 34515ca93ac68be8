package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete readiness workflow configuration
type Config struct {
	Run      RunConfig      `json:"run" yaml:"run"`
	Phases   PhasesConfig   `json:"phases" yaml:"phases"`
	Safety   SafetyConfig   `json:"safety" yaml:"safety"`
	Exchange ExchangeConfig `json:"exchange" yaml:"exchange"`
	EventLog EventLogConfig `json:"event_log" yaml:"event_log"`
}

// RunConfig contains workflow-level parameters
type RunConfig struct {
	Mode              string  `json:"mode" yaml:"mode"` // "dry-run" or "live"
	InitialCapital    float64 `json:"initial_capital" yaml:"initial_capital"`
	HeartbeatInterval string  `json:"heartbeat_interval" yaml:"heartbeat_interval"` // e.g. "15s"
	SelfCheckTimeout  string  `json:"self_check_timeout,omitempty" yaml:"self_check_timeout,omitempty"`
	BackoffCap        string  `json:"backoff_cap,omitempty" yaml:"backoff_cap,omitempty"`
	StateDir          string  `json:"state_dir" yaml:"state_dir"` // kill-switch file lives here
}

// PhaseConfig contains one phase's deadline and retry budget
type PhaseConfig struct {
	Timeout     string `json:"timeout" yaml:"timeout"`
	MaxRetries  int    `json:"max_retries" yaml:"max_retries"`
	BackoffBase string `json:"backoff_base" yaml:"backoff_base"`
}

// PhasesConfig contains the three ordered phases
type PhasesConfig struct {
	Data     PhaseConfig `json:"data" yaml:"data"`
	Strategy PhaseConfig `json:"strategy" yaml:"strategy"`
	Exchange PhaseConfig `json:"exchange" yaml:"exchange"`
}

// SafetyConfig contains the preflight bounds
type SafetyConfig struct {
	Pair            string  `json:"pair" yaml:"pair"`
	QuoteCurrency   string  `json:"quote_currency" yaml:"quote_currency"`
	MinQuoteBalance float64 `json:"min_quote_balance" yaml:"min_quote_balance"`
	MaxClockSkewMS  int     `json:"max_clock_skew_ms" yaml:"max_clock_skew_ms"`
}

// ExchangeConfig selects the venue client
type ExchangeConfig struct {
	Sim     bool   `json:"sim" yaml:"sim"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// EventLogConfig selects the event store backend
type EventLogConfig struct {
	Type    string `json:"type" yaml:"type"` // "sqlite" or "jsonl"
	DBPath  string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	LogPath string `json:"log_path,omitempty" yaml:"log_path,omitempty"`
}

// ParseTimeout converts the phase timeout string to a time.Duration
func (pc PhaseConfig) ParseTimeout() (time.Duration, error) {
	return time.ParseDuration(pc.Timeout)
}

// ParseBackoffBase converts the backoff base string to a time.Duration
func (pc PhaseConfig) ParseBackoffBase() (time.Duration, error) {
	if pc.BackoffBase == "" {
		return 0, nil
	}
	return time.ParseDuration(pc.BackoffBase)
}

// LoadFromFile loads configuration from a file (JSON or YAML based on content)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Run.Mode != "dry-run" && c.Run.Mode != "live" {
		return fmt.Errorf("run.mode must be 'dry-run' or 'live'")
	}
	if c.Run.InitialCapital <= 0 {
		return fmt.Errorf("run.initial_capital must be positive")
	}
	if c.Run.HeartbeatInterval != "" {
		if d, err := time.ParseDuration(c.Run.HeartbeatInterval); err != nil || d <= 0 {
			return fmt.Errorf("run.heartbeat_interval must be a positive duration")
		}
	}

	for _, pc := range []struct {
		name string
		cfg  PhaseConfig
	}{
		{"data", c.Phases.Data},
		{"strategy", c.Phases.Strategy},
		{"exchange", c.Phases.Exchange},
	} {
		d, err := pc.cfg.ParseTimeout()
		if err != nil || d <= 0 {
			return fmt.Errorf("phases.%s.timeout must be a positive duration", pc.name)
		}
		if pc.cfg.MaxRetries < 0 {
			return fmt.Errorf("phases.%s.max_retries must not be negative", pc.name)
		}
		if _, err := pc.cfg.ParseBackoffBase(); err != nil {
			return fmt.Errorf("phases.%s.backoff_base: %v", pc.name, err)
		}
	}

	if c.Safety.Pair == "" {
		return fmt.Errorf("safety.pair is required")
	}
	if c.Safety.QuoteCurrency == "" {
		return fmt.Errorf("safety.quote_currency is required")
	}
	if c.Safety.MinQuoteBalance < 0 {
		return fmt.Errorf("safety.min_quote_balance must not be negative")
	}
	if c.Safety.MaxClockSkewMS <= 0 {
		return fmt.Errorf("safety.max_clock_skew_ms must be positive")
	}

	if !c.Exchange.Sim && c.Exchange.BaseURL == "" {
		return fmt.Errorf("exchange.base_url required unless exchange.sim is set")
	}

	if c.EventLog.Type != "sqlite" && c.EventLog.Type != "jsonl" {
		return fmt.Errorf("event_log.type must be 'sqlite' or 'jsonl'")
	}
	if c.EventLog.Type == "sqlite" && c.EventLog.DBPath == "" {
		return fmt.Errorf("event_log.db_path required for sqlite type")
	}
	if c.EventLog.Type == "jsonl" && c.EventLog.LogPath == "" {
		return fmt.Errorf("event_log.log_path required for jsonl type")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Run: RunConfig{
			Mode:              "dry-run",
			InitialCapital:    10000,
			HeartbeatInterval: "15s",
			StateDir:          ".",
		},
		Phases: PhasesConfig{
			Data:     PhaseConfig{Timeout: "30m", MaxRetries: 3, BackoffBase: "2s"},
			Strategy: PhaseConfig{Timeout: "1h", MaxRetries: 2, BackoffBase: "5s"},
			Exchange: PhaseConfig{Timeout: "15m", MaxRetries: 3, BackoffBase: "2s"},
		},
		Safety: SafetyConfig{
			Pair:            "BTC-USD",
			QuoteCurrency:   "USD",
			MinQuoteBalance: 10,
			MaxClockSkewMS:  1000,
		},
		Exchange: ExchangeConfig{
			Sim: true,
		},
		EventLog: EventLogConfig{
			Type:   "sqlite",
			DBPath: "./readiness.sqlite",
		},
	}
}
