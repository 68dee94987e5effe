package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete description of one backtest run.
type Config struct {
	Data      DataConfig      `json:"data" yaml:"data"`
	Account   AccountConfig   `json:"account" yaml:"account"`
	Execution ExecutionConfig `json:"execution" yaml:"execution"`
	Strategy  StrategyConfig  `json:"strategy" yaml:"strategy"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
	Journal   JournalConfig   `json:"journal" yaml:"journal"`
}

// DataConfig maps instrument identifiers to CSV bar files.
type DataConfig struct {
	Bars map[string]string `json:"bars" yaml:"bars"`
}

// AccountConfig contains account initialization parameters.
type AccountConfig struct {
	StartingCash float64 `json:"starting_cash" yaml:"starting_cash"`
}

// ExecutionConfig contains execution-simulator cost parameters.
// Commission is in basis points of notional; slippage is an absolute
// price amount applied against the trader.
type ExecutionConfig struct {
	CommissionBPS float64 `json:"commission_bps" yaml:"commission_bps"`
	Slippage      float64 `json:"slippage" yaml:"slippage"`
}

// StrategyConfig contains strategy construction parameters.
type StrategyConfig struct {
	Name       string `json:"name" yaml:"name"`
	Instrument string `json:"instrument" yaml:"instrument"`
	Short      int    `json:"short" yaml:"short"`
	Long       int    `json:"long" yaml:"long"`
	Unit       int64  `json:"unit" yaml:"unit"`
}

// MetricsConfig contains performance-analytics parameters.
type MetricsConfig struct {
	RiskFree       float64 `json:"risk_free" yaml:"risk_free"`
	PeriodsPerYear int     `json:"periods_per_year" yaml:"periods_per_year"`
}

// JournalConfig selects how run results are persisted.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	FillsFile  string `json:"fills_file,omitempty" yaml:"fills_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads a config file, trying YAML first and JSON second.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the config as YAML (.yaml/.yml) or indented JSON.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if hasSuffix(path, ".yaml") || hasSuffix(path, ".yml") {
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

// Validate fails fast on an unusable configuration.
func (c *Config) Validate() error {
	if len(c.Data.Bars) == 0 {
		return fmt.Errorf("data.bars requires at least one instrument")
	}
	for instr, path := range c.Data.Bars {
		if instr == "" || path == "" {
			return fmt.Errorf("data.bars entries need both instrument and path")
		}
	}
	if c.Account.StartingCash <= 0 {
		return fmt.Errorf("account.starting_cash must be positive")
	}
	if c.Execution.CommissionBPS < 0 {
		return fmt.Errorf("execution.commission_bps must be non-negative")
	}
	if c.Execution.Slippage < 0 {
		return fmt.Errorf("execution.slippage must be non-negative")
	}
	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}
	if c.Strategy.Name != "noop" {
		if c.Strategy.Instrument == "" {
			return fmt.Errorf("strategy.instrument is required")
		}
		if _, ok := c.Data.Bars[c.Strategy.Instrument]; !ok {
			return fmt.Errorf("strategy.instrument %q has no data.bars entry", c.Strategy.Instrument)
		}
		if c.Strategy.Short <= 0 || c.Strategy.Long <= 0 {
			return fmt.Errorf("strategy windows must be positive")
		}
		if c.Strategy.Short >= c.Strategy.Long {
			return fmt.Errorf("strategy.short must be below strategy.long")
		}
		if c.Strategy.Unit <= 0 {
			return fmt.Errorf("strategy.unit must be positive")
		}
	}
	if c.Metrics.PeriodsPerYear <= 0 {
		return fmt.Errorf("metrics.periods_per_year must be positive")
	}
	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.FillsFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal fills_file and equity_file required for csv type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for sqlite type")
		}
	default:
		return fmt.Errorf("journal.type must be none, csv or sqlite")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Bars: map[string]string{"MOCK": "./bars.csv"},
		},
		Account: AccountConfig{
			StartingCash: 100_000,
		},
		Execution: ExecutionConfig{
			CommissionBPS: 5, // 0.0005 of notional
			Slippage:      0,
		},
		Strategy: StrategyConfig{
			Name:       "sma-cross",
			Instrument: "MOCK",
			Short:      10,
			Long:       30,
			Unit:       10,
		},
		Metrics: MetricsConfig{
			RiskFree:       0,
			PeriodsPerYear: 252,
		},
		Journal: JournalConfig{
			Type:   "none",
			DBPath: "./backtest.sqlite",
		},
	}
}

func hasSuffix(s, suf string) bool {
	return len(s) >= len(suf) && s[len(s)-len(suf):] == suf
}
