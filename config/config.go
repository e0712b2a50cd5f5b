// Package config loads and validates backtest configuration from YAML or
// JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quantlab/backtest/strategies"
)

// Config represents the complete backtest configuration.
type Config struct {
	Backtest BacktestConfig `json:"backtest" yaml:"backtest"`
	Data     DataConfig     `json:"data" yaml:"data"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Journal  JournalConfig  `json:"journal,omitempty" yaml:"journal,omitempty"`
}

// BacktestConfig contains engine and analyzer parameters.
type BacktestConfig struct {
	InitialCash   float64 `json:"initial_cash" yaml:"initial_cash"`
	RiskFreeRate  float64 `json:"risk_free_rate" yaml:"risk_free_rate"`
	VaRConfidence float64 `json:"var_confidence" yaml:"var_confidence"`
}

// DataConfig points at the per-symbol CSV price files.
type DataConfig struct {
	Dir     string   `json:"dir" yaml:"dir"`
	Symbols []string `json:"symbols" yaml:"symbols"`
}

// StrategyConfig names the variant to run and its tunables.
type StrategyConfig struct {
	Name   string            `json:"name" yaml:"name"`
	Params strategies.Params `json:"params" yaml:"params"`
}

// JournalConfig contains run persistence parameters. An empty Type disables
// journaling.
type JournalConfig struct {
	Type   string `json:"type,omitempty" yaml:"type,omitempty"` // "csv" or "sqlite"
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads configuration from a file, trying YAML first and
// falling back to JSON.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file, choosing the format by
// extension (.yaml/.yml for YAML, anything else JSON).
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

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Backtest.InitialCash <= 0 {
		return fmt.Errorf("backtest.initial_cash must be positive")
	}
	if c.Backtest.RiskFreeRate < 0 {
		return fmt.Errorf("backtest.risk_free_rate must not be negative")
	}
	if c.Backtest.VaRConfidence <= 0 || c.Backtest.VaRConfidence >= 1 {
		return fmt.Errorf("backtest.var_confidence must be between 0 and 1 exclusive")
	}
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required")
	}
	if len(c.Data.Symbols) == 0 {
		return fmt.Errorf("data.symbols must list at least one symbol")
	}
	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}
	if !strategies.Known(c.Strategy.Name) {
		return fmt.Errorf("unknown strategy: %s", c.Strategy.Name)
	}
	if c.Strategy.Params.Symbol == "" {
		return fmt.Errorf("strategy.params.symbol is required")
	}
	if c.Strategy.Params.StopLossPct < 0 || c.Strategy.Params.StopLossPct >= 1 {
		return fmt.Errorf("strategy.params.stop_loss_pct must be in [0, 1)")
	}
	switch c.Journal.Type {
	case "":
		// journaling disabled
	case "csv":
		if c.Journal.Dir == "" {
			return fmt.Errorf("journal.dir required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv' or 'sqlite'")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Backtest: BacktestConfig{
			InitialCash:   100_000,
			RiskFreeRate:  0.02,
			VaRConfidence: 0.95,
		},
		Data: DataConfig{
			Dir:     "./data",
			Symbols: []string{"AAPL"},
		},
		Strategy: StrategyConfig{
			Name: "ma-crossover",
			Params: strategies.Params{
				Symbol:      "AAPL",
				ShortWindow: 50,
				LongWindow:  200,
			},
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./runs.sqlite",
		},
	}
}
