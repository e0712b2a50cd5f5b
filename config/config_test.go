package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Default().Validate())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero cash", func(c *Config) { c.Backtest.InitialCash = 0 }, "initial_cash"},
		{"negative risk-free rate", func(c *Config) { c.Backtest.RiskFreeRate = -0.01 }, "risk_free_rate"},
		{"var confidence too high", func(c *Config) { c.Backtest.VaRConfidence = 1 }, "var_confidence"},
		{"missing data dir", func(c *Config) { c.Data.Dir = "" }, "data.dir"},
		{"no symbols", func(c *Config) { c.Data.Symbols = nil }, "data.symbols"},
		{"missing strategy name", func(c *Config) { c.Strategy.Name = "" }, "strategy.name"},
		{"unknown strategy", func(c *Config) { c.Strategy.Name = "momentum" }, "unknown strategy"},
		{"missing strategy symbol", func(c *Config) { c.Strategy.Params.Symbol = "" }, "params.symbol"},
		{"stop loss out of range", func(c *Config) { c.Strategy.Params.StopLossPct = 1.5 }, "stop_loss_pct"},
		{"csv journal without dir", func(c *Config) { c.Journal = JournalConfig{Type: "csv"} }, "journal.dir"},
		{"sqlite journal without path", func(c *Config) { c.Journal = JournalConfig{Type: "sqlite"} }, "journal.db_path"},
		{"bad journal type", func(c *Config) { c.Journal.Type = "postgres" }, "journal.type"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestJournalingMayBeDisabled(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Journal = JournalConfig{}
	assert.NoError(t, cfg.Validate())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()

	for _, ext := range []string{"yaml", "json"} {
		ext := ext
		t.Run(ext, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "config."+ext)
			want := Default()
			want.Strategy.Name = "rsi"
			want.Strategy.Params.RSIPeriod = 21

			require.NoError(t, want.SaveToFile(path))
			got, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestLoadFromFileRejectsInvalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Backtest.InitialCash = -5
	require.NoError(t, cfg.SaveToFile(path))

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestLoadFromFileErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("garbage content", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("::: not a config :::"), 0644))
		_, err := LoadFromFile(path)
		assert.Error(t, err)
	})
}
