// Package strategies defines the capability contract the simulation engine
// drives, the shared order-entry helper strategies compose, and the built-in
// strategy variants.
package strategies

import (
	"errors"
	"fmt"
	"strings"

	"github.com/quantlab/backtest/logger"
	"github.com/quantlab/backtest/marketdata"
	"github.com/quantlab/backtest/portfolio"
)

// ErrNotImplemented is returned by Base.OnBar when a variant fails to supply
// its own bar logic.
var ErrNotImplemented = errors.New("strategies: OnBar not implemented")

// Strategy is the contract every variant must satisfy. The engine calls
// Initialize and SetData once before the run, then OnBar once per bar in
// time order. Fills issued from OnBar apply immediately and are visible from
// the next bar's mark-to-market onward.
type Strategy interface {
	Name() string
	Initialize(ledger *portfolio.Ledger)
	SetData(data *marketdata.Table)
	OnBar(i int, bar marketdata.Bar) error
}

// StopLossPolicy is the optional capability the engine probes for before
// each bar's signal logic. Implementations are expected to be long-only
// no-ops when they hold no position.
type StopLossPolicy interface {
	TrackedSymbol() string
	CheckStopLoss(price float64)
}

// Base carries the composed order-entry helper and the not-implemented
// default for OnBar. Variants embed it and override OnBar.
type Base struct {
	Trader
}

// OnBar reports that the embedding variant never supplied bar logic.
func (b *Base) OnBar(i int, bar marketdata.Bar) error {
	return fmt.Errorf("%w (bar %d)", ErrNotImplemented, i)
}

// Params bundles the tunables of all built-in variants so they can be read
// from one config block. Zero values fall back to each variant's defaults.
type Params struct {
	Symbol      string  `json:"symbol" yaml:"symbol"`
	Symbol2     string  `json:"symbol2,omitempty" yaml:"symbol2,omitempty"` // pairs only
	StopLossPct float64 `json:"stop_loss_pct,omitempty" yaml:"stop_loss_pct,omitempty"`

	ShortWindow int `json:"short_window,omitempty" yaml:"short_window,omitempty"`
	LongWindow  int `json:"long_window,omitempty" yaml:"long_window,omitempty"`

	RSIPeriod  int     `json:"rsi_period,omitempty" yaml:"rsi_period,omitempty"`
	Overbought float64 `json:"overbought,omitempty" yaml:"overbought,omitempty"`
	Oversold   float64 `json:"oversold,omitempty" yaml:"oversold,omitempty"`

	Window    int     `json:"window,omitempty" yaml:"window,omitempty"`
	NumStdDev float64 `json:"num_std_dev,omitempty" yaml:"num_std_dev,omitempty"`

	EntryZScore float64 `json:"entry_zscore,omitempty" yaml:"entry_zscore,omitempty"`
	ExitZScore  float64 `json:"exit_zscore,omitempty" yaml:"exit_zscore,omitempty"`

	Seed int64 `json:"seed,omitempty" yaml:"seed,omitempty"` // predictive only
}

// New builds a strategy variant by name.
func New(name string, p Params, log *logger.Logger) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ma-crossover", "macrossover", "sma-cross":
		return NewMACrossover(p, log), nil
	case "rsi":
		return NewRSI(p, log), nil
	case "mean-reversion", "meanreversion":
		return NewMeanReversion(p, log), nil
	case "pairs", "pairs-trading":
		if p.Symbol2 == "" {
			return nil, fmt.Errorf("strategies: pairs-trading requires symbol2")
		}
		return NewPairsTrading(p, log), nil
	case "predictive":
		return NewPredictive(p, log), nil
	default:
		return nil, fmt.Errorf("strategies: unknown strategy %q (supported: ma-crossover, rsi, mean-reversion, pairs-trading, predictive)", name)
	}
}

// Known reports whether name resolves to a built-in variant.
func Known(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ma-crossover", "macrossover", "sma-cross",
		"rsi",
		"mean-reversion", "meanreversion",
		"pairs", "pairs-trading",
		"predictive":
		return true
	}
	return false
}

// push appends v to a rolling window capped at maxLen, dropping the oldest
// value once full.
func push(window []float64, v float64, maxLen int) []float64 {
	window = append(window, v)
	if len(window) > maxLen {
		window = window[1:]
	}
	return window
}

// last returns the final element of a talib output slice.
func last(vals []float64) float64 {
	return vals[len(vals)-1]
}
