// Package engine drives the time-stepped simulation loop: one ledger
// mark-to-market, one optional stop-loss check and one strategy callback per
// bar, strictly in time order.
package engine

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/quantlab/backtest/logger"
	"github.com/quantlab/backtest/marketdata"
	"github.com/quantlab/backtest/portfolio"
	"github.com/quantlab/backtest/strategies"
)

// ErrNotConfigured is returned when Run is attempted before both the bar
// table and the strategy have been set.
var ErrNotConfigured = errors.New("engine: data and strategy must be set before running")

// ErrAlreadyRun is returned when Run is attempted on a finished engine. Each
// engine owns exactly one ledger and performs exactly one run.
var ErrAlreadyRun = errors.New("engine: run already completed")

// State tracks the engine lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateRunning
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Engine owns one ledger for one backtest run and iterates the bar table,
// single-threaded and synchronous. Fills a strategy issues during OnBar
// apply immediately and show up in the next bar's equity point.
type Engine struct {
	ledger   *portfolio.Ledger
	data     *marketdata.Table
	strategy strategies.Strategy
	state    State
	log      *logger.Logger
}

// Result is the terminal output of a run.
type Result struct {
	EquityCurve  []portfolio.EquityPoint
	Fills        []portfolio.Fill
	ClosedTrades []portfolio.ClosedTrade
}

// New returns an engine with a fresh ledger holding initialCash.
func New(initialCash float64, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		ledger: portfolio.NewLedger(initialCash, log),
		state:  StateUninitialized,
		log:    log.Named("engine"),
	}
}

// Ledger exposes the engine's ledger, primarily for inspection in tests and
// reporting.
func (e *Engine) Ledger() *portfolio.Ledger { return e.ledger }

// State returns the current lifecycle state.
func (e *Engine) State() State { return e.state }

// SetData installs the merged, forward-filled bar table.
func (e *Engine) SetData(data *marketdata.Table) {
	e.data = data
	e.refreshState()
}

// SetStrategy installs the strategy driven by the run.
func (e *Engine) SetStrategy(s strategies.Strategy) {
	e.strategy = s
	if s != nil {
		e.log.Info("strategy set", zap.String("strategy", s.Name()))
	}
	e.refreshState()
}

func (e *Engine) refreshState() {
	if e.state != StateUninitialized && e.state != StateReady {
		return
	}
	if e.data != nil && e.strategy != nil {
		e.state = StateReady
	} else {
		e.state = StateUninitialized
	}
}

// Run executes the simulation over every bar and returns the completed
// equity curve and trade logs. It fails with ErrNotConfigured if data or
// strategy is missing and with ErrAlreadyRun on a finished engine; no
// partial result is ever returned.
func (e *Engine) Run() (*Result, error) {
	switch e.state {
	case StateFinished, StateRunning:
		return nil, ErrAlreadyRun
	case StateReady:
	default:
		if e.data == nil {
			return nil, fmt.Errorf("%w: no data loaded", ErrNotConfigured)
		}
		return nil, fmt.Errorf("%w: no strategy set", ErrNotConfigured)
	}

	e.state = StateRunning
	e.log.Info("starting backtest",
		zap.String("strategy", e.strategy.Name()),
		zap.Int("bars", e.data.Len()))

	e.strategy.Initialize(e.ledger)
	e.strategy.SetData(e.data)

	stopLoss, hasStopLoss := e.strategy.(strategies.StopLossPolicy)

	for i := 0; i < e.data.Len(); i++ {
		bar := e.data.Bar(i)

		e.ledger.MarkToMarket(bar.Close, bar.Time)

		// Stop-loss is evaluated before the strategy's own signal logic
		// for the bar.
		if hasStopLoss {
			if price, ok := bar.Price(stopLoss.TrackedSymbol()); ok {
				stopLoss.CheckStopLoss(price)
			}
		}

		if err := e.strategy.OnBar(i, bar); err != nil {
			e.state = StateFinished
			return nil, fmt.Errorf("engine: strategy failed at bar %d: %w", i, err)
		}
	}

	e.state = StateFinished
	e.log.Info("backtest finished",
		zap.Int("fills", len(e.ledger.Fills())),
		zap.Int("closed_trades", len(e.ledger.ClosedTrades())))

	return &Result{
		EquityCurve:  e.ledger.EquityCurve(),
		Fills:        e.ledger.Fills(),
		ClosedTrades: e.ledger.ClosedTrades(),
	}, nil
}
