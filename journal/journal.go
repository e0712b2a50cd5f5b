// Package journal persists completed backtest runs — equity curves, fills,
// closed trades and performance reports — to SQLite or CSV.
package journal

import (
	"time"

	"github.com/quantlab/backtest/portfolio"
	"github.com/quantlab/backtest/reporting"
)

// Run is the header record of one backtest run.
type Run struct {
	RunID       string
	Instrument  string
	Strategy    string
	InitialCash float64
	FinalEquity float64
	StartTime   time.Time
	EndTime     time.Time
	CreatedAt   time.Time
}

// Journal records the artifacts of a run. Implementations are not safe for
// concurrent use; a backtest run owns its journal.
type Journal interface {
	RecordRun(Run) error
	RecordEquity(runID string, p portfolio.EquityPoint) error
	RecordFill(runID string, f portfolio.Fill) error
	RecordClosedTrade(runID string, ct portfolio.ClosedTrade) error
	RecordReport(runID string, r *reporting.Report) error
	Close() error
}

// Save writes a whole finished run through j in one call.
func Save(
	j Journal,
	run Run,
	curve []portfolio.EquityPoint,
	fills []portfolio.Fill,
	closed []portfolio.ClosedTrade,
	report *reporting.Report,
) error {
	if len(curve) > 0 {
		run.StartTime = curve[0].Time
		run.EndTime = curve[len(curve)-1].Time
		run.FinalEquity = curve[len(curve)-1].Equity
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if err := j.RecordRun(run); err != nil {
		return err
	}
	for _, p := range curve {
		if err := j.RecordEquity(run.RunID, p); err != nil {
			return err
		}
	}
	for _, f := range fills {
		if err := j.RecordFill(run.RunID, f); err != nil {
			return err
		}
	}
	for _, ct := range closed {
		if err := j.RecordClosedTrade(run.RunID, ct); err != nil {
			return err
		}
	}
	if report != nil {
		if err := j.RecordReport(run.RunID, report); err != nil {
			return err
		}
	}
	return nil
}
