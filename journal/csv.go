package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/quantlab/backtest/portfolio"
	"github.com/quantlab/backtest/reporting"
)

// CSVJournal writes one CSV file per record kind into a directory:
// runs.csv, equity.csv, fills.csv, closed_trades.csv, report.csv.
type CSVJournal struct {
	files   []*os.File
	runs    *csv.Writer
	equity  *csv.Writer
	fills   *csv.Writer
	closed  *csv.Writer
	metrics *csv.Writer
}

// NewCSV creates the journal files in dir, which must exist.
func NewCSV(dir string) (*CSVJournal, error) {
	j := &CSVJournal{}

	open := func(name string, header []string) (*csv.Writer, error) {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", name, err)
		}
		j.files = append(j.files, f)
		w := csv.NewWriter(f)
		if err := w.Write(header); err != nil {
			return nil, err
		}
		w.Flush()
		return w, w.Error()
	}

	var err error
	if j.runs, err = open("runs.csv", []string{
		"run_id", "instrument", "strategy", "initial_cash", "final_equity",
		"start_time", "end_time", "created_at"}); err != nil {
		return nil, err
	}
	if j.equity, err = open("equity.csv", []string{"run_id", "time", "equity"}); err != nil {
		return nil, err
	}
	if j.fills, err = open("fills.csv", []string{
		"run_id", "symbol", "side", "quantity", "price", "commission", "time"}); err != nil {
		return nil, err
	}
	if j.closed, err = open("closed_trades.csv", []string{
		"run_id", "symbol", "realized_pnl", "time"}); err != nil {
		return nil, err
	}
	if j.metrics, err = open("report.csv", []string{"run_id", "name", "value"}); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) RecordRun(r Run) error {
	return write(j.runs, []string{
		r.RunID, r.Instrument, r.Strategy, f(r.InitialCash), f(r.FinalEquity),
		r.StartTime.Format(time.RFC3339), r.EndTime.Format(time.RFC3339),
		r.CreatedAt.Format(time.RFC3339),
	})
}

func (j *CSVJournal) RecordEquity(runID string, p portfolio.EquityPoint) error {
	return write(j.equity, []string{runID, p.Time.Format(time.RFC3339), f(p.Equity)})
}

func (j *CSVJournal) RecordFill(runID string, fl portfolio.Fill) error {
	return write(j.fills, []string{
		runID, fl.Symbol, string(fl.Side), f(fl.Quantity), f(fl.Price),
		f(fl.Commission), fl.Time.Format(time.RFC3339),
	})
}

func (j *CSVJournal) RecordClosedTrade(runID string, ct portfolio.ClosedTrade) error {
	return write(j.closed, []string{
		runID, ct.Symbol, f(ct.RealizedPnL), ct.Time.Format(time.RFC3339),
	})
}

func (j *CSVJournal) RecordReport(runID string, r *reporting.Report) error {
	for _, name := range r.Names() {
		value, _ := r.Get(name)
		if err := write(j.metrics, []string{runID, name, f(value)}); err != nil {
			return err
		}
	}
	return nil
}

func (j *CSVJournal) Close() error {
	writers := []*csv.Writer{j.runs, j.equity, j.fills, j.closed, j.metrics}
	for _, w := range writers {
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
	}
	for _, file := range j.files {
		if err := file.Close(); err != nil {
			return err
		}
	}
	return nil
}

func write(w *csv.Writer, record []string) error {
	if err := w.Write(record); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
