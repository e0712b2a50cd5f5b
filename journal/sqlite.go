package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quantlab/backtest/portfolio"
	"github.com/quantlab/backtest/reporting"
)

// SQLiteJournal stores runs in a single SQLite database file.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path and applies the
// schema.
func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite journal: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordRun(r Run) error {
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, instrument, strategy, initial_cash, final_equity, start_time, end_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Instrument, r.Strategy, r.InitialCash, r.FinalEquity,
		r.StartTime, r.EndTime, r.CreatedAt,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(runID string, p portfolio.EquityPoint) error {
	_, err := j.db.Exec(
		`INSERT INTO equity (run_id, time, equity) VALUES (?, ?, ?)`,
		runID, p.Time, p.Equity,
	)
	return err
}

func (j *SQLiteJournal) RecordFill(runID string, f portfolio.Fill) error {
	_, err := j.db.Exec(`
		INSERT INTO fills (run_id, symbol, side, quantity, price, commission, time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, f.Symbol, string(f.Side), f.Quantity, f.Price, f.Commission, f.Time,
	)
	return err
}

func (j *SQLiteJournal) RecordClosedTrade(runID string, ct portfolio.ClosedTrade) error {
	_, err := j.db.Exec(`
		INSERT INTO closed_trades (run_id, symbol, realized_pnl, time)
		VALUES (?, ?, ?, ?)`,
		runID, ct.Symbol, ct.RealizedPnL, ct.Time,
	)
	return err
}

func (j *SQLiteJournal) RecordReport(runID string, r *reporting.Report) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	for i, name := range r.Names() {
		value, _ := r.Get(name)
		if _, err := tx.Exec(`
			INSERT INTO report_metrics (run_id, position, name, value)
			VALUES (?, ?, ?, ?)`,
			runID, i, name, value,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
