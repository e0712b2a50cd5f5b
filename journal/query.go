package journal

import (
	"github.com/quantlab/backtest/portfolio"
	"github.com/quantlab/backtest/reporting"
)

// ListRuns returns run headers, most recent first.
func (j *SQLiteJournal) ListRuns() ([]Run, error) {
	rows, err := j.db.Query(`
		SELECT run_id, instrument, strategy, initial_cash, final_equity, start_time, end_time, created_at
		FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.Instrument, &r.Strategy, &r.InitialCash,
			&r.FinalEquity, &r.StartTime, &r.EndTime, &r.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LoadEquityCurve reloads a run's equity points in time order.
func (j *SQLiteJournal) LoadEquityCurve(runID string) ([]portfolio.EquityPoint, error) {
	rows, err := j.db.Query(
		`SELECT time, equity FROM equity WHERE run_id = ? ORDER BY time`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var curve []portfolio.EquityPoint
	for rows.Next() {
		var p portfolio.EquityPoint
		if err := rows.Scan(&p.Time, &p.Equity); err != nil {
			return nil, err
		}
		curve = append(curve, p)
	}
	return curve, rows.Err()
}

// LoadFills reloads a run's fill log in time order.
func (j *SQLiteJournal) LoadFills(runID string) ([]portfolio.Fill, error) {
	rows, err := j.db.Query(`
		SELECT symbol, side, quantity, price, commission, time
		FROM fills WHERE run_id = ? ORDER BY time`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fills []portfolio.Fill
	for rows.Next() {
		var f portfolio.Fill
		var side string
		if err := rows.Scan(&f.Symbol, &side, &f.Quantity, &f.Price, &f.Commission, &f.Time); err != nil {
			return nil, err
		}
		f.Side = portfolio.Side(side)
		fills = append(fills, f)
	}
	return fills, rows.Err()
}

// LoadClosedTrades reloads a run's closed trades in time order.
func (j *SQLiteJournal) LoadClosedTrades(runID string) ([]portfolio.ClosedTrade, error) {
	rows, err := j.db.Query(`
		SELECT symbol, realized_pnl, time
		FROM closed_trades WHERE run_id = ? ORDER BY time`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var closed []portfolio.ClosedTrade
	for rows.Next() {
		var ct portfolio.ClosedTrade
		if err := rows.Scan(&ct.Symbol, &ct.RealizedPnL, &ct.Time); err != nil {
			return nil, err
		}
		closed = append(closed, ct)
	}
	return closed, rows.Err()
}

// LoadReport reloads a run's performance report with its original metric
// ordering.
func (j *SQLiteJournal) LoadReport(runID string) (*reporting.Report, error) {
	rows, err := j.db.Query(`
		SELECT name, value FROM report_metrics
		WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	r := reporting.NewReport()
	for rows.Next() {
		var name string
		var value float64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		r.Set(name, value)
	}
	return r, rows.Err()
}
