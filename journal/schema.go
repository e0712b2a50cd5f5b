package journal

// Schema creates the run-journal tables. Applied idempotently on open.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	instrument   TEXT NOT NULL,
	strategy     TEXT NOT NULL,
	initial_cash REAL NOT NULL,
	final_equity REAL NOT NULL,
	start_time   TIMESTAMP,
	end_time     TIMESTAMP,
	created_at   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	time   TIMESTAMP NOT NULL,
	equity REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_equity_run ON equity(run_id, time);

CREATE TABLE IF NOT EXISTS fills (
	run_id     TEXT NOT NULL,
	symbol     TEXT NOT NULL,
	side       TEXT NOT NULL,
	quantity   REAL NOT NULL,
	price      REAL NOT NULL,
	commission REAL NOT NULL,
	time       TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fills_run ON fills(run_id, time);

CREATE TABLE IF NOT EXISTS closed_trades (
	run_id       TEXT NOT NULL,
	symbol       TEXT NOT NULL,
	realized_pnl REAL NOT NULL,
	time         TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_closed_run ON closed_trades(run_id, time);

CREATE TABLE IF NOT EXISTS report_metrics (
	run_id   TEXT NOT NULL,
	position INTEGER NOT NULL,
	name     TEXT NOT NULL,
	value    REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_metrics_run ON report_metrics(run_id, position);
`
