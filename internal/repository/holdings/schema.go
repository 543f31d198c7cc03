package holdings

// Timestamps are unix seconds; aggregates over DATETIME columns lose their
// declared type in SQLite and would not scan back into time.Time.
const schema = `
CREATE TABLE IF NOT EXISTS funds (
	symbol        TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	expense_ratio REAL NOT NULL DEFAULT 0,
	last_updated  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS holdings (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	fund_symbol   TEXT NOT NULL REFERENCES funds(symbol),
	sedol         TEXT NOT NULL DEFAULT '',
	company_name  TEXT NOT NULL,
	ticker        TEXT NOT NULL,
	percentage    REAL NOT NULL DEFAULT 0,
	sub_industry  TEXT NOT NULL DEFAULT '',
	country       TEXT NOT NULL DEFAULT '',
	security_type TEXT NOT NULL DEFAULT '',
	market_value  REAL NOT NULL DEFAULT 0,
	shares        INTEGER NOT NULL DEFAULT 0,
	date_added    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_holdings_ticker ON holdings(ticker);
CREATE INDEX IF NOT EXISTS idx_holdings_fund ON holdings(fund_symbol, percentage DESC);
`
