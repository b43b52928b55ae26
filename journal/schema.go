package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	action TEXT NOT NULL,
	shares INTEGER NOT NULL,
	price TEXT NOT NULL,
	cash_delta TEXT NOT NULL,
	cash_after TEXT NOT NULL,
	average_cost TEXT NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_time ON trades(time);

CREATE TABLE IF NOT EXISTS valuations (
	time DATETIME NOT NULL,
	cash TEXT NOT NULL,
	market_value TEXT NOT NULL,
	total TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_valuations_time ON valuations(time);
`
