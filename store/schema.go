package store

const Schema = `
CREATE TABLE IF NOT EXISTS wallet (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	cash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	symbol TEXT PRIMARY KEY,
	quantity INTEGER NOT NULL CHECK (quantity > 0),
	average_cost TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
