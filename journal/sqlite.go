package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, time, symbol, action, shares, price, cash_delta, cash_after, average_cost, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Time.UTC(), t.Symbol, t.Action, t.Shares,
		t.Price, t.CashDelta, t.CashAfter, t.AverageCost, t.Reason,
	)
	return err
}

func (j *SQLite) RecordValuation(v ValuationSnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO valuations (time, cash, market_value, total)
		VALUES (?, ?, ?, ?)`,
		v.Time.UTC(), v.Cash, v.MarketValue, v.Total,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
