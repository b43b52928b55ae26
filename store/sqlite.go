package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/papertrader/broker"
	"github.com/shopspring/decimal"
)

// SQLite keeps the ledger in three tables: wallet, positions and meta.
// Decimals are stored as TEXT so they come back exactly as written.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// one connection keeps an in-memory database alive across calls
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) GetCash() (decimal.Decimal, error) {
	var raw string
	err := s.db.QueryRow(`SELECT cash FROM wallet WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrNotInitialized
	}
	if err != nil {
		return decimal.Zero, err
	}
	cash, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("wallet cash %q: %w", raw, err)
	}
	return cash, nil
}

func (s *SQLite) SetCash(cash decimal.Decimal) error {
	if cash.IsNegative() {
		return fmt.Errorf("cash %s is negative", cash)
	}
	_, err := s.db.Exec(`
		INSERT INTO wallet (id, cash) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET cash = excluded.cash`, cash.String())
	return err
}

func (s *SQLite) GetPositions() (broker.Positions, error) {
	rows, err := s.db.Query(`SELECT symbol, quantity, average_cost FROM positions ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := broker.Positions{}
	for rows.Next() {
		var (
			p   broker.Position
			raw string
		)
		if err := rows.Scan(&p.Symbol, &p.Quantity, &raw); err != nil {
			return nil, err
		}
		p.AverageCost, err = decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("position %s average cost %q: %w", p.Symbol, raw, err)
		}
		out[p.Symbol] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLite) SetPositions(positions broker.Positions) error {
	if err := validate(decimal.Zero, positions); err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := replacePositions(tx, positions); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Commit replaces the wallet and every position in one transaction.
func (s *SQLite) Commit(cash decimal.Decimal, positions broker.Positions) error {
	if err := validate(cash, positions); err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := replacePositions(tx, positions); err != nil {
		tx.Rollback()
		return err
	}
	_, err = tx.Exec(`
		INSERT INTO wallet (id, cash) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET cash = excluded.cash`, cash.String())
	if err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func replacePositions(tx *sql.Tx, positions broker.Positions) error {
	if _, err := tx.Exec(`DELETE FROM positions`); err != nil {
		return err
	}
	for _, sym := range positions.Symbols() {
		p := positions[sym]
		if p.Quantity == 0 {
			continue
		}
		_, err := tx.Exec(`
			INSERT INTO positions (symbol, quantity, average_cost)
			VALUES (?, ?, ?)`, sym, p.Quantity, p.AverageCost.String())
		if err != nil {
			return fmt.Errorf("insert position %s: %w", sym, err)
		}
	}
	return nil
}

func (s *SQLite) GetMeta(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *SQLite) SetMeta(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
