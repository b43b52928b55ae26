// Package store persists the paper-trading wallet and positions.
//
// The store is the only source of truth: every read goes to the backing
// medium and every write replaces a whole record. A store is owned by a
// single process; nothing here locks the file against other writers.
package store

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/shopspring/decimal"
)

// ErrNotInitialized is returned by GetCash before the wallet was created.
var ErrNotInitialized = errors.New("wallet not initialized")

type Store interface {
	GetCash() (decimal.Decimal, error)
	SetCash(decimal.Decimal) error
	GetPositions() (broker.Positions, error)
	SetPositions(broker.Positions) error
	Close() error
}

// Committer writes cash and positions as one unit.
type Committer interface {
	Commit(cash decimal.Decimal, positions broker.Positions) error
}

// MetaStore keeps small string facts about the agent between runs.
type MetaStore interface {
	GetMeta(key string) (string, bool, error)
	SetMeta(key, value string) error
}

// Commit writes cash and positions through s. Stores implementing
// Committer do it atomically; others write positions first, then cash.
func Commit(s Store, cash decimal.Decimal, positions broker.Positions) error {
	if c, ok := s.(Committer); ok {
		return c.Commit(cash, positions)
	}
	if err := s.SetPositions(positions); err != nil {
		return err
	}
	return s.SetCash(cash)
}

// Initialize creates the wallet with cash when it does not exist yet.
// With reset the wallet is forced back to cash and all positions dropped.
// It returns the balance in effect afterwards.
func Initialize(s Store, cash decimal.Decimal, reset bool) (decimal.Decimal, error) {
	if cash.IsNegative() {
		return decimal.Zero, fmt.Errorf("initial cash %s is negative", cash)
	}
	if reset {
		if err := Commit(s, cash, broker.Positions{}); err != nil {
			return decimal.Zero, fmt.Errorf("reset wallet: %w", err)
		}
		return cash, nil
	}

	cur, err := s.GetCash()
	if err == nil {
		return cur, nil
	}
	if !errors.Is(err, ErrNotInitialized) {
		return decimal.Zero, err
	}
	if err := s.SetCash(cash); err != nil {
		return decimal.Zero, fmt.Errorf("create wallet: %w", err)
	}
	return cash, nil
}

const (
	MetaBornAt = "born_at"
	MetaStarts = "starts"
)

// Lifecycle is what RecordStart remembers about the agent.
type Lifecycle struct {
	BornAt time.Time
	Starts int
}

// RecordStart bumps the start counter and sets the birth time on first use.
func RecordStart(m MetaStore, now time.Time) (Lifecycle, error) {
	var lc Lifecycle

	born, ok, err := m.GetMeta(MetaBornAt)
	if err != nil {
		return lc, err
	}
	if ok {
		lc.BornAt, err = time.Parse(time.RFC3339, born)
		if err != nil {
			return lc, fmt.Errorf("parse %s: %w", MetaBornAt, err)
		}
	} else {
		lc.BornAt = now.UTC().Truncate(time.Second)
		if err := m.SetMeta(MetaBornAt, lc.BornAt.Format(time.RFC3339)); err != nil {
			return lc, err
		}
	}

	starts, ok, err := m.GetMeta(MetaStarts)
	if err != nil {
		return lc, err
	}
	if ok {
		lc.Starts, err = strconv.Atoi(starts)
		if err != nil {
			return lc, fmt.Errorf("parse %s: %w", MetaStarts, err)
		}
	}
	lc.Starts++
	if err := m.SetMeta(MetaStarts, strconv.Itoa(lc.Starts)); err != nil {
		return lc, err
	}
	return lc, nil
}

func validate(cash decimal.Decimal, positions broker.Positions) error {
	if cash.IsNegative() {
		return fmt.Errorf("cash %s is negative", cash)
	}
	for sym, p := range positions {
		if p.Quantity < 0 {
			return fmt.Errorf("position %s has negative quantity %d", sym, p.Quantity)
		}
		if p.AverageCost.IsNegative() {
			return fmt.Errorf("position %s has negative average cost %s", sym, p.AverageCost)
		}
	}
	return nil
}
