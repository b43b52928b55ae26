// Package journal keeps a human-readable history of executed trades and
// portfolio valuations. It is a log for people, not the ledger: the
// store package owns cash and positions.
package journal

import (
	"time"

	"github.com/shopspring/decimal"
)

type TradeRecord struct {
	TradeID   string
	Time      time.Time
	Symbol    string
	Action    string
	Shares    int64
	Price     decimal.Decimal
	CashDelta decimal.Decimal
	CashAfter decimal.Decimal

	// AverageCost of the holding after the trade, zero once liquidated.
	AverageCost decimal.Decimal
	Reason      string
}

type ValuationSnapshot struct {
	Time        time.Time
	Cash        decimal.Decimal
	MarketValue decimal.Decimal
	Total       decimal.Decimal
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordValuation(ValuationSnapshot) error
	Close() error
}

// Discard is a Journal that drops everything.
var Discard Journal = discard{}

type discard struct{}

func (discard) RecordTrade(TradeRecord) error           { return nil }
func (discard) RecordValuation(ValuationSnapshot) error { return nil }
func (discard) Close() error                            { return nil }
