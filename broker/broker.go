// Package broker holds the paper-trading ledger types shared by the
// store, the order policy and the execution engine.
package broker

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Position is a whole-share holding of a single symbol.
//
// A position with Quantity == 0 is never stored: it is deleted instead.
type Position struct {
	Symbol      string          `json:"symbol"`
	Quantity    int64           `json:"quantity"`
	AverageCost decimal.Decimal `json:"average_cost"`
}

// CostBasis returns Quantity * AverageCost.
func (p Position) CostBasis() decimal.Decimal {
	return p.AverageCost.Mul(decimal.NewFromInt(p.Quantity))
}

// Positions maps a symbol to its position.
type Positions map[string]Position

// Clone returns a copy that can be mutated without touching p.
func (p Positions) Clone() Positions {
	out := make(Positions, len(p))
	for sym, pos := range p {
		out[sym] = pos
	}
	return out
}

// Get returns the position for symbol, or nil if there is none.
func (p Positions) Get(symbol string) *Position {
	pos, ok := p[symbol]
	if !ok || pos.Quantity <= 0 {
		return nil
	}
	return &pos
}

// Symbols returns the held symbols in lexical order.
func (p Positions) Symbols() []string {
	out := make([]string, 0, len(p))
	for sym := range p {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Wallet is the cash side of the ledger.
type Wallet struct {
	Cash decimal.Decimal `json:"cash"`
}
