// Package report values the portfolio and renders it for people.
package report

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/pricing"
	"github.com/shopspring/decimal"
)

type Holding struct {
	Symbol      string
	Quantity    int64
	AverageCost decimal.Decimal
	CostBasis   decimal.Decimal

	// Priced is false when no quote was available; the holding is then
	// valued at cost.
	Priced        bool
	Price         decimal.Decimal
	MarketValue   decimal.Decimal
	Unrealized    decimal.Decimal
	UnrealizedPct decimal.Decimal
}

type Valuation struct {
	Time        time.Time
	Currency    string
	Cash        decimal.Decimal
	MarketValue decimal.Decimal
	CostBasis   decimal.Decimal
	Unrealized  decimal.Decimal
	Total       decimal.Decimal
	Holdings    []Holding
}

var hundred = decimal.NewFromInt(100)

// Build values every position at its current price. A failed quote does
// not fail the valuation; see Holding.Priced.
func Build(ctx context.Context, cash decimal.Decimal, positions broker.Positions, prices pricing.Provider, currency string, at time.Time) Valuation {
	v := Valuation{Time: at, Currency: currency, Cash: cash}

	for _, sym := range positions.Symbols() {
		p := positions[sym]
		if p.Quantity <= 0 {
			continue
		}
		h := Holding{
			Symbol:      sym,
			Quantity:    p.Quantity,
			AverageCost: p.AverageCost,
			CostBasis:   p.CostBasis(),
		}
		h.MarketValue = h.CostBasis
		if prices != nil {
			q, err := prices.Price(ctx, sym)
			switch {
			case err == nil:
				h.Priced = true
				h.Price = q.Price
				h.MarketValue = q.Price.Mul(decimal.NewFromInt(p.Quantity))
			case errors.Is(err, pricing.ErrNoPrice):
				log.Printf("[PRICE] %s: %v", sym, err)
			default:
				log.Printf("[PRICE] %s: fetch failed: %v", sym, err)
			}
		}
		h.Unrealized = h.MarketValue.Sub(h.CostBasis)
		if h.CostBasis.IsPositive() {
			h.UnrealizedPct = h.Unrealized.Div(h.CostBasis).Mul(hundred)
		}

		v.Holdings = append(v.Holdings, h)
		v.MarketValue = v.MarketValue.Add(h.MarketValue)
		v.CostBasis = v.CostBasis.Add(h.CostBasis)
		v.Unrealized = v.Unrealized.Add(h.Unrealized)
	}
	v.Total = v.Cash.Add(v.MarketValue)
	return v
}

// Snapshot is the journal form of the valuation.
func (v Valuation) Snapshot() journal.ValuationSnapshot {
	return journal.ValuationSnapshot{
		Time:        v.Time,
		Cash:        v.Cash,
		MarketValue: v.MarketValue,
		Total:       v.Total,
	}
}
