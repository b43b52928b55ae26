// Package pricing fetches current prices for the symbols the agent trades.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoPrice means the provider has no usable price for a symbol.
var ErrNoPrice = errors.New("no price")

type Quote struct {
	Symbol string
	Price  decimal.Decimal
	Time   time.Time
	Source string
}

type Provider interface {
	Price(ctx context.Context, symbol string) (Quote, error)
}

func noPrice(symbol, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", symbol, fmt.Sprintf(format, args...), ErrNoPrice)
}

func valid(q Quote) error {
	if !q.Price.IsPositive() {
		return noPrice(q.Symbol, "non-positive price %s", q.Price)
	}
	return nil
}

// First asks each provider in turn and returns the first valid quote.
type First []Provider

func (f First) Price(ctx context.Context, symbol string) (Quote, error) {
	var errs []error
	for _, p := range f {
		q, err := p.Price(ctx, symbol)
		if err == nil {
			return q, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return Quote{}, noPrice(symbol, "no providers")
	}
	return Quote{}, errors.Join(errs...)
}

// Static serves a fixed price table. Symbols are matched case-insensitively.
type Static map[string]decimal.Decimal

func (s Static) Price(_ context.Context, symbol string) (Quote, error) {
	p, ok := s[strings.ToUpper(symbol)]
	if !ok {
		p, ok = s[symbol]
	}
	if !ok {
		return Quote{}, noPrice(symbol, "not in static table")
	}
	q := Quote{Symbol: symbol, Price: p, Time: time.Now(), Source: "static"}
	return q, valid(q)
}
