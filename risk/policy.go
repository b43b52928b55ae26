// Package risk bounds trade intents before they reach the execution engine.
package risk

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Policy struct {
	// Share of available cash a single buy may spend. 1.0 lets one buy
	// use the whole wallet.
	MaxBuyFraction decimal.Decimal

	// Share of a held position a single sell may dispose of.
	MaxSellFraction decimal.Decimal

	// Share of cash spent when the oracle holds on an empty portfolio.
	// Zero disables the forced buy.
	ForcedBuyFraction decimal.Decimal
}

// DefaultPolicy allows full-cash buys and half-position sells, no forced buy.
func DefaultPolicy() Policy {
	return Policy{
		MaxBuyFraction:    decimal.NewFromInt(1),
		MaxSellFraction:   decimal.RequireFromString("0.5"),
		ForcedBuyFraction: decimal.Zero,
	}
}

// Validate checks that every fraction is in (0, 1]; the forced buy
// fraction may also be zero.
func (p Policy) Validate() error {
	one := decimal.NewFromInt(1)
	check := func(name string, v decimal.Decimal, allowZero bool) error {
		if v.IsNegative() || v.GreaterThan(one) || (!allowZero && v.IsZero()) {
			return fmt.Errorf("%s %s out of range (0, 1]", name, v)
		}
		return nil
	}
	if err := check("max_buy_fraction", p.MaxBuyFraction, false); err != nil {
		return err
	}
	if err := check("max_sell_fraction", p.MaxSellFraction, false); err != nil {
		return err
	}
	return check("forced_buy_fraction", p.ForcedBuyFraction, true)
}
