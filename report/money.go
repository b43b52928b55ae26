package report

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Format renders amount in currency's conventions, e.g. "$88,120.00".
func Format(amount decimal.Decimal, currency string) string {
	// money.New never returns a nil currency, GetCurrency does for unknown codes
	cur := *money.New(0, currency).Currency()
	if cur.Template == "" {
		return strings.TrimSpace(amount.StringFixed(2) + " " + currency)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return cur.Formatter().Format(minor)
}

// Signed is Format with an explicit sign on positive amounts.
func Signed(amount decimal.Decimal, currency string) string {
	switch {
	case amount.IsPositive():
		return "+" + Format(amount, currency)
	case amount.IsNegative():
		return "-" + Format(amount.Neg(), currency)
	default:
		return Format(amount, currency)
	}
}
