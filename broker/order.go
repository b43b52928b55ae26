package broker

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
	Hold Action = "HOLD"
)

// ParseAction accepts the canonical names and a few synonyms, case-insensitive.
// Anything unknown is a HOLD.
func ParseAction(s string) Action {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "KÖP", "KOP", "LONG":
		return Buy
	case "SELL", "SÄLJ", "SALJ", "EXIT":
		return Sell
	default:
		return Hold
	}
}

type Unit string

const (
	UnitCash   Unit = "CASH"
	UnitShares Unit = "SHARES"
)

// ParseUnit maps currency codes and share synonyms onto a Unit. The empty
// string is returned for anything unrecognised.
func ParseUnit(s string) Unit {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CASH", "SEK", "USD", "EUR", "MONEY":
		return UnitCash
	case "SHARES", "SHARE", "QTY", "UNITS":
		return UnitShares
	default:
		return ""
	}
}

// OrderIntent is an unclamped trade proposal. Buy amounts are cash, sell
// amounts are shares, unless Unit says otherwise.
type OrderIntent struct {
	Action    Action          `json:"action"`
	Amount    decimal.Decimal `json:"amount"`
	Unit      Unit            `json:"unit"`
	Reasoning string          `json:"reasoning"`
}

// HoldIntent returns a HOLD with the given reasoning.
func HoldIntent(reason string) OrderIntent {
	return OrderIntent{Action: Hold, Reasoning: reason}
}

func (o OrderIntent) String() string {
	if o.Action == Hold {
		return fmt.Sprintf("HOLD (%s)", o.Reasoning)
	}
	return fmt.Sprintf("%s %s %s (%s)", o.Action, o.Amount.StringFixed(2), o.Unit, o.Reasoning)
}

// ClampedOrder is an intent that has been bounded by the risk policy. Buys
// are always denominated in cash and sells in shares.
type ClampedOrder struct {
	OrderIntent
}

// NewClampedOrder wraps an intent without checking it. It exists for the
// risk package and for tests; live code should go through risk.Policy.Clamp.
func NewClampedOrder(action Action, amount decimal.Decimal, reasoning string) ClampedOrder {
	unit := UnitCash
	if action == Sell {
		unit = UnitShares
	}
	if action == Hold {
		unit = ""
	}
	return ClampedOrder{OrderIntent{Action: action, Amount: amount, Unit: unit, Reasoning: reasoning}}
}

type Status string

const (
	Executed Status = "EXECUTED"
	Rejected Status = "REJECTED"
	Noop     Status = "NOOP"
)

// ExecutionResult describes what happened to a clamped order.
type ExecutionResult struct {
	Status       Status
	TradeID      string
	Symbol       string
	Action       Action
	SharesTraded int64
	Price        decimal.Decimal
	CashDelta    decimal.Decimal
	Cash         decimal.Decimal // balance after the order
	Position     *Position       // nil when the symbol is not held afterwards
	Message      string
}

// Summary is the one-line log form of a result.
func (r ExecutionResult) Summary() string {
	switch r.Status {
	case Executed:
		held := int64(0)
		if r.Position != nil {
			held = r.Position.Quantity
		}
		return fmt.Sprintf("%s %s %s %d @ %s cash %s -> %s holding %d",
			r.Status, r.Action, r.Symbol, r.SharesTraded, r.Price.StringFixed(2),
			signed(r.CashDelta), r.Cash.StringFixed(2), held)
	default:
		return fmt.Sprintf("%s %s %s: %s", r.Status, r.Action, r.Symbol, r.Message)
	}
}

func signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.StringFixed(2)
	}
	return "+" + d.StringFixed(2)
}
