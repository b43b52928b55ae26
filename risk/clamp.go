package risk

import (
	"fmt"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/shopspring/decimal"
)

const (
	ReasonInvalidAmount      = "invalid amount"
	ReasonNoPrice            = "no valid price"
	ReasonNoHoldings         = "no holdings to sell"
	ReasonInsufficientAmount = "insufficient clamped amount"
)

// Clamp bounds intent by the policy. Buys come back in cash and sells in
// shares. The returned amount is never larger than the requested one once
// both are expressed in the same unit.
func (p Policy) Clamp(intent broker.OrderIntent, cash decimal.Decimal, position *broker.Position, price decimal.Decimal) broker.ClampedOrder {
	switch intent.Action {
	case broker.Buy:
		return p.clampBuy(intent, cash, price)
	case broker.Sell:
		return p.clampSell(intent, position, price)
	default:
		return broker.NewClampedOrder(broker.Hold, decimal.Zero, intent.Reasoning)
	}
}

func (p Policy) clampBuy(intent broker.OrderIntent, cash, price decimal.Decimal) broker.ClampedOrder {
	if intent.Amount.IsNegative() {
		return hold(intent, ReasonInvalidAmount)
	}
	if !price.IsPositive() {
		return hold(intent, ReasonNoPrice)
	}

	amount := intent.Amount
	if intent.Unit == broker.UnitShares {
		amount = amount.Mul(price)
	}

	reason := intent.Reasoning
	limit := cash.Mul(p.MaxBuyFraction)
	if limit.IsNegative() {
		limit = decimal.Zero
	}
	if amount.GreaterThan(limit) {
		reason = annotate(reason, fmt.Sprintf("clamped buy %s -> %s", amount.StringFixed(2), limit.StringFixed(2)))
		amount = limit
	}
	if amount.LessThan(price) {
		return hold(intent, ReasonInsufficientAmount)
	}
	return broker.NewClampedOrder(broker.Buy, amount, reason)
}

func (p Policy) clampSell(intent broker.OrderIntent, position *broker.Position, price decimal.Decimal) broker.ClampedOrder {
	if intent.Amount.IsNegative() {
		return hold(intent, ReasonInvalidAmount)
	}
	if position == nil || position.Quantity <= 0 {
		return hold(intent, ReasonNoHoldings)
	}

	amount := intent.Amount
	if intent.Unit == broker.UnitCash {
		if !price.IsPositive() {
			return hold(intent, ReasonNoPrice)
		}
		amount = amount.Div(price)
	}

	reason := intent.Reasoning
	limit := decimal.NewFromInt(position.Quantity).Mul(p.MaxSellFraction)
	if amount.GreaterThan(limit) {
		reason = annotate(reason, fmt.Sprintf("clamped sell %s -> %s shares", amount.String(), limit.String()))
		amount = limit
	}
	// less than one share passes through; the engine reports it as NOOP
	return broker.NewClampedOrder(broker.Sell, amount, reason)
}

// ForceBuy turns a HOLD on an empty portfolio into a buy of
// cash*ForcedBuyFraction. Other intents are returned unchanged.
func (p Policy) ForceBuy(intent broker.OrderIntent, cash decimal.Decimal, holdings int) broker.OrderIntent {
	if intent.Action != broker.Hold || holdings > 0 || !p.ForcedBuyFraction.IsPositive() || !cash.IsPositive() {
		return intent
	}
	return broker.OrderIntent{
		Action:    broker.Buy,
		Amount:    cash.Mul(p.ForcedBuyFraction),
		Unit:      broker.UnitCash,
		Reasoning: annotate(intent.Reasoning, "forced buy on empty portfolio"),
	}
}

func hold(intent broker.OrderIntent, reason string) broker.ClampedOrder {
	return broker.NewClampedOrder(broker.Hold, decimal.Zero, annotate(intent.Reasoning, reason))
}

func annotate(reasoning, note string) string {
	if reasoning == "" {
		return note
	}
	return reasoning + " [" + note + "]"
}
