// Package oracle produces trade decisions and free-text answers. The core
// only sees typed intents; parsing model output happens here.
package oracle

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/shopspring/decimal"
)

// Query is what the oracle knows when asked about one symbol.
type Query struct {
	Symbol      string
	Price       decimal.Decimal
	Quantity    int64
	AverageCost decimal.Decimal
	Cash        decimal.Decimal

	// Average of recently observed prices, named e.g. "EMA(12)". Empty
	// until enough prices were seen.
	AverageName string
	Average     decimal.Decimal
}

// Oracle returns an unclamped intent. Amounts are cash for buys and
// shares for sells unless the intent's Unit says otherwise.
type Oracle interface {
	Decide(ctx context.Context, q Query) (broker.OrderIntent, error)
}

// Responder answers questions typed at the console.
type Responder interface {
	Respond(ctx context.Context, question, portfolio string) (string, error)
}

// Commentator writes a short market note for the daily report.
type Commentator interface {
	Commentary(ctx context.Context, portfolio string) (string, error)
}

// DecideOrHold asks o and turns every failure into a HOLD. A timeout of
// zero leaves ctx as is.
func DecideOrHold(ctx context.Context, o Oracle, q Query, timeout time.Duration) broker.OrderIntent {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	intent, err := o.Decide(ctx, q)
	if err != nil {
		log.Printf("[ORACLE] %s: %v", q.Symbol, err)
		return broker.HoldIntent(fmt.Sprintf("oracle unavailable: %v", err))
	}
	if intent.Amount.IsNegative() {
		return broker.HoldIntent(fmt.Sprintf("oracle returned negative amount %s", intent.Amount))
	}
	return intent
}

// Hold never trades. It is the oracle used when no model is configured.
type Hold struct{}

func (Hold) Decide(context.Context, Query) (broker.OrderIntent, error) {
	return broker.HoldIntent("no oracle configured"), nil
}

func (Hold) Respond(context.Context, string, string) (string, error) {
	return "No assistant is configured. Type 'status' for the portfolio or 'help' for commands.", nil
}

func (Hold) Commentary(context.Context, string) (string, error) {
	return "", nil
}
