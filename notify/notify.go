// Package notify delivers trade and report events to people. Delivery is
// never allowed to affect trading: wrap notifiers in BestEffort.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/rustyeddy/papertrader/broker"
)

type Kind string

const (
	TradeExecuted   Kind = "trade_executed"
	ReportGenerated Kind = "report_generated"
	PlanProposed    Kind = "plan_proposed"
)

type Event struct {
	Kind  Kind
	Time  time.Time
	Title string

	// Body is markdown.
	Body string

	// Result is set for TradeExecuted.
	Result *broker.ExecutionResult
}

type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// TradeEvent describes an executed trade.
func TradeEvent(res broker.ExecutionResult, at time.Time) Event {
	body := fmt.Sprintf("**%s %d %s** @ %s\n\nCash %s → %s",
		res.Action, res.SharesTraded, res.Symbol, res.Price.StringFixed(2),
		res.CashDelta.StringFixed(2), res.Cash.StringFixed(2))
	if res.Message != "" {
		body += "\n\n> " + res.Message
	}
	return Event{
		Kind:   TradeExecuted,
		Time:   at,
		Title:  fmt.Sprintf("%s %s %d @ %s", res.Action, res.Symbol, res.SharesTraded, res.Price.StringFixed(2)),
		Body:   body,
		Result: &res,
	}
}

// PlanEvent wraps a rendered portfolio proposal.
func PlanEvent(title, markdown string, at time.Time) Event {
	return Event{Kind: PlanProposed, Time: at, Title: title, Body: markdown}
}

// ReportEvent wraps a rendered markdown report.
func ReportEvent(title, markdown string, at time.Time) Event {
	return Event{Kind: ReportGenerated, Time: at, Title: title, Body: markdown}
}

// Multi sends to every notifier and joins the errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Only passes events of the listed kinds to N and drops the rest.
type Only struct {
	Kinds []Kind
	N     Notifier
}

func (o Only) Notify(ctx context.Context, e Event) error {
	if !slices.Contains(o.Kinds, e.Kind) {
		return nil
	}
	return o.N.Notify(ctx, e)
}

// BestEffort logs delivery failures instead of returning them.
type BestEffort struct {
	N       Notifier
	Timeout time.Duration
}

func (b BestEffort) Notify(ctx context.Context, e Event) error {
	if b.N == nil {
		return nil
	}
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}
	if err := b.N.Notify(ctx, e); err != nil {
		log.Printf("[NOTIFY] %s %q: %v", e.Kind, e.Title, err)
	}
	return nil
}

// Log writes a one-line summary of each event.
type Log struct {
	Logger *log.Logger
}

func (l Log) Notify(_ context.Context, e Event) error {
	lg := l.Logger
	if lg == nil {
		lg = log.Default()
	}
	lg.Printf("[NOTIFY] %s: %s", e.Kind, e.Title)
	return nil
}
