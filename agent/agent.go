// Package agent wires prices, the oracle, the risk policy and the
// execution engine into the jobs and commands the scheduler runs.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/indicators"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/notify"
	"github.com/rustyeddy/papertrader/oracle"
	"github.com/rustyeddy/papertrader/pricing"
	"github.com/rustyeddy/papertrader/report"
	"github.com/rustyeddy/papertrader/risk"
	"github.com/rustyeddy/papertrader/sim"
	"github.com/rustyeddy/papertrader/store"
	"github.com/shopspring/decimal"
)

var errNoPlanner = errors.New("no planner configured")

type Agent struct {
	Store    store.Store
	Engine   *sim.Engine
	Policy   risk.Policy
	Prices   pricing.Provider
	Oracle   oracle.Oracle
	Notifier notify.Notifier
	Journal  journal.Journal

	// Trends, when set, tracks an average of the prices each tick sees
	// and passes it to the oracle.
	Trends *indicators.Bank

	// Responder, Commentator, Thinker and Planner are optional.
	Responder   oracle.Responder
	Commentator oracle.Commentator
	Thinker     oracle.Thinker
	Planner     oracle.Planner

	// PlanBudget is the budget a portfolio proposal is sized for.
	PlanBudget decimal.Decimal

	Symbols       []string
	Currency      string
	OracleTimeout time.Duration
	ReportTitle   string
	Terminal      report.Terminal
	Out           io.Writer

	Version   string
	Lifecycle store.Lifecycle

	now func() time.Time
}

// New returns an agent with the defaults filled in. The caller sets the
// remaining fields before use.
func New(s store.Store, e *sim.Engine, p risk.Policy) *Agent {
	return &Agent{
		Store:         s,
		Engine:        e,
		Policy:        p,
		Oracle:        oracle.Hold{},
		Notifier:      notify.Log{},
		Journal:       journal.Discard,
		Currency:      "USD",
		OracleTimeout: 60 * time.Second,
		ReportTitle:   "Daily report",
		PlanBudget:    decimal.NewFromInt(100000),
		Out:           os.Stdout,
		now:           time.Now,
	}
}

// SetClock replaces the time source.
func (a *Agent) SetClock(now func() time.Time) { a.now = now }

// TradeTick runs one decision round over every configured symbol. A
// symbol without a price is skipped; the others still trade.
func (a *Agent) TradeTick(ctx context.Context) error {
	for _, sym := range a.Symbols {
		if err := ctx.Err(); err != nil {
			return err
		}
		q, err := a.Prices.Price(ctx, sym)
		if err != nil {
			log.Printf("[PRICE] %s skipped: %v", sym, err)
			continue
		}
		if _, err := a.decide(ctx, sym, q.Price); err != nil {
			return err
		}
	}
	return nil
}

func (a *Agent) decide(ctx context.Context, sym string, price decimal.Decimal) (broker.ExecutionResult, error) {
	cash, positions, err := a.ledger()
	if err != nil {
		return broker.ExecutionResult{}, err
	}
	pos := positions.Get(sym)

	query := oracle.Query{Symbol: sym, Price: price, Cash: cash}
	if pos != nil {
		query.Quantity = pos.Quantity
		query.AverageCost = pos.AverageCost
	}
	if a.Trends != nil {
		if ind := a.Trends.Update(sym, price); ind.Ready() {
			query.AverageName = ind.Name()
			query.Average = ind.Value()
		}
	}
	intent := oracle.DecideOrHold(ctx, a.Oracle, query, a.OracleTimeout)
	intent = a.Policy.ForceBuy(intent, cash, len(positions))
	log.Printf("[ORACLE] %s @ %s: %s", sym, price.StringFixed(2), intent)

	order := a.Policy.Clamp(intent, cash, pos, price)
	return a.execute(ctx, order, sym, price), nil
}

// Trade applies a manual intent for symbol at its current price, through
// the same policy and engine as the scheduled ticks.
func (a *Agent) Trade(ctx context.Context, sym string, intent broker.OrderIntent) (broker.ExecutionResult, error) {
	q, err := a.Prices.Price(ctx, sym)
	if err != nil {
		return broker.ExecutionResult{}, err
	}
	cash, positions, err := a.ledger()
	if err != nil {
		return broker.ExecutionResult{}, err
	}
	order := a.Policy.Clamp(intent, cash, positions.Get(sym), q.Price)
	return a.execute(ctx, order, sym, q.Price), nil
}

func (a *Agent) execute(ctx context.Context, order broker.ClampedOrder, sym string, price decimal.Decimal) broker.ExecutionResult {
	res := a.Engine.Apply(order, sym, price)
	log.Printf("[TRADE] %s", res.Summary())
	if res.Status == broker.Executed {
		a.notify(ctx, notify.TradeEvent(res, a.now()))
	}
	return res
}

// notify delivers e and only logs a failure; trading never depends on it.
func (a *Agent) notify(ctx context.Context, e notify.Event) {
	if a.Notifier == nil {
		return
	}
	if err := a.Notifier.Notify(ctx, e); err != nil {
		log.Printf("[NOTIFY] %s %q failed: %v", e.Kind, e.Title, err)
	}
}

func (a *Agent) ledger() (decimal.Decimal, broker.Positions, error) {
	cash, err := a.Store.GetCash()
	if err != nil {
		return cash, nil, fmt.Errorf("read cash: %w", err)
	}
	positions, err := a.Store.GetPositions()
	if err != nil {
		return cash, nil, fmt.Errorf("read positions: %w", err)
	}
	return cash, positions, nil
}

// Valuation values the stored portfolio at current prices.
func (a *Agent) Valuation(ctx context.Context) (report.Valuation, error) {
	cash, positions, err := a.ledger()
	if err != nil {
		return report.Valuation{}, err
	}
	return report.Build(ctx, cash, positions, a.Prices, a.Currency, a.now()), nil
}

// PrintStatus writes the portfolio status to Out.
func (a *Agent) PrintStatus(ctx context.Context) error {
	v, err := a.Valuation(ctx)
	if err != nil {
		return err
	}
	out := report.Status(v)
	if s := a.Terminal.Style; s != "" && s != "plain" {
		rendered, err := a.Terminal.Render(report.Markdown(v, "Portfolio", ""))
		if err != nil {
			log.Printf("[REPORT] render: %v", err)
		} else {
			out = rendered
		}
	}
	_, err = fmt.Fprint(a.Out, out)
	return err
}

// DailyReport values the portfolio, asks for commentary, journals the
// valuation and sends the report as a notification.
func (a *Agent) DailyReport(ctx context.Context) error {
	v, err := a.Valuation(ctx)
	if err != nil {
		return err
	}

	var commentary string
	if a.Commentator != nil {
		cctx, cancel := context.WithTimeout(ctx, a.timeout())
		commentary, err = a.Commentator.Commentary(cctx, report.Status(v))
		cancel()
		if err != nil {
			log.Printf("[ORACLE] commentary: %v", err)
			commentary = ""
		}
	}

	if err := a.Journal.RecordValuation(v.Snapshot()); err != nil {
		log.Printf("[JOURNAL] record valuation: %v", err)
	}

	title := fmt.Sprintf("%s %s", a.ReportTitle, v.Time.Format("2006-01-02"))
	md := report.Markdown(v, title, commentary)
	log.Printf("[REPORT] %s: total %s", title, report.Format(v.Total, v.Currency))
	a.notify(ctx, notify.ReportEvent(title, md, a.now()))
	return nil
}

// SelfTalk asks the thinker for a short thought about the portfolio and
// prints it. A failed thought is logged and skipped.
func (a *Agent) SelfTalk(ctx context.Context) error {
	if a.Thinker == nil {
		return nil
	}
	v, err := a.Valuation(ctx)
	if err != nil {
		return err
	}
	tctx, cancel := context.WithTimeout(ctx, a.timeout())
	defer cancel()
	thought, err := a.Thinker.Think(tctx, report.Status(v))
	if err != nil {
		log.Printf("[ORACLE] self-talk: %v", err)
		return nil
	}
	if thought = strings.TrimSpace(thought); thought == "" {
		return nil
	}
	_, err = fmt.Fprintf(a.Out, "thinking: %s\n", thought)
	return err
}

// ProposePlan asks the planner for a starting portfolio sized to
// PlanBudget, prints it and sends it as a notification. Nothing is traded.
func (a *Agent) ProposePlan(ctx context.Context) (oracle.Plan, error) {
	if a.Planner == nil {
		return oracle.Plan{}, errNoPlanner
	}
	pctx, cancel := context.WithTimeout(ctx, a.timeout())
	defer cancel()
	p, err := a.Planner.Plan(pctx, a.PlanBudget, a.Currency)
	if err != nil {
		return oracle.Plan{}, err
	}
	if p.Scaled {
		log.Printf("[ORACLE] plan over-allocated; scaled to 100%%")
	}

	title := fmt.Sprintf("Portfolio plan %s", a.now().Format("2006-01-02"))
	md := report.PlanMarkdown(p, title, a.Currency)
	if _, err := fmt.Fprint(a.Out, md); err != nil {
		return p, err
	}
	a.notify(ctx, notify.PlanEvent(title, md, a.now()))
	return p, nil
}

func (a *Agent) timeout() time.Duration {
	if a.OracleTimeout > 0 {
		return a.OracleTimeout
	}
	return time.Minute
}

// Banner prints who the agent is and how long it has been around.
func (a *Agent) Banner() {
	fmt.Fprintf(a.Out, "papertrader %s\n", a.Version)
	if !a.Lifecycle.BornAt.IsZero() {
		fmt.Fprintf(a.Out, "born %s (%s ago), start #%d\n",
			a.Lifecycle.BornAt.Local().Format("2006-01-02 15:04"),
			report.Uptime(a.Lifecycle.BornAt, a.now()), a.Lifecycle.Starts)
	}
	fmt.Fprintf(a.Out, "watching %v; type 'help' for commands\n", a.Symbols)
}
