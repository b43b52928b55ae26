package agent

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/indicators"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/notify"
	"github.com/rustyeddy/papertrader/oracle"
	"github.com/rustyeddy/papertrader/pricing"
	"github.com/rustyeddy/papertrader/risk"
	"github.com/rustyeddy/papertrader/scheduler"
	"github.com/rustyeddy/papertrader/sim"
	"github.com/rustyeddy/papertrader/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type scripted map[string]broker.OrderIntent

func (s scripted) Decide(_ context.Context, q oracle.Query) (broker.OrderIntent, error) {
	if in, ok := s[q.Symbol]; ok {
		return in, nil
	}
	return broker.HoldIntent("no script"), nil
}

type recorder struct{ events []notify.Event }

func (r *recorder) Notify(_ context.Context, e notify.Event) error {
	r.events = append(r.events, e)
	return nil
}

type valuations struct {
	snaps []journal.ValuationSnapshot
}

func (v *valuations) RecordTrade(journal.TradeRecord) error { return nil }
func (v *valuations) RecordValuation(s journal.ValuationSnapshot) error {
	v.snaps = append(v.snaps, s)
	return nil
}
func (v *valuations) Close() error { return nil }

type answers struct {
	portfolio string
	err       error
}

func (a *answers) Respond(_ context.Context, q, portfolio string) (string, error) {
	a.portfolio = portfolio
	return "you asked: " + q + "\n", a.err
}

func (a *answers) Commentary(_ context.Context, portfolio string) (string, error) {
	a.portfolio = portfolio
	return "Quiet day.", a.err
}

var t0 = time.Date(2024, 5, 2, 17, 30, 0, 0, time.UTC)

func newAgent(t *testing.T, prices pricing.Static) (*Agent, store.Store, *recorder, *bytes.Buffer) {
	t.Helper()
	s, err := store.NewFile(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	_, err = store.Initialize(s, dec("100000"), false)
	require.NoError(t, err)

	rec := &recorder{}
	out := &bytes.Buffer{}
	a := New(s, sim.NewEngine(s, nil), risk.DefaultPolicy())
	a.Prices = prices
	a.Notifier = rec
	a.Out = out
	a.SetClock(func() time.Time { return t0 })
	return a, s, rec, out
}

func TestTradeTickBuysAndNotifies(t *testing.T) {
	a, s, rec, _ := newAgent(t, pricing.Static{"AMD": dec("247.50")})
	a.Symbols = []string{"AMD"}
	a.Oracle = scripted{"AMD": {Action: broker.Buy, Amount: dec("12000"), Unit: broker.UnitCash}}

	require.NoError(t, a.TradeTick(context.Background()))

	cash, err := s.GetCash()
	require.NoError(t, err)
	assert.Equal(t, "88120", cash.String())

	pos, err := s.GetPositions()
	require.NoError(t, err)
	assert.Equal(t, int64(48), pos["AMD"].Quantity)

	require.Len(t, rec.events, 1)
	assert.Equal(t, notify.TradeExecuted, rec.events[0].Kind)
	require.NotNil(t, rec.events[0].Result)
	assert.Equal(t, int64(48), rec.events[0].Result.SharesTraded)
}

func TestTradeTickSkipsUnpricedSymbol(t *testing.T) {
	a, s, rec, _ := newAgent(t, pricing.Static{"AMD": dec("100")})
	a.Symbols = []string{"NVDA", "AMD"}
	a.Oracle = scripted{
		"NVDA": {Action: broker.Buy, Amount: dec("5000")},
		"AMD":  {Action: broker.Buy, Amount: dec("1000")},
	}

	require.NoError(t, a.TradeTick(context.Background()))

	pos, err := s.GetPositions()
	require.NoError(t, err)
	assert.Len(t, pos, 1)
	assert.Equal(t, int64(10), pos["AMD"].Quantity)
	assert.Len(t, rec.events, 1)
}

func TestTradeTickHoldWritesNothing(t *testing.T) {
	a, s, rec, _ := newAgent(t, pricing.Static{"AMD": dec("247.50")})
	a.Symbols = []string{"AMD"}

	require.NoError(t, a.TradeTick(context.Background()))

	cash, err := s.GetCash()
	require.NoError(t, err)
	assert.Equal(t, "100000", cash.String())
	assert.Empty(t, rec.events)
}

func TestTradeTickStopsOnCancel(t *testing.T) {
	a, _, _, _ := newAgent(t, pricing.Static{"AMD": dec("1")})
	a.Symbols = []string{"AMD"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, a.TradeTick(ctx), context.Canceled)
}

func TestManualTradeIsClamped(t *testing.T) {
	a, s, _, _ := newAgent(t, pricing.Static{"AMD": dec("247.50")})

	res, err := a.Trade(context.Background(), "AMD", broker.OrderIntent{Action: broker.Buy, Amount: dec("12000")})
	require.NoError(t, err)
	require.Equal(t, broker.Executed, res.Status)

	// default policy sells at most half the holding
	res, err = a.Trade(context.Background(), "AMD", broker.OrderIntent{Action: broker.Sell, Amount: dec("48")})
	require.NoError(t, err)
	assert.Equal(t, broker.Executed, res.Status)
	assert.Equal(t, int64(24), res.SharesTraded)

	pos, err := s.GetPositions()
	require.NoError(t, err)
	assert.Equal(t, int64(24), pos["AMD"].Quantity)

	_, err = a.Trade(context.Background(), "TSLA", broker.OrderIntent{Action: broker.Buy, Amount: dec("1")})
	assert.ErrorIs(t, err, pricing.ErrNoPrice)
}

func TestPrintStatus(t *testing.T) {
	a, _, _, out := newAgent(t, pricing.Static{"AMD": dec("247.50")})

	require.NoError(t, a.PrintStatus(context.Background()))
	assert.Contains(t, out.String(), "$100,000.00")
	assert.Contains(t, out.String(), "(no holdings)")
}

func TestDailyReport(t *testing.T) {
	a, _, rec, _ := newAgent(t, pricing.Static{"AMD": dec("247.50")})
	j := &valuations{}
	c := &answers{}
	a.Journal = j
	a.Commentator = c

	require.NoError(t, a.DailyReport(context.Background()))

	require.Len(t, j.snaps, 1)
	assert.Equal(t, "100000", j.snaps[0].Total.String())

	require.Len(t, rec.events, 1)
	e := rec.events[0]
	assert.Equal(t, notify.ReportGenerated, e.Kind)
	assert.Equal(t, "Daily report 2024-05-02", e.Title)
	assert.Contains(t, e.Body, "Quiet day.")
	assert.Contains(t, c.portfolio, "Cash:")
}

func TestDailyReportWithoutCommentary(t *testing.T) {
	a, _, rec, _ := newAgent(t, pricing.Static{})
	a.Commentator = &answers{err: errors.New("quota")}

	require.NoError(t, a.DailyReport(context.Background()))
	require.Len(t, rec.events, 1)
	assert.NotContains(t, rec.events[0].Body, "Quiet day.")
}

func TestParseCommand(t *testing.T) {
	cases := map[string]Verb{
		"status":         Status,
		"  SALDO ":       Status,
		"Portfölj":       Status,
		"help":           Help,
		"exit":           Quit,
		"Bye":            Quit,
		"should I sell?": Ask,
		"status please":  Ask,
		"plan":           Plan,
		"Skapa Portfölj": Plan,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseCommand(in), in)
	}
}

func TestHandleCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("exit", func(t *testing.T) {
		a, _, _, _ := newAgent(t, pricing.Static{})
		assert.ErrorIs(t, a.HandleCommand(ctx, scheduler.Exit), scheduler.ErrShutdown)
		assert.ErrorIs(t, a.HandleCommand(ctx, scheduler.Command{Text: "quit"}), scheduler.ErrShutdown)
	})

	t.Run("status", func(t *testing.T) {
		a, _, _, out := newAgent(t, pricing.Static{})
		require.NoError(t, a.HandleCommand(ctx, scheduler.Command{Text: "status"}))
		assert.Contains(t, out.String(), "Total:")
	})

	t.Run("help", func(t *testing.T) {
		a, _, _, out := newAgent(t, pricing.Static{})
		require.NoError(t, a.HandleCommand(ctx, scheduler.Command{Text: "help"}))
		assert.Contains(t, out.String(), "commands:")
	})

	t.Run("question", func(t *testing.T) {
		a, _, _, out := newAgent(t, pricing.Static{})
		r := &answers{}
		a.Responder = r
		require.NoError(t, a.HandleCommand(ctx, scheduler.Command{Text: "how am I doing?"}))
		assert.Equal(t, "you asked: how am I doing?\n", out.String())
		assert.Contains(t, r.portfolio, "Cash:")
	})

	t.Run("question without responder", func(t *testing.T) {
		a, _, _, out := newAgent(t, pricing.Static{})
		require.NoError(t, a.HandleCommand(ctx, scheduler.Command{Text: "hello"}))
		assert.Contains(t, out.String(), "no oracle configured")
	})

	t.Run("responder failure", func(t *testing.T) {
		a, _, _, out := newAgent(t, pricing.Static{})
		a.Responder = &answers{err: errors.New("down")}
		require.NoError(t, a.HandleCommand(ctx, scheduler.Command{Text: "hello"}))
		assert.Contains(t, out.String(), "did not answer")
	})
}

func TestBanner(t *testing.T) {
	a, _, _, out := newAgent(t, pricing.Static{})
	a.Version = "1.2.0"
	a.Symbols = []string{"AMD"}
	a.Lifecycle = store.Lifecycle{BornAt: t0.Add(-50 * time.Hour), Starts: 3}

	a.Banner()
	assert.Contains(t, out.String(), "papertrader 1.2.0")
	assert.Contains(t, out.String(), "2d 2h")
	assert.Contains(t, out.String(), "start #3")
}

type queries []oracle.Query

func (q *queries) Decide(_ context.Context, in oracle.Query) (broker.OrderIntent, error) {
	*q = append(*q, in)
	return broker.HoldIntent("watching"), nil
}

func TestTradeTickPassesAverageAfterWarmup(t *testing.T) {
	prices := pricing.Static{"AMD": dec("100")}
	a, _, _, _ := newAgent(t, prices)
	a.Symbols = []string{"AMD"}
	seen := &queries{}
	a.Oracle = seen
	a.Trends = indicators.NewBank(func() indicators.Indicator { return indicators.NewMA(2) })

	ctx := context.Background()
	require.NoError(t, a.TradeTick(ctx))
	prices["AMD"] = dec("110")
	require.NoError(t, a.TradeTick(ctx))

	require.Len(t, *seen, 2)
	assert.Empty(t, (*seen)[0].AverageName)
	assert.Equal(t, "MA(2)", (*seen)[1].AverageName)
	assert.Equal(t, "105", (*seen)[1].Average.String())
}

type failingNotifier struct{ calls int }

func (f *failingNotifier) Notify(context.Context, notify.Event) error {
	f.calls++
	return errors.New("smtp: connection refused")
}

func TestTradeExecutesWhenNotifierFails(t *testing.T) {
	a, s, _, _ := newAgent(t, pricing.Static{"AMD": dec("247.50")})
	n := &failingNotifier{}
	a.Notifier = n
	a.Symbols = []string{"AMD"}
	a.Oracle = scripted{"AMD": {Action: broker.Buy, Amount: dec("12000"), Unit: broker.UnitCash}}

	require.NoError(t, a.TradeTick(context.Background()))
	assert.Equal(t, 1, n.calls)

	cash, err := s.GetCash()
	require.NoError(t, err)
	assert.Equal(t, "88120", cash.String())

	res, err := a.Trade(context.Background(), "AMD", broker.OrderIntent{Action: broker.Sell, Amount: dec("8"), Unit: broker.UnitShares})
	require.NoError(t, err)
	assert.Equal(t, broker.Executed, res.Status)
	assert.Equal(t, 2, n.calls)

	require.NoError(t, a.DailyReport(context.Background()))
	assert.Equal(t, 3, n.calls)
}

type thoughts struct {
	text      string
	err       error
	portfolio string
}

func (th *thoughts) Think(_ context.Context, portfolio string) (string, error) {
	th.portfolio = portfolio
	return th.text, th.err
}

func TestSelfTalk(t *testing.T) {
	ctx := context.Background()

	a, _, _, out := newAgent(t, pricing.Static{})
	require.NoError(t, a.SelfTalk(ctx))
	assert.Empty(t, out.String())

	th := &thoughts{text: "  Cash is a position too.\n"}
	a.Thinker = th
	require.NoError(t, a.SelfTalk(ctx))
	assert.Equal(t, "thinking: Cash is a position too.\n", out.String())
	assert.Contains(t, th.portfolio, "Cash:")

	out.Reset()
	a.Thinker = &thoughts{err: errors.New("quota")}
	require.NoError(t, a.SelfTalk(ctx))
	assert.Empty(t, out.String())
}

type planner struct {
	plan   oracle.Plan
	err    error
	budget decimal.Decimal
}

func (p *planner) Plan(_ context.Context, budget decimal.Decimal, _ string) (oracle.Plan, error) {
	p.budget = budget
	p.plan.Budget = budget
	return p.plan, p.err
}

func TestHandlePlanCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("proposes and notifies", func(t *testing.T) {
		a, s, rec, out := newAgent(t, pricing.Static{"AMD": dec("247.50")})
		a.PlanBudget = dec("50000")
		p := &planner{plan: oracle.Plan{
			Strategy: "All in on chips.",
			Allocations: []oracle.Allocation{
				{Symbol: "AMD", Fraction: dec("1"), Amount: dec("50000")},
			},
		}}
		a.Planner = p

		require.NoError(t, a.HandleCommand(ctx, scheduler.Command{Text: "SKAPA PORTFÖLJ"}))
		assert.Equal(t, "50000", p.budget.String())
		assert.Contains(t, out.String(), "Portfolio plan 2024-05-02")
		assert.Contains(t, out.String(), "| AMD |")

		require.Len(t, rec.events, 1)
		assert.Equal(t, notify.PlanProposed, rec.events[0].Kind)

		// advice only
		cash, err := s.GetCash()
		require.NoError(t, err)
		assert.Equal(t, "100000", cash.String())
	})

	t.Run("without planner", func(t *testing.T) {
		a, _, _, out := newAgent(t, pricing.Static{})
		require.NoError(t, a.HandleCommand(ctx, scheduler.Command{Text: "plan"}))
		assert.Contains(t, out.String(), "no oracle configured")
	})

	t.Run("planner failure", func(t *testing.T) {
		a, _, rec, out := newAgent(t, pricing.Static{})
		a.Planner = &planner{err: errors.New("bad json")}
		require.NoError(t, a.HandleCommand(ctx, scheduler.Command{Text: "plan"}))
		assert.Contains(t, out.String(), "could not make a plan")
		assert.Empty(t, rec.events)
	})
}
