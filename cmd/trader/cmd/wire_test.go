package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/config"
	"github.com/rustyeddy/papertrader/notify"
	"github.com/rustyeddy/papertrader/oracle"
	"github.com/rustyeddy/papertrader/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.State = config.StateConfig{Type: "json", Path: filepath.Join(dir, "state.json")}
	cfg.Journal = config.JournalConfig{Type: "sqlite", Path: filepath.Join(dir, "journal.db")}
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestOpenSessionTradesAndJournals(t *testing.T) {
	cfg := testConfig(t)

	sess, err := openSession(cfg, false)
	require.NoError(t, err)
	var out bytes.Buffer
	sess.agent.Out = &out

	res, err := sess.agent.Trade(context.Background(), "AMD", broker.OrderIntent{Action: broker.Buy, Amount: decimalOf(t, "12000")})
	require.NoError(t, err)
	require.Equal(t, broker.Executed, res.Status)
	assert.Equal(t, int64(48), res.SharesTraded)
	require.NotEmpty(t, res.TradeID)
	sess.Close()

	// the wallet survives and the trade is in the journal
	sess, err = openSession(cfg, false)
	require.NoError(t, err)
	defer sess.Close()
	cash, err := sess.store.GetCash()
	require.NoError(t, err)
	assert.Equal(t, "88120", cash.String())

	journalDBPath = cfg.Journal.Path
	t.Cleanup(func() { journalDBPath = "" })
	j, err := openJournalDB()
	require.NoError(t, err)
	defer j.Close()
	rec, err := j.GetTrade(res.TradeID)
	require.NoError(t, err)
	assert.Equal(t, int64(48), rec.Shares)
}

func TestOpenSessionReset(t *testing.T) {
	cfg := testConfig(t)

	sess, err := openSession(cfg, false)
	require.NoError(t, err)
	_, err = sess.agent.Trade(context.Background(), "AMD", broker.OrderIntent{Action: broker.Buy, Amount: decimalOf(t, "1000")})
	require.NoError(t, err)
	sess.Close()

	sess, err = openSession(cfg, true)
	require.NoError(t, err)
	defer sess.Close()
	cash, err := sess.store.GetCash()
	require.NoError(t, err)
	assert.Equal(t, "100000", cash.String())
}

func TestBuildPrices(t *testing.T) {
	cfg := config.Default()

	p, f, err := buildPrices(cfg)
	require.NoError(t, err)
	assert.Nil(t, f)
	_, ok := p.(pricing.Static)
	assert.True(t, ok)

	cfg.Prices.Provider = "http"
	cfg.Prices.URL = "http://127.0.0.1:1/{symbol}"
	cfg.Prices.Path = "$.price"
	p, _, err = buildPrices(cfg)
	require.NoError(t, err)
	first, ok := p.(pricing.First)
	require.True(t, ok)
	assert.Len(t, first, 2)

	// the static table backs up an unreachable endpoint
	q, err := p.Price(context.Background(), "AMD")
	require.NoError(t, err)
	assert.Equal(t, "247.5", q.Price.String())

	cfg.Prices = config.PricesConfig{Provider: "stream", URL: "ws://127.0.0.1:1/ws", MaxAge: "30s"}
	p, f, err = buildPrices(cfg)
	require.NoError(t, err)
	stream, ok := f.(*pricing.Stream)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, stream.Cache.MaxAge)
	assert.Same(t, stream, p)

	cfg.Symbols = []string{"EUR_USD"}
	cfg.Prices = config.PricesConfig{Provider: "oanda", APIKeyEnv: "PT_TEST_OANDA_TOKEN", AccountIDEnv: "PT_TEST_OANDA_ACCOUNT"}
	t.Setenv("PT_TEST_OANDA_TOKEN", "tok")
	t.Setenv("PT_TEST_OANDA_ACCOUNT", "101-004-1")
	_, f, err = buildPrices(cfg)
	require.NoError(t, err)
	o, ok := f.(*pricing.OANDA)
	require.True(t, ok)
	assert.Equal(t, "tok", o.Token)
	assert.Equal(t, "101-004-1", o.AccountID)
	assert.Equal(t, []string{"EUR_USD"}, o.Instruments)
}

func TestBuildOracle(t *testing.T) {
	cfg := testConfig(t)
	sess, err := openSession(cfg, false)
	require.NoError(t, err)
	defer sess.Close()
	a := sess.agent

	require.NoError(t, buildOracle(context.Background(), cfg, a))
	assert.Equal(t, oracle.Hold{}, a.Oracle)
	assert.Nil(t, a.Responder)
	assert.Nil(t, a.Commentator)
	assert.Nil(t, a.Thinker)
	assert.Nil(t, a.Planner)
	assert.Equal(t, "100000", a.PlanBudget.String())

	cfg.Oracle.Provider = "gemini"
	cfg.Oracle.APIKeyEnv = "PAPERTRADER_TEST_GEMINI_KEY"
	t.Setenv("PAPERTRADER_TEST_GEMINI_KEY", "")
	err = buildOracle(context.Background(), cfg, a)
	assert.ErrorContains(t, err, "PAPERTRADER_TEST_GEMINI_KEY")
}

func TestBuildNotifier(t *testing.T) {
	cfg := config.Default()
	cfg.Notify.Discord.WebhookEnv = "PAPERTRADER_TEST_WEBHOOK"
	t.Setenv("PAPERTRADER_TEST_WEBHOOK", "")
	cfg.Notify.Email = config.EmailConfig{
		Host: "smtp.example.com", Port: 587, From: "bot@example.com",
		To: []string{"me@example.com"}, Kinds: []string{"report_generated"},
	}

	n := buildNotifier(cfg)
	be, ok := n.(notify.BestEffort)
	require.True(t, ok)
	assert.Equal(t, 15*time.Second, be.Timeout)

	all, ok := be.N.(notify.Multi)
	require.True(t, ok)
	require.Len(t, all, 2)
	assert.IsType(t, notify.Log{}, all[0])
	only, ok := all[1].(notify.Only)
	require.True(t, ok)
	assert.Equal(t, []notify.Kind{notify.ReportGenerated}, only.Kinds)
}

func TestBuildJobs(t *testing.T) {
	cfg := config.Default()
	sess, err := openSession(testConfig(t), false)
	require.NoError(t, err)
	defer sess.Close()

	jobs, err := buildJobs(cfg, sess.agent, 1)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "trading", jobs[0].Name)
	assert.True(t, jobs[0].Immediate)
	assert.Equal(t, "status", jobs[1].Name)
	assert.Equal(t, "report", jobs[2].Name)

	now := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	next := jobs[0].Schedule.Next(now)
	assert.True(t, !next.Before(now.Add(5*time.Minute)) && !next.After(now.Add(15*time.Minute)))
	assert.Equal(t, now.Add(30*time.Second), jobs[1].Schedule.Next(now))

	cfg.Schedule.Trading = config.TradingConfig{Every: "2m"}
	cfg.Schedule.Status.Every = ""
	cfg.Schedule.Report.DailyAt = ""
	jobs, err = buildJobs(cfg, sess.agent, 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, now.Add(2*time.Minute), jobs[0].Schedule.Next(now))
}

func TestParseTradeArgs(t *testing.T) {
	t.Cleanup(func() { tradeShares, tradeCash = false, false })

	sym, in, err := parseTradeArgs([]string{"buy", "amd", "12000"})
	require.NoError(t, err)
	assert.Equal(t, "AMD", sym)
	assert.Equal(t, broker.Buy, in.Action)
	assert.Equal(t, "12000", in.Amount.String())
	assert.Equal(t, broker.Unit(""), in.Unit)

	tradeShares = true
	_, in, err = parseTradeArgs([]string{"SELL", "AMD", "24"})
	require.NoError(t, err)
	assert.Equal(t, broker.Sell, in.Action)
	assert.Equal(t, broker.UnitShares, in.Unit)

	_, _, err = parseTradeArgs([]string{"hold", "AMD", "1"})
	assert.Error(t, err)
	_, _, err = parseTradeArgs([]string{"buy", "AMD", "lots"})
	assert.Error(t, err)
	_, _, err = parseTradeArgs([]string{"buy", "AMD", "-5"})
	assert.Error(t, err)
}

func TestDayBounds(t *testing.T) {
	start, end, err := dayBounds(time.UTC, "2024-05-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), end)

	_, _, err = dayBounds(time.UTC, "May 2")
	assert.Error(t, err)
}

func decimalOf(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

type quietThinker struct{}

func (quietThinker) Think(context.Context, string) (string, error) { return "", nil }

func TestBuildJobsSelfTalkHasItsOwnJitter(t *testing.T) {
	cfg := testConfig(t)
	sess, err := openSession(cfg, false)
	require.NoError(t, err)
	defer sess.Close()

	cfg.Schedule.Trading = config.TradingConfig{JitterMin: "1m", JitterMax: "5m"}
	cfg.Schedule.SelfTalk = config.SelfTalkConfig{JitterMin: "1m", JitterMax: "5m"}
	cfg.Schedule.Status.Every = ""
	cfg.Schedule.Report.DailyAt = ""

	// no thinker, no self-talk job
	jobs, err := buildJobs(cfg, sess.agent, 7)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	sess.agent.Thinker = quietThinker{}
	jobs, err = buildJobs(cfg, sess.agent, 7)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "trading", jobs[0].Name)
	assert.Equal(t, "self_talk", jobs[1].Name)

	now := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	var trading, selfTalk []time.Time
	tt, st := now, now
	for i := 0; i < 5; i++ {
		tt = jobs[0].Schedule.Next(tt)
		st = jobs[1].Schedule.Next(st)
		trading = append(trading, tt)
		selfTalk = append(selfTalk, st)
	}
	assert.NotEqual(t, trading, selfTalk)
	assert.True(t, !selfTalk[0].Before(now.Add(time.Minute)) && !selfTalk[0].After(now.Add(5*time.Minute)))
	require.NoError(t, jobs[1].Run(context.Background()))

	// same seed, same sequences
	again, err := buildJobs(cfg, sess.agent, 7)
	require.NoError(t, err)
	assert.Equal(t, trading[0], again[0].Schedule.Next(now))
	assert.Equal(t, selfTalk[0], again[1].Schedule.Next(now))
}
