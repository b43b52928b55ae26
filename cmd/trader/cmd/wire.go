package cmd

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/rustyeddy/papertrader/agent"
	"github.com/rustyeddy/papertrader/config"
	"github.com/rustyeddy/papertrader/indicators"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/notify"
	"github.com/rustyeddy/papertrader/oracle"
	"github.com/rustyeddy/papertrader/pricing"
	"github.com/rustyeddy/papertrader/report"
	"github.com/rustyeddy/papertrader/scheduler"
	"github.com/rustyeddy/papertrader/sim"
	"github.com/rustyeddy/papertrader/store"
)

// session is everything a command needs from the configuration.
type session struct {
	cfg     *config.Config
	store   store.Store
	journal journal.Journal
	prices  pricing.Provider
	agent   *agent.Agent

	// feed is set when prices come from a streaming source; someone has
	// to Run it.
	feed feed
}

type feed interface {
	Run(ctx context.Context) error
}

// openSession opens the wallet and journal and assembles an agent with a
// holding oracle and log-only notifications. run replaces both.
func openSession(cfg *config.Config, reset bool) (*session, error) {
	s, err := store.Open(cfg.State.Type, cfg.State.Path)
	if err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}
	if _, err := store.Initialize(s, cfg.Account.Cash(), reset); err != nil {
		s.Close()
		return nil, fmt.Errorf("initialize wallet: %w", err)
	}

	j, err := journal.Open(cfg.Journal.Type, cfg.Journal.Path)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open journal: %w", err)
	}

	prices, f, err := buildPrices(cfg)
	if err != nil {
		j.Close()
		s.Close()
		return nil, err
	}

	a := agent.New(s, sim.NewEngine(s, j), cfg.Policy.Risk())
	a.Prices = prices
	a.Journal = j
	a.Symbols = cfg.Symbols
	a.Currency = cfg.Account.Currency
	a.PlanBudget = cfg.Account.Cash()
	a.OracleTimeout = cfg.Oracle.Timeout.Or(time.Minute)
	a.Terminal = report.Terminal{Style: cfg.Render.Style, Width: cfg.Render.Width}
	a.Version = version
	if n := cfg.Oracle.TrendPeriod; n > 0 {
		a.Trends = indicators.NewBank(func() indicators.Indicator { return indicators.NewEMA(n) })
	}

	return &session{cfg: cfg, store: s, journal: j, prices: prices, agent: a, feed: f}, nil
}

func (s *session) Close() {
	if err := s.journal.Close(); err != nil {
		log.Printf("[JOURNAL] close: %v", err)
	}
	if err := s.store.Close(); err != nil {
		log.Printf("[STORE] close: %v", err)
	}
}

// buildPrices returns the configured provider and, for streaming
// providers, the feed that fills it. Any non-static provider falls back
// to the static table when one is given.
func buildPrices(cfg *config.Config) (pricing.Provider, feed, error) {
	pc := cfg.Prices
	static := pricing.Static(pc.StaticPrices())
	timeout := pc.Timeout.Or(10 * time.Second)

	var (
		p pricing.Provider
		f feed
	)
	switch pc.Provider {
	case "http":
		p = pricing.NewHTTP(pc.URL, pc.Path, timeout)
	case "binance":
		p = pricing.NewBinance(os.Getenv(pc.APIKeyEnv), os.Getenv(pc.SecretKeyEnv), &http.Client{Timeout: timeout})
	case "stream":
		s := pricing.NewStream(pc.URL, pc.MaxAge.Or(0))
		p, f = s, s
	case "oanda":
		base, err := pricing.OANDABaseURL(pc.Environment)
		if err != nil {
			return nil, nil, err
		}
		o := pricing.NewOANDA(base, os.Getenv(pc.APIKeyEnv), os.Getenv(pc.AccountIDEnv), cfg.Symbols, pc.MaxAge.Or(0))
		p, f = o, o
	default:
		return static, nil, nil
	}
	if len(static) > 0 {
		p = pricing.First{p, static}
	}
	return p, f, nil
}

// buildOracle sets the agent's decision oracle and, when a model is
// configured, its responder, commentator, thinker and planner. Without a
// model the agent holds and the optional roles stay empty.
func buildOracle(ctx context.Context, cfg *config.Config, a *agent.Agent) error {
	oc := cfg.Oracle
	if oc.Provider != "gemini" {
		a.Oracle = oracle.Hold{}
		return nil
	}
	key := os.Getenv(oc.APIKeyEnv)
	if key == "" {
		return fmt.Errorf("oracle: $%s is not set", oc.APIKeyEnv)
	}
	g, err := oracle.NewGemini(ctx, key, oc.Model)
	if err != nil {
		return err
	}
	if oc.Temperature > 0 {
		g.Temperature = float32(oc.Temperature)
	}
	if oc.Persona != "" {
		g.Persona = oc.Persona
	}
	a.Oracle = g
	a.Responder = g
	a.Commentator = g
	a.Thinker = g
	a.Planner = g
	return nil
}

func buildNotifier(cfg *config.Config) notify.Notifier {
	nc := cfg.Notify
	var all notify.Multi
	if nc.Log {
		all = append(all, notify.Log{})
	}
	if nc.Discord.WebhookEnv != "" {
		if url := os.Getenv(nc.Discord.WebhookEnv); url != "" {
			d := notify.NewDiscord(url)
			if nc.Discord.Username != "" {
				d.Username = nc.Discord.Username
			}
			all = append(all, d)
		} else {
			log.Printf("[NOTIFY] discord disabled: $%s is not set", nc.Discord.WebhookEnv)
		}
	}
	if e := nc.Email; e.Enabled() {
		var n notify.Notifier = notify.NewEmail(e.Host, e.Port, e.Username, os.Getenv(e.PasswordEnv), e.From, e.To)
		if len(e.Kinds) > 0 {
			kinds := make([]notify.Kind, len(e.Kinds))
			for i, k := range e.Kinds {
				kinds[i] = notify.Kind(k)
			}
			n = notify.Only{Kinds: kinds, N: n}
		}
		all = append(all, n)
	}
	return notify.BestEffort{N: all, Timeout: nc.Timeout.Or(15 * time.Second)}
}

// buildJobs turns the schedule section into scheduler jobs, in the order
// they run when due together. Each jittered job draws its own seed from
// seed so no two share a random sequence.
func buildJobs(cfg *config.Config, a *agent.Agent, seed int64) ([]*scheduler.Job, error) {
	sc := cfg.Schedule
	seeds := rand.New(rand.NewSource(seed))

	var trading scheduler.Schedule
	if every := sc.Trading.Every.Or(0); every > 0 {
		trading = scheduler.Every(every)
	} else {
		trading = scheduler.Jitter(sc.Trading.JitterMin.Or(0), sc.Trading.JitterMax.Or(0), seeds.Int63())
	}
	jobs := []*scheduler.Job{{
		Name:      "trading",
		Schedule:  trading,
		Run:       a.TradeTick,
		Immediate: sc.Trading.Immediate,
	}}

	if st := sc.SelfTalk; st.Enabled() && a.Thinker != nil {
		jobs = append(jobs, &scheduler.Job{
			Name:     "self_talk",
			Schedule: scheduler.Jitter(st.JitterMin.Or(0), st.JitterMax.Or(0), seeds.Int63()),
			Run:      a.SelfTalk,
		})
	}

	if every := sc.Status.Every.Or(0); every > 0 {
		jobs = append(jobs, &scheduler.Job{
			Name:     "status",
			Schedule: scheduler.Every(every),
			Run:      a.PrintStatus,
		})
	}

	if sc.Report.DailyAt != "" {
		loc, err := sc.Report.Location()
		if err != nil {
			return nil, err
		}
		daily, err := scheduler.DailyAt(sc.Report.DailyAt, loc)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, &scheduler.Job{
			Name:     "report",
			Schedule: daily,
			Run:      a.DailyReport,
		})
	}
	return jobs, nil
}
