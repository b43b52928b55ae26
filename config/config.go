// Package config loads and validates the agent configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rustyeddy/papertrader/notify"
	"github.com/rustyeddy/papertrader/pricing"
	"github.com/rustyeddy/papertrader/risk"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the complete agent configuration
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Symbols  []string       `json:"symbols" yaml:"symbols"`
	Policy   PolicyConfig   `json:"policy" yaml:"policy"`
	State    StateConfig    `json:"state" yaml:"state"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Prices   PricesConfig   `json:"prices" yaml:"prices"`
	Oracle   OracleConfig   `json:"oracle" yaml:"oracle"`
	Notify   NotifyConfig   `json:"notify" yaml:"notify"`
	Schedule ScheduleConfig `json:"schedule" yaml:"schedule"`
	Render   RenderConfig   `json:"render" yaml:"render"`
}

// AccountConfig contains wallet initialization parameters
type AccountConfig struct {
	Currency     string  `json:"currency" yaml:"currency"`
	InitialCash  float64 `json:"initial_cash" yaml:"initial_cash"`
	ResetOnStart bool    `json:"reset_on_start" yaml:"reset_on_start"`
}

// Cash is the initial balance as a decimal.
func (a AccountConfig) Cash() decimal.Decimal {
	return decimal.NewFromFloat(a.InitialCash)
}

type PolicyConfig struct {
	MaxBuyFraction    float64 `json:"max_buy_fraction" yaml:"max_buy_fraction"`
	MaxSellFraction   float64 `json:"max_sell_fraction" yaml:"max_sell_fraction"`
	ForcedBuyFraction float64 `json:"forced_buy_fraction" yaml:"forced_buy_fraction"`
}

func (p PolicyConfig) Risk() risk.Policy {
	return risk.Policy{
		MaxBuyFraction:    decimal.NewFromFloat(p.MaxBuyFraction),
		MaxSellFraction:   decimal.NewFromFloat(p.MaxSellFraction),
		ForcedBuyFraction: decimal.NewFromFloat(p.ForcedBuyFraction),
	}
}

// StateConfig selects the wallet store
type StateConfig struct {
	Type string `json:"type" yaml:"type"` // "sqlite" or "json"
	Path string `json:"path" yaml:"path"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type string `json:"type" yaml:"type"` // "sqlite", "csv" or "none"
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// PricesConfig selects where quotes come from
type PricesConfig struct {
	Provider string             `json:"provider" yaml:"provider"` // static, http, binance, stream, oanda
	URL      string             `json:"url,omitempty" yaml:"url,omitempty"`
	Path     string             `json:"path,omitempty" yaml:"path,omitempty"` // jsonpath into the http response
	Static   map[string]float64 `json:"static,omitempty" yaml:"static,omitempty"`
	Timeout  Duration           `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	MaxAge   Duration           `json:"max_age,omitempty" yaml:"max_age,omitempty"`

	APIKeyEnv    string `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	SecretKeyEnv string `json:"secret_key_env,omitempty" yaml:"secret_key_env,omitempty"`

	// OANDA account and environment ("practice").
	AccountIDEnv string `json:"account_id_env,omitempty" yaml:"account_id_env,omitempty"`
	Environment  string `json:"environment,omitempty" yaml:"environment,omitempty"`
}

// StaticPrices converts the static table to decimals keyed by upper-case symbol.
func (p PricesConfig) StaticPrices() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(p.Static))
	for sym, v := range p.Static {
		out[strings.ToUpper(sym)] = decimal.NewFromFloat(v)
	}
	return out
}

type OracleConfig struct {
	Provider    string   `json:"provider" yaml:"provider"` // gemini or hold
	Model       string   `json:"model,omitempty" yaml:"model,omitempty"`
	APIKeyEnv   string   `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	Timeout     Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Temperature float64  `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	Persona     string   `json:"persona,omitempty" yaml:"persona,omitempty"`

	// TrendPeriod is the EMA period of observed prices shown to the
	// oracle; zero leaves it out.
	TrendPeriod int `json:"trend_period,omitempty" yaml:"trend_period,omitempty"`
}

type NotifyConfig struct {
	Log     bool          `json:"log" yaml:"log"`
	Timeout Duration      `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Discord DiscordConfig `json:"discord,omitempty" yaml:"discord,omitempty"`
	Email   EmailConfig   `json:"email,omitempty" yaml:"email,omitempty"`
}

type DiscordConfig struct {
	WebhookEnv string `json:"webhook_env,omitempty" yaml:"webhook_env,omitempty"`
	Username   string `json:"username,omitempty" yaml:"username,omitempty"`
}

type EmailConfig struct {
	Host        string   `json:"host,omitempty" yaml:"host,omitempty"`
	Port        int      `json:"port,omitempty" yaml:"port,omitempty"`
	Username    string   `json:"username,omitempty" yaml:"username,omitempty"`
	PasswordEnv string   `json:"password_env,omitempty" yaml:"password_env,omitempty"`
	From        string   `json:"from,omitempty" yaml:"from,omitempty"`
	To          []string `json:"to,omitempty" yaml:"to,omitempty"`

	// Kinds limits which events are mailed; empty means all.
	Kinds []string `json:"kinds,omitempty" yaml:"kinds,omitempty"`
}

// Enabled reports whether email delivery is configured.
func (e EmailConfig) Enabled() bool { return e.Host != "" }

type ScheduleConfig struct {
	Tick     Duration       `json:"tick,omitempty" yaml:"tick,omitempty"`
	Trading  TradingConfig  `json:"trading" yaml:"trading"`
	SelfTalk SelfTalkConfig `json:"self_talk" yaml:"self_talk"`
	Status   StatusConfig   `json:"status" yaml:"status"`
	Report   ReportSchedule `json:"report" yaml:"report"`
}

// TradingConfig runs the trading job either at a fixed interval or at a
// random interval between JitterMin and JitterMax.
type TradingConfig struct {
	Every     Duration `json:"every,omitempty" yaml:"every,omitempty"`
	JitterMin Duration `json:"jitter_min,omitempty" yaml:"jitter_min,omitempty"`
	JitterMax Duration `json:"jitter_max,omitempty" yaml:"jitter_max,omitempty"`
	Immediate bool     `json:"immediate" yaml:"immediate"`
}

// SelfTalkConfig runs the self-talk job at a random interval between
// JitterMin and JitterMax. Both empty disables it.
type SelfTalkConfig struct {
	JitterMin Duration `json:"jitter_min,omitempty" yaml:"jitter_min,omitempty"`
	JitterMax Duration `json:"jitter_max,omitempty" yaml:"jitter_max,omitempty"`
}

// Enabled reports whether both bounds are set.
func (s SelfTalkConfig) Enabled() bool { return s.JitterMin != "" && s.JitterMax != "" }

type StatusConfig struct {
	Every Duration `json:"every,omitempty" yaml:"every,omitempty"` // empty disables
}

type ReportSchedule struct {
	DailyAt  string `json:"daily_at,omitempty" yaml:"daily_at,omitempty"` // "17:30", empty disables
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// Location resolves Timezone, defaulting to the local zone.
func (r ReportSchedule) Location() (*time.Location, error) {
	if r.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(r.Timezone)
}

type RenderConfig struct {
	Style string `json:"style,omitempty" yaml:"style,omitempty"` // "plain", "dark", "light", ...
	Width int    `json:"width,omitempty" yaml:"width,omitempty"`
}

// Duration is a time.Duration written as a string, e.g. "90s" or "1h".
type Duration string

// Parse converts the duration string; empty is zero.
func (d Duration) Parse() (time.Duration, error) {
	if d == "" {
		return 0, nil
	}
	return time.ParseDuration(string(d))
}

// Or returns the parsed duration, or def when d is empty or invalid.
func (d Duration) Or(def time.Duration) time.Duration {
	v, err := d.Parse()
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// LoadFromFile loads configuration from a file (YAML or JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Try YAML first, fall back to JSON
	cfg := base()
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = base()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// base is Default without the static price table, which decoding would
// otherwise merge into.
func base() *Config {
	cfg := Default()
	cfg.Prices.Static = nil
	return cfg
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Account.Currency) != 3 {
		return fmt.Errorf("account.currency must be a 3-letter code")
	}
	if c.Account.InitialCash < 0 {
		return fmt.Errorf("account.initial_cash must not be negative")
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols: at least one symbol is required")
	}
	for _, s := range c.Symbols {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("symbols: empty symbol")
		}
	}
	if err := c.Policy.Risk().Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	switch c.State.Type {
	case "sqlite", "json":
	default:
		return fmt.Errorf("state.type must be 'sqlite' or 'json'")
	}
	if c.State.Path == "" {
		return fmt.Errorf("state.path is required")
	}

	switch c.Journal.Type {
	case "sqlite", "csv":
		if c.Journal.Path == "" {
			return fmt.Errorf("journal.path required for %s type", c.Journal.Type)
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv' or 'none'")
	}

	switch c.Prices.Provider {
	case "static":
		if len(c.Prices.Static) == 0 {
			return fmt.Errorf("prices.static is empty")
		}
	case "http":
		if !strings.Contains(c.Prices.URL, "{symbol}") || c.Prices.Path == "" {
			return fmt.Errorf("prices: http provider needs a url with {symbol} and a path")
		}
	case "stream":
		if c.Prices.URL == "" {
			return fmt.Errorf("prices: stream provider needs a url")
		}
	case "oanda":
		if c.Prices.APIKeyEnv == "" || c.Prices.AccountIDEnv == "" {
			return fmt.Errorf("prices: oanda provider needs api_key_env and account_id_env")
		}
		if _, err := pricing.OANDABaseURL(c.Prices.Environment); err != nil {
			return fmt.Errorf("prices.environment: %w", err)
		}
	case "binance":
	default:
		return fmt.Errorf("prices.provider must be static, http, binance, stream or oanda")
	}

	switch c.Oracle.Provider {
	case "hold":
	case "gemini":
		if c.Oracle.APIKeyEnv == "" {
			return fmt.Errorf("oracle.api_key_env is required for gemini")
		}
	default:
		return fmt.Errorf("oracle.provider must be 'gemini' or 'hold'")
	}
	if c.Oracle.Temperature < 0 || c.Oracle.Temperature > 2 {
		return fmt.Errorf("oracle.temperature must be between 0 and 2")
	}
	if c.Oracle.TrendPeriod < 0 {
		return fmt.Errorf("oracle.trend_period must not be negative")
	}

	if e := c.Notify.Email; e.Enabled() {
		if e.Port <= 0 || e.From == "" || len(e.To) == 0 {
			return fmt.Errorf("notify.email needs port, from and to")
		}
		for _, k := range e.Kinds {
			switch notify.Kind(k) {
			case notify.TradeExecuted, notify.ReportGenerated, notify.PlanProposed:
			default:
				return fmt.Errorf("notify.email.kinds: unknown kind %q", k)
			}
		}
	}

	t := c.Schedule.Trading
	if t.Every == "" && (t.JitterMin == "" || t.JitterMax == "") {
		return fmt.Errorf("schedule.trading needs every or jitter_min and jitter_max")
	}
	st := c.Schedule.SelfTalk
	if (st.JitterMin == "") != (st.JitterMax == "") {
		return fmt.Errorf("schedule.self_talk needs both jitter_min and jitter_max")
	}
	if c.Schedule.Report.DailyAt != "" {
		if _, err := time.Parse("15:04", c.Schedule.Report.DailyAt); err != nil {
			return fmt.Errorf("schedule.report.daily_at must be HH:MM")
		}
	}
	if _, err := c.Schedule.Report.Location(); err != nil {
		return fmt.Errorf("schedule.report.timezone: %w", err)
	}

	durations := map[string]Duration{
		"prices.timeout":                c.Prices.Timeout,
		"prices.max_age":                c.Prices.MaxAge,
		"oracle.timeout":                c.Oracle.Timeout,
		"notify.timeout":                c.Notify.Timeout,
		"schedule.tick":                 c.Schedule.Tick,
		"schedule.trading.every":        t.Every,
		"schedule.trading.jitter_min":   t.JitterMin,
		"schedule.trading.jitter_max":   t.JitterMax,
		"schedule.self_talk.jitter_min": st.JitterMin,
		"schedule.self_talk.jitter_max": st.JitterMax,
		"schedule.status.every":         c.Schedule.Status.Every,
	}
	for name, d := range durations {
		v, err := d.Parse()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if v < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if t.Every == "" && t.JitterMin.Or(0) > t.JitterMax.Or(0) {
		return fmt.Errorf("schedule.trading.jitter_min must not exceed jitter_max")
	}
	if st.Enabled() && st.JitterMin.Or(0) > st.JitterMax.Or(0) {
		return fmt.Errorf("schedule.self_talk.jitter_min must not exceed jitter_max")
	}
	if c.Render.Width < 0 {
		return fmt.Errorf("render.width must not be negative")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Currency:    "USD",
			InitialCash: 100000,
		},
		Symbols: []string{"AMD"},
		Policy: PolicyConfig{
			MaxBuyFraction:  1.0,
			MaxSellFraction: 0.5,
		},
		State: StateConfig{
			Type: "sqlite",
			Path: "./papertrader.db",
		},
		Journal: JournalConfig{
			Type: "sqlite",
			Path: "./journal.db",
		},
		Prices: PricesConfig{
			Provider: "static",
			Static:   map[string]float64{"AMD": 247.50},
			Timeout:  "10s",
			MaxAge:   "1m",
		},
		Oracle: OracleConfig{
			Provider:    "hold",
			Model:       "gemini-2.5-flash",
			APIKeyEnv:   "GEMINI_API_KEY",
			Timeout:     "60s",
			TrendPeriod: 12,
		},
		Notify: NotifyConfig{
			Log:     true,
			Timeout: "15s",
		},
		Schedule: ScheduleConfig{
			Tick: "1s",
			Trading: TradingConfig{
				JitterMin: "5m",
				JitterMax: "15m",
				Immediate: true,
			},
			SelfTalk: SelfTalkConfig{JitterMin: "1m", JitterMax: "5m"},
			Status:   StatusConfig{Every: "30s"},
			Report:   ReportSchedule{DailyAt: "17:30"},
		},
		Render: RenderConfig{Style: "plain", Width: 80},
	}
}
