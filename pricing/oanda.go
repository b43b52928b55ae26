package pricing

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OANDABaseURL maps an environment name onto the v20 REST host. Only the
// practice environment is allowed.
func OANDABaseURL(env string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "practice", "demo", "":
		return "https://stream-fxpractice.oanda.com", nil
	case "live":
		return "", errors.New("oanda: live environment is not allowed")
	default:
		return "", fmt.Errorf("unknown OANDA env %q (want practice)", env)
	}
}

// OANDA keeps a Cache filled from an OANDA v20 pricing stream. The
// stream is newline-delimited JSON of PRICE and HEARTBEAT messages; the
// cached quote is the mid of the best bid and ask.
type OANDA struct {
	BaseURL     string
	Token       string
	AccountID   string
	Instruments []string

	Cache   *Cache
	Client  *http.Client
	Backoff time.Duration
}

func NewOANDA(baseURL, token, accountID string, instruments []string, maxAge time.Duration) *OANDA {
	return &OANDA{
		BaseURL:     baseURL,
		Token:       token,
		AccountID:   accountID,
		Instruments: instruments,
		Cache:       NewCache(maxAge),
		Client:      &http.Client{},
		Backoff:     5 * time.Second,
	}
}

func (o *OANDA) Price(ctx context.Context, symbol string) (Quote, error) {
	return o.Cache.Price(ctx, symbol)
}

// Run reads the stream until ctx is done, reconnecting after errors.
func (o *OANDA) Run(ctx context.Context) error {
	if o.Token == "" {
		return errors.New("oanda: missing token")
	}
	if o.AccountID == "" {
		return errors.New("oanda: missing account id")
	}
	if len(o.Instruments) == 0 {
		return errors.New("oanda: missing instruments")
	}
	return reconnect(ctx, "oanda", o.Backoff, o.session)
}

func (o *OANDA) open(ctx context.Context) (io.ReadCloser, error) {
	u, err := url.Parse(o.BaseURL)
	if err != nil {
		return nil, err
	}
	u.Path = fmt.Sprintf("/v3/accounts/%s/pricing/stream", url.PathEscape(o.AccountID))
	q := u.Query()
	q.Set("instruments", strings.Join(o.Instruments, ","))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+o.Token)
	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		resp.Body.Close()
		return nil, fmt.Errorf("oanda pricing stream http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return resp.Body, nil
}

func (o *OANDA) session(ctx context.Context) error {
	body, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer body.Close()
	log.Printf("[PRICE] oanda stream connected for %s", strings.Join(o.Instruments, ","))

	sc := bufio.NewScanner(body)
	// price messages carry full order book depth and can be long
	sc.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		q, ok, err := parseOANDA([]byte(line))
		if err != nil {
			log.Printf("[PRICE] oanda: %v (line=%q)", err, trimForErr(line))
			continue
		}
		if ok {
			o.Cache.Set(q)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}

type oandaPrice struct {
	Type       string `json:"type"`
	Time       string `json:"time"`
	Instrument string `json:"instrument"`
	Bids       []struct {
		Price decimal.Decimal `json:"price"`
	} `json:"bids"`
	Asks []struct {
		Price decimal.Decimal `json:"price"`
	} `json:"asks"`
}

// parseOANDA decodes one stream line. ok is false for heartbeats and
// prices without both sides of the book.
func parseOANDA(line []byte) (q Quote, ok bool, err error) {
	var msg oandaPrice
	if err := json.Unmarshal(line, &msg); err != nil {
		return Quote{}, false, fmt.Errorf("bad json: %w", err)
	}
	if !strings.EqualFold(msg.Type, "PRICE") || msg.Instrument == "" || len(msg.Bids) == 0 || len(msg.Asks) == 0 {
		return Quote{}, false, nil
	}

	at := time.Now()
	if msg.Time != "" {
		if t, err := time.Parse(time.RFC3339Nano, msg.Time); err == nil {
			at = t
		}
	}
	mid := msg.Bids[0].Price.Add(msg.Asks[0].Price).Div(decimal.NewFromInt(2))
	return Quote{Symbol: msg.Instrument, Price: mid, Time: at, Source: "oanda"}, true, nil
}

func trimForErr(s string) string {
	const n = 200
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
