package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// Stream keeps a Cache filled from a websocket trade feed. Messages are
// Binance-style trade events, either bare or wrapped in a combined
// stream envelope:
//
//	{"e":"trade","s":"BTCUSDT","p":"64000.10","T":1714550400000}
//	{"stream":"btcusdt@trade","data":{...}}
type Stream struct {
	URL    string
	Header http.Header
	Cache  *Cache

	ReadTimeout time.Duration
	Backoff     time.Duration
	Dialer      *websocket.Dialer
}

func NewStream(url string, maxAge time.Duration) *Stream {
	return &Stream{
		URL:         url,
		Cache:       NewCache(maxAge),
		ReadTimeout: 60 * time.Second,
		Backoff:     5 * time.Second,
		Dialer:      websocket.DefaultDialer,
	}
}

func (s *Stream) Price(ctx context.Context, symbol string) (Quote, error) {
	return s.Cache.Price(ctx, symbol)
}

// Run reads the feed until ctx is done, reconnecting after errors.
func (s *Stream) Run(ctx context.Context) error {
	return reconnect(ctx, "stream "+s.URL, s.Backoff, s.session)
}

// reconnect runs session until ctx is done, waiting backoff after each
// failure.
func reconnect(ctx context.Context, name string, backoff time.Duration, session func(context.Context) error) error {
	for {
		err := session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("[PRICE] %s: %v, reconnecting in %s", name, err, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func (s *Stream) session(ctx context.Context) error {
	conn, _, err := s.Dialer.DialContext(ctx, s.URL, s.Header)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	log.Printf("[PRICE] stream connected to %s", s.URL)

	// unblock ReadMessage when ctx is cancelled
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		if s.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.ReadTimeout))
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		q, ok, err := parseTrade(msg)
		if err != nil {
			log.Printf("[PRICE] stream: %v", err)
			continue
		}
		if ok {
			s.Cache.Set(q)
		}
	}
}

type tradeEvent struct {
	Event     string          `json:"e"`
	Symbol    string          `json:"s"`
	Price     decimal.Decimal `json:"p"`
	TradeTime int64           `json:"T"`
}

// parseTrade decodes one feed message. ok is false for messages that
// are not trades, such as subscription acks.
func parseTrade(msg []byte) (q Quote, ok bool, err error) {
	var env struct {
		Stream string          `json:"stream"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(msg, &env); err != nil {
		return Quote{}, false, fmt.Errorf("decode message: %w", err)
	}
	body := msg
	if len(env.Data) > 0 {
		body = env.Data
	}

	var ev tradeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return Quote{}, false, fmt.Errorf("decode trade: %w", err)
	}
	if ev.Symbol == "" || (ev.Event != "" && ev.Event != "trade" && ev.Event != "aggTrade") {
		return Quote{}, false, nil
	}

	at := time.Now()
	if ev.TradeTime > 0 {
		at = time.UnixMilli(ev.TradeTime)
	}
	return Quote{Symbol: ev.Symbol, Price: ev.Price, Time: at, Source: "stream"}, true, nil
}
