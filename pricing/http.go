package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
)

// HTTP reads a price from a JSON endpoint. URL may contain "{symbol}",
// which is replaced by the escaped symbol; Path is a JSONPath expression
// selecting the price in the response.
type HTTP struct {
	URL    string
	Path   string
	Header http.Header
	Client *http.Client
}

func NewHTTP(urlTemplate, path string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTP{
		URL:    urlTemplate,
		Path:   path,
		Client: &http.Client{Timeout: timeout},
	}
}

func (h *HTTP) Price(ctx context.Context, symbol string) (Quote, error) {
	addr := strings.ReplaceAll(h.URL, "{symbol}", url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return Quote{}, err
	}
	for k, vs := range h.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("get %s price: %w", symbol, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Quote{}, noPrice(symbol, "http status %s", resp.Status)
	}

	var jobj any
	if err := json.NewDecoder(resp.Body).Decode(&jobj); err != nil {
		return Quote{}, fmt.Errorf("decode %s price: %w", symbol, err)
	}
	jval, err := jsonpath.Get(h.Path, jobj)
	if err != nil {
		return Quote{}, noPrice(symbol, "path %q: %v", h.Path, err)
	}
	// jsonpath returns a list for filters and slices; keep the first value
	if jlist, ok := jval.([]any); ok {
		if len(jlist) == 0 {
			return Quote{}, noPrice(symbol, "path %q matched nothing", h.Path)
		}
		jval = jlist[0]
	}

	price, err := toDecimal(jval)
	if err != nil {
		return Quote{}, noPrice(symbol, "path %q: %v", h.Path, err)
	}
	q := Quote{Symbol: symbol, Price: price, Time: time.Now(), Source: "http"}
	return q, valid(q)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case float64:
		return decimal.NewFromFloat(x), nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), " ", "")
		s = strings.ReplaceAll(s, ",", ".")
		return decimal.NewFromString(s)
	case json.Number:
		return decimal.NewFromString(x.String())
	default:
		return decimal.Zero, fmt.Errorf("unexpected value %v (%T)", v, v)
	}
}
