package pricing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

type listPrices func(ctx context.Context, symbol string) ([]*binance.SymbolPrice, error)

// Binance reads the spot ticker price. Public prices need no API key.
type Binance struct {
	list listPrices
}

func NewBinance(apiKey, secretKey string, client *http.Client) *Binance {
	c := binance.NewClient(apiKey, secretKey)
	if client != nil {
		c.HTTPClient = client
	}
	return &Binance{list: func(ctx context.Context, symbol string) ([]*binance.SymbolPrice, error) {
		return c.NewListPricesService().Symbol(symbol).Do(ctx)
	}}
}

func (b *Binance) Price(ctx context.Context, symbol string) (Quote, error) {
	sym := strings.ToUpper(symbol)
	prices, err := b.list(ctx, sym)
	if err != nil {
		return Quote{}, err
	}
	for _, p := range prices {
		if p == nil || p.Symbol != sym {
			continue
		}
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return Quote{}, noPrice(symbol, "bad ticker price %q", p.Price)
		}
		q := Quote{Symbol: symbol, Price: price, Time: time.Now(), Source: "binance"}
		return q, valid(q)
	}
	return Quote{}, noPrice(symbol, "not in ticker response")
}
