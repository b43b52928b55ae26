package journal

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"
)

// FormatTradeOrg renders a trade as an Org-mode entry. Facts go in the
// PROPERTIES drawer; the Thesis and Review headings are left for notes.
func FormatTradeOrg(t TradeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Trade: %s %s %s (%s)\n", t.Action, t.Symbol, t.Price.StringFixed(2), shortID(t.TradeID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRADE_ID: %s\n", t.TradeID)
	fmt.Fprintf(&b, ":ID: %s\n", t.TradeID)
	fmt.Fprintf(&b, ":TIME: %s\n", t.Time.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":SYMBOL: %s\n", t.Symbol)
	fmt.Fprintf(&b, ":ACTION: %s\n", t.Action)
	fmt.Fprintf(&b, ":SHARES: %d\n", t.Shares)
	fmt.Fprintf(&b, ":PRICE: %s\n", t.Price.StringFixed(2))
	fmt.Fprintf(&b, ":CASH_DELTA: %s\n", t.CashDelta.StringFixed(2))
	fmt.Fprintf(&b, ":CASH_AFTER: %s\n", t.CashAfter.StringFixed(2))
	fmt.Fprintf(&b, ":AVERAGE_COST: %s\n", t.AverageCost.StringFixed(2))
	fmt.Fprintf(&b, ":REASON: %s\n", t.Reason)
	b.WriteString(":END:\n\n")
	b.WriteString("*** Thesis\n- \n\n")
	b.WriteString("*** Review\n- \n")
	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}

// Day is the input of FormatDayOrg.
type Day struct {
	Date       time.Time
	Trades     []TradeRecord
	Valuations []ValuationSnapshot
}

func (d Day) Bought() decimal.Decimal { return d.sum(func(t TradeRecord) bool { return t.CashDelta.IsNegative() }) }
func (d Day) Sold() decimal.Decimal   { return d.sum(func(t TradeRecord) bool { return t.CashDelta.IsPositive() }) }

func (d Day) sum(keep func(TradeRecord) bool) decimal.Decimal {
	total := decimal.Zero
	for _, t := range d.Trades {
		if keep(t) {
			total = total.Add(t.CashDelta.Abs())
		}
	}
	return total
}

// Close is the last valuation of the day, if any.
func (d Day) Close() *ValuationSnapshot {
	if len(d.Valuations) == 0 {
		return nil
	}
	v := d.Valuations[len(d.Valuations)-1]
	return &v
}

var dayOrgFuncs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"trade": FormatTradeOrg,
}

var dayOrgTemplate = template.Must(template.New("day").Funcs(dayOrgFuncs).Parse(`* TRADING DAY {{.Date.Format "2006-01-02 Mon"}}
:PROPERTIES:
:TRADES:      {{len .Trades}}
:BOUGHT:      {{money .Bought}}
:SOLD:        {{money .Sold}}
{{- with .Close}}
:CASH:        {{money .Cash}}
:MARKET_VAL:  {{money .MarketValue}}
:TOTAL:       {{money .Total}}
{{- end}}
:END:
{{range .Trades}}
{{trade .}}{{end}}`))

// FormatDayOrg renders one trading day with its trades as sub-entries.
func FormatDayOrg(d Day) (string, error) {
	var buf bytes.Buffer
	if err := dayOrgTemplate.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}
