package report

import (
	"fmt"
	"strings"
	"time"
)

// Status is the short plain-text block printed on the console.
func Status(v Valuation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cash:         %s\n", Format(v.Cash, v.Currency))
	fmt.Fprintf(&b, "Market value: %s\n", Format(v.MarketValue, v.Currency))
	for _, h := range v.Holdings {
		price := "n/a"
		if h.Priced {
			price = Format(h.Price, v.Currency)
		}
		fmt.Fprintf(&b, "  %-8s %6d @ %s  avg %s  P/L %s (%s%%)\n",
			h.Symbol, h.Quantity, price, Format(h.AverageCost, v.Currency),
			Signed(h.Unrealized, v.Currency), h.UnrealizedPct.StringFixed(2))
	}
	if len(v.Holdings) == 0 {
		b.WriteString("  (no holdings)\n")
	}
	fmt.Fprintf(&b, "Total:        %s\n", Format(v.Total, v.Currency))
	return b.String()
}

// Markdown renders the valuation as a markdown document. Commentary is
// appended as its own section when not empty.
func Markdown(v Valuation, title, commentary string) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	fmt.Fprintf(&b, "_%s_\n\n", v.Time.Format("2006-01-02 15:04 MST"))

	b.WriteString("| | |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Cash | %s |\n", Format(v.Cash, v.Currency))
	fmt.Fprintf(&b, "| Market value | %s |\n", Format(v.MarketValue, v.Currency))
	fmt.Fprintf(&b, "| Unrealized P/L | %s |\n", Signed(v.Unrealized, v.Currency))
	fmt.Fprintf(&b, "| **Total** | **%s** |\n\n", Format(v.Total, v.Currency))

	if len(v.Holdings) > 0 {
		b.WriteString("## Holdings\n\n")
		b.WriteString("| Symbol | Shares | Avg cost | Price | Value | P/L | P/L % |\n")
		b.WriteString("|---|---:|---:|---:|---:|---:|---:|\n")
		for _, h := range v.Holdings {
			price := "n/a"
			if h.Priced {
				price = Format(h.Price, v.Currency)
			}
			fmt.Fprintf(&b, "| %s | %d | %s | %s | %s | %s | %s |\n",
				h.Symbol, h.Quantity, Format(h.AverageCost, v.Currency), price,
				Format(h.MarketValue, v.Currency), Signed(h.Unrealized, v.Currency),
				h.UnrealizedPct.StringFixed(2))
		}
		b.WriteString("\n")
	}

	if c := strings.TrimSpace(commentary); c != "" {
		b.WriteString("## Commentary\n\n")
		b.WriteString(c)
		b.WriteString("\n")
	}
	return b.String()
}

// Uptime renders how long the agent has existed, e.g. "3d 4h".
func Uptime(born, now time.Time) string {
	d := now.Sub(born)
	if d < 0 {
		d = 0
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	return fmt.Sprintf("%dh %dm", hours, int(d.Minutes())%60)
}
