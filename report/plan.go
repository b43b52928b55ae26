package report

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/papertrader/oracle"
)

// PlanMarkdown renders a proposed portfolio as a markdown table.
func PlanMarkdown(p oracle.Plan, title, currency string) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	fmt.Fprintf(&b, "Budget: %s\n\n", Format(p.Budget, currency))
	if p.Scaled {
		b.WriteString("_The proposal allocated more than the budget and was scaled to 100%._\n\n")
	}
	b.WriteString("| Symbol | Name | Allocation | Amount | Why |\n")
	b.WriteString("|---|---|---:|---:|---|\n")
	for _, a := range p.Allocations {
		fmt.Fprintf(&b, "| %s | %s | %s%% | %s | %s |\n",
			a.Symbol, a.Name, a.Fraction.Shift(2).StringFixed(1),
			Format(a.Amount, currency), a.Reasoning)
	}
	if s := strings.TrimSpace(p.Strategy); s != "" {
		fmt.Fprintf(&b, "\n## Strategy\n\n%s\n", s)
	}
	return b.String()
}
