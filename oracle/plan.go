package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

// Allocation is one ticker of a proposed portfolio. Fraction is the share
// of the budget in [0, 1]; Amount is Fraction times the budget.
type Allocation struct {
	Symbol    string
	Name      string
	Fraction  decimal.Decimal
	Amount    decimal.Decimal
	Reasoning string
}

// Plan is a proposed starting portfolio. It is advice only; nothing is
// traded.
type Plan struct {
	Budget      decimal.Decimal
	Strategy    string
	Allocations []Allocation

	// Scaled is set when the proposal added up to more than the whole
	// budget and was normalised.
	Scaled bool
}

// Planner proposes a portfolio for a budget.
type Planner interface {
	Plan(ctx context.Context, budget decimal.Decimal, currency string) (Plan, error)
}

// Thinker produces a short unprompted thought about the portfolio.
type Thinker interface {
	Think(ctx context.Context, portfolio string) (string, error)
}

var planSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"tickers": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"symbol": {Type: genai.TypeString},
					"name":   {Type: genai.TypeString},
					"allocation_fraction": {
						Type:        genai.TypeNumber,
						Description: "Share of the budget between 0 and 1.",
					},
					"reasoning": {Type: genai.TypeString},
				},
				Required: []string{"symbol", "allocation_fraction"},
			},
		},
		"strategy_summary": {Type: genai.TypeString},
	},
	Required: []string{"tickers", "strategy_summary"},
}

func (g *Gemini) Plan(ctx context.Context, budget decimal.Decimal, currency string) (Plan, error) {
	prompt := fmt.Sprintf("Propose a starting portfolio of 3 to 5 stock tickers for a budget of %s %s. "+
		"Give each ticker an allocation fraction of the budget and a one sentence reason, "+
		"and summarise the strategy in one or two sentences.", budget.StringFixed(0), currency)
	text, err := g.ask(ctx, prompt, planSchema)
	if err != nil {
		return Plan{}, err
	}
	return parsePlan(text, budget)
}

type planResponse struct {
	Tickers []struct {
		Symbol    string          `json:"symbol"`
		Name      string          `json:"name"`
		Fraction  decimal.Decimal `json:"allocation_fraction"`
		Reasoning string          `json:"reasoning"`
	} `json:"tickers"`
	Strategy string `json:"strategy_summary"`
}

func parsePlan(text string, budget decimal.Decimal) (Plan, error) {
	var r planResponse
	if err := json.Unmarshal([]byte(trimFence(text)), &r); err != nil {
		return Plan{}, fmt.Errorf("decode plan: %w", err)
	}

	allocs := make([]Allocation, 0, len(r.Tickers))
	for _, t := range r.Tickers {
		sym := strings.ToUpper(strings.TrimSpace(t.Symbol))
		if sym == "" {
			continue
		}
		allocs = append(allocs, Allocation{
			Symbol:    sym,
			Name:      strings.TrimSpace(t.Name),
			Fraction:  t.Fraction,
			Reasoning: strings.TrimSpace(t.Reasoning),
		})
	}
	if len(allocs) == 0 {
		return Plan{}, errors.New("plan has no tickers")
	}

	allocs, scaled := normalizeAllocations(allocs, budget)
	return Plan{
		Budget:      budget,
		Strategy:    strings.TrimSpace(r.Strategy),
		Allocations: allocs,
		Scaled:      scaled,
	}, nil
}

// allocationSlack tolerates rounding in the model's fractions.
var allocationSlack = decimal.RequireFromString("1.0001")

// normalizeAllocations clamps negative fractions to zero and, when the
// fractions add up to more than one, scales them down to sum to one. It
// fills in each Amount from budget and reports whether it scaled.
func normalizeAllocations(allocs []Allocation, budget decimal.Decimal) ([]Allocation, bool) {
	out := make([]Allocation, len(allocs))
	total := decimal.Zero
	for i, a := range allocs {
		if a.Fraction.IsNegative() {
			a.Fraction = decimal.Zero
		}
		total = total.Add(a.Fraction)
		out[i] = a
	}

	scaled := total.GreaterThan(allocationSlack)
	for i := range out {
		if scaled {
			out[i].Fraction = out[i].Fraction.Div(total)
		}
		out[i].Amount = out[i].Fraction.Mul(budget)
	}
	return out, scaled
}

func (g *Gemini) Think(ctx context.Context, portfolio string) (string, error) {
	prompt := fmt.Sprintf("Current portfolio:\n%s\n\nThink out loud for three or four sentences: "+
		"what went well, what worries you, and what you are waiting for.", portfolio)
	text, err := g.ask(ctx, prompt, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
