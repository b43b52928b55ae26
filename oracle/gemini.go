package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini asks a Gemini model for decisions, answers and commentary.
type Gemini struct {
	Model       string
	Temperature float32
	Persona     string

	gen generator
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty API key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{Model: model, Temperature: 0.4, Persona: defaultPersona, gen: client.Models}, nil
}

const defaultPersona = `You are a disciplined paper-trading agent managing a simulated stock portfolio.
You never have real money at stake, but you act as if you did: you prefer small
positions, you explain every decision in one or two sentences, and you hold when
the picture is unclear.`

var decisionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"action": {
			Type:        genai.TypeString,
			Enum:        []string{"BUY", "SELL", "HOLD"},
			Description: "What to do with the symbol now.",
		},
		"amount": {
			Type:        genai.TypeNumber,
			Description: "Cash to spend for BUY, number of shares for SELL, 0 for HOLD.",
		},
		"unit": {
			Type: genai.TypeString,
			Enum: []string{"CASH", "SHARES"},
		},
		"reasoning": {
			Type:        genai.TypeString,
			Description: "One or two sentences explaining the decision.",
		},
	},
	Required: []string{"action", "amount", "reasoning"},
}

func (g *Gemini) config(schema *genai.Schema) *genai.GenerateContentConfig {
	temp := g.Temperature
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: g.Persona}}},
		Temperature:       &temp,
	}
	if schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = schema
	}
	return cfg
}

func (g *Gemini) ask(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}}
	resp, err := g.gen.GenerateContent(ctx, g.Model, contents, g.config(schema))
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: empty response")
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", errors.New("gemini: response has no text")
	}
	return b.String(), nil
}

func decisionPrompt(q Query) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\n", q.Symbol)
	fmt.Fprintf(&b, "Current price: %s\n", q.Price.StringFixed(2))
	if q.AverageName != "" {
		fmt.Fprintf(&b, "%s of observed prices: %s\n", q.AverageName, q.Average.StringFixed(2))
	}
	fmt.Fprintf(&b, "Available cash: %s\n", q.Cash.StringFixed(2))
	if q.Quantity > 0 {
		fmt.Fprintf(&b, "Held: %d shares at average cost %s\n", q.Quantity, q.AverageCost.StringFixed(2))
	} else {
		b.WriteString("Held: none\n")
	}
	b.WriteString("\nDecide whether to BUY, SELL or HOLD this symbol now. ")
	b.WriteString("For BUY give the cash amount to spend, for SELL the number of shares.")
	return b.String()
}

func (g *Gemini) Decide(ctx context.Context, q Query) (broker.OrderIntent, error) {
	text, err := g.ask(ctx, decisionPrompt(q), decisionSchema)
	if err != nil {
		return broker.OrderIntent{}, err
	}
	return parseDecision(text)
}

type decision struct {
	Action    string          `json:"action"`
	Amount    decimal.Decimal `json:"amount"`
	Unit      string          `json:"unit"`
	Reasoning string          `json:"reasoning"`
}

func parseDecision(text string) (broker.OrderIntent, error) {
	var d decision
	if err := json.Unmarshal([]byte(trimFence(text)), &d); err != nil {
		return broker.OrderIntent{}, fmt.Errorf("decode decision: %w", err)
	}

	intent := broker.OrderIntent{
		Action:    broker.ParseAction(d.Action),
		Amount:    d.Amount,
		Unit:      broker.ParseUnit(d.Unit),
		Reasoning: strings.TrimSpace(d.Reasoning),
	}
	if intent.Amount.IsNegative() {
		return broker.OrderIntent{}, fmt.Errorf("decision has negative amount %s", intent.Amount)
	}
	switch intent.Action {
	case broker.Hold:
		intent.Amount = decimal.Zero
		intent.Unit = ""
	case broker.Buy:
		if intent.Unit == "" {
			intent.Unit = broker.UnitCash
		}
	case broker.Sell:
		if intent.Unit == "" {
			intent.Unit = broker.UnitShares
		}
	}
	return intent, nil
}

// trimFence strips a markdown code fence around a JSON answer.
func trimFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func (g *Gemini) Respond(ctx context.Context, question, portfolio string) (string, error) {
	prompt := fmt.Sprintf("Current portfolio:\n%s\n\nThe owner asks: %s\n\nAnswer briefly.", portfolio, question)
	text, err := g.ask(ctx, prompt, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (g *Gemini) Commentary(ctx context.Context, portfolio string) (string, error) {
	prompt := fmt.Sprintf("End of day portfolio:\n%s\n\nWrite a short market commentary (at most one paragraph) "+
		"on how the portfolio did today and what you are watching tomorrow. Use markdown.", portfolio)
	text, err := g.ask(ctx, prompt, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
