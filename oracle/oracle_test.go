package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGen struct {
	text   string
	err    error
	model  string
	prompt string
	config *genai.GenerateContentConfig
}

func (f *fakeGen) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}},
	}}}, nil
}

func newGemini(f *fakeGen) *Gemini {
	return &Gemini{Model: "test-model", Temperature: 0.2, Persona: "persona", gen: f}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var amd = Query{Symbol: "AMD", Price: d("247.50"), Cash: d("100000")}

func TestGeminiDecide(t *testing.T) {
	t.Parallel()

	f := &fakeGen{text: `{"action":"BUY","amount":12000,"unit":"CASH","reasoning":"earnings beat"}`}
	g := newGemini(f)

	intent, err := g.Decide(context.Background(), amd)
	require.NoError(t, err)
	assert.Equal(t, broker.Buy, intent.Action)
	assert.True(t, d("12000").Equal(intent.Amount))
	assert.Equal(t, broker.UnitCash, intent.Unit)
	assert.Equal(t, "earnings beat", intent.Reasoning)

	assert.Equal(t, "test-model", f.model)
	assert.Contains(t, f.prompt, "Symbol: AMD")
	assert.Contains(t, f.prompt, "247.50")
	assert.Contains(t, f.prompt, "Held: none")
	assert.Equal(t, "application/json", f.config.ResponseMIMEType)
	require.NotNil(t, f.config.ResponseSchema)
	require.NotNil(t, f.config.Temperature)
	assert.InDelta(t, 0.2, *f.config.Temperature, 1e-6)
	assert.NotContains(t, f.prompt, "observed prices")
}

func TestDecisionPromptIncludesAverage(t *testing.T) {
	t.Parallel()

	q := amd
	q.Quantity = 48
	q.AverageCost = d("240")
	q.AverageName = "EMA(12)"
	q.Average = d("251.125")

	p := decisionPrompt(q)
	assert.Contains(t, p, "EMA(12) of observed prices: 251.13")
	assert.Contains(t, p, "Held: 48 shares at average cost 240.00")
}

func TestParseDecision(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		action broker.Action
		amount string
		unit   broker.Unit
		err    bool
	}{
		{"sell defaults to shares", `{"action":"sell","amount":"10","reasoning":"x"}`, broker.Sell, "10", broker.UnitShares, false},
		{"swedish buy", `{"action":"KÖP","amount":500,"unit":"SEK","reasoning":"x"}`, broker.Buy, "500", broker.UnitCash, false},
		{"hold zeroes amount", `{"action":"HOLD","amount":7,"reasoning":"x"}`, broker.Hold, "0", "", false},
		{"unknown action holds", `{"action":"WAIT","amount":7,"reasoning":"x"}`, broker.Hold, "0", "", false},
		{"fenced", "```json\n{\"action\":\"BUY\",\"amount\":1.5,\"reasoning\":\"x\"}\n```", broker.Buy, "1.5", broker.UnitCash, false},
		{"negative", `{"action":"BUY","amount":-1,"reasoning":"x"}`, "", "0", "", true},
		{"garbage", `I think you should buy`, "", "0", "", true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseDecision(tt.text)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.action, got.Action)
			assert.True(t, d(tt.amount).Equal(got.Amount), got.Amount.String())
			assert.Equal(t, tt.unit, got.Unit)
		})
	}
}

func TestDecideOrHold(t *testing.T) {
	t.Parallel()

	g := newGemini(&fakeGen{err: errors.New("quota exceeded")})
	intent := DecideOrHold(context.Background(), g, amd, time.Second)
	assert.Equal(t, broker.Hold, intent.Action)
	assert.Contains(t, intent.Reasoning, "quota exceeded")

	g = newGemini(&fakeGen{text: "   "})
	assert.Equal(t, broker.Hold, DecideOrHold(context.Background(), g, amd, 0).Action)

	g = newGemini(&fakeGen{text: `{"action":"SELL","amount":3,"reasoning":"trim"}`})
	intent = DecideOrHold(context.Background(), g, amd, time.Second)
	assert.Equal(t, broker.Sell, intent.Action)
}

func TestDecideOrHoldTimeout(t *testing.T) {
	t.Parallel()

	slow := oracleFunc(func(ctx context.Context, _ Query) (broker.OrderIntent, error) {
		<-ctx.Done()
		return broker.OrderIntent{}, ctx.Err()
	})
	intent := DecideOrHold(context.Background(), slow, amd, 10*time.Millisecond)
	assert.Equal(t, broker.Hold, intent.Action)
	assert.Contains(t, intent.Reasoning, "deadline")
}

type oracleFunc func(ctx context.Context, q Query) (broker.OrderIntent, error)

func (f oracleFunc) Decide(ctx context.Context, q Query) (broker.OrderIntent, error) { return f(ctx, q) }

func TestRespondAndCommentary(t *testing.T) {
	t.Parallel()

	f := &fakeGen{text: "  You hold 48 AMD.  "}
	g := newGemini(f)

	answer, err := g.Respond(context.Background(), "what do I own?", "AMD 48")
	require.NoError(t, err)
	assert.Equal(t, "You hold 48 AMD.", answer)
	assert.Contains(t, f.prompt, "what do I own?")
	assert.Empty(t, f.config.ResponseMIMEType)

	_, err = g.Commentary(context.Background(), "AMD 48")
	require.NoError(t, err)
	assert.Contains(t, f.prompt, "End of day")
}

func TestHold(t *testing.T) {
	t.Parallel()

	intent, err := Hold{}.Decide(context.Background(), amd)
	require.NoError(t, err)
	assert.Equal(t, broker.Hold, intent.Action)

	answer, err := Hold{}.Respond(context.Background(), "hi", "")
	require.NoError(t, err)
	assert.NotEmpty(t, answer)
}

func TestNewGeminiNeedsKey(t *testing.T) {
	t.Parallel()

	_, err := NewGemini(context.Background(), "", "")
	assert.Error(t, err)
}
