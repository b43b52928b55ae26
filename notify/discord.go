package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rustyeddy/papertrader/broker"
)

// Discord posts events to a webhook as embeds.
type Discord struct {
	WebhookURL string
	Username   string
	Client     *http.Client
}

func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		WebhookURL: webhookURL,
		Username:   "papertrader",
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
}

const (
	colorBuy    = 0x2ecc71
	colorSell   = 0xe74c3c
	colorReport = 0x3498db
)

// discord rejects embed descriptions above 4096 characters
const maxDescription = 4000

type embed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp,omitempty"`
}

type webhookPayload struct {
	Username string  `json:"username,omitempty"`
	Embeds   []embed `json:"embeds"`
}

func (d *Discord) Notify(ctx context.Context, e Event) error {
	color := colorReport
	if e.Result != nil {
		color = colorBuy
		if e.Result.Action == broker.Sell {
			color = colorSell
		}
	}
	desc := e.Body
	if len(desc) > maxDescription {
		desc = desc[:maxDescription] + "…"
	}
	em := embed{Title: e.Title, Description: desc, Color: color}
	if !e.Time.IsZero() {
		em.Timestamp = e.Time.UTC().Format(time.RFC3339)
	}

	data, err := json.Marshal(webhookPayload{Username: d.Username, Embeds: []embed{em}})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.WebhookURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("discord returned status: %d", resp.StatusCode)
	}
	return nil
}
