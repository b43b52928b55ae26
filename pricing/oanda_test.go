package pricing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOANDA(t *testing.T) {
	q, ok, err := parseOANDA([]byte(`{"type":"PRICE","time":"2024-05-02T13:30:00.000000000Z","instrument":"EUR_USD",` +
		`"bids":[{"price":"1.08490","liquidity":1000000}],"asks":[{"price":"1.08510","liquidity":1000000}]}`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "EUR_USD", q.Symbol)
	assert.Equal(t, "1.085", q.Price.String())
	assert.Equal(t, time.Date(2024, 5, 2, 13, 30, 0, 0, time.UTC), q.Time)

	_, ok, err = parseOANDA([]byte(`{"type":"HEARTBEAT","time":"2024-05-02T13:30:05Z"}`))
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = parseOANDA([]byte(`{"type":"PRICE","instrument":"EUR_USD","bids":[],"asks":[{"price":"1.1"}]}`))
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = parseOANDA([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestOANDAStreamFillsCache(t *testing.T) {
	t.Parallel()

	type seen struct{ auth, path, instruments string }
	reqs := make(chan seen, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqs <- seen{r.Header.Get("Authorization"), r.URL.Path, r.URL.Query().Get("instruments")}

		now := time.Now().UTC().Format(time.RFC3339Nano)
		fmt.Fprintf(w, `{"type":"HEARTBEAT","time":%q}`+"\n", now)
		fmt.Fprintln(w, `not json`)
		fmt.Fprintf(w, `{"type":"PRICE","time":%q,"instrument":"US30_USD","bids":[{"price":"38000.0"}],"asks":[{"price":"38002.0"}]}`+"\n", now)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	o := NewOANDA(srv.URL, "tok", "101-004-1", []string{"US30_USD", "EUR_USD"}, time.Minute)
	o.Backoff = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := o.Price(ctx, "us30_usd")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	q, err := o.Price(ctx, "US30_USD")
	require.NoError(t, err)
	assert.Equal(t, "38001", q.Price.String())
	assert.Equal(t, "oanda", q.Source)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}

	r := <-reqs
	assert.Equal(t, "Bearer tok", r.auth)
	assert.Equal(t, "/v3/accounts/101-004-1/pricing/stream", r.path)
	assert.Equal(t, "US30_USD,EUR_USD", r.instruments)
}

func TestOANDARunNeedsCredentials(t *testing.T) {
	o := NewOANDA("http://127.0.0.1:1", "", "acct", []string{"EUR_USD"}, 0)
	assert.Error(t, o.Run(context.Background()))

	_, err := OANDABaseURL("live")
	assert.Error(t, err)
	u, err := OANDABaseURL("practice")
	require.NoError(t, err)
	assert.Contains(t, u, "fxpractice")
}
