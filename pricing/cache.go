package pricing

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Cache holds the latest quote per symbol. It is filled by background
// feeds and read by the scheduler, so it is safe for concurrent use.
type Cache struct {
	mu     sync.RWMutex
	quotes map[string]Quote

	// MaxAge rejects quotes older than this. Zero accepts any age.
	MaxAge time.Duration
	now    func() time.Time
}

func NewCache(maxAge time.Duration) *Cache {
	return &Cache{quotes: make(map[string]Quote), MaxAge: maxAge, now: time.Now}
}

func (c *Cache) Set(q Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[strings.ToUpper(q.Symbol)] = q
}

func (c *Cache) Get(symbol string) (Quote, error) {
	c.mu.RLock()
	q, ok := c.quotes[strings.ToUpper(symbol)]
	c.mu.RUnlock()
	if !ok {
		return Quote{}, noPrice(symbol, "not cached")
	}
	if c.MaxAge > 0 && c.now().Sub(q.Time) > c.MaxAge {
		return Quote{}, noPrice(symbol, "quote from %s is stale", q.Time.Format(time.RFC3339))
	}
	return q, valid(q)
}

// Price lets a Cache stand in as a Provider.
func (c *Cache) Price(_ context.Context, symbol string) (Quote, error) {
	return c.Get(symbol)
}
