// Package indicators provides streaming averages over observed prices
package indicators

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Indicator computes a single streaming value from prices.
// It is deterministic: the same prices in the same order give the same value.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next observed price.
	Update(price decimal.Decimal)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value is zero until Ready.
	Value() decimal.Decimal
}

// Bank keeps one indicator per symbol, created on first use.
type Bank struct {
	New func() Indicator

	mu  sync.Mutex
	ind map[string]Indicator
}

func NewBank(newFn func() Indicator) *Bank {
	return &Bank{New: newFn, ind: make(map[string]Indicator)}
}

// Update feeds price to the symbol's indicator and returns it.
func (b *Bank) Update(symbol string, price decimal.Decimal) Indicator {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := strings.ToUpper(symbol)
	ind, ok := b.ind[key]
	if !ok {
		ind = b.New()
		b.ind[key] = ind
	}
	ind.Update(price)
	return ind
}
