package indicators

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SimpleMA is a streaming Simple Moving Average indicator
type SimpleMA struct {
	period int
	prices []decimal.Decimal
}

// NewMA creates a new Simple Moving Average indicator with the given period
func NewMA(period int) *SimpleMA {
	return &SimpleMA{
		period: period,
		prices: make([]decimal.Decimal, 0, period),
	}
}

func (m *SimpleMA) Name() string { return fmt.Sprintf("MA(%d)", m.period) }
func (m *SimpleMA) Warmup() int  { return m.period }
func (m *SimpleMA) Reset()       { m.prices = m.prices[:0] }

func (m *SimpleMA) Update(p decimal.Decimal) {
	m.prices = append(m.prices, p)
	if len(m.prices) > m.period {
		m.prices = m.prices[1:]
	}
}

func (m *SimpleMA) Ready() bool {
	return len(m.prices) >= m.period
}

func (m *SimpleMA) Value() decimal.Decimal {
	if !m.Ready() {
		return decimal.Zero
	}
	return decimal.Avg(m.prices[0], m.prices[1:]...)
}

// ExponentialMA is a streaming Exponential Moving Average indicator
type ExponentialMA struct {
	period    int
	k         decimal.Decimal
	ema       decimal.Decimal
	count     int
	warmupSum decimal.Decimal
}

// NewEMA creates a new Exponential Moving Average indicator with the given period
func NewEMA(period int) *ExponentialMA {
	return &ExponentialMA{period: period, k: multiplier(period)}
}

func (e *ExponentialMA) Name() string { return fmt.Sprintf("EMA(%d)", e.period) }
func (e *ExponentialMA) Warmup() int  { return e.period }

func (e *ExponentialMA) Reset() {
	e.ema = decimal.Zero
	e.count = 0
	e.warmupSum = decimal.Zero
}

func (e *ExponentialMA) Update(p decimal.Decimal) {
	if e.count < e.period {
		// seed with the SMA of the warmup prices
		e.warmupSum = e.warmupSum.Add(p)
		e.count++
		if e.count == e.period {
			e.ema = e.warmupSum.Div(decimal.NewFromInt(int64(e.period)))
		}
		return
	}
	e.ema = p.Sub(e.ema).Mul(e.k).Add(e.ema)
}

func (e *ExponentialMA) Ready() bool {
	return e.count >= e.period
}

func (e *ExponentialMA) Value() decimal.Decimal {
	if !e.Ready() {
		return decimal.Zero
	}
	return e.ema
}
