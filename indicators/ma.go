package indicators

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MA calculates the Simple Moving Average of the last period prices.
func MA(prices []decimal.Decimal, period int) (decimal.Decimal, error) {
	if period <= 0 {
		return decimal.Zero, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(prices) < period {
		return decimal.Zero, fmt.Errorf("not enough prices: need %d, got %d", period, len(prices))
	}
	return decimal.Avg(prices[len(prices)-period], prices[len(prices)-period+1:]...), nil
}

// EMA calculates the Exponential Moving Average for the given period,
// seeded with the SMA of the first period prices.
func EMA(prices []decimal.Decimal, period int) (decimal.Decimal, error) {
	if period <= 0 {
		return decimal.Zero, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(prices) < period {
		return decimal.Zero, fmt.Errorf("not enough prices: need %d, got %d", period, len(prices))
	}

	k := multiplier(period)
	ema := decimal.Avg(prices[0], prices[1:period]...)
	for _, p := range prices[period:] {
		ema = p.Sub(ema).Mul(k).Add(ema)
	}
	return ema, nil
}

func multiplier(period int) decimal.Decimal {
	return decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(period + 1)))
}
