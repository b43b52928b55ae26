// Package sim executes clamped orders against the paper-trading ledger.
package sim

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/internal/id"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/store"
	"github.com/shopspring/decimal"
)

// Engine turns clamped orders into whole-share trades. It reads the
// ledger from the store on every call and writes it back in one commit,
// so the store stays the only copy of the state.
//
// Engine is not safe for concurrent use; it expects a single caller,
// the scheduler goroutine.
type Engine struct {
	store   store.Store
	journal journal.Journal
	now     func() time.Time
}

func NewEngine(s store.Store, j journal.Journal) *Engine {
	if j == nil {
		j = journal.Discard
	}
	return &Engine{store: s, journal: j, now: time.Now}
}

// SetClock replaces the time source used for journal entries.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Apply executes order for symbol at price. It never returns an error:
// bad input and storage failures come back as REJECTED results and leave
// the stored state untouched.
func (e *Engine) Apply(order broker.ClampedOrder, symbol string, price decimal.Decimal) broker.ExecutionResult {
	res := broker.ExecutionResult{
		Symbol: symbol,
		Action: order.Action,
		Price:  price,
	}

	switch {
	case symbol == "":
		return rejected(res, "empty symbol")
	case !price.IsPositive():
		return rejected(res, fmt.Sprintf("invalid price %s", price))
	case order.Amount.IsNegative():
		return rejected(res, fmt.Sprintf("negative amount %s", order.Amount))
	}

	if order.Action != broker.Buy && order.Action != broker.Sell {
		if cash, err := e.store.GetCash(); err == nil {
			res.Cash = cash
		}
		return noop(res, order.Reasoning)
	}

	cash, err := e.store.GetCash()
	if err != nil {
		return rejected(res, fmt.Sprintf("read cash: %v", err))
	}
	positions, err := e.store.GetPositions()
	if err != nil {
		return rejected(res, fmt.Sprintf("read positions: %v", err))
	}
	res.Cash = cash
	res.Position = positions.Get(symbol)

	var (
		next     broker.Positions
		nextCash decimal.Decimal
	)
	switch order.Action {
	case broker.Buy:
		next, nextCash, res = buy(res, order, cash, positions)
	case broker.Sell:
		next, nextCash, res = sell(res, order, cash, positions)
	}
	if res.Status != "" {
		return res
	}

	if err := store.Commit(e.store, nextCash, next); err != nil {
		log.Printf("[STORE] commit %s %s failed: %v", order.Action, symbol, err)
		res.Cash = cash
		res.Position = positions.Get(symbol)
		res.SharesTraded = 0
		res.CashDelta = decimal.Zero
		return rejected(res, fmt.Sprintf("persist: %v", err))
	}

	res.Status = broker.Executed
	res.Cash = nextCash
	res.Position = next.Get(symbol)
	res.Message = order.Reasoning
	res.TradeID = e.record(res)
	return res
}

// buy and sell leave res.Status empty when the trade should be committed.
func buy(res broker.ExecutionResult, order broker.ClampedOrder, cash decimal.Decimal, positions broker.Positions) (broker.Positions, decimal.Decimal, broker.ExecutionResult) {
	price := res.Price

	shares, ok := wholeShares(order.Amount, price)
	if !ok {
		return nil, cash, rejected(res, "order too large")
	}
	if shares < 1 {
		return nil, cash, noop(res, "amount insufficient for one whole share")
	}
	cost := price.Mul(decimal.NewFromInt(shares))
	if cost.GreaterThan(cash) {
		shares, _ = wholeShares(cash, price)
		if shares < 1 {
			return nil, cash, noop(res, "cash insufficient for one whole share")
		}
		cost = price.Mul(decimal.NewFromInt(shares))
	}

	next := positions.Clone()
	pos := next[res.Symbol]
	if shares > math.MaxInt64-pos.Quantity {
		return nil, cash, rejected(res, "order too large")
	}
	oldQty := decimal.NewFromInt(pos.Quantity)
	newQty := pos.Quantity + shares
	pos.Symbol = res.Symbol
	pos.AverageCost = oldQty.Mul(pos.AverageCost).Add(cost).Div(decimal.NewFromInt(newQty))
	pos.Quantity = newQty
	next[res.Symbol] = pos

	res.SharesTraded = shares
	res.CashDelta = cost.Neg()
	return next, cash.Sub(cost), res
}

func sell(res broker.ExecutionResult, order broker.ClampedOrder, cash decimal.Decimal, positions broker.Positions) (broker.Positions, decimal.Decimal, broker.ExecutionResult) {
	held := positions.Get(res.Symbol)
	if held == nil {
		return nil, cash, noop(res, "no holdings to sell")
	}

	shares := held.Quantity
	if amount := order.Amount.Floor(); amount.LessThan(decimal.NewFromInt(held.Quantity)) {
		shares = amount.IntPart()
	}
	if shares < 1 {
		return nil, cash, noop(res, "amount insufficient for one whole share")
	}
	revenue := res.Price.Mul(decimal.NewFromInt(shares))

	next := positions.Clone()
	if remaining := held.Quantity - shares; remaining == 0 {
		delete(next, res.Symbol)
	} else {
		pos := *held
		pos.Quantity = remaining
		next[res.Symbol] = pos
	}

	res.SharesTraded = shares
	res.CashDelta = revenue
	return next, cash.Add(revenue), res
}

var maxShares = decimal.NewFromInt(math.MaxInt64)

// wholeShares is floor(amount/price) computed without rounding. ok is
// false when the count does not fit in an int64.
func wholeShares(amount, price decimal.Decimal) (shares int64, ok bool) {
	q, _ := amount.QuoRem(price, 0)
	if q.GreaterThan(maxShares) {
		return 0, false
	}
	return q.IntPart(), true
}

func (e *Engine) record(res broker.ExecutionResult) string {
	at := e.now()
	tradeID := id.At(at)

	rec := journal.TradeRecord{
		TradeID:   tradeID,
		Time:      at,
		Symbol:    res.Symbol,
		Action:    string(res.Action),
		Shares:    res.SharesTraded,
		Price:     res.Price,
		CashDelta: res.CashDelta,
		CashAfter: res.Cash,
		Reason:    res.Message,
	}
	if res.Position != nil {
		rec.AverageCost = res.Position.AverageCost
	}
	if err := e.journal.RecordTrade(rec); err != nil {
		log.Printf("[JOURNAL] record trade %s: %v", tradeID, err)
	}
	return tradeID
}

func rejected(res broker.ExecutionResult, msg string) broker.ExecutionResult {
	res.Status = broker.Rejected
	res.Message = msg
	return res
}

func noop(res broker.ExecutionResult, msg string) broker.ExecutionResult {
	res.Status = broker.Noop
	res.Message = msg
	return res
}
