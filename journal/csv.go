package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

var (
	tradeHeader     = []string{"trade_id", "time", "symbol", "action", "shares", "price", "cash_delta", "cash_after", "average_cost", "reason"}
	valuationHeader = []string{"time", "cash", "market_value", "total"}
)

// CSV appends trades and valuations to two CSV files. The header is only
// written when a file is empty, so restarts keep extending the same files.
type CSV struct {
	trades     *csv.Writer
	valuations *csv.Writer
	tf, vf     *os.File
}

func NewCSV(tradesPath, valuationsPath string) (*CSV, error) {
	tf, tw, err := openAppend(tradesPath, tradeHeader)
	if err != nil {
		return nil, err
	}
	vf, vw, err := openAppend(valuationsPath, valuationHeader)
	if err != nil {
		tf.Close()
		return nil, err
	}
	return &CSV{trades: tw, valuations: vw, tf: tf, vf: vf}, nil
}

func openAppend(path string, header []string) (*os.File, *csv.Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	w := csv.NewWriter(f)
	if st.Size() == 0 {
		if err := w.Write(header); err != nil {
			f.Close()
			return nil, nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, nil, err
		}
	}
	return f, w, nil
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	err := j.trades.Write([]string{
		t.TradeID,
		t.Time.UTC().Format(time.RFC3339),
		t.Symbol,
		t.Action,
		strconv.FormatInt(t.Shares, 10),
		t.Price.String(),
		t.CashDelta.String(),
		t.CashAfter.String(),
		t.AverageCost.String(),
		t.Reason,
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSV) RecordValuation(v ValuationSnapshot) error {
	err := j.valuations.Write([]string{
		v.Time.UTC().Format(time.RFC3339),
		v.Cash.String(),
		v.MarketValue.String(),
		v.Total.String(),
	})
	if err != nil {
		return err
	}
	j.valuations.Flush()
	return j.valuations.Error()
}

func (j *CSV) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.valuations.Flush()
	if err := j.valuations.Error(); err != nil {
		return err
	}
	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.vf.Close()
}
