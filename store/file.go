package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/shopspring/decimal"
)

// File keeps the whole ledger in a single JSON document. Each write reads
// the current document, replaces one record and swaps the file in with a
// rename, so a crash leaves either the old or the new document on disk.
type File struct {
	path string
}

type document struct {
	Cash      *decimal.Decimal        `json:"cash,omitempty"`
	Positions map[string]filePosition `json:"positions"`
	Meta      map[string]string       `json:"meta,omitempty"`
}

type filePosition struct {
	Quantity    int64           `json:"quantity"`
	AverageCost decimal.Decimal `json:"average_cost"`
}

func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("empty state path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &File{path: path}, nil
}

func (f *File) load() (document, error) {
	doc := document{Positions: map[string]filePosition{}, Meta: map[string]string{}}
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return doc, err
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("decode %s: %w", f.path, err)
	}
	if doc.Positions == nil {
		doc.Positions = map[string]filePosition{}
	}
	if doc.Meta == nil {
		doc.Meta = map[string]string{}
	}
	return doc, nil
}

func (f *File) save(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *File) GetCash() (decimal.Decimal, error) {
	doc, err := f.load()
	if err != nil {
		return decimal.Zero, err
	}
	if doc.Cash == nil {
		return decimal.Zero, ErrNotInitialized
	}
	return *doc.Cash, nil
}

func (f *File) SetCash(cash decimal.Decimal) error {
	if cash.IsNegative() {
		return fmt.Errorf("cash %s is negative", cash)
	}
	doc, err := f.load()
	if err != nil {
		return err
	}
	doc.Cash = &cash
	return f.save(doc)
}

func (f *File) GetPositions() (broker.Positions, error) {
	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	out := broker.Positions{}
	for sym, p := range doc.Positions {
		if p.Quantity <= 0 {
			continue
		}
		out[sym] = broker.Position{Symbol: sym, Quantity: p.Quantity, AverageCost: p.AverageCost}
	}
	return out, nil
}

func (f *File) SetPositions(positions broker.Positions) error {
	if err := validate(decimal.Zero, positions); err != nil {
		return err
	}
	doc, err := f.load()
	if err != nil {
		return err
	}
	doc.Positions = toFilePositions(positions)
	return f.save(doc)
}

func (f *File) Commit(cash decimal.Decimal, positions broker.Positions) error {
	if err := validate(cash, positions); err != nil {
		return err
	}
	doc, err := f.load()
	if err != nil {
		return err
	}
	doc.Cash = &cash
	doc.Positions = toFilePositions(positions)
	return f.save(doc)
}

func toFilePositions(positions broker.Positions) map[string]filePosition {
	out := make(map[string]filePosition, len(positions))
	for sym, p := range positions {
		if p.Quantity == 0 {
			continue
		}
		out[sym] = filePosition{Quantity: p.Quantity, AverageCost: p.AverageCost}
	}
	return out
}

func (f *File) GetMeta(key string) (string, bool, error) {
	doc, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := doc.Meta[key]
	return v, ok, nil
}

func (f *File) SetMeta(key, value string) error {
	doc, err := f.load()
	if err != nil {
		return err
	}
	doc.Meta[key] = value
	return f.save(doc)
}

func (f *File) Close() error { return nil }
