package journal

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Open returns the journal for kind. "csv" treats path as a directory
// holding trades.csv and valuations.csv; "none" discards everything.
func Open(kind, path string) (Journal, error) {
	switch strings.ToLower(kind) {
	case "sqlite", "":
		return NewSQLite(path)
	case "csv":
		return NewCSV(filepath.Join(path, "trades.csv"), filepath.Join(path, "valuations.csv"))
	case "none", "off":
		return Discard, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", kind)
	}
}
