package store

import "fmt"

// Open returns the store for kind ("sqlite" or "json").
func Open(kind, path string) (Store, error) {
	switch kind {
	case "sqlite", "":
		return NewSQLite(path)
	case "json", "file":
		return NewFile(path)
	default:
		return nil, fmt.Errorf("unknown state store type %q", kind)
	}
}
