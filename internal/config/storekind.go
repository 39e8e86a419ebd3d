package config

import (
	"fmt"
	"strings"

	"github.com/nilopro/teleauth/internal/types"
	"github.com/spf13/pflag"
)

// StoreKind selects the persistence backend.
type StoreKind string

const (
	// StoreRelational keeps records in a single-file SQLite database.
	StoreRelational StoreKind = "relational"
	// StoreDocument keeps records in a single JSON file.
	StoreDocument StoreKind = "document"
)

var _ pflag.Value = (*StoreKind)(nil)

// Valid reports whether k names a known backend.
func (k StoreKind) Valid() bool {
	return k == StoreRelational || k == StoreDocument
}

func (k StoreKind) String() string {
	return string(k)
}

// Set parses a kind. "sqlite" and "json" are accepted as aliases.
func (k *StoreKind) Set(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "relational", "sqlite":
		*k = StoreRelational
	case "document", "json":
		*k = StoreDocument
	default:
		return fmt.Errorf("%w: %q (must be relational or document)", types.ErrUnknownStoreKind, s)
	}
	return nil
}

// Type implements pflag.Value.
func (k *StoreKind) Type() string {
	return "store"
}
