// Package store persists time-bounded authorization records.
//
// Two backends implement Store with identical observable behavior: a
// single-file SQLite database (RelationalStore) and a single JSON document
// (DocumentStore). Both persist every mutation before returning. A backing
// file is owned by exactly one process; sharing it between processes without
// external locking is unsupported.
package store

import (
	"fmt"
	"sort"
	"time"

	"filippo.io/age"
	"github.com/nilopro/teleauth/internal/clock"
	"github.com/nilopro/teleauth/internal/config"
	"github.com/nilopro/teleauth/internal/types"
)

const (
	// DefaultRelationalFile is used when OpenRelational gets an empty path.
	DefaultRelationalFile = "users.db"
	// DefaultDocumentFile is used when OpenDocument gets an empty path.
	DefaultDocumentFile = "users.json"
)

// Store is the authorization record persistence contract.
type Store interface {
	// Authorize sets the user's expiry to now + days + hours, replacing any
	// existing expiry. Negative durations are rejected.
	Authorize(userID types.UserID, days, hours int) (types.Record, error)

	// Revoke deletes the user's record. Revoking an absent user is a no-op.
	Revoke(userID types.UserID) error

	// Lookup returns the user's record, if any, expired or not.
	Lookup(userID types.UserID) (types.Record, bool, error)

	// IsMemberUnexpired reports whether a record exists with expiry strictly after at.
	IsMemberUnexpired(userID types.UserID, at time.Time) (bool, error)

	// List returns every record ordered by ascending expiry.
	List() ([]types.Record, error)

	// Close flushes and releases the backing file.
	Close() error
}

// Options configures a backend.
type Options struct {
	// Clock supplies "now" for expiry computation. Defaults to clock.Real().
	Clock clock.Clock

	// Identity encrypts the document file at rest. Document store only.
	Identity *age.X25519Identity

	// SkipPermissionCheck disables the 0600 check on existing files.
	SkipPermissionCheck bool
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	return o
}

// Open opens the backend selected by kind.
func Open(kind config.StoreKind, path string, opts Options) (Store, error) {
	switch kind {
	case config.StoreRelational:
		if opts.Identity != nil {
			return nil, fmt.Errorf("%w: encryption is only supported by the document store", types.ErrStoreUnavailable)
		}
		return OpenRelational(path, opts)
	case config.StoreDocument:
		return OpenDocument(path, opts)
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownStoreKind, kind)
	}
}

// expiryFor validates a grant duration and computes its expiry.
func expiryFor(c clock.Clock, days, hours int) (time.Time, error) {
	expires, ok := clock.ExpiryAfter(c.Now().UTC(), days, hours)
	if !ok {
		return time.Time{}, types.ErrInvalidDuration
	}
	return expires, nil
}

// sortRecords orders by expiry, then user id for stable output.
func sortRecords(records []types.Record) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].ExpiresAt.Equal(records[j].ExpiresAt) {
			return records[i].ExpiresAt.Before(records[j].ExpiresAt)
		}
		return records[i].UserID < records[j].UserID
	})
}

// parseTimestamp accepts RFC 3339 and naive ISO-8601 forms. Values without
// a zone are read as UTC.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05.999999999-07:00",
	} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable timestamp %q", types.ErrStoreCorrupted, s)
}
