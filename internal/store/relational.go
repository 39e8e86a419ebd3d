package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nilopro/teleauth/internal/clock"
	"github.com/nilopro/teleauth/internal/types"

	// Register SQLite SQL driver.
	_ "modernc.org/sqlite"
)

// sqlTimeLayout is fixed-width so text comparison matches time order.
const sqlTimeLayout = "2006-01-02 15:04:05.000000000"

const (
	schemaSQL = `CREATE TABLE IF NOT EXISTS users (user_id INTEGER PRIMARY KEY, expires TIMESTAMP)`

	upsertSQL = `INSERT INTO users (user_id, expires) VALUES (?, ?)
ON CONFLICT(user_id) DO UPDATE SET expires = excluded.expires`

	deleteSQL    = `DELETE FROM users WHERE user_id = ?`
	lookupSQL    = `SELECT expires FROM users WHERE user_id = ?`
	unexpiredSQL = `SELECT 1 FROM users WHERE user_id = ? AND expires > ?`
	listSQL      = `SELECT user_id, expires FROM users ORDER BY expires ASC, user_id ASC`
)

// RelationalStore keeps records in a single-file SQLite database with the
// table users(user_id INTEGER PRIMARY KEY, expires TIMESTAMP).
type RelationalStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	clock  clock.Clock
	closed bool
}

// OpenRelational opens (creating if absent) the database at path.
func OpenRelational(path string, opts Options) (*RelationalStore, error) {
	opts = opts.withDefaults()

	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultRelationalFile
	}

	if err := ValidateAllFiles(opts.SkipPermissionCheck, path); err != nil {
		return nil, err
	}

	// One connection serializes every caller; busy_timeout covers a
	// concurrent sqlite3 shell holding the lock briefly.
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite store: %v", types.ErrStoreUnavailable, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping sqlite store: %v", types.ErrStoreUnavailable, err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: initialize schema: %v", types.ErrStoreUnavailable, err)
	}
	if err := EnsureSecurePermissions(path); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", types.ErrStoreUnavailable, err)
	}

	return &RelationalStore{
		db:    db,
		path:  path,
		clock: opts.Clock,
	}, nil
}

// Path returns the database file.
func (s *RelationalStore) Path() string {
	return s.path
}

// Authorize upserts the user's expiry in a single statement.
func (s *RelationalStore) Authorize(userID types.UserID, days, hours int) (types.Record, error) {
	expires, err := expiryFor(s.clock, days, hours)
	if err != nil {
		return types.Record{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return types.Record{}, types.ErrStoreClosed
	}

	if _, err := s.db.Exec(upsertSQL, int64(userID), formatSQLTime(expires)); err != nil {
		return types.Record{}, fmt.Errorf("upsert user %d: %w", userID, err)
	}

	return types.Record{UserID: userID, ExpiresAt: expires}, nil
}

// Revoke deletes the user's row if present.
func (s *RelationalStore) Revoke(userID types.UserID) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return types.ErrStoreClosed
	}

	if _, err := s.db.Exec(deleteSQL, int64(userID)); err != nil {
		return fmt.Errorf("delete user %d: %w", userID, err)
	}
	return nil
}

// Lookup returns the user's row.
func (s *RelationalStore) Lookup(userID types.UserID) (types.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return types.Record{}, false, types.ErrStoreClosed
	}

	var raw any
	err := s.db.QueryRow(lookupSQL, int64(userID)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Record{}, false, nil
	}
	if err != nil {
		return types.Record{}, false, fmt.Errorf("lookup user %d: %w", userID, err)
	}

	expires, err := scanSQLTime(raw)
	if err != nil {
		return types.Record{}, false, err
	}
	return types.Record{UserID: userID, ExpiresAt: expires}, true, nil
}

// IsMemberUnexpired reports whether the user's row expires strictly after at.
func (s *RelationalStore) IsMemberUnexpired(userID types.UserID, at time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, types.ErrStoreClosed
	}

	var one int
	err := s.db.QueryRow(unexpiredSQL, int64(userID), formatSQLTime(at)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check user %d: %w", userID, err)
	}
	return true, nil
}

// List returns all rows ordered by expiry ascending.
func (s *RelationalStore) List() ([]types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, types.ErrStoreClosed
	}

	rows, err := s.db.Query(listSQL)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	records := []types.Record{}
	for rows.Next() {
		var (
			id  int64
			raw any
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		expires, err := scanSQLTime(raw)
		if err != nil {
			return nil, err
		}
		records = append(records, types.Record{UserID: types.UserID(id), ExpiresAt: expires})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	// Rows written by other tools may use a different text form.
	sortRecords(records)
	return records, nil
}

// Close releases the database. Calling Close twice is a no-op.
func (s *RelationalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite store: %w", err)
	}
	return nil
}

func formatSQLTime(t time.Time) string {
	return t.UTC().Format(sqlTimeLayout)
}

// scanSQLTime accepts the forms the driver may hand back for a TIMESTAMP
// column: a parsed time.Time or the raw text.
func scanSQLTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseTimestamp(t)
	case []byte:
		return parseTimestamp(string(t))
	default:
		return time.Time{}, fmt.Errorf("%w: unexpected expires value %T", types.ErrStoreCorrupted, v)
	}
}
