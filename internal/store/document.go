package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"filippo.io/age"
	"github.com/nilopro/teleauth/internal/clock"
	"github.com/nilopro/teleauth/internal/types"
)

// documentEntry is the per-user value in the JSON document.
type documentEntry struct {
	Expires string `json:"expires"`
}

// DocumentStore keeps records in a single JSON file of the form
// {"<user_id>": {"expires": "<RFC 3339 timestamp>"}}.
//
// The map is loaded once at open and every mutation is written through
// before the call returns.
type DocumentStore struct {
	mu       sync.RWMutex
	path     string
	clock    clock.Clock
	identity *age.X25519Identity
	users    map[types.UserID]time.Time
	closed   bool
}

// OpenDocument loads the document at path, creating an empty one if absent.
func OpenDocument(path string, opts Options) (*DocumentStore, error) {
	opts = opts.withDefaults()

	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultDocumentFile
	}

	if err := ValidateAllFiles(opts.SkipPermissionCheck, path); err != nil {
		return nil, err
	}

	s := &DocumentStore{
		path:     path,
		clock:    opts.Clock,
		identity: opts.Identity,
		users:    make(map[types.UserID]time.Time),
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if err := s.persistLocked(); err != nil {
			return nil, fmt.Errorf("%w: create %s: %v", types.ErrStoreUnavailable, path, err)
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("%w: read %s: %v", types.ErrStoreUnavailable, path, err)
	}

	if err := s.decode(data); err != nil {
		return nil, err
	}
	return s, nil
}

// decode replaces the in-memory map with the file contents.
func (s *DocumentStore) decode(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	if s.identity != nil {
		plaintext, err := Decrypt(data, s.identity)
		if err != nil {
			return err
		}
		data = plaintext
	}

	var doc map[string]documentEntry
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", types.ErrStoreCorrupted, err)
	}

	for key, entry := range doc {
		id, err := types.ParseUserID(key)
		if err != nil {
			return fmt.Errorf("%w: bad user key %q", types.ErrStoreCorrupted, key)
		}
		expires, err := parseTimestamp(entry.Expires)
		if err != nil {
			return fmt.Errorf("user %d: %w", id, err)
		}
		s.users[id] = expires
	}
	return nil
}

// Path returns the document file.
func (s *DocumentStore) Path() string {
	return s.path
}

// Authorize replaces the user's expiry and persists the document.
func (s *DocumentStore) Authorize(userID types.UserID, days, hours int) (types.Record, error) {
	expires, err := expiryFor(s.clock, days, hours)
	if err != nil {
		return types.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.Record{}, types.ErrStoreClosed
	}

	prev, had := s.users[userID]
	s.users[userID] = expires
	if err := s.persistLocked(); err != nil {
		if had {
			s.users[userID] = prev
		} else {
			delete(s.users, userID)
		}
		return types.Record{}, err
	}

	return types.Record{UserID: userID, ExpiresAt: expires}, nil
}

// Revoke removes the user and persists the document. Absent users are a no-op.
func (s *DocumentStore) Revoke(userID types.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.ErrStoreClosed
	}

	prev, had := s.users[userID]
	if !had {
		return nil
	}

	delete(s.users, userID)
	if err := s.persistLocked(); err != nil {
		s.users[userID] = prev
		return err
	}
	return nil
}

// Lookup returns the user's record.
func (s *DocumentStore) Lookup(userID types.UserID) (types.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return types.Record{}, false, types.ErrStoreClosed
	}

	expires, ok := s.users[userID]
	if !ok {
		return types.Record{}, false, nil
	}
	return types.Record{UserID: userID, ExpiresAt: expires}, true, nil
}

// IsMemberUnexpired reports whether the user's expiry is strictly after at.
func (s *DocumentStore) IsMemberUnexpired(userID types.UserID, at time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, types.ErrStoreClosed
	}

	expires, ok := s.users[userID]
	return ok && expires.After(at), nil
}

// List returns all records ordered by expiry ascending.
func (s *DocumentStore) List() ([]types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, types.ErrStoreClosed
	}

	records := make([]types.Record, 0, len(s.users))
	for id, expires := range s.users {
		records = append(records, types.Record{UserID: id, ExpiresAt: expires})
	}
	sortRecords(records)
	return records, nil
}

// Close flushes the document one last time. Calling Close twice is a no-op.
func (s *DocumentStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	return s.persistLocked()
}

// persistLocked writes the document atomically. Caller holds s.mu.
func (s *DocumentStore) persistLocked() error {
	doc := make(map[string]documentEntry, len(s.users))
	for id, expires := range s.users {
		doc[id.String()] = documentEntry{Expires: expires.UTC().Format(time.RFC3339Nano)}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal users: %w", err)
	}

	if s.identity != nil {
		data, err = Encrypt(data, s.identity.Recipient())
		if err != nil {
			return err
		}
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("failed to write users file: %w", err)
	}
	return nil
}

// writeFileAtomic replaces path via a synced temp file and rename.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, RequiredFilePermissions); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
