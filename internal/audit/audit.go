package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/nilopro/teleauth/internal/types"
)

// Logger provides thread-safe append-only audit logging.
type Logger struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// New creates a new audit logger that writes to the specified path.
// The file is opened in append mode with 0600 permissions.
func New(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", types.ErrAuditWriteFailed, path, err)
	}

	return &Logger{
		file: f,
		path: path,
	}, nil
}

// Path returns the log file location.
func (l *Logger) Path() string {
	return l.path
}

// Log writes an audit entry to the log file as a JSON line and syncs immediately.
// A nil Logger discards entries.
func (l *Logger) Log(entry *types.AuditEntry) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return fmt.Errorf("%w: log is closed", types.ErrAuditWriteFailed)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", types.ErrAuditWriteFailed, err)
	}

	if _, err := l.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("%w: %v", types.ErrAuditWriteFailed, err)
	}

	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %v", types.ErrAuditWriteFailed, err)
	}

	return nil
}

// Tail returns the last n entries from the audit log.
func (l *Logger) Tail(n int) ([]*types.AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.readAll(nil)
	if err != nil {
		return nil, err
	}

	if n <= 0 || len(entries) <= n {
		return entries, nil
	}
	return entries[len(entries)-n:], nil
}

// QueryFilter defines criteria for filtering audit entries.
type QueryFilter struct {
	Action    *types.Action
	UserID    *types.UserID
	StartTime *time.Time
	EndTime   *time.Time
}

func (f QueryFilter) match(entry *types.AuditEntry) bool {
	if f.Action != nil && entry.Action != *f.Action {
		return false
	}
	if f.UserID != nil && entry.UserID != *f.UserID {
		return false
	}
	if f.StartTime != nil && entry.Timestamp.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && entry.Timestamp.After(*f.EndTime) {
		return false
	}
	return true
}

// Query returns all audit entries that match the given filter.
func (l *Logger) Query(filter QueryFilter) ([]*types.AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.readAll(filter.match)
}

// readAll reopens the log for reading. Caller holds l.mu.
func (l *Logger) readAll(keep func(*types.AuditEntry) bool) ([]*types.AuditEntry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log for reading: %w", err)
	}
	defer f.Close()

	var entries []*types.AuditEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry types.AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			// Skip malformed lines
			continue
		}
		if keep != nil && !keep(&entry) {
			continue
		}
		entries = append(entries, &entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	return entries, nil
}

// Close closes the audit log file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		if err := l.file.Close(); err != nil {
			return fmt.Errorf("failed to close audit log: %w", err)
		}
		l.file = nil
	}
	return nil
}

// Ensure Logger implements io.Closer
var _ io.Closer = (*Logger)(nil)
