package store

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nilopro/teleauth/internal/clock"
	"github.com/nilopro/teleauth/internal/config"
	"github.com/nilopro/teleauth/internal/types"
)

func TestOpenRelational_CreatesSecureFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")

	st, err := OpenRelational(path, Options{})
	if err != nil {
		t.Fatalf("OpenRelational failed: %v", err)
	}
	defer st.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("database not created: %v", err)
	}
	if info.Mode().Perm() != RequiredFilePermissions {
		t.Errorf("expected permissions %04o, got %04o", RequiredFilePermissions, info.Mode().Perm())
	}
	if st.Path() != path {
		t.Errorf("Path() = %q, want %q", st.Path(), path)
	}
}

func TestOpenRelational_LegacyRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")

	// Rows as another tool would leave them: naive text timestamps.
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO users (user_id, expires) VALUES (42, '2025-03-02 12:00:00.123456'), (7, '2025-03-01 18:30:00')`); err != nil {
		t.Fatal(err)
	}
	db.Close()
	if err := os.Chmod(path, 0600); err != nil {
		t.Fatal(err)
	}

	st, err := OpenRelational(path, Options{Clock: clock.Fake(epoch)})
	if err != nil {
		t.Fatalf("OpenRelational failed: %v", err)
	}
	defer st.Close()

	rec, ok, err := st.Lookup(42)
	if err != nil || !ok {
		t.Fatalf("Lookup(42): ok=%v err=%v", ok, err)
	}
	want := time.Date(2025, 3, 2, 12, 0, 0, 123456000, time.UTC)
	if !rec.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", rec.ExpiresAt, want)
	}

	records, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0].UserID != 7 || records[1].UserID != 42 {
		t.Errorf("unexpected order: %+v", records)
	}

	active, err := st.IsMemberUnexpired(7, epoch)
	if err != nil {
		t.Fatal(err)
	}
	if !active {
		t.Error("user 7 should be active at epoch")
	}
}

func TestOpenRelational_InsecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	_, err := OpenRelational(path, Options{})
	var permErr *PermissionError
	if !errors.As(err, &permErr) {
		t.Fatalf("expected PermissionError, got %v", err)
	}
}

func TestOpenRelational_Unavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "users.db")

	_, err := OpenRelational(path, Options{})
	if !errors.Is(err, types.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestOpen_RelationalRejectsIdentity(t *testing.T) {
	dir := t.TempDir()
	identity, err := GenerateIdentity(filepath.Join(dir, "identity.age"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = Open(config.StoreRelational, filepath.Join(dir, "users.db"), Options{Identity: identity})
	if !errors.Is(err, types.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2025-03-01T12:00:00Z", time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), false},
		{"2025-03-01T15:00:00+03:00", time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), false},
		{"2025-03-01T12:00:00.5", time.Date(2025, 3, 1, 12, 0, 0, 500000000, time.UTC), false},
		{"2025-03-01 12:00:00", time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), false},
		{"2025-03-01 12:00:00.000000001", time.Date(2025, 3, 1, 12, 0, 0, 1, time.UTC), false},
		{"", time.Time{}, true},
		{"01/03/2025 12:00", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTimestamp(tt.in)
			if tt.wantErr {
				if !errors.Is(err, types.ErrStoreCorrupted) {
					t.Errorf("expected ErrStoreCorrupted, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseTimestamp failed: %v", err)
			}
			if !got.Equal(tt.want) || got.Location() != time.UTC {
				t.Errorf("parseTimestamp(%q) = %v, want %v UTC", tt.in, got, tt.want)
			}
		})
	}
}
