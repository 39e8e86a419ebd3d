package access

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nilopro/teleauth/internal/audit"
	"github.com/nilopro/teleauth/internal/clock"
	"github.com/nilopro/teleauth/internal/config"
	"github.com/nilopro/teleauth/internal/store"
	"github.com/nilopro/teleauth/internal/types"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	clock *clock.FakeClock
	audit *audit.Logger
	cfg   *config.Config
}

// newFixture opens a Service over a fresh store of the given kind with
// admins [1].
func newFixture(t *testing.T, kind config.StoreKind) *fixture {
	t.Helper()

	cfg := config.NewInDir(t.TempDir())
	cfg.Store = kind
	cfg.Admins = []int64{1}

	auditLogger, err := audit.New(cfg.AuditPath)
	if err != nil {
		t.Fatalf("audit.New failed: %v", err)
	}
	t.Cleanup(func() { auditLogger.Close() })

	fc := clock.Fake(epoch)
	svc, err := Open(cfg, WithClock(fc), WithAuditLogger(auditLogger))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	return &fixture{svc: svc, clock: fc, audit: auditLogger, cfg: cfg}
}

func forEachKind(t *testing.T, fn func(t *testing.T, f *fixture)) {
	t.Helper()
	for _, kind := range []config.StoreKind{config.StoreRelational, config.StoreDocument} {
		t.Run(string(kind), func(t *testing.T) {
			fn(t, newFixture(t, kind))
		})
	}
}

func TestService_Scenario(t *testing.T) {
	forEachKind(t, func(t *testing.T, f *fixture) {
		if !f.svc.IsAdmin(1) {
			t.Fatal("user 1 should be admin")
		}
		assertAuthenticated(t, f.svc, 1, true)
		assertAuthenticated(t, f.svc, 42, false)

		if _, err := f.svc.AuthorizeUser(42, 1, 0); err != nil {
			t.Fatalf("AuthorizeUser failed: %v", err)
		}
		assertAuthenticated(t, f.svc, 42, true)

		rem, err := f.svc.RemainingTime(42)
		if err != nil {
			t.Fatal(err)
		}
		if rem != (types.Remaining{Days: 1}) {
			t.Errorf("RemainingTime = %+v, want 1 day", rem)
		}

		f.clock.Advance(time.Minute)
		rem, _ = f.svc.RemainingTime(42)
		if rem != (types.Remaining{Hours: 23, Minutes: 59}) {
			t.Errorf("RemainingTime after 1m = %+v, want 23h59m", rem)
		}

		if err := f.svc.RevokeAccess(42); err != nil {
			t.Fatalf("RevokeAccess failed: %v", err)
		}
		assertAuthenticated(t, f.svc, 42, false)
		assertAuthenticated(t, f.svc, 1, true)
	})
}

func TestService_AdminIsConstant(t *testing.T) {
	forEachKind(t, func(t *testing.T, f *fixture) {
		mutations := []func() error{
			func() error { _, err := f.svc.AuthorizeUser(1, 0, 1); return err },
			func() error { return f.svc.RevokeAccess(1) },
			func() error { _, err := f.svc.AuthorizeUser(1, 0, 0); return err },
		}
		for i, m := range mutations {
			if err := m(); err != nil {
				t.Fatalf("mutation %d failed: %v", i, err)
			}
			if !f.svc.IsAdmin(1) {
				t.Errorf("IsAdmin(1) false after mutation %d", i)
			}
			if f.svc.IsAdmin(42) {
				t.Errorf("IsAdmin(42) true after mutation %d", i)
			}
			assertAuthenticated(t, f.svc, 1, true)
		}
	})
}

func TestService_AdminWithoutRecordHasNoRemaining(t *testing.T) {
	forEachKind(t, func(t *testing.T, f *fixture) {
		rem, err := f.svc.RemainingTime(1)
		if err != nil {
			t.Fatal(err)
		}
		if !rem.IsZero() {
			t.Errorf("admin remaining = %+v, want zero", rem)
		}
	})
}

func TestService_AuthorizeRemaining(t *testing.T) {
	forEachKind(t, func(t *testing.T, f *fixture) {
		tests := []struct {
			days, hours int
			want        types.Remaining
		}{
			{1, 0, types.Remaining{Days: 1}},
			{0, 1, types.Remaining{Hours: 1}},
			{2, 5, types.Remaining{Days: 2, Hours: 5}},
			{0, 30, types.Remaining{Days: 1, Hours: 6}},
			{30, 0, types.Remaining{Days: 30}},
		}
		for _, tt := range tests {
			rec, err := f.svc.AuthorizeUser(42, tt.days, tt.hours)
			if err != nil {
				t.Fatalf("AuthorizeUser(%d, %d) failed: %v", tt.days, tt.hours, err)
			}
			if want, _ := clock.ExpiryAfter(epoch, tt.days, tt.hours); !rec.ExpiresAt.Equal(want) {
				t.Errorf("ExpiresAt = %v, want %v", rec.ExpiresAt, want)
			}
			assertAuthenticated(t, f.svc, 42, true)

			rem, err := f.svc.RemainingTime(42)
			if err != nil {
				t.Fatal(err)
			}
			if rem != tt.want {
				t.Errorf("AuthorizeUser(%d, %d): remaining %+v, want %+v", tt.days, tt.hours, rem, tt.want)
			}
		}
	})
}

func TestService_OverwriteNotStack(t *testing.T) {
	forEachKind(t, func(t *testing.T, f *fixture) {
		if _, err := f.svc.AuthorizeUser(42, 1, 0); err != nil {
			t.Fatal(err)
		}
		if _, err := f.svc.AuthorizeUser(42, 0, 1); err != nil {
			t.Fatal(err)
		}

		rem, err := f.svc.RemainingTime(42)
		if err != nil {
			t.Fatal(err)
		}
		if rem != (types.Remaining{Hours: 1}) {
			t.Errorf("remaining = %+v, want 1 hour", rem)
		}

		users, err := f.svc.ListAuthorized()
		if err != nil {
			t.Fatal(err)
		}
		if len(users) != 1 {
			t.Errorf("expected a single record, got %d", len(users))
		}
	})
}

func TestService_ZeroDuration(t *testing.T) {
	forEachKind(t, func(t *testing.T, f *fixture) {
		rec, err := f.svc.AuthorizeUser(42, 0, 0)
		if err != nil {
			t.Fatalf("AuthorizeUser(0, 0) failed: %v", err)
		}
		if !rec.ExpiresAt.Equal(epoch) {
			t.Errorf("ExpiresAt = %v, want %v", rec.ExpiresAt, epoch)
		}
		assertAuthenticated(t, f.svc, 42, false)

		users, err := f.svc.ListAuthorized()
		if err != nil {
			t.Fatal(err)
		}
		if len(users) != 1 || !users[0].Expired {
			t.Errorf("expected one expired listing, got %+v", users)
		}
	})
}

func TestService_InvalidDuration(t *testing.T) {
	forEachKind(t, func(t *testing.T, f *fixture) {
		_, err := f.svc.AuthorizeUser(42, -1, 0)
		if !errors.Is(err, types.ErrInvalidDuration) {
			t.Fatalf("expected ErrInvalidDuration, got %v", err)
		}
		var accessErr *types.AccessError
		if !errors.As(err, &accessErr) || accessErr.UserID != 42 {
			t.Errorf("expected AccessError for user 42, got %v", err)
		}
		assertAuthenticated(t, f.svc, 42, false)

		grant := types.ActionAccessGrant
		entries, err := f.audit.Query(audit.QueryFilter{Action: &grant})
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 || entries[0].Success {
			t.Errorf("expected one failed grant entry, got %+v", entries)
		}
	})
}

func TestService_OversizedDurationRejected(t *testing.T) {
	forEachKind(t, func(t *testing.T, f *fixture) {
		_, err := f.svc.AuthorizeUser(42, 200000, 0)
		if !errors.Is(err, types.ErrInvalidDuration) {
			t.Fatalf("expected ErrInvalidDuration, got %v", err)
		}
		assertAuthenticated(t, f.svc, 42, false)

		users, err := f.svc.ListAuthorized()
		if err != nil {
			t.Fatal(err)
		}
		if len(users) != 0 {
			t.Errorf("rejected grant must not be stored, got %+v", users)
		}

		// The largest representable grant is still in the future.
		rec, err := f.svc.AuthorizeUser(43, 100000, 0)
		if err != nil {
			t.Fatalf("AuthorizeUser(43, 100000, 0) failed: %v", err)
		}
		if !rec.ExpiresAt.After(epoch) {
			t.Errorf("ExpiresAt = %v, want after %v", rec.ExpiresAt, epoch)
		}
		assertAuthenticated(t, f.svc, 43, true)
	})
}

func TestService_RevokeUnknownIsNoop(t *testing.T) {
	forEachKind(t, func(t *testing.T, f *fixture) {
		if err := f.svc.RevokeAccess(999); err != nil {
			t.Errorf("RevokeAccess(999) failed: %v", err)
		}
		assertAuthenticated(t, f.svc, 999, false)
	})
}

func TestService_Expiry(t *testing.T) {
	forEachKind(t, func(t *testing.T, f *fixture) {
		if _, err := f.svc.AuthorizeUser(42, 0, 1); err != nil {
			t.Fatal(err)
		}

		f.clock.Advance(time.Hour - time.Nanosecond)
		assertAuthenticated(t, f.svc, 42, true)

		f.clock.Advance(time.Nanosecond)
		assertAuthenticated(t, f.svc, 42, false)

		rem, err := f.svc.RemainingTime(42)
		if err != nil {
			t.Fatal(err)
		}
		if !rem.IsZero() {
			t.Errorf("expired remaining = %+v, want zero", rem)
		}

		// Expired grants are kept until revoked.
		users, err := f.svc.ListAuthorized()
		if err != nil {
			t.Fatal(err)
		}
		if len(users) != 1 || !users[0].Expired {
			t.Errorf("expected expired listing, got %+v", users)
		}
	})
}

func TestService_ListAscending(t *testing.T) {
	forEachKind(t, func(t *testing.T, f *fixture) {
		grants := []struct {
			id          types.UserID
			days, hours int
		}{
			{10, 5, 0},
			{11, 0, 2},
			{12, 1, 0},
			{13, 0, 0},
			{14, 3, 12},
		}
		for _, g := range grants {
			if _, err := f.svc.AuthorizeUser(g.id, g.days, g.hours); err != nil {
				t.Fatal(err)
			}
		}

		users, err := f.svc.ListAuthorized()
		if err != nil {
			t.Fatal(err)
		}

		wantOrder := []types.UserID{13, 11, 12, 14, 10}
		if len(users) != len(wantOrder) {
			t.Fatalf("expected %d users, got %d", len(wantOrder), len(users))
		}
		for i, id := range wantOrder {
			if users[i].UserID != id {
				t.Errorf("users[%d] = %d, want %d", i, users[i].UserID, id)
			}
			if users[i].Expired != (id == 13) {
				t.Errorf("user %d Expired = %v", id, users[i].Expired)
			}
		}
	})
}

func TestService_RoundTrip(t *testing.T) {
	for _, kind := range []config.StoreKind{config.StoreRelational, config.StoreDocument} {
		t.Run(string(kind), func(t *testing.T) {
			cfg := config.NewInDir(t.TempDir())
			cfg.Store = kind
			fc := clock.Fake(epoch)

			svc, err := Open(cfg, WithClock(fc))
			if err != nil {
				t.Fatal(err)
			}
			if _, err := svc.AuthorizeUser(42, 2, 3); err != nil {
				t.Fatal(err)
			}
			if _, err := svc.AuthorizeUser(7, 0, 1); err != nil {
				t.Fatal(err)
			}
			before, err := svc.ListAuthorized()
			if err != nil {
				t.Fatal(err)
			}
			if err := svc.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}

			reopened, err := Open(cfg, WithClock(fc))
			if err != nil {
				t.Fatalf("reopen failed: %v", err)
			}
			defer reopened.Close()

			after, err := reopened.ListAuthorized()
			if err != nil {
				t.Fatal(err)
			}
			if len(after) != len(before) {
				t.Fatalf("expected %d users after reopen, got %d", len(before), len(after))
			}
			for i := range before {
				if after[i].UserID != before[i].UserID || !after[i].ExpiresAt.Equal(before[i].ExpiresAt) {
					t.Errorf("row %d: got %+v, want %+v", i, after[i], before[i])
				}
			}
		})
	}
}

func TestService_Encrypted(t *testing.T) {
	cfg := config.NewInDir(t.TempDir())
	cfg.Encrypt = true

	svc, err := Open(cfg, WithClock(clock.Fake(epoch)))
	if err != nil {
		t.Fatalf("Open with encryption failed: %v", err)
	}
	if _, err := svc.AuthorizeUser(42, 1, 0); err != nil {
		t.Fatal(err)
	}
	if err := svc.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(cfg, WithClock(clock.Fake(epoch)))
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	assertAuthenticated(t, reopened, 42, true)
}

func TestService_AuditTrail(t *testing.T) {
	forEachKind(t, func(t *testing.T, f *fixture) {
		if _, err := f.svc.AuthorizeUser(42, 1, 0); err != nil {
			t.Fatal(err)
		}
		if err := f.svc.RevokeAccess(42); err != nil {
			t.Fatal(err)
		}

		user := types.UserID(42)
		entries, err := f.audit.Query(audit.QueryFilter{UserID: &user})
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries for user 42, got %d", len(entries))
		}
		if entries[0].Action != types.ActionAccessGrant || entries[0].ExpiresAt == nil {
			t.Errorf("unexpected grant entry: %+v", entries[0])
		}
		if entries[1].Action != types.ActionAccessRevoke {
			t.Errorf("unexpected revoke entry: %+v", entries[1])
		}
		for _, e := range entries {
			if !e.Timestamp.Equal(epoch) {
				t.Errorf("entry timestamp %v, want service clock %v", e.Timestamp, epoch)
			}
		}
	})
}

func TestService_ClosedStore(t *testing.T) {
	st, err := store.OpenDocument(filepath.Join(t.TempDir(), "users.json"), store.Options{})
	if err != nil {
		t.Fatal(err)
	}
	svc := New(st, []types.UserID{1})
	if err := svc.Close(); err != nil {
		t.Fatal(err)
	}

	// Admin checks never touch the store.
	assertAuthenticated(t, svc, 1, true)

	if _, err := svc.IsAuthenticated(42); !errors.Is(err, types.ErrStoreClosed) {
		t.Errorf("IsAuthenticated: expected ErrStoreClosed, got %v", err)
	}
	if _, err := svc.AuthorizeUser(42, 1, 0); !errors.Is(err, types.ErrStoreClosed) {
		t.Errorf("AuthorizeUser: expected ErrStoreClosed, got %v", err)
	}
	if _, err := svc.RemainingTime(42); !errors.Is(err, types.ErrStoreClosed) {
		t.Errorf("RemainingTime: expected ErrStoreClosed, got %v", err)
	}
	if _, err := svc.ListAuthorized(); !errors.Is(err, types.ErrStoreClosed) {
		t.Errorf("ListAuthorized: expected ErrStoreClosed, got %v", err)
	}
}

func TestOpen_Unavailable(t *testing.T) {
	cfg := config.NewInDir(t.TempDir())
	cfg.Store = config.StoreRelational
	cfg.DatabasePath = filepath.Join(cfg.Directory, "missing", "users.db")

	if _, err := Open(cfg); !errors.Is(err, types.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestAdmins(t *testing.T) {
	svc := New(nil, []types.UserID{5, 1, 3, 1})
	got := svc.Admins()
	want := []types.UserID{1, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("Admins() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Admins()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func assertAuthenticated(t *testing.T, svc *Service, userID types.UserID, want bool) {
	t.Helper()
	got, err := svc.IsAuthenticated(userID)
	if err != nil {
		t.Fatalf("IsAuthenticated(%d) failed: %v", userID, err)
	}
	if got != want {
		t.Errorf("IsAuthenticated(%d) = %v, want %v", userID, got, want)
	}
}

func TestService_RemainingTruncatesElapsedTime(t *testing.T) {
	forEachKind(t, func(t *testing.T, f *fixture) {
		if _, err := f.svc.AuthorizeUser(42, 1, 0); err != nil {
			t.Fatal(err)
		}
		f.clock.Advance(time.Nanosecond)

		rem, err := f.svc.RemainingTime(42)
		if err != nil {
			t.Fatal(err)
		}
		if want := (types.Remaining{Hours: 23, Minutes: 59}); rem != want {
			t.Errorf("remaining %+v, want %+v", rem, want)
		}
	})
}
