// Package access decides whether a user currently holds access.
//
// A Service combines a fixed admin allowlist with a store of time-bounded
// grants. Admins are always authenticated; everyone else needs a grant whose
// expiry is strictly in the future.
package access

import (
	"fmt"
	"sort"
	"time"

	"github.com/nilopro/teleauth/internal/audit"
	"github.com/nilopro/teleauth/internal/clock"
	"github.com/nilopro/teleauth/internal/config"
	"github.com/nilopro/teleauth/internal/metrics"
	"github.com/nilopro/teleauth/internal/store"
	"github.com/nilopro/teleauth/internal/types"
	"github.com/rs/zerolog"
)

// Service is safe for concurrent use. It holds no cache; every read goes to
// the store.
type Service struct {
	store  store.Store
	admins map[types.UserID]struct{}
	clock  clock.Clock
	audit  *audit.Logger
	logger zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source. Defaults to clock.Real().
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithAuditLogger records grants and revocations to l.
func WithAuditLogger(l *audit.Logger) Option {
	return func(s *Service) { s.audit = l }
}

// WithLogger sets the operational logger. Defaults to a no-op logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New wraps an open store. The admin set is copied and never changes.
func New(st store.Store, admins []types.UserID, opts ...Option) *Service {
	s := newService(admins, opts)
	s.store = st
	return s
}

func newService(admins []types.UserID, opts []Option) *Service {
	s := &Service{
		admins: make(map[types.UserID]struct{}, len(admins)),
		clock:  clock.Real(),
		logger: zerolog.Nop(),
	}
	for _, id := range admins {
		s.admins[id] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens the store selected by cfg and returns a Service over it.
func Open(cfg *config.Config, opts ...Option) (*Service, error) {
	s := newService(cfg.AdminIDs(), opts)

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStoreUnavailable, err)
	}

	storeOpts := store.Options{
		Clock:               s.clock,
		SkipPermissionCheck: cfg.SkipPermissionCheck,
	}
	if cfg.Encrypt {
		identity, err := store.LoadOrCreateIdentity(cfg.IdentityPath, cfg.SkipPermissionCheck)
		if err != nil {
			return nil, err
		}
		storeOpts.Identity = identity
	}

	st, err := store.Open(cfg.Store, cfg.StorePath(), storeOpts)
	if err != nil {
		return nil, err
	}
	s.store = st

	s.logger.Info().
		Str("store", string(cfg.Store)).
		Str("path", cfg.StorePath()).
		Int("admins", len(s.admins)).
		Msg("store opened")
	s.record(audit.NewEntry(types.ActionStoreOpen, true).
		WithDetails(fmt.Sprintf("%s %s", cfg.Store, cfg.StorePath())))

	return s, nil
}

// Now returns the service's current time.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

// IsAdmin reports whether userID is in the admin allowlist.
func (s *Service) IsAdmin(userID types.UserID) bool {
	_, ok := s.admins[userID]
	return ok
}

// Admins returns the admin allowlist in ascending order.
func (s *Service) Admins() []types.UserID {
	ids := make([]types.UserID, 0, len(s.admins))
	for id := range s.admins {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsAuthenticated reports whether userID is an admin or holds an unexpired grant.
func (s *Service) IsAuthenticated(userID types.UserID) (bool, error) {
	if s.IsAdmin(userID) {
		metrics.ChecksTotal.WithLabelValues(metrics.CheckAdmin).Inc()
		return true, nil
	}

	ok, err := s.store.IsMemberUnexpired(userID, s.clock.Now())
	if err != nil {
		metrics.ChecksTotal.WithLabelValues(metrics.CheckError).Inc()
		return false, types.NewAccessError("check", userID, err)
	}

	if ok {
		metrics.ChecksTotal.WithLabelValues(metrics.CheckGranted).Inc()
	} else {
		metrics.ChecksTotal.WithLabelValues(metrics.CheckDenied).Inc()
	}
	return ok, nil
}

// AuthorizeUser grants access until now + days + hours, replacing any
// existing grant. A zero duration records a grant that is already expired.
func (s *Service) AuthorizeUser(userID types.UserID, days, hours int) (types.Record, error) {
	details := fmt.Sprintf("days=%d hours=%d", days, hours)

	if _, ok := clock.GrantDuration(days, hours); !ok {
		err := types.NewAccessError("authorize", userID, types.ErrInvalidDuration)
		s.failed(types.ActionAccessGrant, userID, details, err)
		metrics.GrantsTotal.WithLabelValues(metrics.Status(err)).Inc()
		return types.Record{}, err
	}

	rec, err := s.store.Authorize(userID, days, hours)
	metrics.GrantsTotal.WithLabelValues(metrics.Status(err)).Inc()
	if err != nil {
		err = types.NewAccessError("authorize", userID, err)
		s.failed(types.ActionAccessGrant, userID, details, err)
		return types.Record{}, err
	}

	s.logger.Info().
		Int64("user_id", int64(userID)).
		Time("expires_at", rec.ExpiresAt).
		Msg("access granted")
	s.record(audit.NewEntry(types.ActionAccessGrant, true).
		WithUser(userID).
		WithExpiry(rec.ExpiresAt).
		WithDetails(details))

	return rec, nil
}

// RevokeAccess removes any grant for userID. Revoking a user without a
// grant succeeds. Admin status is unaffected.
func (s *Service) RevokeAccess(userID types.UserID) error {
	err := s.store.Revoke(userID)
	metrics.RevokesTotal.WithLabelValues(metrics.Status(err)).Inc()
	if err != nil {
		err = types.NewAccessError("revoke", userID, err)
		s.failed(types.ActionAccessRevoke, userID, "", err)
		return err
	}

	s.logger.Info().Int64("user_id", int64(userID)).Msg("access revoked")
	s.record(audit.NewEntry(types.ActionAccessRevoke, true).WithUser(userID))
	return nil
}

// RemainingTime returns the time left on userID's grant, truncated to whole
// days, hours and minutes. Any time elapsed since the grant rounds down, so a
// one-day grant read back on the real clock reports 0 days, 23 hours and 59
// minutes. Users without a grant, admins included, and expired grants report
// zero.
func (s *Service) RemainingTime(userID types.UserID) (types.Remaining, error) {
	rec, ok, err := s.store.Lookup(userID)
	if err != nil {
		return types.Remaining{}, types.NewAccessError("remaining", userID, err)
	}
	if !ok {
		return types.Remaining{}, nil
	}
	return Decompose(TimeRemaining(rec, s.clock.Now())), nil
}

// ListAuthorized returns every grant, expired ones included, ordered by
// expiry ascending.
func (s *Service) ListAuthorized() ([]types.AuthorizedUser, error) {
	records, err := s.store.List()
	if err != nil {
		return nil, fmt.Errorf("list authorized: %w", err)
	}

	now := s.clock.Now()
	users := make([]types.AuthorizedUser, len(records))
	for i, rec := range records {
		users[i] = types.AuthorizedUser{
			UserID:    rec.UserID,
			ExpiresAt: rec.ExpiresAt,
			Expired:   rec.ExpiredAt(now),
		}
	}
	return users, nil
}

// Close closes the store, surfacing any final flush error.
func (s *Service) Close() error {
	err := s.store.Close()
	s.record(audit.NewEntry(types.ActionStoreClose, err == nil))
	if err != nil {
		s.logger.Error().Err(err).Msg("store close failed")
		return fmt.Errorf("close store: %w", err)
	}
	s.logger.Info().Msg("store closed")
	return nil
}

func (s *Service) failed(action types.Action, userID types.UserID, details string, err error) {
	s.logger.Warn().
		Err(err).
		Str("action", string(action)).
		Int64("user_id", int64(userID)).
		Msg("access change failed")

	if details != "" {
		details += ": "
	}
	s.record(audit.NewEntry(action, false).
		WithUser(userID).
		WithDetails(details + err.Error()))
}

// record writes an audit entry stamped with the service clock. Audit
// failures are logged, never returned.
func (s *Service) record(b *audit.EntryBuilder) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(b.At(s.clock.Now()).Build()); err != nil {
		s.logger.Error().Err(err).Msg("audit write failed")
	}
}
