// Package expiry reports grants as they lapse. Expired records are left in
// the store; the watcher only records that they expired.
package expiry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nilopro/teleauth/internal/audit"
	"github.com/nilopro/teleauth/internal/metrics"
	"github.com/nilopro/teleauth/internal/types"
	"github.com/rs/zerolog"
)

// Source is the view of the access service the watcher needs.
type Source interface {
	ListAuthorized() ([]types.AuthorizedUser, error)
	Now() time.Time
}

// Watcher periodically lists grants and reports those whose expiry fell
// between the previous check and now.
type Watcher struct {
	src      Source
	interval time.Duration
	audit    *audit.Logger
	logger   zerolog.Logger

	mu        sync.Mutex
	lastCheck time.Time
	started   bool

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a Watcher. Grants that lapsed before New is called are not reported.
func New(src Source, interval time.Duration, auditLogger *audit.Logger, logger zerolog.Logger) *Watcher {
	return &Watcher{
		src:       src,
		interval:  interval,
		audit:     auditLogger,
		logger:    logger,
		lastCheck: src.Now(),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Check reports grants that expired since the previous check and returns them.
func (w *Watcher) Check() ([]types.AuthorizedUser, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	users, err := w.src.ListAuthorized()
	if err != nil {
		return nil, fmt.Errorf("expiry check: %w", err)
	}

	now := w.src.Now()
	var expired []types.AuthorizedUser
	active := 0
	for _, u := range users {
		if !u.Expired {
			active++
			continue
		}
		if u.ExpiresAt.After(w.lastCheck) && !u.ExpiresAt.After(now) {
			expired = append(expired, u)
		}
	}
	w.lastCheck = now

	metrics.ActiveUsers.Set(float64(active))
	for _, u := range expired {
		metrics.ExpiredTotal.Inc()
		w.logger.Info().
			Int64("user_id", int64(u.UserID)).
			Time("expired_at", u.ExpiresAt).
			Msg("access expired")

		entry := audit.NewEntry(types.ActionAccessExpire, true).
			At(now).
			WithUser(u.UserID).
			WithExpiry(u.ExpiresAt).
			Build()
		if err := w.audit.Log(entry); err != nil {
			w.logger.Error().Err(err).Msg("audit write failed")
		}
	}

	return expired, nil
}

// Start runs Check every interval until ctx is cancelled or Stop is called.
// It blocks.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	w.started = true
	w.mu.Unlock()
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if _, err := w.Check(); err != nil {
				w.logger.Warn().Err(err).Msg("expiry check failed")
			}
		}
	}
}

// Stop ends the loop and waits for an in-flight check to finish.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })

	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if started {
		<-w.doneCh
	}
}
