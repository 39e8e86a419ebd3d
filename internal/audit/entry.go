// Package audit provides an append-only trail of access grants and revocations.
package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/nilopro/teleauth/internal/types"
)

// EntryBuilder provides a fluent interface for creating audit entries.
type EntryBuilder struct {
	entry *types.AuditEntry
}

// NewEntry creates a new audit entry builder with the given action and success status.
// The entry gets a fresh id and the current UTC time.
func NewEntry(action types.Action, success bool) *EntryBuilder {
	return &EntryBuilder{
		entry: &types.AuditEntry{
			ID:        uuid.New().String(),
			Timestamp: time.Now().UTC(),
			Action:    action,
			Success:   success,
		},
	}
}

// At overrides the entry timestamp.
func (b *EntryBuilder) At(t time.Time) *EntryBuilder {
	b.entry.Timestamp = t.UTC()
	return b
}

// WithUser sets the user the entry concerns.
func (b *EntryBuilder) WithUser(id types.UserID) *EntryBuilder {
	b.entry.UserID = id
	return b
}

// WithActor records who performed the operation.
func (b *EntryBuilder) WithActor(actor string) *EntryBuilder {
	b.entry.Actor = actor
	return b
}

// WithExpiry records the grant's expiry.
func (b *EntryBuilder) WithExpiry(t time.Time) *EntryBuilder {
	utc := t.UTC()
	b.entry.ExpiresAt = &utc
	return b
}

// WithDetails adds additional details to the audit entry.
func (b *EntryBuilder) WithDetails(details string) *EntryBuilder {
	b.entry.Details = details
	return b
}

// Build returns the constructed audit entry.
func (b *EntryBuilder) Build() *types.AuditEntry {
	return b.entry
}
