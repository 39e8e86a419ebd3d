// Package daemon implements a JSON-RPC daemon over Unix sockets.
package daemon

import (
	"time"

	"github.com/nilopro/teleauth/internal/types"
)

// JSON-RPC method names
const (
	MethodIsAdmin   = "access.isAdmin"
	MethodCheck     = "access.check"
	MethodAuthorize = "access.authorize"
	MethodRevoke    = "access.revoke"
	MethodRemaining = "access.remaining"
	MethodList      = "access.list"
	MethodAudit     = "access.audit"
	MethodStatus    = "access.status"
)

// UserParams identify the user for isAdmin, check, revoke and remaining.
type UserParams struct {
	UserID types.UserID `json:"user_id"`
}

// IsAdminResult is the result of access.isAdmin
type IsAdminResult struct {
	UserID types.UserID `json:"user_id"`
	Admin  bool         `json:"admin"`
}

// CheckResult is the result of access.check
type CheckResult struct {
	UserID        types.UserID `json:"user_id"`
	Admin         bool         `json:"admin"`
	Authenticated bool         `json:"authenticated"`
}

// AuthorizeParams are parameters for access.authorize
type AuthorizeParams struct {
	UserID types.UserID `json:"user_id"`
	Days   int          `json:"days"`
	Hours  int          `json:"hours"`
}

// AuthorizeResult is the result of access.authorize
type AuthorizeResult struct {
	UserID    types.UserID `json:"user_id"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// RevokeResult is the result of access.revoke
type RevokeResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RemainingResult is the result of access.remaining
type RemainingResult struct {
	UserID    types.UserID    `json:"user_id"`
	Remaining types.Remaining `json:"remaining"`
}

// ListParams are parameters for access.list
type ListParams struct {
	// No parameters needed
}

// ListResult is the result of access.list, ordered by expiry ascending.
type ListResult struct {
	Users []types.AuthorizedUser `json:"users"`
}

// AuditParams are parameters for access.audit
type AuditParams struct {
	Tail   int           `json:"tail"` // Number of recent entries to return (0 = default)
	UserID *types.UserID `json:"user_id,omitempty"`
}

// AuditResult is the result of access.audit
type AuditResult struct {
	Entries []*types.AuditEntry `json:"entries"`
}

// StatusParams are parameters for access.status
type StatusParams struct {
	// No parameters needed
}

// StatusResult is the result of access.status (uses types.DaemonStatus)
type StatusResult = types.DaemonStatus
