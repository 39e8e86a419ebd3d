// Package types defines shared types for the teleauth authorization service.
package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UserID identifies an external account (for example a Telegram user).
type UserID int64

// String returns the decimal form used as the document store key.
func (u UserID) String() string {
	return strconv.FormatInt(int64(u), 10)
}

// ParseUserID parses a decimal user id as typed by an operator or a bot command.
func ParseUserID(s string) (UserID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUserID, s)
	}
	return UserID(id), nil
}

// Record is a stored, time-bounded authorization.
type Record struct {
	UserID    UserID    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExpiredAt reports whether the record no longer grants access at t.
// A record grants access only while ExpiresAt is strictly after t.
func (r Record) ExpiredAt(t time.Time) bool {
	return !r.ExpiresAt.After(t)
}

// AuthorizedUser is a listing row returned to callers.
type AuthorizedUser struct {
	UserID    UserID    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Expired   bool      `json:"expired"`
}

// Remaining is the time left on a grant, truncated to whole units.
type Remaining struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// IsZero reports whether no time remains.
func (r Remaining) IsZero() bool {
	return r.Days == 0 && r.Hours == 0 && r.Minutes == 0
}

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID        string     `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
	Action    Action     `json:"action"`
	UserID    UserID     `json:"user_id,omitempty"`
	Actor     string     `json:"actor,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Details   string     `json:"details,omitempty"`
	Success   bool       `json:"success"`
}

// Action represents the type of operation being audited.
type Action string

const (
	ActionAccessGrant  Action = "access_grant"
	ActionAccessRevoke Action = "access_revoke"
	ActionAccessExpire Action = "access_expire"
	ActionStoreOpen    Action = "store_open"
	ActionStoreClose   Action = "store_close"
	ActionDaemonStart  Action = "daemon_start"
	ActionDaemonStop   Action = "daemon_stop"
)

// DaemonStatus represents the current state of the daemon.
type DaemonStatus struct {
	Running     bool      `json:"running"`
	StartedAt   time.Time `json:"started_at"`
	StoreKind   string    `json:"store_kind"`
	StorePath   string    `json:"store_path"`
	Admins      int       `json:"admins"`
	Records     int       `json:"records"`
	ActiveUsers int       `json:"active_users"`
}

// RPCRequest represents a JSON-RPC 2.0 request.
type RPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      interface{} `json:"id"`
}

// RPCResponse represents a JSON-RPC 2.0 response.
type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// RPCError represents a JSON-RPC 2.0 error.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Standard JSON-RPC error codes.
const (
	RPCParseError     = -32700
	RPCInvalidRequest = -32600
	RPCMethodNotFound = -32601
	RPCInvalidParams  = -32602
	RPCInternalError  = -32603
)

// Application-specific error codes (starting at -32000).
const (
	RPCStoreUnavailable = -32000
	RPCStoreCorrupted   = -32001
	RPCEncryptionError  = -32004
	RPCDecryptionError  = -32005
)
