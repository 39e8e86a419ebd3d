// Package types defines shared types for the teleauth authorization service.
package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the teleauth system.
var (
	// Validation errors
	ErrInvalidDuration = errors.New("invalid duration: days and hours must be non-negative and within range")
	ErrInvalidUserID   = errors.New("invalid user id")
	ErrInvalidParams   = errors.New("invalid parameters")

	// Store errors
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrStoreCorrupted   = errors.New("store data corrupted")
	ErrStoreClosed      = errors.New("store is closed")
	ErrUnknownStoreKind = errors.New("unknown store kind")

	// Encryption errors
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrInvalidIdentity  = errors.New("invalid age identity")
	ErrIdentityNotFound = errors.New("identity file not found")

	// Daemon errors
	ErrDaemonNotRunning     = errors.New("daemon is not running")
	ErrDaemonAlreadyRunning = errors.New("daemon is already running")
	ErrConnectionFailed     = errors.New("connection to daemon failed")

	// Audit errors
	ErrAuditWriteFailed = errors.New("failed to write audit entry")
)

// AccessError wraps an error with the user it concerns.
type AccessError struct {
	UserID UserID
	Op     string
	Err    error
}

func (e *AccessError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s user %d: %v", e.Op, e.UserID, e.Err)
	}
	return fmt.Sprintf("user %d: %v", e.UserID, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// NewAccessError creates a new AccessError.
func NewAccessError(op string, userID UserID, err error) *AccessError {
	return &AccessError{UserID: userID, Op: op, Err: err}
}

// UserError provides structured, user-friendly error messages with actionable suggestions.
// Pattern: What went wrong + Why it matters + How to fix + Help reference
type UserError struct {
	What       string            // What went wrong (brief, technical summary)
	Why        string            // Why it matters (user impact)
	Suggestion string            // How to fix it (actionable next step)
	HelpRef    string            // Reference to help docs or command
	Context    map[string]string // Additional contextual details (e.g., socket path, user id)
}

func (e *UserError) Error() string {
	msg := fmt.Sprintf("Error: %s\n", e.What)

	if len(e.Context) > 0 {
		for key, value := range e.Context {
			msg += fmt.Sprintf("  %s: %s\n", key, value)
		}
		msg += "\n"
	}

	if e.Why != "" {
		msg += fmt.Sprintf("%s\n\n", e.Why)
	}

	if e.Suggestion != "" {
		msg += fmt.Sprintf("%s\n\n", e.Suggestion)
	}

	if e.HelpRef != "" {
		msg += fmt.Sprintf("See '%s' for more information.\n", e.HelpRef)
	}

	return msg
}

// NewUserError creates a new UserError with the given details.
func NewUserError(what, why, suggestion, helpRef string) *UserError {
	return &UserError{
		What:       what,
		Why:        why,
		Suggestion: suggestion,
		HelpRef:    helpRef,
		Context:    make(map[string]string),
	}
}

// WithContext adds contextual key-value pairs to the error.
func (e *UserError) WithContext(key, value string) *UserError {
	e.Context[key] = value
	return e
}

// RPCErrorFromError converts a Go error to an RPCError with appropriate code.
func RPCErrorFromError(err error) *RPCError {
	code := RPCInternalError

	switch {
	case IsValidationError(err):
		code = RPCInvalidParams
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrStoreClosed):
		code = RPCStoreUnavailable
	case errors.Is(err, ErrStoreCorrupted):
		code = RPCStoreCorrupted
	case errors.Is(err, ErrEncryptionFailed):
		code = RPCEncryptionError
	case errors.Is(err, ErrDecryptionFailed):
		code = RPCDecryptionError
	}

	return &RPCError{
		Code:    code,
		Message: err.Error(),
	}
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Unwrap maps the error code back to a sentinel so callers on the client
// side can use errors.Is.
func (e *RPCError) Unwrap() error {
	switch e.Code {
	case RPCInvalidParams:
		return ErrInvalidParams
	case RPCStoreUnavailable:
		return ErrStoreUnavailable
	case RPCStoreCorrupted:
		return ErrStoreCorrupted
	case RPCEncryptionError:
		return ErrEncryptionFailed
	case RPCDecryptionError:
		return ErrDecryptionFailed
	default:
		return nil
	}
}
