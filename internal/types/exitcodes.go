// Package types defines exit codes following standard Unix conventions.
package types

import "errors"

// Exit codes for the teleauth CLI.
// These follow standard Unix/BSD sysexits.h conventions where applicable.
const (
	// ExitSuccess indicates the operation completed successfully.
	ExitSuccess = 0

	// ExitGenericError indicates a generic error occurred.
	// Use this when no more specific exit code applies.
	ExitGenericError = 1

	// ExitMisuse indicates the command was used incorrectly.
	// Examples: malformed user id, negative duration.
	ExitMisuse = 2

	// ExitDataError indicates the persisted data was invalid.
	// Examples: malformed users.json, undecryptable store.
	ExitDataError = 64

	// ExitIOError indicates an I/O error occurred.
	// Examples: can't open the database file, can't write to socket.
	ExitIOError = 66

	// ExitProtocolError indicates an invalid RPC response or protocol violation.
	ExitProtocolError = 67

	// ExitDaemonUnavailable indicates the daemon is not running or unreachable.
	ExitDaemonUnavailable = 69

	// ExitInternalError indicates an unexpected internal error.
	ExitInternalError = 70
)

// ExitCodeFromError returns the appropriate exit code for a given error.
// This maps internal errors to standard exit codes.
func ExitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case IsValidationError(err):
		return ExitMisuse
	case IsDaemonError(err):
		return ExitDaemonUnavailable
	case IsStoreCorrupted(err):
		return ExitDataError
	case IsStoreUnavailable(err):
		return ExitIOError
	default:
		return ExitGenericError
	}
}

// Helper functions to check error types
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidDuration) ||
		errors.Is(err, ErrInvalidUserID) ||
		errors.Is(err, ErrInvalidParams)
}

func IsDaemonError(err error) bool {
	return errors.Is(err, ErrDaemonNotRunning) || errors.Is(err, ErrConnectionFailed)
}

func IsStoreCorrupted(err error) bool {
	return errors.Is(err, ErrStoreCorrupted) || errors.Is(err, ErrDecryptionFailed)
}

func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrStoreClosed)
}
