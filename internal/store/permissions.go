package store

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// RequiredFilePermissions is the expected file mode for store and key files (0600 = owner read/write only)
	RequiredFilePermissions os.FileMode = 0600
)

// PermissionError represents a file permission security issue.
type PermissionError struct {
	Path     string
	Current  os.FileMode
	Expected os.FileMode
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf(
		"Error: Store file has insecure permissions\n"+
			"  File: %s\n"+
			"  Current: %04o\n"+
			"  Expected: %04o (owner read/write only)\n\n"+
			"Fix with: chmod %04o %s",
		e.Path,
		e.Current,
		e.Expected,
		e.Expected,
		e.Path,
	)
}

// ValidateFilePermissions checks that a store or key file has secure permissions (0600).
// A missing file is fine: it will be created with the correct permissions.
func ValidateFilePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to check permissions for %s: %w", path, err)
	}

	mode := info.Mode().Perm()
	if mode != RequiredFilePermissions {
		return &PermissionError{
			Path:     path,
			Current:  mode,
			Expected: RequiredFilePermissions,
		}
	}

	return nil
}

// ValidateAllFiles checks permissions for every non-empty path.
// If skipCheck is true, validation is skipped.
func ValidateAllFiles(skipCheck bool, paths ...string) error {
	if skipCheck {
		return nil
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := ValidateFilePermissions(path); err != nil {
			return err
		}
	}

	return nil
}

// EnsureSecurePermissions sets 0600 on a file after creation.
func EnsureSecurePermissions(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", path)
		}
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}

	if err := os.Chmod(path, RequiredFilePermissions); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", filepath.Base(path), err)
	}

	return nil
}
