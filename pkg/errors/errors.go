// Package errors defines the sentinel errors shared across librestore and small helpers
// for adding context while preserving errors.Is/errors.As matching.
package errors

import "fmt"

// Common error types.
var (
	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrUnknownConfigKey  = fmt.Errorf("unknown configuration key")

	// ErrSourceUnavailable is returned when a package source cannot be reached or answers
	// with a transport-level failure. It is never retried internally.
	ErrSourceUnavailable = fmt.Errorf("package source unavailable")

	// ErrLibraryNotFound is returned when a source has no entry for the requested library version.
	ErrLibraryNotFound = fmt.Errorf("library not found")

	// ErrFormat is returned when a library archive or manifest is malformed, for example when
	// the archive lacks its manifest entry.
	ErrFormat = fmt.Errorf("invalid library format")

	// ErrLockTimeout is returned when a contended install lock cannot be acquired in time.
	ErrLockTimeout = fmt.Errorf("timed out waiting for install lock")

	// ErrNoCompatibleVersion is returned when no source offers a version inside the requested range.
	ErrNoCompatibleVersion = fmt.Errorf("no compatible version")

	// Parsing errors.
	ErrInvalidRange     = fmt.Errorf("invalid version range")
	ErrInvalidVersion   = fmt.Errorf("invalid version")
	ErrInvalidFramework = fmt.Errorf("invalid target framework")
	ErrInvalidPath      = fmt.Errorf("invalid path")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
