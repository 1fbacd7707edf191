// Package errors provides custom error types for shelfsync.
// These errors separate fatal setup failures, which abort a run, from
// record-level and propagation problems, which are tracked as data.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors.
var (
	// ErrSourceUnavailable indicates the system-of-record or feed source
	// could not be read. Fatal to a run: no diffing without a baseline.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRecord indicates a malformed external record.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrConfigMissing indicates a required configuration value is absent.
	ErrConfigMissing = errors.New("configuration missing")
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Key     string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("configuration error for %s: %s", e.Key, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfigMissing
}

// NewConfigError creates a new ConfigError.
func NewConfigError(key, message string) *ConfigError {
	return &ConfigError{Key: key, Message: message}
}

// RecordError describes a rejected external record. It carries enough to
// reconstruct the cause from logs: the feed, the offending field, and the
// raw value.
type RecordError struct {
	Feed   string
	Key    string
	Field  string
	Raw    string
	Reason string
}

// Error implements the error interface.
func (e *RecordError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("record %s in %s rejected (%s): field %s=%q", e.Key, e.Feed, e.Reason, e.Field, e.Raw)
	}
	return fmt.Sprintf("record in %s rejected (%s): field %s=%q", e.Feed, e.Reason, e.Field, e.Raw)
}

// Is implements errors.Is support.
func (e *RecordError) Is(target error) bool {
	return target == ErrInvalidRecord
}

// APIError represents an error returned by the marketplace API.
type APIError struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("marketplace API error during %s (status %d): %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("marketplace API error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *APIError) Unwrap() error {
	return e.Err
}

// WrapSource wraps an error as a fatal source-unavailable error.
func WrapSource(source string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", source, ErrSourceUnavailable, err)
}

// IsSourceUnavailable checks if an error is a fatal source failure.
func IsSourceUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
