package models

import (
	"errors"
	"fmt"
)

// ErrSuperseded is returned when a newer request from the same client replaced this one.
var ErrSuperseded = errors.New("request superseded by a newer request")

// ErrNotConfigured is returned when an operation needs a provider that has no credentials.
var ErrNotConfigured = errors.New("provider not configured")

// ValidationError reports an unknown or unresolvable input such as a city or crop name.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, value, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// UpstreamError wraps a failure of an external data provider.
type UpstreamError struct {
	Source string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Source, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
