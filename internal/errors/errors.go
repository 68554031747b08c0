// Package errors consolidates error definitions for the slide aggregator.
//
// It provides sentinel errors for all error conditions, category checking
// functions, and error wrapping utilities.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// Record/codec errors
	ErrCorruptRecord    = errors.New("corrupt record")
	ErrEncodingTooLarge = errors.New("encoded reading exceeds record payload")

	// Validation errors
	ErrInvalidWindow   = errors.New("window must be at least one second")
	ErrInvalidTrigger  = errors.New("trigger must be greater than or equal to window")
	ErrInvalidMoment   = errors.New("moment must be non-negative")
	ErrInvalidQuantile = errors.New("quantile must be in (0, 1]")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrMissingField    = errors.New("missing required field")

	// State errors
	ErrSlideClosed = errors.New("slide is closed")
)

// Is is a convenience wrapper for errors.Is.
var Is = errors.Is

// As is a convenience wrapper for errors.As.
var As = errors.As

// Join is a convenience wrapper for errors.Join.
var Join = errors.Join

// New is a convenience wrapper for errors.New.
var New = errors.New

// IsCorruption returns true if err indicates unreadable on-disk data.
// Records are only ever self-written, so corruption is an internal defect
// rather than a user-recoverable condition.
func IsCorruption(err error) bool {
	return errors.Is(err, ErrCorruptRecord) ||
		errors.Is(err, ErrEncodingTooLarge)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidWindow) ||
		errors.Is(err, ErrInvalidTrigger) ||
		errors.Is(err, ErrInvalidMoment) ||
		errors.Is(err, ErrInvalidQuantile) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewInvalidValue creates an invalid value error.
func NewInvalidValue(field string, value interface{}, reason string) error {
	return fmt.Errorf("invalid %s '%v': %s: %w", field, value, reason, ErrInvalidConfig)
}
