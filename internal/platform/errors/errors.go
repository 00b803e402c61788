// Package errors extends the standard errors package with wrapping helpers
// and the sentinel taxonomy of the resolution pipeline.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes the pipeline distinguishes.
var (
	// ErrInvalidInput indicates unusable caller input (empty, unparseable).
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoCaptures indicates the capture index returned nothing usable for
	// a target. Callers degrade to "no results", never abort sibling work.
	ErrNoCaptures = errors.New("no captures found")

	// ErrTimeout indicates an operation exceeded its time limit.
	ErrTimeout = errors.New("operation timed out")

	// ErrRateLimit indicates the remote refused for rate reasons.
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrServiceUnavailable indicates a remote is temporarily down.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrInvalidResponse indicates a response could not be parsed.
	ErrInvalidResponse = errors.New("invalid response")
)

type wrappedError struct {
	msg   string
	cause error
}

func (e *wrappedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *wrappedError) Unwrap() error {
	return e.cause
}

// Wrap wraps an error with a context message. Returns nil for nil err.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{msg: msg, cause: err}
}

// Wrapf wraps an error with a formatted context message. Returns nil for
// nil err.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &wrappedError{msg: fmt.Sprintf(format, args...), cause: err}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain matching the target type.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New creates a new error with the given message.
func New(msg string) error {
	return errors.New(msg)
}

// Errorf formats a new error.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// IsTimeout reports whether the error is a timeout.
func IsTimeout(err error) bool {
	return Is(err, ErrTimeout)
}

// IsNoCaptures reports whether the error means an empty capture index.
func IsNoCaptures(err error) bool {
	return Is(err, ErrNoCaptures)
}

// IsInvalidInput reports whether the error is an input error.
func IsInvalidInput(err error) bool {
	return Is(err, ErrInvalidInput)
}
