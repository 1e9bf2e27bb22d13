package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrRateLimitExceeded indicates an upstream rate limit was hit
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// Market data errors

var (
	// ErrProviderUnavailable indicates an upstream data source failed (network, non-2xx, error payload)
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrNoPriceData indicates the quote step returned no usable price
	ErrNoPriceData = errors.New("no price data")

	// ErrInsufficientData indicates too few price points for an indicator
	ErrInsufficientData = errors.New("insufficient data")

	// ErrUnauthorized indicates the provider rejected our credentials
	ErrUnauthorized = errors.New("unauthorized")
)

// AI errors

var (
	// ErrAIUnavailable indicates the text generator could not be reached
	ErrAIUnavailable = errors.New("ai generator unavailable")

	// ErrAIEmptyResponse indicates the generator returned no text
	ErrAIEmptyResponse = errors.New("ai generator returned empty response")
)

// Schedule errors

var (
	// ErrCooldown indicates an action was refused because its cooldown window is still open
	ErrCooldown = errors.New("cooldown active")

	// ErrAlreadyClaimed indicates a schedule slot was already taken by another trigger
	ErrAlreadyClaimed = errors.New("schedule already claimed")
)

// Watchlist errors

var (
	// ErrAlreadyExists indicates the entry is already stored and was left unchanged
	ErrAlreadyExists = errors.New("already exists")

	// ErrLimitReached indicates a per-user capacity was exhausted
	ErrLimitReached = errors.New("limit reached")
)

// MultiError wraps multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("multiple errors (%d): %v", len(m.Errors), m.Errors[0])
}

// Add adds an error to the list
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// ToError returns the MultiError as an error, or nil if no errors
func (m *MultiError) ToError() error {
	if !m.HasErrors() {
		return nil
	}
	return m
}

// Unwrap exposes the collected errors to errors.Is / errors.As
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
