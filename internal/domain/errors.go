package domain

import (
	"errors"
	"strconv"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError represents a network-related error that may be retriable
type NetworkError struct {
	Op        string // Operation that failed (e.g., "connect", "read", "write")
	Err       error  // Underlying error
	Retriable bool   // Whether this error is retriable
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrFetchFailure is returned when a snapshot request fails (network error or non-success status).
	ErrFetchFailure = errors.New("fetch failure")

	// ErrParseFailure is returned when a response or stream payload is not in the expected shape.
	ErrParseFailure = errors.New("parse failure")

	// ErrSubscriptionFailure is returned when the streaming connection closes or errors.
	ErrSubscriptionFailure = errors.New("subscription failure")

	// ErrInvalidSymbol is returned when a symbol is not supported or malformed. Not retriable.
	ErrInvalidSymbol = errors.New("invalid symbol")
)

// StatusError reports a non-success HTTP status from a provider.
// 429 and 5xx are retriable.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return e.Op + ": unexpected status code " + strconv.Itoa(e.StatusCode)
}

func (e *StatusError) IsRetriable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

func (e *StatusError) Unwrap() error {
	return ErrFetchFailure
}
