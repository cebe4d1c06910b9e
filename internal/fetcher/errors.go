package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorType represents the category of error that occurred while fetching or saving market data
type ErrorType string

const (
	// ErrorTypeNetwork indicates a network-level error (connection refused, DNS, etc.)
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeRateLimit indicates the provider rejected the request with HTTP 429
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeServer indicates a provider error (HTTP 5xx)
	ErrorTypeServer ErrorType = "server"
	// ErrorTypeClient indicates a client error (HTTP 4xx except 404 and 429)
	ErrorTypeClient ErrorType = "client"
	// ErrorTypeNotFound indicates the ticker is unknown to the registry or the provider
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeValidation indicates the response was received but could not be decoded
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeTimeout indicates the request timed out
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeStorage indicates the output files could not be written
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeUnknown indicates an error of unknown type
	ErrorTypeUnknown ErrorType = "unknown"
)

// FetchError represents a structured error from a fetch operation
type FetchError struct {
	Type       ErrorType
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Type, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Type, msg)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// NewNetworkError creates a network error, or a timeout error when the cause is a deadline
func NewNetworkError(cause error) *FetchError {
	if isTimeout(cause) {
		return NewTimeoutError(cause)
	}
	return &FetchError{
		Type:    ErrorTypeNetwork,
		Message: "network request failed",
		Cause:   cause,
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(statusCode int) *FetchError {
	return &FetchError{
		Type:       ErrorTypeRateLimit,
		StatusCode: statusCode,
		Message:    "provider rate limit exceeded",
	}
}

// NewServerError creates a server error
func NewServerError(statusCode int) *FetchError {
	return &FetchError{
		Type:       ErrorTypeServer,
		StatusCode: statusCode,
		Message:    "provider returned an error",
	}
}

// NewClientError creates a client error
func NewClientError(statusCode int, message string) *FetchError {
	return &FetchError{
		Type:       ErrorTypeClient,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewNotFoundError creates an error for a ticker nobody knows about
func NewNotFoundError(message string) *FetchError {
	return &FetchError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string, cause error) *FetchError {
	return &FetchError{
		Type:    ErrorTypeValidation,
		Message: message,
		Cause:   cause,
	}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(cause error) *FetchError {
	return &FetchError{
		Type:    ErrorTypeTimeout,
		Message: "request timed out",
		Cause:   cause,
	}
}

// NewStorageError creates an error for a failed write to the output directory
func NewStorageError(path string, cause error) *FetchError {
	return &FetchError{
		Type:    ErrorTypeStorage,
		Message: fmt.Sprintf("failed to write %s", path),
		Cause:   cause,
	}
}

// ClassifyHTTPError classifies an HTTP status code into an appropriate FetchError
func ClassifyHTTPError(statusCode int) *FetchError {
	switch {
	case statusCode == 429:
		return NewRateLimitError(statusCode)
	case statusCode == 404:
		return &FetchError{
			Type:       ErrorTypeNotFound,
			StatusCode: statusCode,
			Message:    "symbol not found",
		}
	case statusCode >= 500:
		return NewServerError(statusCode)
	case statusCode >= 400:
		return NewClientError(statusCode, fmt.Sprintf("client error: HTTP %d", statusCode))
	default:
		return &FetchError{
			Type:       ErrorTypeUnknown,
			StatusCode: statusCode,
			Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
		}
	}
}

// TypeOf reports the ErrorType carried by err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Type
	}
	if isTimeout(err) {
		return ErrorTypeTimeout
	}
	return ErrorTypeUnknown
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
