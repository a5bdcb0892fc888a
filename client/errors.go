package client

import (
	"errors"
	"fmt"
	"time"
)

// ClientError represents the typed failures surfaced by the request
// client. Callers receive exactly one of these per failed call, whatever
// the failure origin, so handling stays uniform.
type ClientError interface {
	error
	Type() ErrorType
}

// ErrorType defines the category of client error.
type ErrorType string

const (
	// NetworkError is a transport-level failure (status 0, retryable).
	NetworkError ErrorType = "network"
	// TimeoutError is an exceeded request deadline (status 0).
	TimeoutError ErrorType = "timeout"
	// APIError is a non-2xx response carrying the API's error envelope.
	APIError ErrorType = "api"
	// AuthError is a terminal authentication failure: credentials were
	// cleared and the auth-error policy was invoked.
	AuthError ErrorType = "auth"
)

// networkError represents transport-level errors.
type networkError struct {
	message string
	wrapped error
}

func (e *networkError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("network error: %s: %v", e.message, e.wrapped)
	}
	return fmt.Sprintf("network error: %s", e.message)
}

func (e *networkError) Type() ErrorType {
	return NetworkError
}

func (e *networkError) Unwrap() error {
	return e.wrapped
}

// timeoutError represents an exceeded request deadline.
type timeoutError struct {
	message string
	timeout time.Duration
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("timeout error: %s (timeout: %v)", e.message, e.timeout)
}

func (e *timeoutError) Type() ErrorType {
	return TimeoutError
}

// apiError represents a non-2xx API response.
type apiError struct {
	status    int
	code      string
	message   string
	fields    map[string]string
	requestID string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error: %s (status: %d, code: %s)", e.message, e.status, e.code)
}

func (e *apiError) Type() ErrorType {
	return APIError
}

func (e *apiError) StatusCode() int {
	return e.status
}

// authError represents a terminal authentication failure.
type authError struct {
	message string
	wrapped error
}

func (e *authError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("auth error: %s: %v", e.message, e.wrapped)
	}
	return fmt.Sprintf("auth error: %s", e.message)
}

func (e *authError) Type() ErrorType {
	return AuthError
}

func (e *authError) Unwrap() error {
	return e.wrapped
}

// NewNetworkError creates a new network error.
func NewNetworkError(message string, wrapped error) ClientError {
	return &networkError{message: message, wrapped: wrapped}
}

// NewTimeoutError creates a new timeout error.
func NewTimeoutError(message string, timeout time.Duration) ClientError {
	return &timeoutError{message: message, timeout: timeout}
}

// NewAPIError creates a new API error with the decoded envelope contents.
func NewAPIError(status int, code, message string, fields map[string]string, requestID string) ClientError {
	return &apiError{
		status:    status,
		code:      code,
		message:   message,
		fields:    fields,
		requestID: requestID,
	}
}

// NewAuthError creates a new terminal authentication error.
func NewAuthError(message string, wrapped error) ClientError {
	return &authError{message: message, wrapped: wrapped}
}

// IsErrorType checks if an error is of a specific type.
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}

// IsAPIStatus checks if an error is an API error with the given HTTP
// status code.
func IsAPIStatus(err error, status int) bool {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.status == status
	}
	return false
}

// StatusCode returns the HTTP status of an API error, or 0 for every
// other error (network and timeout failures never reached a status).
func StatusCode(err error) int {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.status
	}
	return 0
}

// ErrorCode returns the API error code, or "" for non-API errors.
func ErrorCode(err error) string {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.code
	}
	return ""
}

// ErrorMessage returns the API error message, or "" for non-API errors.
func ErrorMessage(err error) string {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.message
	}
	return ""
}

// FieldErrors returns the field->message map of an API validation error,
// or nil. Forms use it to highlight offending inputs.
func FieldErrors(err error) map[string]string {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.fields
	}
	return nil
}

// RequestID returns the server-assigned request id carried by an API
// error, or "".
func RequestID(err error) string {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.requestID
	}
	return ""
}

// IsSuccessStatus checks if a status code represents success (2xx).
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// isRetryable reports whether a failure belongs to a transient class:
// transport-level failures and server-side (5xx) API errors.
func isRetryable(err error) bool {
	if IsErrorType(err, NetworkError) {
		return true
	}
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.status >= 500
	}
	return false
}
