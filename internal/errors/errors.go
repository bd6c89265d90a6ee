package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeAuthorization  ErrorType = "authorization"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeConflict       ErrorType = "conflict"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeInternal       ErrorType = "internal"
	ErrorTypeNetwork        ErrorType = "network"
	ErrorTypeServer         ErrorType = "server"
	ErrorTypeTimeout        ErrorType = "timeout"
	ErrorTypeDatabase       ErrorType = "database"
	ErrorTypeCache          ErrorType = "cache"
)

// AppError represents a structured client error
type AppError struct {
	Type          ErrorType              `json:"type"`
	Code          string                 `json:"code"`
	Message       string                 `json:"message"`
	Details       string                 `json:"details,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Retryable     bool                   `json:"retryable"`
	Cause         error                  `json:"-"`
	HTTPStatus    int                    `json:"-"` // status returned by the backend, 0 when no response
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// ToJSON converts the error to JSON format
func (e *AppError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Retryable: defaultRetryable(errorType),
	}
}

// NewAppErrorWithCause creates a new application error with an underlying cause
func NewAppErrorWithCause(errorType ErrorType, code, message string, cause error) *AppError {
	err := NewAppError(errorType, code, message)
	err.Cause = cause
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// WithCorrelationID adds a correlation ID to the error
func (e *AppError) WithCorrelationID(correlationID string) *AppError {
	e.CorrelationID = correlationID
	return e
}

// WithDetails adds additional details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithHTTPStatus records the backend status code
func (e *AppError) WithHTTPStatus(status int) *AppError {
	e.HTTPStatus = status
	return e
}

func defaultRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeServer, ErrorTypeTimeout, ErrorTypeRateLimit:
		return true
	default:
		return false
	}
}

// Common error constructors

// NewValidationError creates a validation error. Validation errors are raised
// before any I/O happens.
func NewValidationError(field, message string) *AppError {
	return NewAppError(ErrorTypeValidation, "VALIDATION_ERROR", message).
		WithMetadata("field", field)
}

// NewAuthenticationError creates an authentication error
func NewAuthenticationError(message string) *AppError {
	return NewAppError(ErrorTypeAuthentication, "AUTH_ERROR", message)
}

// NewAuthorizationError creates an authorization error
func NewAuthorizationError(message string) *AppError {
	return NewAppError(ErrorTypeAuthorization, "AUTHZ_ERROR", message)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrorTypeNotFound, "NOT_FOUND", fmt.Sprintf("%s not found", resource)).
		WithMetadata("resource", resource)
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *AppError {
	return NewAppError(ErrorTypeConflict, "CONFLICT", message)
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *AppError {
	return NewAppErrorWithCause(ErrorTypeInternal, "INTERNAL_ERROR", message, cause)
}

// NewNetworkError wraps a transport failure for the named operation
func NewNetworkError(operation string, cause error) *AppError {
	return NewAppErrorWithCause(ErrorTypeNetwork, "NETWORK_ERROR",
		fmt.Sprintf("Request failed: %s", operation), cause).
		WithMetadata("operation", operation)
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, cause error) *AppError {
	return NewAppErrorWithCause(ErrorTypeDatabase, "DATABASE_ERROR",
		fmt.Sprintf("Database operation failed: %s", operation), cause).
		WithMetadata("operation", operation)
}

// NewCacheError creates a cache error
func NewCacheError(operation string, cause error) *AppError {
	return NewAppErrorWithCause(ErrorTypeCache, "CACHE_ERROR",
		fmt.Sprintf("Cache operation failed: %s", operation), cause).
		WithMetadata("operation", operation)
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(operation string, timeout time.Duration) *AppError {
	return NewAppError(ErrorTypeTimeout, "TIMEOUT",
		fmt.Sprintf("Operation timed out: %s", operation)).
		WithMetadata("operation", operation).
		WithMetadata("timeout", timeout.String())
}

// FromHTTPStatus maps a non-2xx backend response onto the error taxonomy.
func FromHTTPStatus(operation string, status int, message string) *AppError {
	if message == "" {
		message = http.StatusText(status)
	}

	var errorType ErrorType
	var code string
	switch {
	case status == http.StatusUnauthorized:
		errorType, code = ErrorTypeAuthentication, "AUTH_ERROR"
	case status == http.StatusForbidden:
		errorType, code = ErrorTypeAuthorization, "AUTHZ_ERROR"
	case status == http.StatusNotFound:
		errorType, code = ErrorTypeNotFound, "NOT_FOUND"
	case status == http.StatusConflict:
		errorType, code = ErrorTypeConflict, "CONFLICT"
	case status == http.StatusTooManyRequests:
		errorType, code = ErrorTypeRateLimit, "RATE_LIMIT_EXCEEDED"
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		errorType, code = ErrorTypeTimeout, "TIMEOUT"
	case status >= 500:
		errorType, code = ErrorTypeServer, "SERVER_ERROR"
	default:
		errorType, code = ErrorTypeValidation, "REQUEST_REJECTED"
	}

	return NewAppError(errorType, code, message).
		WithHTTPStatus(status).
		WithMetadata("operation", operation)
}

// IsErrorType checks if an error, or any error it wraps, is of a specific type
func IsErrorType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetErrorType returns the error type if it's an AppError
func GetErrorType(err error) (ErrorType, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type, true
	}
	return "", false
}

// IsRetryable reports whether retrying the same action is safe and may succeed.
func IsRetryable(err error) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// MarkRetryable returns err flagged as safe to retry. Authentication errors
// and context cancellation come back unchanged; a plain error becomes a
// retryable network error.
func MarkRetryable(err error) error {
	if err == nil || IsAuthentication(err) ||
		stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return NewAppErrorWithCause(ErrorTypeNetwork, "REQUEST_FAILED", "Request failed", err)
	}
	if appErr.Retryable {
		return err
	}
	marked := *appErr
	marked.Retryable = true
	return &marked
}

// IsAuthentication reports whether the session behind err has expired.
func IsAuthentication(err error) bool {
	return IsErrorType(err, ErrorTypeAuthentication)
}

// GetCorrelationID extracts correlation ID from an error
func GetCorrelationID(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.CorrelationID
	}
	return ""
}
