// Package contextutils provides error handling utilities and standardized error types
// shared by the services, handlers and admin tooling.
package contextutils

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ErrorCode represents a standardized error code for API responses
type ErrorCode string

const (
	// Database error codes

	// ErrorCodeDatabaseConnection indicates a database connection error
	ErrorCodeDatabaseConnection ErrorCode = "DATABASE_CONNECTION_ERROR"
	// ErrorCodeDatabaseQuery indicates a database query error
	ErrorCodeDatabaseQuery ErrorCode = "DATABASE_QUERY_ERROR"
	// ErrorCodeDatabaseTransaction indicates a database transaction error
	ErrorCodeDatabaseTransaction ErrorCode = "DATABASE_TRANSACTION_ERROR"
	// ErrorCodeRecordNotFound indicates that a requested record was not found
	ErrorCodeRecordNotFound ErrorCode = "RECORD_NOT_FOUND"
	// ErrorCodeRecordExists indicates that a record already exists (duplicate key)
	ErrorCodeRecordExists ErrorCode = "RECORD_ALREADY_EXISTS"
	// ErrorCodeForeignKeyViolation indicates a foreign key constraint violation
	ErrorCodeForeignKeyViolation ErrorCode = "FOREIGN_KEY_VIOLATION"

	// Validation error codes

	// ErrorCodeInvalidInput indicates that the provided input is invalid
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrorCodeInvalidFormat indicates that the input format is invalid
	ErrorCodeInvalidFormat ErrorCode = "INVALID_FORMAT"

	// Service error codes

	// ErrorCodeServiceUnavailable indicates that the service is temporarily unavailable
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrorCodeTimeout indicates that a request has timed out
	ErrorCodeTimeout ErrorCode = "REQUEST_TIMEOUT"
	// ErrorCodeRateLimit indicates that the rate limit has been exceeded
	ErrorCodeRateLimit ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrorCodeInternalError indicates an internal server error
	ErrorCodeInternalError ErrorCode = "INTERNAL_SERVER_ERROR"
	// ErrorCodeConflict indicates that an operation conflicts with the current state
	ErrorCodeConflict ErrorCode = "CONFLICT"

	// Study error codes

	// ErrorCodeSessionNotFound indicates that the study session does not exist
	ErrorCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	// ErrorCodeSessionQuestionNotFound indicates that the question was never shown in the session
	ErrorCodeSessionQuestionNotFound ErrorCode = "SESSION_QUESTION_NOT_FOUND"
	// ErrorCodeQuestionNotFound indicates that the requested question was not found
	ErrorCodeQuestionNotFound ErrorCode = "QUESTION_NOT_FOUND"
	// ErrorCodeInvalidRating indicates that a rating outside easy/medium/hard was submitted
	ErrorCodeInvalidRating ErrorCode = "INVALID_RATING"
)

// SeverityLevel represents the severity of an error for logging and monitoring
type SeverityLevel string

const (
	// SeverityDebug indicates debug-level errors for development
	SeverityDebug SeverityLevel = "debug"
	// SeverityInfo indicates informational errors
	SeverityInfo SeverityLevel = "info"
	// SeverityWarn indicates warning-level errors
	SeverityWarn SeverityLevel = "warn"
	// SeverityError indicates error-level issues
	SeverityError SeverityLevel = "error"
	// SeverityFatal indicates fatal errors that require immediate attention
	SeverityFatal SeverityLevel = "fatal"
)

// AppError represents a structured error with code, severity, and context
type AppError struct {
	Code     ErrorCode
	Severity SeverityLevel
	Message  string
	Details  string
	Cause    error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError carrying the same code
func (e *AppError) Is(target error) bool {
	if appErr, ok := target.(*AppError); ok {
		return e.Code == appErr.Code
	}
	return false
}

var (
	// Database errors
	ErrDatabaseConnection = &AppError{
		Code:     ErrorCodeDatabaseConnection,
		Severity: SeverityError,
		Message:  "Database connection failed",
	}

	ErrDatabaseQuery = &AppError{
		Code:     ErrorCodeDatabaseQuery,
		Severity: SeverityError,
		Message:  "Database query failed",
	}

	ErrDatabaseTransaction = &AppError{
		Code:     ErrorCodeDatabaseTransaction,
		Severity: SeverityError,
		Message:  "Database transaction failed",
	}

	ErrRecordNotFound = &AppError{
		Code:     ErrorCodeRecordNotFound,
		Severity: SeverityInfo,
		Message:  "Record not found",
	}

	ErrRecordExists = &AppError{
		Code:     ErrorCodeRecordExists,
		Severity: SeverityInfo,
		Message:  "Record already exists",
	}

	ErrForeignKeyViolation = &AppError{
		Code:     ErrorCodeForeignKeyViolation,
		Severity: SeverityWarn,
		Message:  "Referenced record does not exist",
	}

	// Validation errors
	ErrInvalidInput = &AppError{
		Code:     ErrorCodeInvalidInput,
		Severity: SeverityWarn,
		Message:  "Invalid input",
	}

	ErrInvalidFormat = &AppError{
		Code:     ErrorCodeInvalidFormat,
		Severity: SeverityWarn,
		Message:  "Invalid format",
	}

	// Service errors
	ErrServiceUnavailable = &AppError{
		Code:     ErrorCodeServiceUnavailable,
		Severity: SeverityError,
		Message:  "Service unavailable",
	}

	ErrTimeout = &AppError{
		Code:     ErrorCodeTimeout,
		Severity: SeverityWarn,
		Message:  "Request timeout",
	}

	ErrRateLimit = &AppError{
		Code:     ErrorCodeRateLimit,
		Severity: SeverityWarn,
		Message:  "Rate limit exceeded",
	}

	ErrInternalError = &AppError{
		Code:     ErrorCodeInternalError,
		Severity: SeverityError,
		Message:  "Internal server error",
	}

	ErrConflict = &AppError{
		Code:     ErrorCodeConflict,
		Severity: SeverityWarn,
		Message:  "Operation conflicts with current state",
	}

	// Study errors
	ErrSessionNotFound = &AppError{
		Code:     ErrorCodeSessionNotFound,
		Severity: SeverityInfo,
		Message:  "Study session not found",
	}

	ErrSessionQuestionNotFound = &AppError{
		Code:     ErrorCodeSessionQuestionNotFound,
		Severity: SeverityInfo,
		Message:  "Question has not been shown in this session",
	}

	ErrQuestionNotFound = &AppError{
		Code:     ErrorCodeQuestionNotFound,
		Severity: SeverityInfo,
		Message:  "Question not found",
	}

	ErrInvalidRating = &AppError{
		Code:     ErrorCodeInvalidRating,
		Severity: SeverityWarn,
		Message:  "Rating must be one of easy, medium, hard",
	}
)

// With returns a copy of the sentinel carrying details and an optional cause
func (e *AppError) With(details string, cause error) *AppError {
	return &AppError{
		Code:     e.Code,
		Severity: e.Severity,
		Message:  e.Message,
		Details:  details,
		Cause:    cause,
	}
}

// NewAppError creates a new AppError with the specified code, severity, message and details
func NewAppError(code ErrorCode, severity SeverityLevel, message, details string) *AppError {
	return &AppError{
		Code:     code,
		Severity: severity,
		Message:  message,
		Details:  details,
	}
}

// NewAppErrorWithCause creates a new AppError with an underlying cause
func NewAppErrorWithCause(code ErrorCode, severity SeverityLevel, message, details string, cause error) *AppError {
	return &AppError{
		Code:     code,
		Severity: severity,
		Message:  message,
		Details:  details,
		Cause:    cause,
	}
}

// WrapError wraps an error with additional context, preserving AppError structure if possible
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:     appErr.Code,
			Severity: appErr.Severity,
			Message:  context,
			Details:  appErr.Error(),
			Cause:    appErr,
		}
	}

	return &AppError{
		Code:     ErrorCodeInternalError,
		Severity: SeverityError,
		Message:  context,
		Details:  err.Error(),
		Cause:    err,
	}
}

// WrapErrorf wraps an error with formatted context, preserving AppError structure if possible
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	if strings.Contains(format, "%w") {
		wrappedErr := fmt.Errorf(format, args...)

		if appErr, ok := err.(*AppError); ok {
			return &AppError{
				Code:     appErr.Code,
				Severity: appErr.Severity,
				Message:  wrappedErr.Error(),
				Details:  appErr.Error(),
				Cause:    wrappedErr,
			}
		}

		return &AppError{
			Code:     ErrorCodeInternalError,
			Severity: SeverityError,
			Message:  wrappedErr.Error(),
			Details:  err.Error(),
			Cause:    wrappedErr,
		}
	}

	return WrapError(err, fmt.Sprintf(format, args...))
}

// ErrorWithContextf creates a new internal error with formatted context
func ErrorWithContextf(format string, args ...interface{}) error {
	return &AppError{
		Code:     ErrorCodeInternalError,
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
	}
}

// NewInvalidInputf builds an INVALID_INPUT error with formatted details
func NewInvalidInputf(format string, args ...interface{}) error {
	return &AppError{
		Code:     ErrorCodeInvalidInput,
		Severity: SeverityWarn,
		Message:  ErrInvalidInput.Message,
		Details:  fmt.Sprintf(format, args...),
	}
}

// NewConflictf builds a CONFLICT error with formatted details
func NewConflictf(format string, args ...interface{}) error {
	return &AppError{
		Code:     ErrorCodeConflict,
		Severity: SeverityWarn,
		Message:  ErrConflict.Message,
		Details:  fmt.Sprintf(format, args...),
	}
}

// NotFoundf returns a copy of the given not-found sentinel carrying details
func NotFoundf(sentinel *AppError, format string, args ...interface{}) error {
	return &AppError{
		Code:     sentinel.Code,
		Severity: sentinel.Severity,
		Message:  sentinel.Message,
		Details:  fmt.Sprintf(format, args...),
	}
}

// FromDatabaseError maps PostgreSQL errors onto AppErrors. Constraint violations become
// client errors, cancelled statements become timeouts and anything else a query error.
func FromDatabaseError(err error, msg string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return WrapError(err, msg)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return NewAppErrorWithCause(ErrorCodeRecordExists, SeverityInfo, msg, pqErr.Detail, err)
		case "foreign_key_violation":
			return ErrForeignKeyViolation.With(msg+": "+pqErr.Detail, err)
		case "check_violation", "not_null_violation", "string_data_right_truncation", "numeric_value_out_of_range":
			return NewAppErrorWithCause(ErrorCodeInvalidInput, SeverityWarn, msg, pqErr.Message, err)
		case "query_canceled":
			return ErrTimeout.With(msg+": "+pqErr.Message, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout.With(msg, err)
	}
	return ErrDatabaseQuery.With(msg+": "+err.Error(), err)
}

// GetErrorCode returns the error code from an error if it's an AppError, otherwise returns a default code
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrorCodeInternalError
}

// GetErrorSeverity returns the severity level from an error if it's an AppError, otherwise returns error
func GetErrorSeverity(err error) SeverityLevel {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Severity
	}
	return SeverityError
}

// IsRetryable determines if an error should be retried based on its type and severity
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case ErrorCodeTimeout, ErrorCodeServiceUnavailable, ErrorCodeDatabaseConnection:
			return appErr.Severity != SeverityFatal
		}
	}
	return false
}

// ToJSON converts an AppError to a JSON-serializable structure for API responses
func (e *AppError) ToJSON() map[string]interface{} {
	result := map[string]interface{}{
		"code":     string(e.Code),
		"message":  e.Message,
		"severity": string(e.Severity),
		"error":    e.Message,
	}

	if e.Details != "" {
		result["details"] = e.Details
	}

	result["retryable"] = IsRetryable(e)

	if e.Cause != nil {
		switch e.Severity {
		case SeverityError, SeverityFatal:
			result["cause"] = e.Cause.Error()
		}
	}

	return result
}

// ContextKey represents a context key type for passing values through context
type ContextKey string

// RequestIDKey carries the per-request correlation id
const RequestIDKey ContextKey = "requestID"

// WithRequestID returns a new context carrying the request id
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestIDFromContext extracts the request id, returning "" if absent
func GetRequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
