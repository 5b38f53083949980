package handlers

import (
	"errors"
	"fmt"
	"net/http"

	contextutils "github.com/rshatalov/rpy/internal/utils"

	"github.com/gin-gonic/gin"
)

// StandardizeHTTPError creates consistent HTTP error responses with structured error information
func StandardizeHTTPError(c *gin.Context, statusCode int, message, details string) {
	var errorCode contextutils.ErrorCode
	var severity contextutils.SeverityLevel

	switch statusCode {
	case http.StatusBadRequest:
		errorCode = contextutils.ErrorCodeInvalidInput
		severity = contextutils.SeverityWarn
	case http.StatusNotFound:
		errorCode = contextutils.ErrorCodeRecordNotFound
		severity = contextutils.SeverityInfo
	case http.StatusConflict:
		errorCode = contextutils.ErrorCodeConflict
		severity = contextutils.SeverityInfo
	case http.StatusTooManyRequests:
		errorCode = contextutils.ErrorCodeRateLimit
		severity = contextutils.SeverityWarn
	case http.StatusServiceUnavailable:
		errorCode = contextutils.ErrorCodeServiceUnavailable
		severity = contextutils.SeverityError
	default:
		errorCode = contextutils.ErrorCodeInternalError
		severity = contextutils.SeverityError
	}

	appErr := contextutils.NewAppError(errorCode, severity, message, details)
	c.JSON(statusCode, errorBody(c, appErr))
}

// StandardizeAppError sends a structured error response using AppError
func StandardizeAppError(c *gin.Context, err *contextutils.AppError) {
	c.JSON(mapErrorCodeToHTTPStatus(err.Code), errorBody(c, err))
}

// errorBody is the AppError JSON plus the request id, when one was assigned
func errorBody(c *gin.Context, err *contextutils.AppError) map[string]interface{} {
	body := err.ToJSON()
	if c.Request == nil {
		return body
	}
	if id := contextutils.GetRequestIDFromContext(c.Request.Context()); id != "" {
		body["request_id"] = id
	}
	return body
}

// HandleValidationError handles input validation errors consistently
func HandleValidationError(c *gin.Context, field string, value interface{}, reason string) {
	appErr := contextutils.NewAppError(
		contextutils.ErrorCodeInvalidInput,
		contextutils.SeverityWarn,
		fmt.Sprintf("Invalid %s", field),
		fmt.Sprintf("Value '%v' is invalid: %s", value, reason),
	)
	StandardizeAppError(c, appErr)
}

// HandleBindError answers a request whose body or query failed to bind
func HandleBindError(c *gin.Context, err error) {
	StandardizeAppError(c, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeInvalidInput, contextutils.SeverityWarn,
		contextutils.ErrInvalidInput.Message, err.Error(), err))
}

// HandleAppError handles any AppError and sends appropriate HTTP response
func HandleAppError(c *gin.Context, err error) {
	_ = c.Error(err)
	var appErr *contextutils.AppError
	if errors.As(err, &appErr) {
		StandardizeAppError(c, appErr)
		return
	}
	StandardizeHTTPError(c, http.StatusInternalServerError, "Internal server error", err.Error())
}

// mapErrorCodeToHTTPStatus maps AppError codes to appropriate HTTP status codes
func mapErrorCodeToHTTPStatus(code contextutils.ErrorCode) int {
	switch code {
	// 4xx Client Errors
	case contextutils.ErrorCodeInvalidInput,
		contextutils.ErrorCodeInvalidFormat, contextutils.ErrorCodeInvalidRating,
		contextutils.ErrorCodeForeignKeyViolation:
		return http.StatusBadRequest

	case contextutils.ErrorCodeRecordNotFound, contextutils.ErrorCodeQuestionNotFound,
		contextutils.ErrorCodeSessionNotFound, contextutils.ErrorCodeSessionQuestionNotFound:
		return http.StatusNotFound

	case contextutils.ErrorCodeRecordExists, contextutils.ErrorCodeConflict:
		return http.StatusConflict

	case contextutils.ErrorCodeRateLimit:
		return http.StatusTooManyRequests

	// 5xx Server Errors
	case contextutils.ErrorCodeServiceUnavailable, contextutils.ErrorCodeDatabaseConnection:
		return http.StatusServiceUnavailable

	case contextutils.ErrorCodeTimeout:
		return http.StatusRequestTimeout

	default:
		return http.StatusInternalServerError
	}
}
