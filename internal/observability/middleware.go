package observability

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	contextutils "github.com/rshatalov/rpy/internal/utils"
)

// GinMiddleware creates OpenTelemetry middleware for Gin HTTP requests
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// ErrorSpanMiddleware marks the request span as failed for 4xx/5xx responses and copies
// AppError details recorded on the gin context onto it. It must run after GinMiddleware.
func ErrorSpanMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		statusCode := c.Writer.Status()
		if statusCode < 400 {
			return
		}
		span := trace.SpanFromContext(c.Request.Context())
		if !span.SpanContext().IsValid() {
			return
		}

		errorMsg := "client error"
		if statusCode >= 500 {
			errorMsg = "server error"
		}
		severity := determineErrorSeverity(statusCode, c.Errors)

		var appErr *contextutils.AppError
		for _, ginErr := range c.Errors {
			if errors.As(ginErr.Err, &appErr) {
				errorMsg = appErr.Message
				span.SetAttributes(
					attribute.String("error.code", string(appErr.Code)),
					attribute.Bool("error.retryable", contextutils.IsRetryable(appErr)),
				)
				break
			}
			errorMsg = ginErr.Error()
		}

		span.RecordError(errors.New(errorMsg))
		span.SetStatus(codes.Error, errorMsg)
		span.SetAttributes(
			attribute.Int("http.status_code", statusCode),
			attribute.String("http.route", c.FullPath()),
			attribute.String("error.handler", c.HandlerName()),
			attribute.String("error.severity", severity),
			attribute.Bool("error.server_error", statusCode >= 500),
		)
		if requestID := contextutils.GetRequestIDFromContext(c.Request.Context()); requestID != "" {
			span.SetAttributes(attribute.String("request.id", requestID))
		}
	}
}

// determineErrorSeverity determines the severity level based on status code and error types
func determineErrorSeverity(statusCode int, ginErrors []*gin.Error) string {
	var appErr *contextutils.AppError
	for _, err := range ginErrors {
		if errors.As(err.Err, &appErr) {
			return string(appErr.Severity)
		}
	}

	switch {
	case statusCode >= 500:
		return string(contextutils.SeverityError)
	case statusCode >= 400:
		return string(contextutils.SeverityWarn)
	default:
		return string(contextutils.SeverityInfo)
	}
}
