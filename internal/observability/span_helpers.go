package observability

import (
	contextutils "github.com/rshatalov/rpy/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FinishSpan ends a span and records any error pointed to by errPtr.
// Use with a named error return: `defer observability.FinishSpan(span, &err)`
//
// Client-side failures (unknown session, bad rating) are tagged with their code but
// leave the span status unset; only error and fatal severities mark it as failed.
func FinishSpan(span trace.Span, errPtr *error) {
	if span == nil {
		return
	}
	if errPtr != nil && *errPtr != nil {
		err := *errPtr
		severity := contextutils.GetErrorSeverity(err)
		span.SetAttributes(
			attribute.String("error.code", string(contextutils.GetErrorCode(err))),
			attribute.String("error.severity", string(severity)),
		)
		if severity == contextutils.SeverityError || severity == contextutils.SeverityFatal {
			span.RecordError(err, trace.WithStackTrace(true))
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.AddEvent("client_error", trace.WithAttributes(attribute.String("message", err.Error())))
		}
	}
	span.End()
}
