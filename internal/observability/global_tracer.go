package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "rpy"

var globalTracer trace.Tracer

// InitGlobalTracer initializes the global tracer for the application.
func InitGlobalTracer() {
	globalTracer = otel.Tracer(tracerName)
}

// GetGlobalTracer returns the global tracer instance for the application.
func GetGlobalTracer() trace.Tracer {
	if globalTracer == nil {
		globalTracer = otel.Tracer(tracerName)
	}
	return globalTracer
}

// TraceFunction starts a new span named "<service>.<function>".
func TraceFunction(ctx context.Context, serviceName, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	spanName := fmt.Sprintf("%s.%s", serviceName, functionName)
	return GetGlobalTracer().Start(ctx, spanName, trace.WithAttributes(attributes...))
}

// TraceStudyFunction starts a new span for a study session function.
func TraceStudyFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "study", functionName, attributes...)
}

// TraceQuestionFunction starts a new span for a question or tag function.
func TraceQuestionFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "question", functionName, attributes...)
}

// TracePlanningFunction starts a new span for an act, plan, task or note function.
func TracePlanningFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "planning", functionName, attributes...)
}

// TraceTimeFunction starts a new span for a time entry or timer function.
func TraceTimeFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "time", functionName, attributes...)
}

// TraceImportFunction starts a new span for a question import function.
func TraceImportFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "import", functionName, attributes...)
}

// TraceDatabaseFunction starts a new span for a database function.
func TraceDatabaseFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "database", functionName, attributes...)
}

// TraceHandlerFunction starts a new span for a handler function.
func TraceHandlerFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "handler", functionName, attributes...)
}

// AttributeSessionID returns a tracing attribute for a study session ID.
func AttributeSessionID(id int) attribute.KeyValue {
	return attribute.Int("session.id", id)
}

// AttributeQuestionID returns a tracing attribute for a question ID.
func AttributeQuestionID(id int) attribute.KeyValue {
	return attribute.Int("question.id", id)
}

// AttributeRating returns a tracing attribute for a submitted rating.
func AttributeRating(rating string) attribute.KeyValue {
	return attribute.String("rating", rating)
}

// AttributeTag returns a tracing attribute for a tag slug.
func AttributeTag(slug string) attribute.KeyValue {
	return attribute.String("tag.slug", slug)
}

// AttributeActID returns a tracing attribute for an act ID.
func AttributeActID(id int) attribute.KeyValue {
	return attribute.Int("act.id", id)
}

// AttributePlanID returns a tracing attribute for a plan ID.
func AttributePlanID(id int) attribute.KeyValue {
	return attribute.Int("plan.id", id)
}

// AttributeTimerID returns a tracing attribute for a timer ID.
func AttributeTimerID(id int) attribute.KeyValue {
	return attribute.Int("timer.id", id)
}

// AttributePage returns a tracing attribute for a page value.
func AttributePage(page int) attribute.KeyValue {
	return attribute.Int("page", page)
}

// AttributePageSize returns a tracing attribute for a page size value.
func AttributePageSize(size int) attribute.KeyValue {
	return attribute.Int("page_size", size)
}

// AttributeSearch returns a tracing attribute for a search value.
func AttributeSearch(search string) attribute.KeyValue {
	return attribute.String("search", search)
}
