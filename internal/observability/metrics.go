package observability

import (
	"context"

	"github.com/rshatalov/rpy/internal/config"
	contextutils "github.com/rshatalov/rpy/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics initializes an OTLP-exporting MeterProvider
func InitMetrics(cfg *config.OpenTelemetryConfig) (result0 *metric.MeterProvider, err error) {
	ctx := context.Background()

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var exporter metric.Exporter
	switch cfg.Protocol {
	case "grpc":
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
			otlpmetricgrpc.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err = otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp grpc metric exporter: %w", err)
		}
	case "http":
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
			otlpmetrichttp.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err = otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp http metric exporter: %w", err)
		}
	default:
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unsupported otel protocol: %s", cfg.Protocol)
	}

	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter)),
		metric.WithResource(res),
	), nil
}

// StudyMetrics counts selection and rating outcomes.
type StudyMetrics struct {
	selections  otelmetric.Int64Counter
	noQuestions otelmetric.Int64Counter
	ratings     otelmetric.Int64Counter
}

// NewStudyMetrics registers the study counters on the global meter provider.
// Instruments fall back to no-ops when registration fails.
func NewStudyMetrics() *StudyMetrics {
	return NewStudyMetricsWithMeter(otel.Meter("rpy/study"))
}

// NewStudyMetricsWithMeter registers the study counters on the given meter.
func NewStudyMetricsWithMeter(meter otelmetric.Meter) *StudyMetrics {
	m := &StudyMetrics{}
	m.selections, _ = meter.Int64Counter("study.selections",
		otelmetric.WithDescription("Questions handed out by select-next"))
	m.noQuestions, _ = meter.Int64Counter("study.no_questions",
		otelmetric.WithDescription("Select-next calls that found every question mastered"))
	m.ratings, _ = meter.Int64Counter("study.ratings",
		otelmetric.WithDescription("Ratings recorded for shown questions"))
	return m
}

// RecordSelection counts a question handed out; firstShow marks a newly created progress row.
func (m *StudyMetrics) RecordSelection(ctx context.Context, firstShow bool) {
	if m == nil || m.selections == nil {
		return
	}
	m.selections.Add(ctx, 1, otelmetric.WithAttributes(attribute.Bool("first_show", firstShow)))
}

// RecordNoQuestions counts an exhausted session.
func (m *StudyMetrics) RecordNoQuestions(ctx context.Context) {
	if m == nil || m.noQuestions == nil {
		return
	}
	m.noQuestions.Add(ctx, 1)
}

// RecordRating counts a rating by value.
func (m *StudyMetrics) RecordRating(ctx context.Context, rating string) {
	if m == nil || m.ratings == nil {
		return
	}
	m.ratings.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("rating", rating)))
}
