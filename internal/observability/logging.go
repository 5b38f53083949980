// Package observability provides OpenTelemetry tracing, metrics, and structured logging
// with trace correlation for the rpy backend.
package observability

import (
	"context"
	"os"
	"strings"

	"github.com/rshatalov/rpy/internal/config"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	contextutils "github.com/rshatalov/rpy/internal/utils"
)

// Logger wraps the zap logger with OpenTelemetry context support
type Logger struct {
	*zap.Logger
}

// NewLogger creates a new logger with OpenTelemetry context support and OTLP export
func NewLogger(cfg *config.OpenTelemetryConfig) *Logger {
	return NewLoggerWithOptions(cfg, zap.InfoLevel, nil)
}

// NewLoggerWithLevel creates a new logger at the given level
func NewLoggerWithLevel(cfg *config.OpenTelemetryConfig, level zapcore.Level) *Logger {
	return NewLoggerWithOptions(cfg, level, nil)
}

// NewLoggerWithOptions creates a logger writing to stdout, to the rotating file described by
// fileCfg when it names a file, and to the OTLP endpoint when one is configured.
func NewLoggerWithOptions(cfg *config.OpenTelemetryConfig, level zapcore.Level, fileCfg *config.LoggingConfig) *Logger {
	if cfg == nil || !cfg.EnableLogging {
		return &Logger{Logger: zap.NewNop()}
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.StacktraceKey = "stacktrace"

	if os.Getenv("ENV") == "development" {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(level)
	}

	zapLogger, err := zapConfig.Build()
	if err != nil {
		zapLogger = zap.NewExample()
	}

	cores := []zapcore.Core{zapLogger.Core()}

	if fileCfg != nil && fileCfg.File != "" {
		cores = append(cores, newRotatingFileCore(fileCfg, zapConfig.EncoderConfig, level))
	}

	if cfg.Endpoint != "" {
		if otelCore := newOTLPCore(cfg, zapLogger); otelCore != nil {
			cores = append(cores, otelCore)
		}
	}

	if len(cores) > 1 {
		zapLogger = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	}

	return &Logger{Logger: zapLogger}
}

// newRotatingFileCore writes JSON lines into a lumberjack-managed file.
func newRotatingFileCore(fileCfg *config.LoggingConfig, encoderCfg zapcore.EncoderConfig, level zapcore.Level) zapcore.Core {
	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   fileCfg.File,
		MaxSize:    fileCfg.MaxSizeMB,
		MaxBackups: fileCfg.MaxBackups,
		MaxAge:     fileCfg.MaxAgeDays,
		Compress:   fileCfg.Compress,
	})
	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), writer, level)
}

func newOTLPCore(cfg *config.OpenTelemetryConfig, bootstrap *zap.Logger) zapcore.Core {
	ctx := context.Background()
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		bootstrap.Error("Failed to create otel resource", zap.Error(err))
		return nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.Endpoint), otlploggrpc.WithHeaders(cfg.Headers)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		bootstrap.Error("Failed to create OTLP log exporter", zap.Error(err), zap.String("endpoint", cfg.Endpoint))
		return nil
	}

	provider := log.NewLoggerProvider(
		log.WithProcessor(log.NewBatchProcessor(exporter)),
		log.WithResource(res),
	)
	bootstrap.Info("OTLP logging configured", zap.String("endpoint", cfg.Endpoint))
	return otelzap.NewCore("rpy", otelzap.WithLoggerProvider(provider))
}

// ParseLevel maps a config log level onto zap, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// Debug logs a debug message with context
func (l *Logger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.logWithContext(ctx, zap.DebugLevel, msg, fields...)
}

// Info logs an info message with context
func (l *Logger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.logWithContext(ctx, zap.InfoLevel, msg, fields...)
}

// Warn logs a warning message with context
func (l *Logger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.logWithContext(ctx, zap.WarnLevel, msg, fields...)
}

// Error logs an error message with context
func (l *Logger) Error(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	allFields := l.mergeFields(fields...)
	if err != nil {
		allFields["error"] = err.Error()
	}
	l.logWithContext(ctx, zap.ErrorLevel, msg, allFields)
}

// logWithContext logs a message with trace and request correlation
func (l *Logger) logWithContext(ctx context.Context, level zapcore.Level, msg string, fields ...map[string]interface{}) {
	allFields := l.mergeFields(fields...)

	if span := trace.SpanFromContext(ctx); span != nil {
		spanContext := span.SpanContext()
		if spanContext.IsValid() {
			allFields["trace_id"] = spanContext.TraceID().String()
			allFields["span_id"] = spanContext.SpanID().String()
		}
	}
	if requestID := contextutils.GetRequestIDFromContext(ctx); requestID != "" {
		allFields["request_id"] = requestID
	}

	zapFields := make([]zap.Field, 0, len(allFields))
	for k, v := range allFields {
		zapFields = append(zapFields, zap.Any(k, v))
	}

	switch level {
	case zap.DebugLevel:
		l.Logger.Debug(msg, zapFields...)
	case zap.WarnLevel:
		l.Logger.Warn(msg, zapFields...)
	case zap.ErrorLevel:
		l.Logger.Error(msg, zapFields...)
	default:
		l.Logger.Info(msg, zapFields...)
	}
}

// mergeFields merges multiple field maps into a fresh map
func (l *Logger) mergeFields(fields ...map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{})
	for _, fieldMap := range fields {
		for k, v := range fieldMap {
			merged[k] = v
		}
	}
	return merged
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.Logger.Sync()
}
