package observability

import (
	"context"
	"os"

	"github.com/rshatalov/rpy/internal/config"

	autosdk "go.opentelemetry.io/auto/sdk"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

// SetupObservability initializes tracing, metrics, and logging for a service
func SetupObservability(cfg *config.Config, serviceName string) (result0 trace.TracerProvider, result1 *metric.MeterProvider, result2 *Logger, err error) {
	otelCfg := &cfg.OpenTelemetry
	if serviceName != "" {
		otelCfg.ServiceName = serviceName
	}

	var tp trace.TracerProvider
	var mp *metric.MeterProvider

	if err := os.Setenv("OTEL_SERVICE_NAME", otelCfg.ServiceName); err != nil {
		return nil, nil, nil, err
	}
	if err := os.Setenv("OTEL_SERVICE_VERSION", otelCfg.ServiceVersion); err != nil {
		return nil, nil, nil, err
	}

	logger := NewLoggerWithOptions(otelCfg, ParseLevel(cfg.Server.LogLevel), &cfg.Logging)

	if otelCfg.EnableTracing {
		if otelCfg.UseAutoSDK {
			tp = autosdk.TracerProvider()
			logger.Info(context.Background(), "Tracing enabled with Auto SDK", map[string]interface{}{"service_name": otelCfg.ServiceName})
		} else {
			sdkTP, err := InitStandardTracing(otelCfg)
			if err != nil {
				return nil, nil, logger, err
			}
			tp = sdkTP
			logger.Info(context.Background(), "Tracing enabled with standard SDK", map[string]interface{}{"service_name": otelCfg.ServiceName})
		}
		otel.SetTracerProvider(tp)
		InitTracing()
		InitGlobalTracer()
	}

	if otelCfg.EnableMetrics {
		mp, err = InitMetrics(otelCfg)
		if err != nil {
			return tp, nil, logger, err
		}
		otel.SetMeterProvider(mp)
	}

	return tp, mp, logger, nil
}
