// Package main provides the HTTP server for study sessions, planning and time tracking.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rshatalov/rpy/internal/config"
	"github.com/rshatalov/rpy/internal/di"
	"github.com/rshatalov/rpy/internal/handlers"
	"github.com/rshatalov/rpy/internal/observability"
	contextutils "github.com/rshatalov/rpy/internal/utils"
	"github.com/rshatalov/rpy/internal/version"

	"github.com/gin-gonic/gin"
)

// Application encapsulates the main application logic and can be tested
type Application struct {
	container di.ServiceContainerInterface
	router    *gin.Engine
	server    *http.Server
}

// NewApplication creates a new application instance
func NewApplication(container di.ServiceContainerInterface, httpMetrics *observability.HTTPMetrics) (*Application, error) {
	var svc handlers.Services
	var err error

	if svc.Study, err = container.GetStudyService(); err != nil {
		return nil, contextutils.WrapError(err, "failed to get study service")
	}
	if svc.Questions, err = container.GetQuestionService(); err != nil {
		return nil, contextutils.WrapError(err, "failed to get question service")
	}
	if svc.Tags, err = container.GetTagService(); err != nil {
		return nil, contextutils.WrapError(err, "failed to get tag service")
	}
	if svc.Planning, err = container.GetPlanningService(); err != nil {
		return nil, contextutils.WrapError(err, "failed to get planning service")
	}
	if svc.TimeTracking, err = container.GetTimeTrackingService(); err != nil {
		return nil, contextutils.WrapError(err, "failed to get time tracking service")
	}
	if svc.Inspection, err = container.GetInspectionService(); err != nil {
		return nil, contextutils.WrapError(err, "failed to get inspection service")
	}

	router := handlers.NewRouter(container.GetConfig(), svc, httpMetrics, container.GetLogger())

	return &Application{
		container: container,
		router:    router,
	}, nil
}

// Run serves HTTP until ctx is cancelled or the listener fails
func (a *Application) Run(ctx context.Context, port string) error {
	a.server = &http.Server{
		Addr:              ":" + port,
		Handler:           a.router,
		ReadHeaderTimeout: config.DefaultHTTPTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverErr:
		return contextutils.WrapError(err, "server failed")
	}
}

// Shutdown drains in-flight requests and releases the container
func (a *Application) Shutdown(ctx context.Context) error {
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			return contextutils.WrapError(err, "http server shutdown failed")
		}
	}
	return a.container.Shutdown(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg.OpenTelemetry.ServiceVersion = version.Version

	tp, mp, logger, err := observability.SetupObservability(cfg, config.DefaultServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.DatabasePingTimeout)
		defer cancel()
		if sdkTP, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
			if err := sdkTP.Shutdown(shutdownCtx); err != nil {
				logger.Warn(shutdownCtx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error()})
			}
		}
		if mp != nil {
			if err := mp.Shutdown(shutdownCtx); err != nil {
				logger.Warn(shutdownCtx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error()})
			}
		}
		_ = logger.Sync()
	}()

	logger.Info(ctx, "Starting rpy backend", map[string]interface{}{
		"port":     cfg.Server.Port,
		"logLevel": cfg.Server.LogLevel,
		"version":  version.Version,
		"admin":    cfg.Server.EnableAdminRoutes,
	})

	container := di.NewServiceContainer(cfg, logger)
	if err := container.Initialize(ctx); err != nil {
		logger.Error(ctx, "Failed to initialize services", err)
		os.Exit(1)
	}

	app, err := NewApplication(container, observability.NewHTTPMetrics())
	if err != nil {
		logger.Error(ctx, "Failed to create application", err)
		os.Exit(1)
	}

	if err := app.Run(ctx, cfg.Server.Port); err != nil {
		logger.Error(ctx, "Application failed", err)
	} else {
		logger.Info(ctx, "Received shutdown signal, shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "Error during application shutdown", err)
		os.Exit(1)
	}

	logger.Info(shutdownCtx, "Shutdown completed successfully")
}
