// Package di provides dependency injection container for managing service lifecycle and dependencies.
package di

import (
	"context"
	"database/sql"
	"sync"

	"github.com/rshatalov/rpy/internal/config"
	"github.com/rshatalov/rpy/internal/database"
	"github.com/rshatalov/rpy/internal/importer"
	"github.com/rshatalov/rpy/internal/observability"
	"github.com/rshatalov/rpy/internal/services"
	contextutils "github.com/rshatalov/rpy/internal/utils"
)

// Service names registered by initializeServices
const (
	ServiceStudy        = "study"
	ServiceQuestion     = "question"
	ServiceTag          = "tag"
	ServicePlanning     = "planning"
	ServiceTimeTracking = "time_tracking"
	ServiceInspection   = "inspection"
	ServiceImporter     = "importer"
)

// ServiceContainerInterface defines the interface for service containers
type ServiceContainerInterface interface {
	GetService(name string) (interface{}, error)
	GetStudyService() (services.StudyServiceInterface, error)
	GetQuestionService() (services.QuestionServiceInterface, error)
	GetTagService() (services.TagServiceInterface, error)
	GetPlanningService() (services.PlanningServiceInterface, error)
	GetTimeTrackingService() (services.TimeTrackingServiceInterface, error)
	GetInspectionService() (services.InspectionServiceInterface, error)
	GetImporter() (*importer.Importer, error)
	GetDatabase() *sql.DB
	GetDatabaseManager() *database.Manager
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg           *config.Config
	logger        *observability.Logger
	dbManager     *database.Manager
	db            *sql.DB
	services      map[string]interface{}
	mu            sync.RWMutex
	shutdownFuncs []func(context.Context) error
}

// NewServiceContainer creates a new dependency injection container
func NewServiceContainer(cfg *config.Config, logger *observability.Logger) *ServiceContainer {
	return &ServiceContainer{
		cfg:       cfg,
		logger:    logger,
		dbManager: database.NewManager(logger),
		services:  make(map[string]interface{}),
	}
}

// NewServiceContainerWithDB creates a container over an already opened database.
// Shutdown does not close db.
func NewServiceContainerWithDB(cfg *config.Config, logger *observability.Logger, db *sql.DB) *ServiceContainer {
	sc := NewServiceContainer(cfg, logger)
	sc.db = db
	sc.initializeServices()
	return sc
}

// Initialize opens the database, applies migrations and builds the services
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	db, err := sc.dbManager.InitDBWithConfig(sc.cfg.Database)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to initialize database")
	}
	sc.db = db
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		return db.Close()
	})

	sc.initializeServices()

	if err := sc.startupServices(ctx); err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapErrorf(err, "failed to startup services")
	}

	sc.logger.Info(ctx, "Service container initialized", map[string]interface{}{"services": len(sc.services)})
	return nil
}

// GetService retrieves a service by name with type assertion
func (sc *ServiceContainer) GetService(name string) (interface{}, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	service, exists := sc.services[name]
	if !exists {
		return nil, contextutils.ErrorWithContextf("service %s not found", name)
	}
	return service, nil
}

// GetServiceAs performs type-safe service retrieval
func GetServiceAs[T any](sc *ServiceContainer, name string) (T, error) {
	var zero T
	service, err := sc.GetService(name)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, contextutils.ErrorWithContextf("service %s is not of expected type %T", name, zero)
	}
	return typed, nil
}

// GetStudyService returns the study service
func (sc *ServiceContainer) GetStudyService() (services.StudyServiceInterface, error) {
	return GetServiceAs[services.StudyServiceInterface](sc, ServiceStudy)
}

// GetQuestionService returns the question service
func (sc *ServiceContainer) GetQuestionService() (services.QuestionServiceInterface, error) {
	return GetServiceAs[services.QuestionServiceInterface](sc, ServiceQuestion)
}

// GetTagService returns the tag service
func (sc *ServiceContainer) GetTagService() (services.TagServiceInterface, error) {
	return GetServiceAs[services.TagServiceInterface](sc, ServiceTag)
}

// GetPlanningService returns the planning service
func (sc *ServiceContainer) GetPlanningService() (services.PlanningServiceInterface, error) {
	return GetServiceAs[services.PlanningServiceInterface](sc, ServicePlanning)
}

// GetTimeTrackingService returns the time tracking service
func (sc *ServiceContainer) GetTimeTrackingService() (services.TimeTrackingServiceInterface, error) {
	return GetServiceAs[services.TimeTrackingServiceInterface](sc, ServiceTimeTracking)
}

// GetInspectionService returns the database inspection service
func (sc *ServiceContainer) GetInspectionService() (services.InspectionServiceInterface, error) {
	return GetServiceAs[services.InspectionServiceInterface](sc, ServiceInspection)
}

// GetImporter returns the question importer
func (sc *ServiceContainer) GetImporter() (*importer.Importer, error) {
	return GetServiceAs[*importer.Importer](sc, ServiceImporter)
}

// GetDatabase returns the database instance
func (sc *ServiceContainer) GetDatabase() *sql.DB {
	return sc.db
}

// GetDatabaseManager returns the manager used for migrations and resets
func (sc *ServiceContainer) GetDatabaseManager() *database.Manager {
	return sc.dbManager
}

// GetConfig returns the configuration
func (sc *ServiceContainer) GetConfig() *config.Config {
	return sc.cfg
}

// GetLogger returns the logger
func (sc *ServiceContainer) GetLogger() *observability.Logger {
	return sc.logger
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.cleanup(ctx)
}

// startupServices starts all services that implement Startup
func (sc *ServiceContainer) startupServices(ctx context.Context) error {
	for name, service := range sc.services {
		if lifecycleService, ok := service.(interface{ Startup(context.Context) error }); ok {
			sc.logger.Info(ctx, "Starting service", map[string]interface{}{"service": name})
			if err := lifecycleService.Startup(ctx); err != nil {
				return contextutils.WrapErrorf(err, "failed to startup service %s", name)
			}
		}
	}
	return nil
}

// cleanup handles shutdown of all services
func (sc *ServiceContainer) cleanup(ctx context.Context) error {
	var errors []error

	for name, service := range sc.services {
		if lifecycleService, ok := service.(interface{ Shutdown(context.Context) error }); ok {
			if err := lifecycleService.Shutdown(ctx); err != nil {
				sc.logger.Error(ctx, "Failed to shutdown service", err, map[string]interface{}{"service": name})
				errors = append(errors, contextutils.WrapErrorf(err, "service %s shutdown failed", name))
			}
		}
	}

	// Shutdown in reverse order of initialization
	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		if err := sc.shutdownFuncs[i](ctx); err != nil {
			errors = append(errors, err)
		}
	}
	sc.shutdownFuncs = nil

	if len(errors) > 0 {
		return contextutils.ErrorWithContextf("shutdown errors: %v", errors)
	}
	return nil
}

// initializeServices sets up all service dependencies
func (sc *ServiceContainer) initializeServices() {
	sc.services[ServiceStudy] = services.NewStudyService(sc.db, sc.cfg, sc.logger,
		services.WithStudyMetrics(observability.NewStudyMetrics()))

	questionService := services.NewQuestionServiceWithLogger(sc.db, sc.cfg, sc.logger)
	sc.services[ServiceQuestion] = questionService
	sc.services[ServiceImporter] = importer.NewImporter(questionService, sc.logger)

	sc.services[ServiceTag] = services.NewTagServiceWithLogger(sc.db, sc.logger)
	sc.services[ServicePlanning] = services.NewPlanningServiceWithLogger(sc.db, sc.logger)
	sc.services[ServiceTimeTracking] = services.NewTimeTrackingServiceWithLogger(sc.db, sc.logger)
	sc.services[ServiceInspection] = services.NewInspectionServiceWithLogger(sc.db, sc.logger)
}
