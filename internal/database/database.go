// Package database provides database connection, migration and transaction helpers.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/rshatalov/rpy/internal/config"
	"github.com/rshatalov/rpy/internal/observability"
	contextutils "github.com/rshatalov/rpy/internal/utils"

	// PostgreSQL driver for database/sql
	_ "github.com/lib/pq"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"go.nhat.io/otelsql"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// ApplicationTables lists every table owned by the application, children before parents.
var ApplicationTables = []string{
	"session_questions",
	"study_sessions",
	"question_tags",
	"questions",
	"tags",
	"timers",
	"times",
	"plan_notes",
	"act_notes",
	"tasks",
	"plans",
	"acts",
}

// IsApplicationTable reports whether name is one of ApplicationTables.
func IsApplicationTable(name string) bool {
	for _, t := range ApplicationTables {
		if t == name {
			return true
		}
	}
	return false
}

// Manager handles database operations with proper logging
type Manager struct {
	logger *observability.Logger
}

var (
	otelDriverNameCache string
	otelDriverOnce      sync.Once
	otelDriverErr       error
)

// NewManager creates a new database manager with the provided logger
func NewManager(logger *observability.Logger) *Manager {
	return &Manager{
		logger: logger,
	}
}

// DefaultDatabaseConfig returns the default pool configuration for url
func DefaultDatabaseConfig(databaseURL string) config.DatabaseConfig {
	return config.DatabaseConfig{
		URL:             databaseURL,
		MaxOpenConns:    config.DefaultMaxOpenConns,
		MaxIdleConns:    config.DefaultMaxIdleConns,
		ConnMaxLifetime: config.DatabaseConnMaxLifetime,
	}
}

// InitDB opens a connection with default pool settings and applies migrations
func (dm *Manager) InitDB(databaseURL string) (result0 *sql.DB, err error) {
	return dm.InitDBWithConfig(DefaultDatabaseConfig(databaseURL))
}

// InitDBWithConfig opens a connection and applies all pending migrations
func (dm *Manager) InitDBWithConfig(cfg config.DatabaseConfig) (result0 *sql.DB, err error) {
	ctx, span := observability.TraceDatabaseFunction(context.Background(), "InitDBWithConfig",
		attribute.String("db.name", extractDatabaseName(cfg.URL)),
		attribute.String("db.system", "postgresql"),
		attribute.Bool("migrations.enabled", true),
		attribute.Int("db.max_open_conns", cfg.MaxOpenConns),
		attribute.Int("db.max_idle_conns", cfg.MaxIdleConns),
		attribute.String("db.conn_max_lifetime", cfg.ConnMaxLifetime.String()),
	)
	defer observability.FinishSpan(span, &err)

	db, err := dm.InitDBWithoutMigrations(cfg)
	if err != nil {
		return nil, err
	}

	if err := dm.RunMigrations(ctx, db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			dm.logger.Error(ctx, "Failed to close database connection after migration failure", closeErr)
		}
		return nil, err
	}

	return db, nil
}

// extractDatabaseName extracts the database name from a PostgreSQL connection string
func extractDatabaseName(databaseURL string) string {
	if u, err := url.Parse(databaseURL); err == nil && u.Path != "" {
		if dbName := strings.TrimPrefix(u.Path, "/"); dbName != "" {
			return dbName
		}
	}

	// key=value DSN form: "host=localhost dbname=rpy sslmode=disable"
	for _, part := range strings.Fields(databaseURL) {
		if strings.HasPrefix(part, "dbname=") {
			return strings.TrimPrefix(part, "dbname=")
		}
	}

	return "rpy"
}

// InitDBWithoutMigrations opens an otelsql-instrumented connection pool and pings it
func (dm *Manager) InitDBWithoutMigrations(cfg config.DatabaseConfig) (result0 *sql.DB, err error) {
	ctx, span := observability.TraceDatabaseFunction(context.Background(), "InitDBWithoutMigrations",
		attribute.String("db.name", extractDatabaseName(cfg.URL)),
	)
	defer observability.FinishSpan(span, &err)

	if cfg.URL == "" {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeDatabaseConnection, contextutils.SeverityError,
			"database url is empty", "set database.url or DATABASE_URL")
	}

	// The instrumented driver can only be registered once per process.
	otelDriverOnce.Do(func() {
		otelDriverNameCache, otelDriverErr = otelsql.Register("postgres",
			otelsql.WithDatabaseName(extractDatabaseName(cfg.URL)),
			otelsql.TraceQueryWithArgs(),
			otelsql.WithSystem(semconv.DBSystemPostgreSQL),
			otelsql.TraceRowsAffected(),
		)
	})
	if otelDriverErr != nil {
		return nil, contextutils.WrapError(otelDriverErr, "failed to register otelsql driver")
	}

	db, err := sql.Open(otelDriverNameCache, cfg.URL)
	if err != nil {
		return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeDatabaseConnection, contextutils.SeverityError,
			"failed to open database connection", err.Error(), err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, config.DatabasePingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			dm.logger.Error(ctx, "Failed to close database connection after ping failure", closeErr)
		}
		return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeDatabaseConnection, contextutils.SeverityError,
			"failed to ping database", err.Error(), err)
	}

	dm.logger.Info(ctx, "Database connection established", map[string]interface{}{
		"database":          extractDatabaseName(cfg.URL),
		"max_open_conns":    cfg.MaxOpenConns,
		"max_idle_conns":    cfg.MaxIdleConns,
		"conn_max_lifetime": cfg.ConnMaxLifetime.String(),
	})

	return db, nil
}

func (dm *Manager) newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to open embedded migrations")
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to initialize migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to initialize golang-migrate")
	}
	return m, nil
}

// RunMigrations applies every embedded migration that has not run yet
func (dm *Manager) RunMigrations(ctx context.Context, db *sql.DB) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "RunMigrations",
		attribute.String("db.system", "postgresql"),
		attribute.String("migration.type", "golang_migrate"),
	)
	defer observability.FinishSpan(span, &err)

	m, err := dm.newMigrator(db)
	if err != nil {
		return err
	}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		dm.logger.Info(ctx, "No new migrations to apply")
		err = nil
	} else if err != nil {
		return contextutils.WrapError(err, "golang-migrate up failed")
	} else {
		dm.logger.Info(ctx, "Migrations applied successfully")
	}

	if version, dirty, verr := m.Version(); verr == nil {
		span.SetAttributes(attribute.Int("migration.version", int(version)), attribute.Bool("migration.dirty", dirty))
	}
	return nil
}

// MigrationVersion reports the applied schema version
func (dm *Manager) MigrationVersion(db *sql.DB) (version uint, dirty bool, err error) {
	m, err := dm.newMigrator(db)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// ResetDatabase empties every application table and restarts their id sequences
func (dm *Manager) ResetDatabase(ctx context.Context, db *sql.DB) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "ResetDatabase")
	defer observability.FinishSpan(span, &err)

	query := "TRUNCATE TABLE " + strings.Join(ApplicationTables, ", ") + " RESTART IDENTITY CASCADE"
	if _, err = db.ExecContext(ctx, query); err != nil {
		return contextutils.WrapError(err, "failed to truncate application tables")
	}
	dm.logger.Warn(ctx, "Database reset", map[string]interface{}{"tables": len(ApplicationTables)})
	return nil
}
