// Package commands provides CLI commands for the admin tool
package commands

import (
	"database/sql"
	"sync"

	"github.com/rshatalov/rpy/internal/config"
	"github.com/rshatalov/rpy/internal/database"
	"github.com/rshatalov/rpy/internal/di"
	"github.com/rshatalov/rpy/internal/observability"
	contextutils "github.com/rshatalov/rpy/internal/utils"
)

// Runtime holds what the commands share. The database is opened on first use
// so that commands like version work without one.
type Runtime struct {
	Config    *config.Config
	Logger    *observability.Logger
	DBManager *database.Manager

	mu        sync.Mutex
	openDB    func() (*sql.DB, error)
	ownsDB    bool
	db        *sql.DB
	container *di.ServiceContainer
}

// NewRuntime connects lazily to cfg.Database without applying migrations
func NewRuntime(cfg *config.Config, logger *observability.Logger) *Runtime {
	manager := database.NewManager(logger)
	return &Runtime{
		Config:    cfg,
		Logger:    logger,
		DBManager: manager,
		ownsDB:    true,
		openDB: func() (*sql.DB, error) {
			return manager.InitDBWithoutMigrations(cfg.Database)
		},
	}
}

// NewRuntimeWithDB uses an already opened database that Close leaves open
func NewRuntimeWithDB(cfg *config.Config, logger *observability.Logger, db *sql.DB) *Runtime {
	return &Runtime{
		Config:    cfg,
		Logger:    logger,
		DBManager: database.NewManager(logger),
		openDB:    func() (*sql.DB, error) { return db, nil },
	}
}

// DB returns the shared connection, opening it if needed
func (r *Runtime) DB() (*sql.DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db != nil {
		return r.db, nil
	}
	db, err := r.openDB()
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to connect to %s", contextutils.MaskDatabaseURL(r.Config.Database.URL))
	}
	r.db = db
	return db, nil
}

// Container returns services bound to the shared connection
func (r *Runtime) Container() (*di.ServiceContainer, error) {
	db, err := r.DB()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.container == nil {
		r.container = di.NewServiceContainerWithDB(r.Config, r.Logger, db)
	}
	return r.container, nil
}

// Close releases the connection when the runtime opened it
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db == nil || !r.ownsDB {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	r.container = nil
	return err
}
