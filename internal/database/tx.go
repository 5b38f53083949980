package database

import (
	"context"
	"database/sql"

	"github.com/rshatalov/rpy/internal/observability"
	contextutils "github.com/rshatalov/rpy/internal/utils"
)

// Querier is the subset of *sql.DB and *sql.Tx used by the services.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// WithTx runs fn inside a transaction. The transaction commits when fn returns nil and
// rolls back when fn returns an error or panics; a panic is re-raised after rollback.
func WithTx(ctx context.Context, db *sql.DB, logger *observability.Logger, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return contextutils.ErrDatabaseTransaction.With("failed to begin transaction: "+err.Error(), err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil && logger != nil {
				logger.Warn(ctx, "Failed to rollback transaction after panic", map[string]interface{}{"error": rbErr.Error()})
			}
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone && logger != nil {
				logger.Warn(ctx, "Failed to rollback transaction", map[string]interface{}{"error": rbErr.Error()})
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return contextutils.ErrDatabaseTransaction.With("failed to commit transaction: "+err.Error(), err)
	}
	return nil
}
