package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/rshatalov/rpy/internal/config"
	"github.com/rshatalov/rpy/internal/database"
	"github.com/rshatalov/rpy/internal/models"
	"github.com/rshatalov/rpy/internal/observability"
	contextutils "github.com/rshatalov/rpy/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// MaxPeekRows caps the rows returned by PeekTable
const MaxPeekRows = 100

// InspectionServiceInterface defines read-only database inspection
type InspectionServiceInterface interface {
	ListTables(ctx context.Context) ([]models.TableInfo, error)
	PeekTable(ctx context.Context, table string, limit int) ([]map[string]interface{}, error)
}

// InspectionService reports on the application tables
type InspectionService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewInspectionServiceWithLogger creates a new inspection service
func NewInspectionServiceWithLogger(db *sql.DB, logger *observability.Logger) *InspectionService {
	return &InspectionService{db: db, logger: logger}
}

// ListTables returns every application table with its row count
func (s *InspectionService) ListTables(ctx context.Context) (result []models.TableInfo, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "list_tables")
	defer observability.FinishSpan(span, &err)

	result = make([]models.TableInfo, 0, len(database.ApplicationTables))
	for _, table := range database.ApplicationTables {
		info := models.TableInfo{Name: table}
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, pq.QuoteIdentifier(table))
		if err := s.db.QueryRowContext(ctx, query).Scan(&info.RowCount); err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to count rows of %s", table)
		}
		result = append(result, info)
	}
	return result, nil
}

// PeekTable returns up to limit rows of an application table as column/value maps
func (s *InspectionService) PeekTable(ctx context.Context, table string, limit int) (result []map[string]interface{}, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "peek_table", attribute.String("db.table", table), attribute.Int("limit", limit))
	defer observability.FinishSpan(span, &err)

	if !database.IsApplicationTable(table) {
		return nil, contextutils.NewInvalidInputf("unknown table %q", table)
	}
	if limit <= 0 {
		limit = config.DefaultPageSize
	}
	if limit > MaxPeekRows {
		return nil, contextutils.NewInvalidInputf("limit %d exceeds %d", limit, MaxPeekRows)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %s LIMIT $1`, pq.QuoteIdentifier(table)), limit)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to read %s", table)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to read columns")
	}

	result = []map[string]interface{}{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan row")
		}
		row := make(map[string]interface{}, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
			} else {
				row[column] = values[i]
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate rows")
	}
	return result, nil
}
