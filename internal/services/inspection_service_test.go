package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rshatalov/rpy/internal/config"
	"github.com/rshatalov/rpy/internal/database"
	contextutils "github.com/rshatalov/rpy/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectionService_ListTables(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewInspectionServiceWithLogger(db, testLogger())

	for i, table := range database.ApplicationTables {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "` + table + `"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(i))
	}

	tables, err := service.ListTables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, len(database.ApplicationTables))
	assert.Equal(t, "session_questions", tables[0].Name)
	assert.Equal(t, int64(0), tables[0].RowCount)
	assert.Equal(t, int64(len(database.ApplicationTables)-1), tables[len(tables)-1].RowCount)
}

func TestInspectionService_PeekTable(t *testing.T) {
	t.Run("rows as maps", func(t *testing.T) {
		db, mock := newMockDB(t)
		service := NewInspectionServiceWithLogger(db, testLogger())

		mock.ExpectQuery(`SELECT \* FROM "tags" LIMIT \$1`).
			WithArgs(5).
			WillReturnRows(sqlmock.NewRows([]string{"slug", "title"}).
				AddRow([]byte("go"), "Go").
				AddRow("sql", nil))

		rows, err := service.PeekTable(context.Background(), "tags", 5)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "go", rows[0]["slug"])
		assert.Equal(t, "Go", rows[0]["title"])
		assert.Nil(t, rows[1]["title"])
	})

	t.Run("default limit", func(t *testing.T) {
		db, mock := newMockDB(t)
		service := NewInspectionServiceWithLogger(db, testLogger())

		mock.ExpectQuery(`SELECT \* FROM "acts" LIMIT \$1`).
			WithArgs(config.DefaultPageSize).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		rows, err := service.PeekTable(context.Background(), "acts", 0)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("unknown table", func(t *testing.T) {
		db, _ := newMockDB(t)
		service := NewInspectionServiceWithLogger(db, testLogger())

		_, err := service.PeekTable(context.Background(), "pg_authid", 5)
		assert.True(t, errors.Is(err, contextutils.ErrInvalidInput))
	})

	t.Run("limit too large", func(t *testing.T) {
		db, _ := newMockDB(t)
		service := NewInspectionServiceWithLogger(db, testLogger())

		_, err := service.PeekTable(context.Background(), "tags", MaxPeekRows+1)
		assert.True(t, errors.Is(err, contextutils.ErrInvalidInput))
	})
}
