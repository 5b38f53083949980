package di

import (
	"context"
	"testing"

	"github.com/rshatalov/rpy/internal/config"
	"github.com/rshatalov/rpy/internal/observability"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContainer(t *testing.T) (*ServiceContainer, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	return NewServiceContainerWithDB(config.Default(), logger, db), mock
}

func TestNewServiceContainerWithDB_RegistersServices(t *testing.T) {
	sc, _ := newTestContainer(t)

	study, err := sc.GetStudyService()
	require.NoError(t, err)
	assert.NotNil(t, study)

	question, err := sc.GetQuestionService()
	require.NoError(t, err)
	assert.NotNil(t, question)

	tag, err := sc.GetTagService()
	require.NoError(t, err)
	assert.NotNil(t, tag)

	planning, err := sc.GetPlanningService()
	require.NoError(t, err)
	assert.NotNil(t, planning)

	timeTracking, err := sc.GetTimeTrackingService()
	require.NoError(t, err)
	assert.NotNil(t, timeTracking)

	inspection, err := sc.GetInspectionService()
	require.NoError(t, err)
	assert.NotNil(t, inspection)

	imp, err := sc.GetImporter()
	require.NoError(t, err)
	assert.NotNil(t, imp)

	assert.NotNil(t, sc.GetDatabase())
	assert.NotNil(t, sc.GetDatabaseManager())
	assert.NotNil(t, sc.GetConfig())
}

func TestGetService_Unknown(t *testing.T) {
	sc, _ := newTestContainer(t)

	_, err := sc.GetService("story")
	assert.Error(t, err)
}

func TestGetServiceAs_WrongType(t *testing.T) {
	sc, _ := newTestContainer(t)

	_, err := GetServiceAs[string](sc, ServiceStudy)
	assert.Error(t, err)
}

func TestShutdown_DoesNotCloseInjectedDB(t *testing.T) {
	sc, mock := newTestContainer(t)

	require.NoError(t, sc.Shutdown(context.Background()))

	mock.ExpectPing()
	assert.NoError(t, sc.GetDatabase().PingContext(context.Background()))
}
