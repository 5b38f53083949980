package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/rshatalov/rpy/internal/models"
	contextutils "github.com/rshatalov/rpy/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sessionQuestionCols = []string{"id", "session_id", "question_id", "times_shown", "last_shown", "status", "created_at"}
	studySessionCols    = []string{"id", "name", "description", "start_date", "end_date", "is_active", "created_at"}
	questionCols        = []string{"id", "q", "a", "difficulty", "created_at"}
)

func newMockStore(t *testing.T) (*PostgresStudyStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		mock.ExpectClose()
		require.NoError(t, db.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})
	return NewPostgresStudyStore(db, testLogger()), mock
}

func TestPostgresStudyStore_NoDatabase(t *testing.T) {
	store := NewPostgresStudyStore(nil, testLogger())
	err := store.WithTx(context.Background(), func(context.Context, StudyRepository) error { return nil })
	assert.True(t, errors.Is(err, contextutils.ErrDatabaseConnection))
}

func TestPostgresStudyRepository_GetSessionQuestion(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM session_questions\s+WHERE session_id = \$1 AND question_id = \$2\s+FOR UPDATE`).
		WithArgs(3, 4).
		WillReturnRows(sqlmock.NewRows(sessionQuestionCols).AddRow(10, 3, 4, 2, now, "medium", now))
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(3, 5).
		WillReturnRows(sqlmock.NewRows(sessionQuestionCols))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(ctx context.Context, repo StudyRepository) error {
		sq, err := repo.GetSessionQuestion(ctx, 3, 4)
		require.NoError(t, err)
		require.NotNil(t, sq)
		assert.Equal(t, 10, sq.ID)
		assert.Equal(t, 2, sq.TimesShown)
		assert.Equal(t, models.StatusMedium, sq.Status)
		assert.Equal(t, now, *sq.LastShown)

		missing, err := repo.GetSessionQuestion(ctx, 3, 5)
		require.NoError(t, err)
		assert.Nil(t, missing)
		return nil
	})
	require.NoError(t, err)
}

func TestPostgresStudyRepository_CreateSessionQuestion(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO session_questions .+ ON CONFLICT \(session_id, question_id\) DO NOTHING`).
		WithArgs(1, 2, 1, now, "pending").
		WillReturnRows(sqlmock.NewRows(sessionQuestionCols).AddRow(7, 1, 2, 1, now, "pending", now))
	mock.ExpectQuery(`INSERT INTO session_questions`).
		WithArgs(1, 2, 1, now, "pending").
		WillReturnRows(sqlmock.NewRows(sessionQuestionCols))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(ctx context.Context, repo StudyRepository) error {
		created, err := repo.CreateSessionQuestion(ctx, 1, 2, 1, now, models.StatusPending)
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, 7, created.ID)

		conflict, err := repo.CreateSessionQuestion(ctx, 1, 2, 1, now, models.StatusPending)
		require.NoError(t, err)
		assert.Nil(t, conflict)
		return nil
	})
	require.NoError(t, err)
}

func TestPostgresStudyRepository_UpdateSessionQuestion(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	times := 3
	status := models.StatusHard

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE session_questions\s+SET times_shown = COALESCE`).
		WithArgs(7, times, now, nil).
		WillReturnRows(sqlmock.NewRows(sessionQuestionCols).AddRow(7, 1, 2, 3, now, "pending", now))
	mock.ExpectQuery(`UPDATE session_questions`).
		WithArgs(7, nil, nil, "hard").
		WillReturnRows(sqlmock.NewRows(sessionQuestionCols).AddRow(7, 1, 2, 3, now, "hard", now))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(ctx context.Context, repo StudyRepository) error {
		updated, err := repo.UpdateSessionQuestion(ctx, 7, models.SessionQuestionUpdate{TimesShown: &times, LastShown: &now})
		require.NoError(t, err)
		assert.Equal(t, 3, updated.TimesShown)

		updated, err = repo.UpdateSessionQuestion(ctx, 7, models.SessionQuestionUpdate{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, models.StatusHard, updated.Status)
		return nil
	})
	require.NoError(t, err)
}

func TestPostgresStudyRepository_CheckViolationRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	status := models.SessionQuestionStatus("bogus")

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE session_questions`).
		WillReturnError(&pq.Error{Code: "23514", Message: "violates check constraint"})
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(ctx context.Context, repo StudyRepository) error {
		_, err := repo.UpdateSessionQuestion(ctx, 7, models.SessionQuestionUpdate{Status: &status})
		return err
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, contextutils.ErrInvalidInput))
}

func TestPostgresStudyRepository_ListQuestionsExcluding(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, q, a, difficulty, created_at FROM questions WHERE NOT \(id = ANY\(\$1\)\) ORDER BY id`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(questionCols).
			AddRow(1, "What is a goroutine?", "A lightweight thread", "easy", now).
			AddRow(3, "What is a channel?", "A typed conduit", nil, now))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(ctx context.Context, repo StudyRepository) error {
		questions, err := repo.ListQuestionsExcluding(ctx, []int{2})
		require.NoError(t, err)
		require.Len(t, questions, 2)
		assert.Equal(t, "easy", *questions[0].Difficulty)
		assert.Nil(t, questions[1].Difficulty)
		assert.Empty(t, questions[1].Tags)
		return nil
	})
	require.NoError(t, err)
}

func TestPostgresStudyRepository_GetQuestionByIDLoadsTags(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, q, a, difficulty, created_at FROM questions WHERE id = \$1`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(questionCols).AddRow(5, "q", "a", nil, now))
	mock.ExpectQuery(`FROM question_tags qt\s+JOIN tags t`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"question_id", "slug", "title"}).
			AddRow(5, "go", "Go").
			AddRow(5, "sql", "SQL"))
	mock.ExpectQuery(`FROM questions WHERE id = \$1`).
		WithArgs(6).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(ctx context.Context, repo StudyRepository) error {
		q, err := repo.GetQuestionByID(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, []string{"go", "sql"}, q.TagSlugs())

		missing, err := repo.GetQuestionByID(ctx, 6)
		require.NoError(t, err)
		assert.Nil(t, missing)
		return nil
	})
	require.NoError(t, err)
}

func TestPostgresStudyRepository_Sessions(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO study_sessions`).
		WithArgs("evening", nil, now).
		WillReturnRows(sqlmock.NewRows(studySessionCols).AddRow(1, "evening", nil, now, nil, true, now))
	mock.ExpectQuery(`UPDATE study_sessions\s+SET end_date = COALESCE\(end_date, \$2\), is_active = FALSE`).
		WithArgs(1, now).
		WillReturnRows(sqlmock.NewRows(studySessionCols).AddRow(1, "evening", nil, now, now, false, now))
	mock.ExpectQuery(`FROM study_sessions\s+WHERE \(\$1::BOOLEAN = FALSE OR is_active\)\s+ORDER BY start_date DESC, id DESC`).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows(studySessionCols))
	mock.ExpectExec(`DELETE FROM session_questions WHERE session_id = \$1`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(`DELETE FROM study_sessions WHERE id = \$1`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(ctx context.Context, repo StudyRepository) error {
		created, err := repo.CreateSession(ctx, models.SessionInput{Name: "evening"}, now)
		require.NoError(t, err)
		assert.True(t, created.IsActive)
		assert.Nil(t, created.Description)

		ended, err := repo.EndSession(ctx, 1, now)
		require.NoError(t, err)
		assert.False(t, ended.IsActive)
		assert.Equal(t, now, *ended.EndTime)

		active, err := repo.ListSessions(ctx, true)
		require.NoError(t, err)
		assert.Empty(t, active)

		deleted, err := repo.DeleteSession(ctx, 1)
		require.NoError(t, err)
		assert.True(t, deleted)
		return nil
	})
	require.NoError(t, err)
}

func TestPostgresStudyRepository_ListMasteredQuestionIDs(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT question_id\s+FROM session_questions\s+WHERE session_id = \$1 AND status = \$2`).
		WithArgs(9, "easy").
		WillReturnRows(sqlmock.NewRows([]string{"question_id"}).AddRow(2).AddRow(5))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(ctx context.Context, repo StudyRepository) error {
		ids, err := repo.ListMasteredQuestionIDs(ctx, 9)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 5}, ids)
		return nil
	})
	require.NoError(t, err)
}

func TestStudyService_SelectNextOnPostgres(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC)
	service := NewStudyServiceWithStore(store, testLogger(), WithClock(func() time.Time { return now }))

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM study_sessions WHERE id = \$1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(studySessionCols).AddRow(1, "s", nil, now, nil, true, now))
	mock.ExpectQuery(`SELECT question_id\s+FROM session_questions`).
		WithArgs(1, "easy").
		WillReturnRows(sqlmock.NewRows([]string{"question_id"}))
	mock.ExpectQuery(`FROM questions WHERE NOT`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(questionCols).AddRow(4, "q", "a", nil, now))
	mock.ExpectQuery(`FROM questions WHERE id = \$1`).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows(questionCols).AddRow(4, "q", "a", nil, now))
	mock.ExpectQuery(`FROM question_tags`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"question_id", "slug", "title"}))
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(1, 4).
		WillReturnRows(sqlmock.NewRows(sessionQuestionCols).AddRow(8, 1, 4, 1, now.Add(-time.Hour), "hard", now))
	mock.ExpectQuery(`UPDATE session_questions`).
		WithArgs(8, 2, now, nil).
		WillReturnRows(sqlmock.NewRows(sessionQuestionCols).AddRow(8, 1, 4, 2, now, "hard", now))
	mock.ExpectCommit()

	result, err := service.SelectNext(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, result.HasQuestion())
	assert.Equal(t, 4, result.Question.ID)
	assert.Equal(t, 2, result.TimesShown)
	assert.Equal(t, models.StatusHard, result.QuestionStatus)
}

func TestStudyService_SelectNextRollsBackOnStoreError(t *testing.T) {
	store, mock := newMockStore(t)
	service := NewStudyServiceWithStore(store, testLogger())

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM study_sessions WHERE id = \$1`).
		WithArgs(1).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := service.SelectNext(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeInternalError, contextutils.GetErrorCode(err))
}
