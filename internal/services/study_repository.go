package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/rshatalov/rpy/internal/database"
	"github.com/rshatalov/rpy/internal/models"
	"github.com/rshatalov/rpy/internal/observability"
	contextutils "github.com/rshatalov/rpy/internal/utils"
)

// StudyRepository is the transaction-scoped view of questions, sessions and session progress.
// Lookups return nil without an error when the row does not exist.
type StudyRepository interface {
	// ListQuestionsExcluding returns every question whose id is not in excludedIDs, ordered by id.
	// Tags are not loaded.
	ListQuestionsExcluding(ctx context.Context, excludedIDs []int) ([]models.Question, error)
	GetQuestionByID(ctx context.Context, id int) (*models.Question, error)

	GetSession(ctx context.Context, id int) (*models.StudySession, error)
	CreateSession(ctx context.Context, input models.SessionInput, now time.Time) (*models.StudySession, error)
	// EndSession marks the session inactive; an existing end time is kept.
	EndSession(ctx context.Context, id int, now time.Time) (*models.StudySession, error)
	ListSessions(ctx context.Context, activeOnly bool) ([]models.StudySession, error)
	// DeleteSession removes the session and its progress rows, reporting whether it existed.
	DeleteSession(ctx context.Context, id int) (bool, error)

	// GetSessionQuestion locks the row until the surrounding transaction ends.
	GetSessionQuestion(ctx context.Context, sessionID, questionID int) (*models.SessionQuestion, error)
	// CreateSessionQuestion returns nil when the pair already exists.
	CreateSessionQuestion(ctx context.Context, sessionID, questionID, timesShown int, lastShown time.Time, status models.SessionQuestionStatus) (*models.SessionQuestion, error)
	UpdateSessionQuestion(ctx context.Context, id int, update models.SessionQuestionUpdate) (*models.SessionQuestion, error)
	ListSessionQuestions(ctx context.Context, sessionID int) ([]models.SessionQuestion, error)
	ListMasteredQuestionIDs(ctx context.Context, sessionID int) ([]int, error)
}

// StudyStore hands out a StudyRepository bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type StudyStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repo StudyRepository) error) error
}

// PostgresStudyStore implements StudyStore on top of *sql.DB
type PostgresStudyStore struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewPostgresStudyStore creates a store backed by db
func NewPostgresStudyStore(db *sql.DB, logger *observability.Logger) *PostgresStudyStore {
	return &PostgresStudyStore{db: db, logger: logger}
}

// WithTx implements StudyStore
func (s *PostgresStudyStore) WithTx(ctx context.Context, fn func(ctx context.Context, repo StudyRepository) error) error {
	if s.db == nil {
		return contextutils.ErrDatabaseConnection
	}
	return database.WithTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		return fn(ctx, &postgresStudyRepository{q: tx})
	})
}

type postgresStudyRepository struct {
	q database.Querier
}

const (
	questionColumns        = `id, q, a, difficulty, created_at`
	studySessionColumns    = `id, name, description, start_date, end_date, is_active, created_at`
	sessionQuestionColumns = `id, session_id, question_id, times_shown, last_shown, status, created_at`
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuestion(row rowScanner) (*models.Question, error) {
	var q models.Question
	var difficulty sql.NullString
	if err := row.Scan(&q.ID, &q.QuestionText, &q.AnswerText, &difficulty, &q.CreatedAt); err != nil {
		return nil, err
	}
	q.Difficulty = models.NullString(difficulty)
	q.Tags = []models.Tag{}
	return &q, nil
}

func scanStudySession(row rowScanner) (*models.StudySession, error) {
	var s models.StudySession
	var description sql.NullString
	var endTime sql.NullTime
	if err := row.Scan(&s.ID, &s.Name, &description, &s.StartTime, &endTime, &s.IsActive, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.Description = models.NullString(description)
	s.EndTime = models.NullTime(endTime)
	return &s, nil
}

func scanSessionQuestion(row rowScanner) (*models.SessionQuestion, error) {
	var sq models.SessionQuestion
	var lastShown sql.NullTime
	var status string
	if err := row.Scan(&sq.ID, &sq.SessionID, &sq.QuestionID, &sq.TimesShown, &lastShown, &status, &sq.CreatedAt); err != nil {
		return nil, err
	}
	sq.LastShown = models.NullTime(lastShown)
	sq.Status = models.SessionQuestionStatus(status)
	return &sq, nil
}

// noRows converts sql.ErrNoRows into a nil result
func noRows[T any](v *T, err error) (*T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

func intsToInt64s(ids []int) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

func (r *postgresStudyRepository) ListQuestionsExcluding(ctx context.Context, excludedIDs []int) (result []models.Question, err error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE NOT (id = ANY($1)) ORDER BY id`,
		pq.Array(intsToInt64s(excludedIDs)))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list eligible questions")
	}
	defer func() { _ = rows.Close() }()

	result = []models.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan question")
		}
		result = append(result, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate questions")
	}
	return result, nil
}

func (r *postgresStudyRepository) GetQuestionByID(ctx context.Context, id int) (*models.Question, error) {
	q, err := noRows(scanQuestion(r.q.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)))
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to get question %d", id)
	}
	if q == nil {
		return nil, nil
	}
	tags, err := loadQuestionTags(ctx, r.q, []int{id})
	if err != nil {
		return nil, err
	}
	q.Tags = tags[id]
	return q, nil
}

// loadQuestionTags returns the tags of each question sorted by slug
func loadQuestionTags(ctx context.Context, q database.Querier, questionIDs []int) (map[int][]models.Tag, error) {
	result := make(map[int][]models.Tag, len(questionIDs))
	for _, id := range questionIDs {
		result[id] = []models.Tag{}
	}
	if len(questionIDs) == 0 {
		return result, nil
	}

	rows, err := q.QueryContext(ctx, `
		SELECT qt.question_id, t.slug, t.title
		FROM question_tags qt
		JOIN tags t ON t.slug = qt.tag_slug
		WHERE qt.question_id = ANY($1)
		ORDER BY qt.question_id, t.slug`, pq.Array(intsToInt64s(questionIDs)))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load question tags")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var questionID int
		var tag models.Tag
		if err := rows.Scan(&questionID, &tag.Slug, &tag.Title); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan question tag")
		}
		result[questionID] = append(result[questionID], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate question tags")
	}
	return result, nil
}

func (r *postgresStudyRepository) GetSession(ctx context.Context, id int) (*models.StudySession, error) {
	s, err := noRows(scanStudySession(r.q.QueryRowContext(ctx, `SELECT `+studySessionColumns+` FROM study_sessions WHERE id = $1`, id)))
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to get study session %d", id)
	}
	return s, nil
}

func (r *postgresStudyRepository) CreateSession(ctx context.Context, input models.SessionInput, now time.Time) (*models.StudySession, error) {
	s, err := scanStudySession(r.q.QueryRowContext(ctx, `
		INSERT INTO study_sessions (name, description, start_date, is_active, created_at)
		VALUES ($1, $2, $3, TRUE, $3)
		RETURNING `+studySessionColumns, input.Name, input.Description, now))
	if err != nil {
		return nil, contextutils.FromDatabaseError(err, "failed to create study session")
	}
	return s, nil
}

func (r *postgresStudyRepository) EndSession(ctx context.Context, id int, now time.Time) (*models.StudySession, error) {
	s, err := noRows(scanStudySession(r.q.QueryRowContext(ctx, `
		UPDATE study_sessions
		SET end_date = COALESCE(end_date, $2), is_active = FALSE
		WHERE id = $1
		RETURNING `+studySessionColumns, id, now)))
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to end study session %d", id)
	}
	return s, nil
}

func (r *postgresStudyRepository) ListSessions(ctx context.Context, activeOnly bool) (result []models.StudySession, err error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+studySessionColumns+`
		FROM study_sessions
		WHERE ($1::BOOLEAN = FALSE OR is_active)
		ORDER BY start_date DESC, id DESC`, activeOnly)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list study sessions")
	}
	defer func() { _ = rows.Close() }()

	result = []models.StudySession{}
	for rows.Next() {
		s, err := scanStudySession(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan study session")
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate study sessions")
	}
	return result, nil
}

func (r *postgresStudyRepository) DeleteSession(ctx context.Context, id int) (bool, error) {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM session_questions WHERE session_id = $1`, id); err != nil {
		return false, contextutils.WrapErrorf(err, "failed to delete progress of study session %d", id)
	}
	res, err := r.q.ExecContext(ctx, `DELETE FROM study_sessions WHERE id = $1`, id)
	if err != nil {
		return false, contextutils.WrapErrorf(err, "failed to delete study session %d", id)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, contextutils.WrapError(err, "failed to read affected rows")
	}
	return affected > 0, nil
}

func (r *postgresStudyRepository) GetSessionQuestion(ctx context.Context, sessionID, questionID int) (*models.SessionQuestion, error) {
	sq, err := noRows(scanSessionQuestion(r.q.QueryRowContext(ctx, `
		SELECT `+sessionQuestionColumns+`
		FROM session_questions
		WHERE session_id = $1 AND question_id = $2
		FOR UPDATE`, sessionID, questionID)))
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to get progress of question %d in session %d", questionID, sessionID)
	}
	return sq, nil
}

func (r *postgresStudyRepository) CreateSessionQuestion(ctx context.Context, sessionID, questionID, timesShown int, lastShown time.Time, status models.SessionQuestionStatus) (*models.SessionQuestion, error) {
	sq, err := noRows(scanSessionQuestion(r.q.QueryRowContext(ctx, `
		INSERT INTO session_questions (session_id, question_id, times_shown, last_shown, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $4)
		ON CONFLICT (session_id, question_id) DO NOTHING
		RETURNING `+sessionQuestionColumns, sessionID, questionID, timesShown, lastShown, string(status))))
	if err != nil {
		return nil, contextutils.FromDatabaseError(err, "failed to create session question")
	}
	return sq, nil
}

func (r *postgresStudyRepository) UpdateSessionQuestion(ctx context.Context, id int, update models.SessionQuestionUpdate) (*models.SessionQuestion, error) {
	var timesShown, lastShown, status interface{}
	if update.TimesShown != nil {
		timesShown = *update.TimesShown
	}
	if update.LastShown != nil {
		lastShown = *update.LastShown
	}
	if update.Status != nil {
		status = string(*update.Status)
	}

	sq, err := noRows(scanSessionQuestion(r.q.QueryRowContext(ctx, `
		UPDATE session_questions
		SET times_shown = COALESCE($2::INTEGER, times_shown),
		    last_shown = COALESCE($3::TIMESTAMPTZ, last_shown),
		    status = COALESCE($4::VARCHAR, status)
		WHERE id = $1
		RETURNING `+sessionQuestionColumns, id, timesShown, lastShown, status)))
	if err != nil {
		return nil, contextutils.FromDatabaseError(err, "failed to update session question")
	}
	return sq, nil
}

func (r *postgresStudyRepository) ListSessionQuestions(ctx context.Context, sessionID int) (result []models.SessionQuestion, err error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+sessionQuestionColumns+`
		FROM session_questions
		WHERE session_id = $1
		ORDER BY id`, sessionID)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to list progress of session %d", sessionID)
	}
	defer func() { _ = rows.Close() }()

	result = []models.SessionQuestion{}
	for rows.Next() {
		sq, err := scanSessionQuestion(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan session question")
		}
		result = append(result, *sq)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate session questions")
	}
	return result, nil
}

func (r *postgresStudyRepository) ListMasteredQuestionIDs(ctx context.Context, sessionID int) (result []int, err error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT question_id
		FROM session_questions
		WHERE session_id = $1 AND status = $2
		ORDER BY question_id`, sessionID, string(models.StatusEasy))
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to list mastered questions of session %d", sessionID)
	}
	defer func() { _ = rows.Close() }()

	result = []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan question id")
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate mastered questions")
	}
	return result, nil
}
