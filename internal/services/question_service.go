package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/rshatalov/rpy/internal/config"
	"github.com/rshatalov/rpy/internal/database"
	"github.com/rshatalov/rpy/internal/models"
	"github.com/rshatalov/rpy/internal/observability"
	contextutils "github.com/rshatalov/rpy/internal/utils"
)

// QuestionServiceInterface defines question bank operations
type QuestionServiceInterface interface {
	CreateQuestion(ctx context.Context, input models.QuestionInput) (*models.Question, error)
	GetQuestion(ctx context.Context, id int) (*models.Question, error)
	UpdateQuestion(ctx context.Context, id int, input models.QuestionInput) (*models.Question, error)
	DeleteQuestion(ctx context.Context, id int) error
	ListQuestions(ctx context.Context, filter models.QuestionFilter) (*models.QuestionPage, error)
}

// QuestionWriter creates tags and questions inside one transaction
type QuestionWriter interface {
	// EnsureTag creates the tag unless it exists, reporting whether it was created
	EnsureTag(ctx context.Context, tag models.TagInput) (bool, error)
	TagExists(ctx context.Context, slug string) (bool, error)
	CreateQuestion(ctx context.Context, input models.QuestionInput) (*models.Question, error)
}

// QuestionService provides methods for question management
type QuestionService struct {
	db          *sql.DB
	logger      *observability.Logger
	maxPageSize int
}

// NewQuestionServiceWithLogger creates a new question service
func NewQuestionServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) *QuestionService {
	maxPageSize := config.DefaultMaxPageSize
	if cfg != nil && cfg.Study.MaxPageSize > 0 {
		maxPageSize = cfg.Study.MaxPageSize
	}
	return &QuestionService{db: db, logger: logger, maxPageSize: maxPageSize}
}

func normalizeQuestionInput(input *models.QuestionInput) error {
	input.QuestionText = strings.TrimSpace(input.QuestionText)
	input.AnswerText = strings.TrimSpace(input.AnswerText)
	if input.QuestionText == "" {
		return contextutils.NewInvalidInputf("question text is required")
	}
	if input.AnswerText == "" {
		return contextutils.NewInvalidInputf("answer text is required")
	}
	if input.Difficulty != nil {
		d := strings.TrimSpace(*input.Difficulty)
		if d == "" {
			input.Difficulty = nil
		} else if len(d) > 20 {
			return contextutils.NewInvalidInputf("difficulty must be at most 20 characters")
		} else {
			input.Difficulty = &d
		}
	}

	seen := map[string]bool{}
	tags := make([]string, 0, len(input.Tags))
	for _, slug := range input.Tags {
		slug = strings.TrimSpace(slug)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		tags = append(tags, slug)
	}
	sort.Strings(tags)
	input.Tags = tags
	return nil
}

// checkTagsExist fails with invalid input naming the first unknown slug
func checkTagsExist(ctx context.Context, q database.Querier, slugs []string) error {
	if len(slugs) == 0 {
		return nil
	}
	rows, err := q.QueryContext(ctx, `SELECT slug FROM tags WHERE slug = ANY($1)`, pq.Array(slugs))
	if err != nil {
		return contextutils.WrapError(err, "failed to check tags")
	}
	defer func() { _ = rows.Close() }()

	found := map[string]bool{}
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return contextutils.WrapError(err, "failed to scan tag")
		}
		found[slug] = true
	}
	if err := rows.Err(); err != nil {
		return contextutils.WrapError(err, "failed to iterate tags")
	}
	for _, slug := range slugs {
		if !found[slug] {
			return contextutils.NewInvalidInputf("unknown tag %q", slug)
		}
	}
	return nil
}

func setQuestionTags(ctx context.Context, q database.Querier, questionID int, slugs []string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM question_tags WHERE question_id = $1`, questionID); err != nil {
		return contextutils.WrapError(err, "failed to clear question tags")
	}
	for _, slug := range slugs {
		if _, err := q.ExecContext(ctx, `INSERT INTO question_tags (question_id, tag_slug) VALUES ($1, $2)`, questionID, slug); err != nil {
			return contextutils.FromDatabaseError(err, "failed to tag question")
		}
	}
	return nil
}

// insertQuestion expects normalized input whose tags exist
func insertQuestion(ctx context.Context, q database.Querier, input models.QuestionInput) (*models.Question, error) {
	question, err := scanQuestion(q.QueryRowContext(ctx, `
		INSERT INTO questions (q, a, difficulty)
		VALUES ($1, $2, $3)
		RETURNING `+questionColumns, input.QuestionText, input.AnswerText, input.Difficulty))
	if err != nil {
		return nil, contextutils.FromDatabaseError(err, "failed to create question")
	}
	if err := setQuestionTags(ctx, q, question.ID, input.Tags); err != nil {
		return nil, err
	}
	tags, err := loadQuestionTags(ctx, q, []int{question.ID})
	if err != nil {
		return nil, err
	}
	question.Tags = tags[question.ID]
	return question, nil
}

// CreateQuestion stores a question and its tag associations
func (s *QuestionService) CreateQuestion(ctx context.Context, input models.QuestionInput) (result *models.Question, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "create_question")
	defer observability.FinishSpan(span, &err)

	if err := normalizeQuestionInput(&input); err != nil {
		return nil, err
	}
	err = database.WithTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if err := checkTagsExist(ctx, tx, input.Tags); err != nil {
			return err
		}
		created, err := insertQuestion(ctx, tx, input)
		if err != nil {
			return err
		}
		result = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(observability.AttributeQuestionID(result.ID))
	return result, nil
}

// GetQuestion returns a question with its tags
func (s *QuestionService) GetQuestion(ctx context.Context, id int) (result *models.Question, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "get_question", observability.AttributeQuestionID(id))
	defer observability.FinishSpan(span, &err)

	repo := &postgresStudyRepository{q: s.db}
	question, err := repo.GetQuestionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if question == nil {
		return nil, contextutils.NotFoundf(contextutils.ErrQuestionNotFound, "question %d", id)
	}
	return question, nil
}

// UpdateQuestion replaces the question's text, answer, difficulty and tags
func (s *QuestionService) UpdateQuestion(ctx context.Context, id int, input models.QuestionInput) (result *models.Question, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "update_question", observability.AttributeQuestionID(id))
	defer observability.FinishSpan(span, &err)

	if err := normalizeQuestionInput(&input); err != nil {
		return nil, err
	}
	err = database.WithTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if err := checkTagsExist(ctx, tx, input.Tags); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `UPDATE questions SET q = $2, a = $3, difficulty = $4 WHERE id = $1`,
			id, input.QuestionText, input.AnswerText, input.Difficulty)
		if err != nil {
			return contextutils.FromDatabaseError(err, "failed to update question")
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return contextutils.NotFoundf(contextutils.ErrQuestionNotFound, "question %d", id)
		}
		if err := setQuestionTags(ctx, tx, id, input.Tags); err != nil {
			return err
		}
		updated, err := (&postgresStudyRepository{q: tx}).GetQuestionByID(ctx, id)
		if err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteQuestion removes a question along with its tags and session progress
func (s *QuestionService) DeleteQuestion(ctx context.Context, id int) (err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "delete_question", observability.AttributeQuestionID(id))
	defer observability.FinishSpan(span, &err)

	return database.WithTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM session_questions WHERE question_id = $1`, id); err != nil {
			return contextutils.WrapError(err, "failed to delete question progress")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM question_tags WHERE question_id = $1`, id); err != nil {
			return contextutils.WrapError(err, "failed to delete question tags")
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
		if err != nil {
			return contextutils.WrapError(err, "failed to delete question")
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return contextutils.NotFoundf(contextutils.ErrQuestionNotFound, "question %d", id)
		}
		return nil
	})
}

const questionFilterClause = `
	WHERE ($1::TEXT = '' OR EXISTS (SELECT 1 FROM question_tags qt WHERE qt.question_id = questions.id AND qt.tag_slug = $1::TEXT))
	  AND ($2::TEXT = '' OR LOWER(q) LIKE '%' || LOWER($2::TEXT) || '%' OR LOWER(a) LIKE '%' || LOWER($2::TEXT) || '%')`

// ListQuestions returns one page of questions ordered by id
func (s *QuestionService) ListQuestions(ctx context.Context, filter models.QuestionFilter) (result *models.QuestionPage, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "list_questions",
		observability.AttributePage(filter.Page),
		observability.AttributePageSize(filter.PageSize),
		observability.AttributeSearch(filter.Search),
		observability.AttributeTag(filter.Tag),
	)
	defer observability.FinishSpan(span, &err)

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = config.DefaultPageSize
	}
	if filter.PageSize > s.maxPageSize {
		return nil, contextutils.NewInvalidInputf("page_size %d exceeds %d", filter.PageSize, s.maxPageSize)
	}
	search := strings.TrimSpace(filter.Search)
	tag := strings.TrimSpace(filter.Tag)

	page := &models.QuestionPage{Items: []models.Question{}, Page: filter.Page, PageSize: filter.PageSize}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`+questionFilterClause, tag, search).Scan(&page.Total); err != nil {
		return nil, contextutils.WrapError(err, "failed to count questions")
	}
	if page.Total == 0 {
		return page, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+questionColumns+` FROM questions`+questionFilterClause+`
		ORDER BY id
		LIMIT $3 OFFSET $4`, tag, search, filter.PageSize, (filter.Page-1)*filter.PageSize)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list questions")
	}
	defer func() { _ = rows.Close() }()

	var ids []int
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan question")
		}
		page.Items = append(page.Items, *q)
		ids = append(ids, q.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate questions")
	}

	tags, err := loadQuestionTags(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range page.Items {
		page.Items[i].Tags = tags[page.Items[i].ID]
	}
	return page, nil
}

// WithWriter runs fn with a QuestionWriter bound to one transaction
func (s *QuestionService) WithWriter(ctx context.Context, fn func(ctx context.Context, w QuestionWriter) error) error {
	return database.WithTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		return fn(ctx, &txQuestionWriter{q: tx})
	})
}

type txQuestionWriter struct {
	q database.Querier
}

func (w *txQuestionWriter) EnsureTag(ctx context.Context, tag models.TagInput) (bool, error) {
	if err := validateTagInput(&tag, true); err != nil {
		return false, err
	}
	return insertTag(ctx, w.q, tag)
}

func (w *txQuestionWriter) TagExists(ctx context.Context, slug string) (bool, error) {
	tag, err := getTag(ctx, w.q, slug)
	if err != nil {
		return false, err
	}
	return tag != nil, nil
}

func (w *txQuestionWriter) CreateQuestion(ctx context.Context, input models.QuestionInput) (*models.Question, error) {
	if err := normalizeQuestionInput(&input); err != nil {
		return nil, err
	}
	if err := checkTagsExist(ctx, w.q, input.Tags); err != nil {
		return nil, err
	}
	return insertQuestion(ctx, w.q, input)
}
