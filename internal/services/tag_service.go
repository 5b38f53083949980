package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/rshatalov/rpy/internal/database"
	"github.com/rshatalov/rpy/internal/models"
	"github.com/rshatalov/rpy/internal/observability"
	contextutils "github.com/rshatalov/rpy/internal/utils"
)

// TagServiceInterface defines tag management operations
type TagServiceInterface interface {
	CreateTag(ctx context.Context, input models.TagInput) (*models.Tag, error)
	GetTag(ctx context.Context, slug string) (*models.Tag, error)
	ListTags(ctx context.Context) ([]models.Tag, error)
	UpdateTag(ctx context.Context, slug string, input models.TagInput) (*models.Tag, error)
	DeleteTag(ctx context.Context, slug string) error
}

// TagService manages question tags
type TagService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewTagServiceWithLogger creates a new tag service
func NewTagServiceWithLogger(db *sql.DB, logger *observability.Logger) *TagService {
	return &TagService{db: db, logger: logger}
}

func validateTagInput(input *models.TagInput, requireSlug bool) error {
	input.Slug = strings.TrimSpace(input.Slug)
	input.Title = strings.TrimSpace(input.Title)
	if requireSlug && !contextutils.IsValidTagSlug(input.Slug) {
		return contextutils.NewInvalidInputf("invalid tag slug %q", input.Slug)
	}
	if input.Title == "" {
		return contextutils.NewInvalidInputf("tag title is required")
	}
	if len([]rune(input.Title)) > 200 {
		return contextutils.NewInvalidInputf("tag title must be at most 200 characters")
	}
	return nil
}

// insertTag creates a tag, reporting false when the slug is already taken
func insertTag(ctx context.Context, q database.Querier, tag models.TagInput) (bool, error) {
	res, err := q.ExecContext(ctx, `INSERT INTO tags (slug, title) VALUES ($1, $2) ON CONFLICT (slug) DO NOTHING`, tag.Slug, tag.Title)
	if err != nil {
		return false, contextutils.FromDatabaseError(err, "failed to create tag")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, contextutils.WrapError(err, "failed to read affected rows")
	}
	return affected > 0, nil
}

func getTag(ctx context.Context, q database.Querier, slug string) (*models.Tag, error) {
	var tag models.Tag
	err := q.QueryRowContext(ctx, `
		SELECT t.slug, t.title, COUNT(qt.question_id)
		FROM tags t
		LEFT JOIN question_tags qt ON qt.tag_slug = t.slug
		WHERE t.slug = $1
		GROUP BY t.slug, t.title`, slug).Scan(&tag.Slug, &tag.Title, &tag.QuestionCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to get tag %s", slug)
	}
	return &tag, nil
}

// CreateTag creates a tag; a taken slug is a conflict
func (s *TagService) CreateTag(ctx context.Context, input models.TagInput) (result *models.Tag, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "create_tag", observability.AttributeTag(input.Slug))
	defer observability.FinishSpan(span, &err)

	if err := validateTagInput(&input, true); err != nil {
		return nil, err
	}
	created, err := insertTag(ctx, s.db, input)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeRecordExists, contextutils.SeverityInfo,
			contextutils.ErrRecordExists.Message, "tag "+input.Slug+" already exists")
	}
	s.logger.Info(ctx, "Tag created", map[string]interface{}{"slug": input.Slug})
	return &models.Tag{Slug: input.Slug, Title: input.Title}, nil
}

// GetTag returns a tag with its question count
func (s *TagService) GetTag(ctx context.Context, slug string) (result *models.Tag, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "get_tag", observability.AttributeTag(slug))
	defer observability.FinishSpan(span, &err)

	tag, err := getTag(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, contextutils.NotFoundf(contextutils.ErrRecordNotFound, "tag %s", slug)
	}
	return tag, nil
}

// ListTags returns every tag ordered by slug with question counts
func (s *TagService) ListTags(ctx context.Context) (result []models.Tag, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "list_tags")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.slug, t.title, COUNT(qt.question_id)
		FROM tags t
		LEFT JOIN question_tags qt ON qt.tag_slug = t.slug
		GROUP BY t.slug, t.title
		ORDER BY t.slug`)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list tags")
	}
	defer func() { _ = rows.Close() }()

	result = []models.Tag{}
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.Slug, &tag.Title, &tag.QuestionCount); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan tag")
		}
		result = append(result, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate tags")
	}
	return result, nil
}

// UpdateTag changes a tag's title; the slug is immutable
func (s *TagService) UpdateTag(ctx context.Context, slug string, input models.TagInput) (result *models.Tag, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "update_tag", observability.AttributeTag(slug))
	defer observability.FinishSpan(span, &err)

	if err := validateTagInput(&input, false); err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE tags SET title = $2 WHERE slug = $1`, slug, input.Title)
	if err != nil {
		return nil, contextutils.FromDatabaseError(err, "failed to update tag")
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, contextutils.NotFoundf(contextutils.ErrRecordNotFound, "tag %s", slug)
	}
	return s.GetTag(ctx, slug)
}

// DeleteTag removes a tag and its question associations
func (s *TagService) DeleteTag(ctx context.Context, slug string) (err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "delete_tag", observability.AttributeTag(slug))
	defer observability.FinishSpan(span, &err)

	return database.WithTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM question_tags WHERE tag_slug = $1`, slug); err != nil {
			return contextutils.WrapError(err, "failed to delete tag associations")
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE slug = $1`, slug)
		if err != nil {
			return contextutils.WrapError(err, "failed to delete tag")
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return contextutils.NotFoundf(contextutils.ErrRecordNotFound, "tag %s", slug)
		}
		return nil
	})
}
