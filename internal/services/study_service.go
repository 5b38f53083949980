package services

import (
	"context"
	"database/sql"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rshatalov/rpy/internal/config"
	"github.com/rshatalov/rpy/internal/models"
	"github.com/rshatalov/rpy/internal/observability"
	contextutils "github.com/rshatalov/rpy/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// StudyServiceInterface defines the study session operations used by the handlers and the admin CLI
type StudyServiceInterface interface {
	StartSession(ctx context.Context, input models.SessionInput) (*models.StudySession, error)
	EndSession(ctx context.Context, sessionID int) (*models.StudySession, error)
	GetSession(ctx context.Context, sessionID int) (*models.StudySession, error)
	ListSessions(ctx context.Context, activeOnly bool) ([]models.StudySession, error)
	DeleteSession(ctx context.Context, sessionID int) error
	SelectNext(ctx context.Context, sessionID int) (*models.SelectionResult, error)
	RateQuestion(ctx context.Context, sessionID, questionID int, rating string) (*models.SessionQuestion, error)
	GetSessionStatistics(ctx context.Context, sessionID int) (*models.SessionStatistics, error)
}

// StudyService selects questions, records ratings and aggregates session statistics
type StudyService struct {
	store   StudyStore
	logger  *observability.Logger
	metrics *observability.StudyMetrics
	now     func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// StudyServiceOption customises a StudyService
type StudyServiceOption func(*StudyService)

// WithRandom replaces the random source used to pick questions
func WithRandom(rng *rand.Rand) StudyServiceOption {
	return func(s *StudyService) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithClock replaces the clock used for timestamps
func WithClock(now func() time.Time) StudyServiceOption {
	return func(s *StudyService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStudyMetrics sets the counters updated on selection and rating
func WithStudyMetrics(m *observability.StudyMetrics) StudyServiceOption {
	return func(s *StudyService) {
		s.metrics = m
	}
}

// NewStudyService creates a StudyService over a Postgres store.
// A non-zero study.random_seed makes the question order reproducible.
func NewStudyService(db *sql.DB, cfg *config.Config, logger *observability.Logger, opts ...StudyServiceOption) *StudyService {
	var seed int64
	if cfg != nil {
		seed = cfg.Study.RandomSeed
	}
	opts = append([]StudyServiceOption{WithRandom(NewRandomSource(seed))}, opts...)
	return NewStudyServiceWithStore(NewPostgresStudyStore(db, logger), logger, opts...)
}

// NewStudyServiceWithStore creates a StudyService over any StudyStore
func NewStudyServiceWithStore(store StudyStore, logger *observability.Logger, opts ...StudyServiceOption) *StudyService {
	if logger == nil {
		logger = observability.NewLogger(nil)
	}
	s := &StudyService{
		store:   store,
		logger:  logger,
		metrics: observability.NewStudyMetrics(),
		now:     func() time.Time { return time.Now().UTC() },
		rng:     NewRandomSource(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRandomSource returns a random source seeded with seed, or with the clock when seed is 0
func NewRandomSource(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func (s *StudyService) intn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}

// StartSession creates an active session starting now
func (s *StudyService) StartSession(ctx context.Context, input models.SessionInput) (result *models.StudySession, err error) {
	ctx, span := observability.TraceStudyFunction(ctx, "start_session")
	defer observability.FinishSpan(span, &err)

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, contextutils.NewInvalidInputf("session name is required")
	}
	if len([]rune(input.Name)) > 200 {
		return nil, contextutils.NewInvalidInputf("session name must be at most 200 characters")
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, repo StudyRepository) error {
		created, err := repo.CreateSession(ctx, input, s.now())
		if err != nil {
			return err
		}
		result = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(observability.AttributeSessionID(result.ID))
	s.logger.Info(ctx, "Study session started", map[string]interface{}{"session_id": result.ID, "name": result.Name})
	return result, nil
}

// EndSession marks a session as ended. Ending twice keeps the first end time.
func (s *StudyService) EndSession(ctx context.Context, sessionID int) (result *models.StudySession, err error) {
	ctx, span := observability.TraceStudyFunction(ctx, "end_session", observability.AttributeSessionID(sessionID))
	defer observability.FinishSpan(span, &err)

	err = s.store.WithTx(ctx, func(ctx context.Context, repo StudyRepository) error {
		ended, err := repo.EndSession(ctx, sessionID, s.now())
		if err != nil {
			return err
		}
		if ended == nil {
			return contextutils.NotFoundf(contextutils.ErrSessionNotFound, "session %d", sessionID)
		}
		result = ended
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetSession returns a single session
func (s *StudyService) GetSession(ctx context.Context, sessionID int) (result *models.StudySession, err error) {
	ctx, span := observability.TraceStudyFunction(ctx, "get_session", observability.AttributeSessionID(sessionID))
	defer observability.FinishSpan(span, &err)

	err = s.store.WithTx(ctx, func(ctx context.Context, repo StudyRepository) error {
		session, err := repo.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return contextutils.NotFoundf(contextutils.ErrSessionNotFound, "session %d", sessionID)
		}
		result = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListSessions returns sessions newest first, optionally only the active ones
func (s *StudyService) ListSessions(ctx context.Context, activeOnly bool) (result []models.StudySession, err error) {
	ctx, span := observability.TraceStudyFunction(ctx, "list_sessions", attribute.Bool("active_only", activeOnly))
	defer observability.FinishSpan(span, &err)

	err = s.store.WithTx(ctx, func(ctx context.Context, repo StudyRepository) error {
		sessions, err := repo.ListSessions(ctx, activeOnly)
		if err != nil {
			return err
		}
		result = sessions
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteSession removes a session together with its progress rows
func (s *StudyService) DeleteSession(ctx context.Context, sessionID int) (err error) {
	ctx, span := observability.TraceStudyFunction(ctx, "delete_session", observability.AttributeSessionID(sessionID))
	defer observability.FinishSpan(span, &err)

	err = s.store.WithTx(ctx, func(ctx context.Context, repo StudyRepository) error {
		deleted, err := repo.DeleteSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if !deleted {
			return contextutils.NotFoundf(contextutils.ErrSessionNotFound, "session %d", sessionID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "Study session deleted", map[string]interface{}{"session_id": sessionID})
	return nil
}

// SelectNext picks a random question not yet mastered in the session and records that it was shown.
// When every question is mastered the result has status no_questions_available and no error.
func (s *StudyService) SelectNext(ctx context.Context, sessionID int) (result *models.SelectionResult, err error) {
	ctx, span := observability.TraceStudyFunction(ctx, "select_next", observability.AttributeSessionID(sessionID))
	defer observability.FinishSpan(span, &err)

	firstShow := false
	err = s.store.WithTx(ctx, func(ctx context.Context, repo StudyRepository) error {
		session, err := repo.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return contextutils.NotFoundf(contextutils.ErrSessionNotFound, "session %d", sessionID)
		}

		mastered, err := repo.ListMasteredQuestionIDs(ctx, sessionID)
		if err != nil {
			return err
		}
		pool, err := repo.ListQuestionsExcluding(ctx, mastered)
		if err != nil {
			return err
		}
		span.SetAttributes(attribute.Int("study.mastered", len(mastered)), attribute.Int("study.eligible", len(pool)))
		if len(pool) == 0 {
			result = models.NoQuestionsAvailable()
			return nil
		}

		chosen := pool[s.intn(len(pool))]
		question, err := repo.GetQuestionByID(ctx, chosen.ID)
		if err != nil {
			return err
		}
		if question == nil {
			return contextutils.NotFoundf(contextutils.ErrQuestionNotFound, "question %d", chosen.ID)
		}

		progress, created, err := s.recordShow(ctx, repo, sessionID, question.ID)
		if err != nil {
			return err
		}
		firstShow = created

		result = &models.SelectionResult{
			Status:            models.SelectionStatusQuestion,
			Question:          question,
			SessionQuestionID: progress.ID,
			TimesShown:        progress.TimesShown,
			LastShown:         progress.LastShown,
			QuestionStatus:    progress.Status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.HasQuestion() {
		s.metrics.RecordNoQuestions(ctx)
		s.logger.Info(ctx, "No questions available for study session", map[string]interface{}{"session_id": sessionID})
		return result, nil
	}

	s.metrics.RecordSelection(ctx, firstShow)
	span.SetAttributes(observability.AttributeQuestionID(result.Question.ID), attribute.Int("study.times_shown", result.TimesShown))
	s.logger.Debug(ctx, "Selected next question", map[string]interface{}{
		"session_id":  sessionID,
		"question_id": result.Question.ID,
		"times_shown": result.TimesShown,
	})
	return result, nil
}

// recordShow creates the progress row on first show or increments it, reporting whether it was created.
// A concurrent creator losing the insert race falls back to the locked increment.
func (s *StudyService) recordShow(ctx context.Context, repo StudyRepository, sessionID, questionID int) (*models.SessionQuestion, bool, error) {
	now := s.now()

	existing, err := repo.GetSessionQuestion(ctx, sessionID, questionID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		created, err := repo.CreateSessionQuestion(ctx, sessionID, questionID, 1, now, models.StatusPending)
		if err != nil {
			return nil, false, err
		}
		if created != nil {
			return created, true, nil
		}
		existing, err = repo.GetSessionQuestion(ctx, sessionID, questionID)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, contextutils.NewConflictf("progress of question %d in session %d vanished during selection", questionID, sessionID)
		}
	}

	timesShown := existing.TimesShown + 1
	updated, err := repo.UpdateSessionQuestion(ctx, existing.ID, models.SessionQuestionUpdate{
		TimesShown: &timesShown,
		LastShown:  &now,
	})
	if err != nil {
		return nil, false, err
	}
	if updated == nil {
		return nil, false, contextutils.NotFoundf(contextutils.ErrSessionQuestionNotFound, "session %d question %d", sessionID, questionID)
	}
	return updated, false, nil
}

// RateQuestion stores the user's rating of a question already shown in the session.
// The rating is validated before the store is touched.
func (s *StudyService) RateQuestion(ctx context.Context, sessionID, questionID int, rating string) (result *models.SessionQuestion, err error) {
	ctx, span := observability.TraceStudyFunction(ctx, "rate_question",
		observability.AttributeSessionID(sessionID),
		observability.AttributeQuestionID(questionID),
		observability.AttributeRating(rating),
	)
	defer observability.FinishSpan(span, &err)

	if !contextutils.IsValidRating(rating) {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeInvalidRating, contextutils.SeverityWarn,
			contextutils.ErrInvalidRating.Message, "got \""+rating+"\"")
	}
	status := models.Rating(rating).Status()

	err = s.store.WithTx(ctx, func(ctx context.Context, repo StudyRepository) error {
		existing, err := repo.GetSessionQuestion(ctx, sessionID, questionID)
		if err != nil {
			return err
		}
		if existing == nil {
			return contextutils.NotFoundf(contextutils.ErrSessionQuestionNotFound, "session %d question %d", sessionID, questionID)
		}
		updated, err := repo.UpdateSessionQuestion(ctx, existing.ID, models.SessionQuestionUpdate{Status: &status})
		if err != nil {
			return err
		}
		if updated == nil {
			return contextutils.NotFoundf(contextutils.ErrSessionQuestionNotFound, "session %d question %d", sessionID, questionID)
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordRating(ctx, rating)
	s.logger.Info(ctx, "Question rated", map[string]interface{}{
		"session_id":  sessionID,
		"question_id": questionID,
		"rating":      rating,
	})
	return result, nil
}

// GetSessionStatistics counts the session's shown questions by status.
// average_shows divides by the number of shown questions and is 0 when none were shown.
func (s *StudyService) GetSessionStatistics(ctx context.Context, sessionID int) (result *models.SessionStatistics, err error) {
	ctx, span := observability.TraceStudyFunction(ctx, "get_session_statistics", observability.AttributeSessionID(sessionID))
	defer observability.FinishSpan(span, &err)

	err = s.store.WithTx(ctx, func(ctx context.Context, repo StudyRepository) error {
		session, err := repo.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return contextutils.NotFoundf(contextutils.ErrSessionNotFound, "session %d", sessionID)
		}
		progress, err := repo.ListSessionQuestions(ctx, sessionID)
		if err != nil {
			return err
		}
		result = aggregateStatistics(*session, progress)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func aggregateStatistics(session models.StudySession, progress []models.SessionQuestion) *models.SessionStatistics {
	stats := &models.SessionStatistics{Session: session, TotalQuestions: len(progress)}
	for _, sq := range progress {
		stats.TotalShows += sq.TimesShown
		switch sq.Status {
		case models.StatusEasy:
			stats.EasyQuestions++
		case models.StatusMedium:
			stats.MediumQuestions++
		case models.StatusHard:
			stats.HardQuestions++
		default:
			stats.PendingQuestions++
		}
	}
	if stats.TotalQuestions > 0 {
		stats.AverageShows = float64(stats.TotalShows) / float64(stats.TotalQuestions)
	}
	return stats
}
