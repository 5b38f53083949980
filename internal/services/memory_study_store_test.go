package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rshatalov/rpy/internal/models"
)

// memoryStudyStore is an in-process StudyStore. Transactions are serialised and
// rolled back by restoring a snapshot taken when they began.
type memoryStudyStore struct {
	mu        sync.Mutex
	questions map[int]models.Question
	sessions  map[int]models.StudySession
	progress  map[int]models.SessionQuestion
	nextID    int
	txCount   int
}

func newMemoryStudyStore() *memoryStudyStore {
	return &memoryStudyStore{
		questions: map[int]models.Question{},
		sessions:  map[int]models.StudySession{},
		progress:  map[int]models.SessionQuestion{},
		nextID:    1,
	}
}

func (m *memoryStudyStore) id() int {
	id := m.nextID
	m.nextID++
	return id
}

func (m *memoryStudyStore) addQuestion(text string, tags ...string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := models.Question{ID: m.id(), QuestionText: text, AnswerText: "answer to " + text, Tags: []models.Tag{}}
	for _, slug := range tags {
		q.Tags = append(q.Tags, models.Tag{Slug: slug, Title: slug})
	}
	m.questions[q.ID] = q
	return q.ID
}

func (m *memoryStudyStore) addSession(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := models.StudySession{ID: m.id(), Name: name, IsActive: true, StartTime: time.Unix(0, 0).UTC()}
	m.sessions[s.ID] = s
	return s.ID
}

func (m *memoryStudyStore) progressRows(sessionID int) []models.SessionQuestion {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []models.SessionQuestion
	for _, sq := range m.progress {
		if sq.SessionID == sessionID {
			rows = append(rows, sq)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows
}

func (m *memoryStudyStore) WithTx(ctx context.Context, fn func(ctx context.Context, repo StudyRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++

	questions := cloneMap(m.questions)
	sessions := cloneMap(m.sessions)
	progress := cloneMap(m.progress)
	nextID := m.nextID

	if err := fn(ctx, memoryStudyRepository{m}); err != nil {
		m.questions, m.sessions, m.progress, m.nextID = questions, sessions, progress, nextID
		return err
	}
	return nil
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type memoryStudyRepository struct {
	m *memoryStudyStore
}

func (r memoryStudyRepository) ListQuestionsExcluding(_ context.Context, excludedIDs []int) ([]models.Question, error) {
	excluded := map[int]bool{}
	for _, id := range excludedIDs {
		excluded[id] = true
	}
	result := []models.Question{}
	for id, q := range r.m.questions {
		if !excluded[id] {
			q.Tags = []models.Tag{}
			result = append(result, q)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r memoryStudyRepository) GetQuestionByID(_ context.Context, id int) (*models.Question, error) {
	q, ok := r.m.questions[id]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (r memoryStudyRepository) GetSession(_ context.Context, id int) (*models.StudySession, error) {
	s, ok := r.m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r memoryStudyRepository) CreateSession(_ context.Context, input models.SessionInput, now time.Time) (*models.StudySession, error) {
	s := models.StudySession{ID: r.m.id(), Name: input.Name, Description: input.Description, StartTime: now, IsActive: true, CreatedAt: now}
	r.m.sessions[s.ID] = s
	return &s, nil
}

func (r memoryStudyRepository) EndSession(_ context.Context, id int, now time.Time) (*models.StudySession, error) {
	s, ok := r.m.sessions[id]
	if !ok {
		return nil, nil
	}
	if s.EndTime == nil {
		s.EndTime = &now
	}
	s.IsActive = false
	r.m.sessions[id] = s
	return &s, nil
}

func (r memoryStudyRepository) ListSessions(_ context.Context, activeOnly bool) ([]models.StudySession, error) {
	result := []models.StudySession{}
	for _, s := range r.m.sessions {
		if !activeOnly || s.IsActive {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartTime.Equal(result[j].StartTime) {
			return result[i].StartTime.After(result[j].StartTime)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (r memoryStudyRepository) DeleteSession(_ context.Context, id int) (bool, error) {
	for sqID, sq := range r.m.progress {
		if sq.SessionID == id {
			delete(r.m.progress, sqID)
		}
	}
	if _, ok := r.m.sessions[id]; !ok {
		return false, nil
	}
	delete(r.m.sessions, id)
	return true, nil
}

func (r memoryStudyRepository) GetSessionQuestion(_ context.Context, sessionID, questionID int) (*models.SessionQuestion, error) {
	for _, sq := range r.m.progress {
		if sq.SessionID == sessionID && sq.QuestionID == questionID {
			return &sq, nil
		}
	}
	return nil, nil
}

func (r memoryStudyRepository) CreateSessionQuestion(ctx context.Context, sessionID, questionID, timesShown int, lastShown time.Time, status models.SessionQuestionStatus) (*models.SessionQuestion, error) {
	if existing, _ := r.GetSessionQuestion(ctx, sessionID, questionID); existing != nil {
		return nil, nil
	}
	shown := lastShown
	sq := models.SessionQuestion{
		ID:         r.m.id(),
		SessionID:  sessionID,
		QuestionID: questionID,
		TimesShown: timesShown,
		LastShown:  &shown,
		Status:     status,
		CreatedAt:  lastShown,
	}
	r.m.progress[sq.ID] = sq
	return &sq, nil
}

func (r memoryStudyRepository) UpdateSessionQuestion(_ context.Context, id int, update models.SessionQuestionUpdate) (*models.SessionQuestion, error) {
	sq, ok := r.m.progress[id]
	if !ok {
		return nil, nil
	}
	if update.TimesShown != nil {
		sq.TimesShown = *update.TimesShown
	}
	if update.LastShown != nil {
		shown := *update.LastShown
		sq.LastShown = &shown
	}
	if update.Status != nil {
		sq.Status = *update.Status
	}
	r.m.progress[id] = sq
	return &sq, nil
}

func (r memoryStudyRepository) ListSessionQuestions(_ context.Context, sessionID int) ([]models.SessionQuestion, error) {
	result := []models.SessionQuestion{}
	for _, sq := range r.m.progress {
		if sq.SessionID == sessionID {
			result = append(result, sq)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r memoryStudyRepository) ListMasteredQuestionIDs(_ context.Context, sessionID int) ([]int, error) {
	result := []int{}
	for _, sq := range r.m.progress {
		if sq.SessionID == sessionID && sq.Status == models.StatusEasy {
			result = append(result, sq.QuestionID)
		}
	}
	sort.Ints(result)
	return result, nil
}
