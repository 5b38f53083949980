package handlers

import (
	"context"

	"github.com/rshatalov/rpy/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockStudyService struct {
	mock.Mock
}

func (m *mockStudyService) StartSession(ctx context.Context, input models.SessionInput) (*models.StudySession, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StudySession), args.Error(1)
}

func (m *mockStudyService) EndSession(ctx context.Context, sessionID int) (*models.StudySession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StudySession), args.Error(1)
}

func (m *mockStudyService) GetSession(ctx context.Context, sessionID int) (*models.StudySession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StudySession), args.Error(1)
}

func (m *mockStudyService) ListSessions(ctx context.Context, activeOnly bool) ([]models.StudySession, error) {
	args := m.Called(ctx, activeOnly)
	return args.Get(0).([]models.StudySession), args.Error(1)
}

func (m *mockStudyService) DeleteSession(ctx context.Context, sessionID int) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *mockStudyService) SelectNext(ctx context.Context, sessionID int) (*models.SelectionResult, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SelectionResult), args.Error(1)
}

func (m *mockStudyService) RateQuestion(ctx context.Context, sessionID, questionID int, rating string) (*models.SessionQuestion, error) {
	args := m.Called(ctx, sessionID, questionID, rating)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SessionQuestion), args.Error(1)
}

func (m *mockStudyService) GetSessionStatistics(ctx context.Context, sessionID int) (*models.SessionStatistics, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SessionStatistics), args.Error(1)
}

type mockQuestionService struct {
	mock.Mock
}

func (m *mockQuestionService) CreateQuestion(ctx context.Context, input models.QuestionInput) (*models.Question, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *mockQuestionService) GetQuestion(ctx context.Context, id int) (*models.Question, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *mockQuestionService) UpdateQuestion(ctx context.Context, id int, input models.QuestionInput) (*models.Question, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *mockQuestionService) DeleteQuestion(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockQuestionService) ListQuestions(ctx context.Context, filter models.QuestionFilter) (*models.QuestionPage, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuestionPage), args.Error(1)
}

type mockTagService struct {
	mock.Mock
}

func (m *mockTagService) CreateTag(ctx context.Context, input models.TagInput) (*models.Tag, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tag), args.Error(1)
}

func (m *mockTagService) GetTag(ctx context.Context, slug string) (*models.Tag, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tag), args.Error(1)
}

func (m *mockTagService) ListTags(ctx context.Context) ([]models.Tag, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Tag), args.Error(1)
}

func (m *mockTagService) UpdateTag(ctx context.Context, slug string, input models.TagInput) (*models.Tag, error) {
	args := m.Called(ctx, slug, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tag), args.Error(1)
}

func (m *mockTagService) DeleteTag(ctx context.Context, slug string) error {
	return m.Called(ctx, slug).Error(0)
}

type mockPlanningService struct {
	mock.Mock
}

func (m *mockPlanningService) CreateAct(ctx context.Context, input models.ActInput) (*models.Act, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Act), args.Error(1)
}

func (m *mockPlanningService) GetAct(ctx context.Context, id int) (*models.Act, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Act), args.Error(1)
}

func (m *mockPlanningService) UpdateAct(ctx context.Context, id int, input models.ActInput) (*models.Act, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Act), args.Error(1)
}

func (m *mockPlanningService) DeleteAct(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockPlanningService) ListActs(ctx context.Context, includeHidden bool) ([]models.Act, error) {
	args := m.Called(ctx, includeHidden)
	return args.Get(0).([]models.Act), args.Error(1)
}

func (m *mockPlanningService) ActTree(ctx context.Context, includeHidden bool) ([]*models.Act, error) {
	args := m.Called(ctx, includeHidden)
	return args.Get(0).([]*models.Act), args.Error(1)
}

func (m *mockPlanningService) ReorderActs(ctx context.Context, ids []int) error {
	return m.Called(ctx, ids).Error(0)
}

func (m *mockPlanningService) CreatePlan(ctx context.Context, input models.PlanInput) (*models.Plan, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *mockPlanningService) GetPlan(ctx context.Context, id int) (*models.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *mockPlanningService) UpdatePlan(ctx context.Context, id int, input models.PlanInput) (*models.Plan, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *mockPlanningService) DeletePlan(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockPlanningService) ListPlans(ctx context.Context) ([]models.Plan, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Plan), args.Error(1)
}

func (m *mockPlanningService) PlanTree(ctx context.Context) ([]*models.Plan, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.Plan), args.Error(1)
}

func (m *mockPlanningService) ReorderPlans(ctx context.Context, ids []int) error {
	return m.Called(ctx, ids).Error(0)
}

func (m *mockPlanningService) CreateTask(ctx context.Context, input models.TaskInput) (*models.Task, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *mockPlanningService) GetTask(ctx context.Context, id int) (*models.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *mockPlanningService) UpdateTask(ctx context.Context, id int, input models.TaskInput) (*models.Task, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *mockPlanningService) DeleteTask(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockPlanningService) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Task), args.Error(1)
}

func (m *mockPlanningService) AddNote(ctx context.Context, kind models.NoteKind, ownerID int, content string) (*models.Note, error) {
	args := m.Called(ctx, kind, ownerID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Note), args.Error(1)
}

func (m *mockPlanningService) ListNotes(ctx context.Context, kind models.NoteKind, ownerID int) ([]models.Note, error) {
	args := m.Called(ctx, kind, ownerID)
	return args.Get(0).([]models.Note), args.Error(1)
}

func (m *mockPlanningService) DeleteNote(ctx context.Context, kind models.NoteKind, ownerID, noteID int) error {
	return m.Called(ctx, kind, ownerID, noteID).Error(0)
}

type mockTimeTrackingService struct {
	mock.Mock
}

func (m *mockTimeTrackingService) UpsertTime(ctx context.Context, actID int, day models.Date, seconds int, count float64) (*models.TimeEntry, error) {
	args := m.Called(ctx, actID, day, seconds, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TimeEntry), args.Error(1)
}

func (m *mockTimeTrackingService) AddTime(ctx context.Context, actID int, day models.Date, seconds int) (*models.TimeEntry, error) {
	args := m.Called(ctx, actID, day, seconds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TimeEntry), args.Error(1)
}

func (m *mockTimeTrackingService) ListTimes(ctx context.Context, actID int, from, to *models.Date) ([]models.TimeEntry, error) {
	args := m.Called(ctx, actID, from, to)
	return args.Get(0).([]models.TimeEntry), args.Error(1)
}

func (m *mockTimeTrackingService) CreateTimer(ctx context.Context, actID *int) (*models.Timer, error) {
	args := m.Called(ctx, actID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Timer), args.Error(1)
}

func (m *mockTimeTrackingService) GetTimer(ctx context.Context, id int) (*models.Timer, error) {
	return m.timer(m.Called(ctx, id))
}

func (m *mockTimeTrackingService) ListTimers(ctx context.Context) ([]models.Timer, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Timer), args.Error(1)
}

func (m *mockTimeTrackingService) DeleteTimer(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockTimeTrackingService) StartTimer(ctx context.Context, id int) (*models.Timer, error) {
	return m.timer(m.Called(ctx, id))
}

func (m *mockTimeTrackingService) PauseTimer(ctx context.Context, id int) (*models.Timer, error) {
	return m.timer(m.Called(ctx, id))
}

func (m *mockTimeTrackingService) StopTimer(ctx context.Context, id int) (*models.Timer, error) {
	return m.timer(m.Called(ctx, id))
}

func (m *mockTimeTrackingService) timer(args mock.Arguments) (*models.Timer, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Timer), args.Error(1)
}

type mockInspectionService struct {
	mock.Mock
}

func (m *mockInspectionService) ListTables(ctx context.Context) ([]models.TableInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.TableInfo), args.Error(1)
}

func (m *mockInspectionService) PeekTable(ctx context.Context, table string, limit int) ([]map[string]interface{}, error) {
	args := m.Called(ctx, table, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]map[string]interface{}), args.Error(1)
}
