package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rshatalov/rpy/internal/models"
	contextutils "github.com/rshatalov/rpy/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	actCols  = []string{"id", "title", "start_date", "end_date", "hidden", "parent_id", "sort_order"}
	planCols = []string{"id", "title", "start_date", "end_date", "parent_id", "sort_order"}
	taskCols = []string{"id", "title", "description", "start_date", "end_date", "plan_id", "act_id", "sort_order"}
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func mustDate(t *testing.T, s string) *models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return &d
}

func TestPlanningService_CreateAct(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewPlanningServiceWithLogger(db, testLogger())
	start := mustDate(t, "2024-01-01")
	end := mustDate(t, "2024-01-31")

	mock.ExpectBegin()
	mock.ExpectQuery(`WITH RECURSIVE subtree`).
		WithArgs(0, 2).
		WillReturnRows(sqlmock.NewRows([]string{"exists", "cycle"}).AddRow(true, false))
	mock.ExpectQuery(`INSERT INTO acts`).
		WithArgs("Reading", start.Time, end.Time, false, 2, 0).
		WillReturnRows(sqlmock.NewRows(actCols).AddRow(5, "Reading", start.Time, end.Time, false, 2, 0))
	mock.ExpectCommit()

	act, err := service.CreateAct(context.Background(), models.ActInput{
		Title: strPtr(" Reading "), StartDate: start, EndDate: end, ParentID: intPtr(2),
	})
	require.NoError(t, err)
	assert.Equal(t, 5, act.ID)
	assert.Equal(t, "2024-01-31", act.EndDate.String())
	assert.Equal(t, 2, *act.ParentID)
}

func TestPlanningService_CreateAct_Validation(t *testing.T) {
	db, _ := newMockDB(t)
	service := NewPlanningServiceWithLogger(db, testLogger())

	_, err := service.CreateAct(context.Background(), models.ActInput{})
	assert.True(t, errors.Is(err, contextutils.ErrInvalidInput))

	_, err = service.CreateAct(context.Background(), models.ActInput{
		Title: strPtr("x"), StartDate: mustDate(t, "2024-02-01"), EndDate: mustDate(t, "2024-01-01"),
	})
	assert.True(t, errors.Is(err, contextutils.ErrInvalidInput))
}

func TestPlanningService_UpdateAct_RejectsCycle(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewPlanningServiceWithLogger(db, testLogger())

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM acts WHERE id = \$1 FOR UPDATE`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(actCols).AddRow(1, "root", nil, nil, false, nil, 0))
	mock.ExpectQuery(`WITH RECURSIVE subtree`).
		WithArgs(1, 3).
		WillReturnRows(sqlmock.NewRows([]string{"exists", "cycle"}).AddRow(true, true))
	mock.ExpectRollback()

	_, err := service.UpdateAct(context.Background(), 1, models.ActInput{ParentID: intPtr(3)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, contextutils.ErrInvalidInput))
	assert.Contains(t, err.Error(), "descendant")
}

func TestPlanningService_UpdateAct_SelfParent(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewPlanningServiceWithLogger(db, testLogger())

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM acts WHERE id = \$1 FOR UPDATE`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(actCols).AddRow(1, "root", nil, nil, false, nil, 0))
	mock.ExpectRollback()

	_, err := service.UpdateAct(context.Background(), 1, models.ActInput{ParentID: intPtr(1)})
	assert.True(t, errors.Is(err, contextutils.ErrInvalidInput))
}

func TestPlanningService_UpdateAct_PartialAndClearParent(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewPlanningServiceWithLogger(db, testLogger())

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM acts WHERE id = \$1 FOR UPDATE`).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows(actCols).AddRow(4, "old", nil, nil, false, 2, 3))
	mock.ExpectQuery(`UPDATE acts\s+SET title = \$2`).
		WithArgs(4, "old", nil, nil, true, nil, 3).
		WillReturnRows(sqlmock.NewRows(actCols).AddRow(4, "old", nil, nil, true, nil, 3))
	mock.ExpectCommit()

	hidden := true
	act, err := service.UpdateAct(context.Background(), 4, models.ActInput{Hidden: &hidden, ClearParent: true})
	require.NoError(t, err)
	assert.True(t, act.Hidden)
	assert.Nil(t, act.ParentID)
}

func TestPlanningService_DeleteAct(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewPlanningServiceWithLogger(db, testLogger())

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM acts WHERE id = \$1 FOR UPDATE`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(actCols).AddRow(7, "mid", nil, nil, false, 1, 0))
	mock.ExpectExec(`UPDATE acts SET parent_id = \$2 WHERE parent_id = \$1`).WithArgs(7, 1).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`UPDATE tasks SET act_id = NULL WHERE act_id = \$1`).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE timers SET act_id = NULL WHERE act_id = \$1`).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM act_notes WHERE act_id = \$1`).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM times WHERE act_id = \$1`).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM acts WHERE id = \$1`).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, service.DeleteAct(context.Background(), 7))
}

func TestPlanningService_DeleteAct_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewPlanningServiceWithLogger(db, testLogger())

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM acts WHERE id = \$1 FOR UPDATE`).WithArgs(7).WillReturnRows(sqlmock.NewRows(actCols))
	mock.ExpectRollback()

	err := service.DeleteAct(context.Background(), 7)
	assert.True(t, errors.Is(err, contextutils.ErrRecordNotFound))
}

func TestPlanningService_ActTree(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewPlanningServiceWithLogger(db, testLogger())

	mock.ExpectQuery(`FROM acts\s+WHERE \(\$1::BOOLEAN OR NOT hidden\)\s+ORDER BY sort_order, id`).
		WithArgs(false).
		WillReturnRows(sqlmock.NewRows(actCols).
			AddRow(1, "root", nil, nil, false, nil, 0).
			AddRow(2, "child", nil, nil, false, 1, 0).
			AddRow(3, "grandchild", nil, nil, false, 2, 0).
			AddRow(4, "orphan of hidden", nil, nil, false, 99, 1))

	tree, err := service.ActTree(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "root", tree[0].Title)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "child", tree[0].Children[0].Title)
	require.Len(t, tree[0].Children[0].Children, 1)
	assert.Equal(t, "grandchild", tree[0].Children[0].Children[0].Title)
	assert.Equal(t, 4, tree[1].ID)
}

func TestPlanningService_ReorderActs(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewPlanningServiceWithLogger(db, testLogger())

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE acts SET sort_order = \$2 WHERE id = \$1`).WithArgs(3, 0).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE acts SET sort_order = \$2 WHERE id = \$1`).WithArgs(1, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, service.ReorderActs(context.Background(), []int{3, 1}))

	mock.ExpectBegin()
	mock.ExpectRollback()
	err := service.ReorderActs(context.Background(), nil)
	assert.True(t, errors.Is(err, contextutils.ErrInvalidInput))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE acts SET sort_order`).WithArgs(1, 0).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()
	err = service.ReorderActs(context.Background(), []int{1, 1})
	assert.True(t, errors.Is(err, contextutils.ErrInvalidInput))
}

func TestPlanningService_Plans(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewPlanningServiceWithLogger(db, testLogger())

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO plans`).
		WithArgs("Q1 goals", nil, nil, nil, 0).
		WillReturnRows(sqlmock.NewRows(planCols).AddRow(1, "Q1 goals", nil, nil, nil, 0))
	mock.ExpectCommit()

	plan, err := service.CreatePlan(context.Background(), models.PlanInput{Title: strPtr("Q1 goals")})
	require.NoError(t, err)
	assert.Equal(t, 1, plan.ID)

	mock.ExpectQuery(`SELECT id, title, start_date, end_date, parent_id, sort_order FROM plans ORDER BY sort_order, id`).
		WillReturnRows(sqlmock.NewRows(planCols).
			AddRow(1, "Q1 goals", nil, nil, nil, 0).
			AddRow(2, "January", nil, nil, 1, 0))

	tree, err := service.PlanTree(context.Background())
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM plans WHERE id = \$1 FOR UPDATE`).WithArgs(1).
		WillReturnRows(sqlmock.NewRows(planCols).AddRow(1, "Q1 goals", nil, nil, nil, 0))
	mock.ExpectExec(`UPDATE plans SET parent_id = \$2 WHERE parent_id = \$1`).WithArgs(1, nil).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE tasks SET plan_id = NULL WHERE plan_id = \$1`).WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM plan_notes WHERE plan_id = \$1`).WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM plans WHERE id = \$1`).WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, service.DeletePlan(context.Background(), 1))
}

func TestPlanningService_Tasks(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewPlanningServiceWithLogger(db, testLogger())
	due := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO tasks`).
		WithArgs("Write summary", nil, nil, due, 1, nil, 0).
		WillReturnRows(sqlmock.NewRows(taskCols).AddRow(3, "Write summary", nil, nil, due, 1, nil, 0))

	task, err := service.CreateTask(context.Background(), models.TaskInput{Title: strPtr("Write summary"), EndDate: &due, PlanID: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, 3, task.ID)
	assert.Equal(t, 1, *task.PlanID)

	mock.ExpectQuery(`FROM tasks\s+WHERE \(\$1::INTEGER IS NULL OR plan_id = \$1::INTEGER\)`).
		WithArgs(1, nil).
		WillReturnRows(sqlmock.NewRows(taskCols).AddRow(3, "Write summary", nil, nil, due, 1, nil, 0))

	tasks, err := service.ListTasks(context.Background(), models.TaskFilter{PlanID: intPtr(1)})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	mock.ExpectExec(`DELETE FROM tasks WHERE id = \$1`).WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 0))
	err = service.DeleteTask(context.Background(), 3)
	assert.True(t, errors.Is(err, contextutils.ErrRecordNotFound))

	_, err = service.CreateTask(context.Background(), models.TaskInput{})
	assert.True(t, errors.Is(err, contextutils.ErrInvalidInput))
}

func TestPlanningService_Notes(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewPlanningServiceWithLogger(db, testLogger())
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM acts WHERE id = \$1\)`).WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`INSERT INTO act_notes \(act_id, content\)`).WithArgs(2, "went well").
		WillReturnRows(sqlmock.NewRows([]string{"id", "content", "created_at"}).AddRow(10, "went well", now))
	mock.ExpectCommit()

	note, err := service.AddNote(context.Background(), models.NoteKindAct, 2, " went well ")
	require.NoError(t, err)
	assert.Equal(t, 10, note.ID)
	assert.Equal(t, models.NoteKindAct, note.Kind)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM plans WHERE id = \$1\)`).WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err = service.AddNote(context.Background(), models.NoteKindPlan, 9, "x")
	assert.True(t, errors.Is(err, contextutils.ErrRecordNotFound))

	mock.ExpectQuery(`FROM plan_notes\s+WHERE plan_id = \$1\s+ORDER BY created_at DESC`).WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"id", "content", "created_at"}).AddRow(2, "b", now).AddRow(1, "a", now.Add(-time.Hour)))

	notes, err := service.ListNotes(context.Background(), models.NoteKindPlan, 4)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, 4, notes[0].OwnerID)

	mock.ExpectExec(`DELETE FROM act_notes WHERE id = \$1 AND act_id = \$2`).WithArgs(10, 2).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, service.DeleteNote(context.Background(), models.NoteKindAct, 2, 10))

	_, err = service.ListNotes(context.Background(), models.NoteKind("task"), 1)
	assert.True(t, errors.Is(err, contextutils.ErrInvalidInput))

	_, err = service.AddNote(context.Background(), models.NoteKindAct, 2, "   ")
	assert.True(t, errors.Is(err, contextutils.ErrInvalidInput))
}
