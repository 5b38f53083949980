package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rshatalov/rpy/internal/database"
	"github.com/rshatalov/rpy/internal/models"
	"github.com/rshatalov/rpy/internal/observability"
	contextutils "github.com/rshatalov/rpy/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// PlanningServiceInterface defines act, plan, task and note operations
type PlanningServiceInterface interface {
	CreateAct(ctx context.Context, input models.ActInput) (*models.Act, error)
	GetAct(ctx context.Context, id int) (*models.Act, error)
	UpdateAct(ctx context.Context, id int, input models.ActInput) (*models.Act, error)
	DeleteAct(ctx context.Context, id int) error
	ListActs(ctx context.Context, includeHidden bool) ([]models.Act, error)
	ActTree(ctx context.Context, includeHidden bool) ([]*models.Act, error)
	ReorderActs(ctx context.Context, ids []int) error

	CreatePlan(ctx context.Context, input models.PlanInput) (*models.Plan, error)
	GetPlan(ctx context.Context, id int) (*models.Plan, error)
	UpdatePlan(ctx context.Context, id int, input models.PlanInput) (*models.Plan, error)
	DeletePlan(ctx context.Context, id int) error
	ListPlans(ctx context.Context) ([]models.Plan, error)
	PlanTree(ctx context.Context) ([]*models.Plan, error)
	ReorderPlans(ctx context.Context, ids []int) error

	CreateTask(ctx context.Context, input models.TaskInput) (*models.Task, error)
	GetTask(ctx context.Context, id int) (*models.Task, error)
	UpdateTask(ctx context.Context, id int, input models.TaskInput) (*models.Task, error)
	DeleteTask(ctx context.Context, id int) error
	ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)

	AddNote(ctx context.Context, kind models.NoteKind, ownerID int, content string) (*models.Note, error)
	ListNotes(ctx context.Context, kind models.NoteKind, ownerID int) ([]models.Note, error)
	DeleteNote(ctx context.Context, kind models.NoteKind, ownerID, noteID int) error
}

// PlanningService manages acts, plans, tasks and their notes
type PlanningService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewPlanningServiceWithLogger creates a new planning service
func NewPlanningServiceWithLogger(db *sql.DB, logger *observability.Logger) *PlanningService {
	return &PlanningService{db: db, logger: logger}
}

const (
	actColumns  = `id, title, start_date, end_date, hidden, parent_id, sort_order`
	planColumns = `id, title, start_date, end_date, parent_id, sort_order`
	taskColumns = `id, title, description, start_date, end_date, plan_id, act_id, sort_order`
)

func scanAct(row rowScanner) (*models.Act, error) {
	var a models.Act
	var start, end models.NullDate
	var parent sql.NullInt64
	if err := row.Scan(&a.ID, &a.Title, &start, &end, &a.Hidden, &parent, &a.SortOrder); err != nil {
		return nil, err
	}
	a.StartDate, a.EndDate, a.ParentID = start.Ptr(), end.Ptr(), models.NullInt(parent)
	return &a, nil
}

func scanPlan(row rowScanner) (*models.Plan, error) {
	var p models.Plan
	var start, end models.NullDate
	var parent sql.NullInt64
	if err := row.Scan(&p.ID, &p.Title, &start, &end, &parent, &p.SortOrder); err != nil {
		return nil, err
	}
	p.StartDate, p.EndDate, p.ParentID = start.Ptr(), end.Ptr(), models.NullInt(parent)
	return &p, nil
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var description sql.NullString
	var start, end sql.NullTime
	var plan, act sql.NullInt64
	if err := row.Scan(&t.ID, &t.Title, &description, &start, &end, &plan, &act, &t.SortOrder); err != nil {
		return nil, err
	}
	t.Description = models.NullString(description)
	t.StartDate, t.EndDate = models.NullTime(start), models.NullTime(end)
	t.PlanID, t.ActID = models.NullInt(plan), models.NullInt(act)
	return &t, nil
}

func dateTime(d *models.Date) *time.Time {
	if d == nil {
		return nil
	}
	return &d.Time
}

func intValue(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", contextutils.NewInvalidInputf("title is required")
	}
	if len([]rune(title)) > 200 {
		return "", contextutils.NewInvalidInputf("title must be at most 200 characters")
	}
	return title, nil
}

// checkParent rejects a parent that is the node itself, one of its descendants, or missing
func checkParent(ctx context.Context, q database.Querier, table string, id int, parentID *int) error {
	if parentID == nil {
		return nil
	}
	if *parentID == id {
		return contextutils.NewInvalidInputf("%s %d cannot be its own parent", strings.TrimSuffix(table, "s"), id)
	}
	var exists, cycle bool
	err := q.QueryRowContext(ctx, fmt.Sprintf(`
		WITH RECURSIVE subtree AS (
			SELECT id FROM %[1]s WHERE id = $1
			UNION ALL
			SELECT c.id FROM %[1]s c JOIN subtree s ON c.parent_id = s.id
		)
		SELECT EXISTS (SELECT 1 FROM %[1]s WHERE id = $2),
		       EXISTS (SELECT 1 FROM subtree WHERE id = $2)`, table), id, *parentID).Scan(&exists, &cycle)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to check parent of %s %d", table, id)
	}
	if !exists {
		return contextutils.NewInvalidInputf("parent %d does not exist", *parentID)
	}
	if cycle {
		return contextutils.NewInvalidInputf("parent %d is a descendant of %d", *parentID, id)
	}
	return nil
}

func reorder(ctx context.Context, tx *sql.Tx, table string, ids []int) error {
	if len(ids) == 0 {
		return contextutils.NewInvalidInputf("ids must not be empty")
	}
	seen := map[int]bool{}
	for i, id := range ids {
		if seen[id] {
			return contextutils.NewInvalidInputf("duplicate id %d", id)
		}
		seen[id] = true
		res, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET sort_order = $2 WHERE id = $1`, table), id, i)
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to reorder %s", table)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return contextutils.NotFoundf(contextutils.ErrRecordNotFound, "%s %d", strings.TrimSuffix(table, "s"), id)
		}
	}
	return nil
}

// buildForest links nodes to their parents; nodes whose parent is absent become roots
func buildForest[T any](nodes []*T, id func(*T) int, parent func(*T) *int, adopt func(parent, child *T)) []*T {
	byID := make(map[int]*T, len(nodes))
	for _, n := range nodes {
		byID[id(n)] = n
	}
	roots := []*T{}
	for _, n := range nodes {
		if p := parent(n); p != nil {
			if owner, ok := byID[*p]; ok {
				adopt(owner, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots
}

// CreateAct creates an act
func (s *PlanningService) CreateAct(ctx context.Context, input models.ActInput) (result *models.Act, err error) {
	ctx, span := observability.TracePlanningFunction(ctx, "create_act")
	defer observability.FinishSpan(span, &err)

	act := &models.Act{StartDate: input.StartDate, EndDate: input.EndDate, ParentID: input.ParentID}
	if input.Title != nil {
		act.Title = *input.Title
	}
	if act.Title, err = normalizeTitle(act.Title); err != nil {
		return nil, err
	}
	if input.Hidden != nil {
		act.Hidden = *input.Hidden
	}
	if input.SortOrder != nil {
		act.SortOrder = *input.SortOrder
	}
	if err := contextutils.ValidateDateRange(dateTime(act.StartDate), dateTime(act.EndDate)); err != nil {
		return nil, err
	}

	err = database.WithTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if err := checkParent(ctx, tx, "acts", 0, act.ParentID); err != nil {
			return err
		}
		created, err := scanAct(tx.QueryRowContext(ctx, `
			INSERT INTO acts (title, start_date, end_date, hidden, parent_id, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+actColumns,
			act.Title, models.DateValue(act.StartDate), models.DateValue(act.EndDate), act.Hidden, intValue(act.ParentID), act.SortOrder))
		if err != nil {
			return contextutils.FromDatabaseError(err, "failed to create act")
		}
		result = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(observability.AttributeActID(result.ID))
	return result, nil
}

func getAct(ctx context.Context, q database.Querier, id int, lock bool) (*models.Act, error) {
	query := `SELECT ` + actColumns + ` FROM acts WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	act, err := noRows(scanAct(q.QueryRowContext(ctx, query, id)))
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to get act %d", id)
	}
	if act == nil {
		return nil, contextutils.NotFoundf(contextutils.ErrRecordNotFound, "act %d", id)
	}
	return act, nil
}

// GetAct returns a single act
func (s *PlanningService) GetAct(ctx context.Context, id int) (result *models.Act, err error) {
	ctx, span := observability.TracePlanningFunction(ctx, "get_act", observability.AttributeActID(id))
	defer observability.FinishSpan(span, &err)

	return getAct(ctx, s.db, id, false)
}

// UpdateAct applies the non-nil fields of input
func (s *PlanningService) UpdateAct(ctx context.Context, id int, input models.ActInput) (result *models.Act, err error) {
	ctx, span := observability.TracePlanningFunction(ctx, "update_act", observability.AttributeActID(id))
	defer observability.FinishSpan(span, &err)

	err = database.WithTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		act, err := getAct(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if input.Title != nil {
			if act.Title, err = normalizeTitle(*input.Title); err != nil {
				return err
			}
		}
		if input.StartDate != nil {
			act.StartDate = input.StartDate
		}
		if input.EndDate != nil {
			act.EndDate = input.EndDate
		}
		if input.Hidden != nil {
			act.Hidden = *input.Hidden
		}
		if input.SortOrder != nil {
			act.SortOrder = *input.SortOrder
		}
		if input.ClearParent {
			act.ParentID = nil
		} else if input.ParentID != nil {
			act.ParentID = input.ParentID
			if err := checkParent(ctx, tx, "acts", id, act.ParentID); err != nil {
				return err
			}
		}
		if err := contextutils.ValidateDateRange(dateTime(act.StartDate), dateTime(act.EndDate)); err != nil {
			return err
		}

		updated, err := scanAct(tx.QueryRowContext(ctx, `
			UPDATE acts
			SET title = $2, start_date = $3, end_date = $4, hidden = $5, parent_id = $6, sort_order = $7
			WHERE id = $1
			RETURNING `+actColumns,
			id, act.Title, models.DateValue(act.StartDate), models.DateValue(act.EndDate), act.Hidden, intValue(act.ParentID), act.SortOrder))
		if err != nil {
			return contextutils.FromDatabaseError(err, "failed to update act")
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteAct removes an act. Its children move to its parent, its tasks and timers are
// detached, and its notes and time entries are deleted.
func (s *PlanningService) DeleteAct(ctx context.Context, id int) (err error) {
	ctx, span := observability.TracePlanningFunction(ctx, "delete_act", observability.AttributeActID(id))
	defer observability.FinishSpan(span, &err)

	return database.WithTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		act, err := getAct(ctx, tx, id, true)
		if err != nil {
			return err
		}
		statements := []struct {
			query string
			args  []interface{}
		}{
			{`UPDATE acts SET parent_id = $2 WHERE parent_id = $1`, []interface{}{id, intValue(act.ParentID)}},
			{`UPDATE tasks SET act_id = NULL WHERE act_id = $1`, []interface{}{id}},
			{`UPDATE timers SET act_id = NULL WHERE act_id = $1`, []interface{}{id}},
			{`DELETE FROM act_notes WHERE act_id = $1`, []interface{}{id}},
			{`DELETE FROM times WHERE act_id = $1`, []interface{}{id}},
			{`DELETE FROM acts WHERE id = $1`, []interface{}{id}},
		}
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
				return contextutils.WrapErrorf(err, "failed to delete act %d", id)
			}
		}
		s.logger.Info(ctx, "Act deleted", map[string]interface{}{"act_id": id})
		return nil
	})
}

// ListActs returns acts ordered by sort order then id
func (s *PlanningService) ListActs(ctx context.Context, includeHidden bool) (result []models.Act, err error) {
	ctx, span := observability.TracePlanningFunction(ctx, "list_acts", attribute.Bool("include_hidden", includeHidden))
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+actColumns+`
		FROM acts
		WHERE ($1::BOOLEAN OR NOT hidden)
		ORDER BY sort_order, id`, includeHidden)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list acts")
	}
	defer func() { _ = rows.Close() }()

	result = []models.Act{}
	for rows.Next() {
		act, err := scanAct(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan act")
		}
		result = append(result, *act)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate acts")
	}
	return result, nil
}

// ActTree returns the acts nested under their parents
func (s *PlanningService) ActTree(ctx context.Context, includeHidden bool) ([]*models.Act, error) {
	acts, err := s.ListActs(ctx, includeHidden)
	if err != nil {
		return nil, err
	}
	nodes := make([]*models.Act, len(acts))
	for i := range acts {
		nodes[i] = &acts[i]
	}
	return buildForest(nodes,
		func(a *models.Act) int { return a.ID },
		func(a *models.Act) *int { return a.ParentID },
		func(parent, child *models.Act) { parent.Children = append(parent.Children, child) },
	), nil
}

// ReorderActs sets each act's sort order to its index in ids
func (s *PlanningService) ReorderActs(ctx context.Context, ids []int) (err error) {
	ctx, span := observability.TracePlanningFunction(ctx, "reorder_acts", attribute.Int("count", len(ids)))
	defer observability.FinishSpan(span, &err)

	return database.WithTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		return reorder(ctx, tx, "acts", ids)
	})
}

// CreatePlan creates a plan
func (s *PlanningService) CreatePlan(ctx context.Context, input models.PlanInput) (result *models.Plan, err error) {
	ctx, span := observability.TracePlanningFunction(ctx, "create_plan")
	defer observability.FinishSpan(span, &err)

	plan := &models.Plan{StartDate: input.StartDate, EndDate: input.EndDate, ParentID: input.ParentID}
	if input.Title != nil {
		plan.Title = *input.Title
	}
	if plan.Title, err = normalizeTitle(plan.Title); err != nil {
		return nil, err
	}
	if input.SortOrder != nil {
		plan.SortOrder = *input.SortOrder
	}
	if err := contextutils.ValidateDateRange(dateTime(plan.StartDate), dateTime(plan.EndDate)); err != nil {
		return nil, err
	}

	err = database.WithTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if err := checkParent(ctx, tx, "plans", 0, plan.ParentID); err != nil {
			return err
		}
		created, err := scanPlan(tx.QueryRowContext(ctx, `
			INSERT INTO plans (title, start_date, end_date, parent_id, sort_order)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+planColumns,
			plan.Title, models.DateValue(plan.StartDate), models.DateValue(plan.EndDate), intValue(plan.ParentID), plan.SortOrder))
		if err != nil {
			return contextutils.FromDatabaseError(err, "failed to create plan")
		}
		result = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(observability.AttributePlanID(result.ID))
	return result, nil
}

func getPlan(ctx context.Context, q database.Querier, id int, lock bool) (*models.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	plan, err := noRows(scanPlan(q.QueryRowContext(ctx, query, id)))
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to get plan %d", id)
	}
	if plan == nil {
		return nil, contextutils.NotFoundf(contextutils.ErrRecordNotFound, "plan %d", id)
	}
	return plan, nil
}

// GetPlan returns a single plan
func (s *PlanningService) GetPlan(ctx context.Context, id int) (result *models.Plan, err error) {
	ctx, span := observability.TracePlanningFunction(ctx, "get_plan", observability.AttributePlanID(id))
	defer observability.FinishSpan(span, &err)

	return getPlan(ctx, s.db, id, false)
}

// UpdatePlan applies the non-nil fields of input
func (s *PlanningService) UpdatePlan(ctx context.Context, id int, input models.PlanInput) (result *models.Plan, err error) {
	ctx, span := observability.TracePlanningFunction(ctx, "update_plan", observability.AttributePlanID(id))
	defer observability.FinishSpan(span, &err)

	err = database.WithTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		plan, err := getPlan(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if input.Title != nil {
			if plan.Title, err = normalizeTitle(*input.Title); err != nil {
				return err
			}
		}
		if input.StartDate != nil {
			plan.StartDate = input.StartDate
		}
		if input.EndDate != nil {
			plan.EndDate = input.EndDate
		}
		if input.SortOrder != nil {
			plan.SortOrder = *input.SortOrder
		}
		if input.ClearParent {
			plan.ParentID = nil
		} else if input.ParentID != nil {
			plan.ParentID = input.ParentID
			if err := checkParent(ctx, tx, "plans", id, plan.ParentID); err != nil {
				return err
			}
		}
		if err := contextutils.ValidateDateRange(dateTime(plan.StartDate), dateTime(plan.EndDate)); err != nil {
			return err
		}

		updated, err := scanPlan(tx.QueryRowContext(ctx, `
			UPDATE plans
			SET title = $2, start_date = $3, end_date = $4, parent_id = $5, sort_order = $6
			WHERE id = $1
			RETURNING `+planColumns,
			id, plan.Title, models.DateValue(plan.StartDate), models.DateValue(plan.EndDate), intValue(plan.ParentID), plan.SortOrder))
		if err != nil {
			return contextutils.FromDatabaseError(err, "failed to update plan")
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeletePlan removes a plan. Its children move to its parent, its tasks are detached
// and its notes are deleted.
func (s *PlanningService) DeletePlan(ctx context.Context, id int) (err error) {
	ctx, span := observability.TracePlanningFunction(ctx, "delete_plan", observability.AttributePlanID(id))
	defer observability.FinishSpan(span, &err)

	return database.WithTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		plan, err := getPlan(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE plans SET parent_id = $2 WHERE parent_id = $1`, id, intValue(plan.ParentID)); err != nil {
			return contextutils.WrapErrorf(err, "failed to re-parent children of plan %d", id)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET plan_id = NULL WHERE plan_id = $1`, id); err != nil {
			return contextutils.WrapErrorf(err, "failed to detach tasks of plan %d", id)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM plan_notes WHERE plan_id = $1`, id); err != nil {
			return contextutils.WrapErrorf(err, "failed to delete notes of plan %d", id)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM plans WHERE id = $1`, id); err != nil {
			return contextutils.WrapErrorf(err, "failed to delete plan %d", id)
		}
		return nil
	})
}

// ListPlans returns plans ordered by sort order then id
func (s *PlanningService) ListPlans(ctx context.Context) (result []models.Plan, err error) {
	ctx, span := observability.TracePlanningFunction(ctx, "list_plans")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `SELECT `+planColumns+` FROM plans ORDER BY sort_order, id`)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list plans")
	}
	defer func() { _ = rows.Close() }()

	result = []models.Plan{}
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan plan")
		}
		result = append(result, *plan)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate plans")
	}
	return result, nil
}

// PlanTree returns the plans nested under their parents
func (s *PlanningService) PlanTree(ctx context.Context) ([]*models.Plan, error) {
	plans, err := s.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	nodes := make([]*models.Plan, len(plans))
	for i := range plans {
		nodes[i] = &plans[i]
	}
	return buildForest(nodes,
		func(p *models.Plan) int { return p.ID },
		func(p *models.Plan) *int { return p.ParentID },
		func(parent, child *models.Plan) { parent.Children = append(parent.Children, child) },
	), nil
}

// ReorderPlans sets each plan's sort order to its index in ids
func (s *PlanningService) ReorderPlans(ctx context.Context, ids []int) (err error) {
	ctx, span := observability.TracePlanningFunction(ctx, "reorder_plans", attribute.Int("count", len(ids)))
	defer observability.FinishSpan(span, &err)

	return database.WithTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		return reorder(ctx, tx, "plans", ids)
	})
}

func applyTaskInput(task *models.Task, input models.TaskInput) error {
	if input.Title != nil {
		title, err := normalizeTitle(*input.Title)
		if err != nil {
			return err
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = input.Description
	}
	if input.StartDate != nil {
		task.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		task.EndDate = input.EndDate
	}
	if input.PlanID != nil {
		task.PlanID = input.PlanID
	}
	if input.ActID != nil {
		task.ActID = input.ActID
	}
	if input.SortOrder != nil {
		task.SortOrder = *input.SortOrder
	}
	if task.Title == "" {
		return contextutils.NewInvalidInputf("title is required")
	}
	return contextutils.ValidateDateRange(task.StartDate, task.EndDate)
}

// CreateTask creates a task attached to an optional plan and act
func (s *PlanningService) CreateTask(ctx context.Context, input models.TaskInput) (result *models.Task, err error) {
	ctx, span := observability.TracePlanningFunction(ctx, "create_task")
	defer observability.FinishSpan(span, &err)

	task := &models.Task{}
	if err := applyTaskInput(task, input); err != nil {
		return nil, err
	}
	created, err := scanTask(s.db.QueryRowContext(ctx, `
		INSERT INTO tasks (title, description, start_date, end_date, plan_id, act_id, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+taskColumns,
		task.Title, task.Description, task.StartDate, task.EndDate, intValue(task.PlanID), intValue(task.ActID), task.SortOrder))
	if err != nil {
		return nil, contextutils.FromDatabaseError(err, "failed to create task")
	}
	return created, nil
}

func getTask(ctx context.Context, q database.Querier, id int) (*models.Task, error) {
	task, err := noRows(scanTask(q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)))
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to get task %d", id)
	}
	if task == nil {
		return nil, contextutils.NotFoundf(contextutils.ErrRecordNotFound, "task %d", id)
	}
	return task, nil
}

// GetTask returns a single task
func (s *PlanningService) GetTask(ctx context.Context, id int) (result *models.Task, err error) {
	ctx, span := observability.TracePlanningFunction(ctx, "get_task", attribute.Int("task.id", id))
	defer observability.FinishSpan(span, &err)

	return getTask(ctx, s.db, id)
}

// UpdateTask applies the non-nil fields of input
func (s *PlanningService) UpdateTask(ctx context.Context, id int, input models.TaskInput) (result *models.Task, err error) {
	ctx, span := observability.TracePlanningFunction(ctx, "update_task", attribute.Int("task.id", id))
	defer observability.FinishSpan(span, &err)

	err = database.WithTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		task, err := getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := applyTaskInput(task, input); err != nil {
			return err
		}
		updated, err := scanTask(tx.QueryRowContext(ctx, `
			UPDATE tasks
			SET title = $2, description = $3, start_date = $4, end_date = $5, plan_id = $6, act_id = $7, sort_order = $8
			WHERE id = $1
			RETURNING `+taskColumns,
			id, task.Title, task.Description, task.StartDate, task.EndDate, intValue(task.PlanID), intValue(task.ActID), task.SortOrder))
		if err != nil {
			return contextutils.FromDatabaseError(err, "failed to update task")
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteTask removes a task
func (s *PlanningService) DeleteTask(ctx context.Context, id int) (err error) {
	ctx, span := observability.TracePlanningFunction(ctx, "delete_task", attribute.Int("task.id", id))
	defer observability.FinishSpan(span, &err)

	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to delete task %d", id)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return contextutils.NotFoundf(contextutils.ErrRecordNotFound, "task %d", id)
	}
	return nil
}

// ListTasks returns tasks matching the filter ordered by sort order then id
func (s *PlanningService) ListTasks(ctx context.Context, filter models.TaskFilter) (result []models.Task, err error) {
	ctx, span := observability.TracePlanningFunction(ctx, "list_tasks")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE ($1::INTEGER IS NULL OR plan_id = $1::INTEGER)
		  AND ($2::INTEGER IS NULL OR act_id = $2::INTEGER)
		ORDER BY sort_order, id`, intValue(filter.PlanID), intValue(filter.ActID))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list tasks")
	}
	defer func() { _ = rows.Close() }()

	result = []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan task")
		}
		result = append(result, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate tasks")
	}
	return result, nil
}

// noteTables maps a note kind to its table, owner column and owner table
func noteTables(kind models.NoteKind) (table, ownerColumn, ownerTable string, err error) {
	switch kind {
	case models.NoteKindAct:
		return "act_notes", "act_id", "acts", nil
	case models.NoteKindPlan:
		return "plan_notes", "plan_id", "plans", nil
	}
	return "", "", "", contextutils.NewInvalidInputf("unknown note kind %q", kind)
}

// AddNote attaches a note to an act or a plan
func (s *PlanningService) AddNote(ctx context.Context, kind models.NoteKind, ownerID int, content string) (result *models.Note, err error) {
	ctx, span := observability.TracePlanningFunction(ctx, "add_note", attribute.String("note.kind", string(kind)), attribute.Int("note.owner_id", ownerID))
	defer observability.FinishSpan(span, &err)

	table, ownerColumn, ownerTable, err := noteTables(kind)
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, contextutils.NewInvalidInputf("note content is required")
	}

	err = database.WithTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, ownerTable), ownerID).Scan(&exists); err != nil {
			return contextutils.WrapError(err, "failed to check note owner")
		}
		if !exists {
			return contextutils.NotFoundf(contextutils.ErrRecordNotFound, "%s %d", kind, ownerID)
		}
		note := &models.Note{Kind: kind, OwnerID: ownerID}
		err := tx.QueryRowContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (%s, content)
			VALUES ($1, $2)
			RETURNING id, content, created_at`, table, ownerColumn), ownerID, content).Scan(&note.ID, &note.Content, &note.CreatedAt)
		if err != nil {
			return contextutils.FromDatabaseError(err, "failed to add note")
		}
		result = note
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListNotes returns the notes of an act or a plan, newest first
func (s *PlanningService) ListNotes(ctx context.Context, kind models.NoteKind, ownerID int) (result []models.Note, err error) {
	ctx, span := observability.TracePlanningFunction(ctx, "list_notes", attribute.String("note.kind", string(kind)), attribute.Int("note.owner_id", ownerID))
	defer observability.FinishSpan(span, &err)

	table, ownerColumn, _, err := noteTables(kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, content, created_at
		FROM %s
		WHERE %s = $1
		ORDER BY created_at DESC, id DESC`, table, ownerColumn), ownerID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list notes")
	}
	defer func() { _ = rows.Close() }()

	result = []models.Note{}
	for rows.Next() {
		note := models.Note{Kind: kind, OwnerID: ownerID}
		if err := rows.Scan(&note.ID, &note.Content, &note.CreatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan note")
		}
		result = append(result, note)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate notes")
	}
	return result, nil
}

// DeleteNote removes a note belonging to the given act or plan
func (s *PlanningService) DeleteNote(ctx context.Context, kind models.NoteKind, ownerID, noteID int) (err error) {
	ctx, span := observability.TracePlanningFunction(ctx, "delete_note", attribute.String("note.kind", string(kind)), attribute.Int("note.id", noteID))
	defer observability.FinishSpan(span, &err)

	table, ownerColumn, _, err := noteTables(kind)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND %s = $2`, table, ownerColumn), noteID, ownerID)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete note")
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return contextutils.NotFoundf(contextutils.ErrRecordNotFound, "note %d", noteID)
	}
	return nil
}
