package handlers

import (
	"net/http"

	"github.com/rshatalov/rpy/internal/models"
	"github.com/rshatalov/rpy/internal/observability"
	"github.com/rshatalov/rpy/internal/services"

	"github.com/gin-gonic/gin"
)

// PlanningHandler serves acts, plans, tasks and notes
type PlanningHandler struct {
	planningService services.PlanningServiceInterface
	logger          *observability.Logger
}

// NewPlanningHandler creates a new PlanningHandler instance
func NewPlanningHandler(planningService services.PlanningServiceInterface, logger *observability.Logger) *PlanningHandler {
	return &PlanningHandler{planningService: planningService, logger: logger}
}

// ReorderRequest lists ids in their new order
type ReorderRequest struct {
	IDs []int `json:"ids" binding:"required,min=1"`
}

// NoteRequest is the body of a new note
type NoteRequest struct {
	Content string `json:"content" binding:"required"`
}

// ListActs handles GET /v1/acts?include_hidden=
func (h *PlanningHandler) ListActs(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_acts")
	defer observability.FinishSpan(span, nil)

	acts, err := h.planningService.ListActs(ctx, queryBool(c, "include_hidden"))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"acts": acts})
}

// ActTree handles GET /v1/acts/tree?include_hidden=
func (h *PlanningHandler) ActTree(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "act_tree")
	defer observability.FinishSpan(span, nil)

	tree, err := h.planningService.ActTree(ctx, queryBool(c, "include_hidden"))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"acts": tree})
}

// CreateAct handles POST /v1/acts
func (h *PlanningHandler) CreateAct(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_act")
	defer observability.FinishSpan(span, nil)

	var req models.ActInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn(ctx, "Invalid create act request", map[string]interface{}{"error": err.Error()})
		HandleBindError(c, err)
		return
	}
	act, err := h.planningService.CreateAct(ctx, req)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, act)
}

// GetAct handles GET /v1/acts/:id
func (h *PlanningHandler) GetAct(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_act")
	defer observability.FinishSpan(span, nil)

	id, err := pathID(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	act, err := h.planningService.GetAct(ctx, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, act)
}

// UpdateAct handles PUT /v1/acts/:id
func (h *PlanningHandler) UpdateAct(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_act")
	defer observability.FinishSpan(span, nil)

	id, err := pathID(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	var req models.ActInput
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}
	act, err := h.planningService.UpdateAct(ctx, id, req)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, act)
}

// DeleteAct handles DELETE /v1/acts/:id
func (h *PlanningHandler) DeleteAct(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_act")
	defer observability.FinishSpan(span, nil)

	id, err := pathID(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	if err := h.planningService.DeleteAct(ctx, id); err != nil {
		HandleAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReorderActs handles POST /v1/acts/reorder
func (h *PlanningHandler) ReorderActs(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "reorder_acts")
	defer observability.FinishSpan(span, nil)

	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}
	if err := h.planningService.ReorderActs(ctx, req.IDs); err != nil {
		HandleAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListPlans handles GET /v1/plans
func (h *PlanningHandler) ListPlans(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_plans")
	defer observability.FinishSpan(span, nil)

	plans, err := h.planningService.ListPlans(ctx)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

// PlanTree handles GET /v1/plans/tree
func (h *PlanningHandler) PlanTree(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "plan_tree")
	defer observability.FinishSpan(span, nil)

	tree, err := h.planningService.PlanTree(ctx)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": tree})
}

// CreatePlan handles POST /v1/plans
func (h *PlanningHandler) CreatePlan(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_plan")
	defer observability.FinishSpan(span, nil)

	var req models.PlanInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn(ctx, "Invalid create plan request", map[string]interface{}{"error": err.Error()})
		HandleBindError(c, err)
		return
	}
	plan, err := h.planningService.CreatePlan(ctx, req)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// GetPlan handles GET /v1/plans/:id
func (h *PlanningHandler) GetPlan(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_plan")
	defer observability.FinishSpan(span, nil)

	id, err := pathID(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	plan, err := h.planningService.GetPlan(ctx, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// UpdatePlan handles PUT /v1/plans/:id
func (h *PlanningHandler) UpdatePlan(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_plan")
	defer observability.FinishSpan(span, nil)

	id, err := pathID(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	var req models.PlanInput
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}
	plan, err := h.planningService.UpdatePlan(ctx, id, req)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// DeletePlan handles DELETE /v1/plans/:id
func (h *PlanningHandler) DeletePlan(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_plan")
	defer observability.FinishSpan(span, nil)

	id, err := pathID(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	if err := h.planningService.DeletePlan(ctx, id); err != nil {
		HandleAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReorderPlans handles POST /v1/plans/reorder
func (h *PlanningHandler) ReorderPlans(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "reorder_plans")
	defer observability.FinishSpan(span, nil)

	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}
	if err := h.planningService.ReorderPlans(ctx, req.IDs); err != nil {
		HandleAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListTasks handles GET /v1/tasks?plan_id=&act_id=
func (h *PlanningHandler) ListTasks(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_tasks")
	defer observability.FinishSpan(span, nil)

	planID, err := optionalQueryID(c, "plan_id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	actID, err := optionalQueryID(c, "act_id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	tasks, err := h.planningService.ListTasks(ctx, models.TaskFilter{PlanID: planID, ActID: actID})
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// CreateTask handles POST /v1/tasks
func (h *PlanningHandler) CreateTask(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_task")
	defer observability.FinishSpan(span, nil)

	var req models.TaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}
	task, err := h.planningService.CreateTask(ctx, req)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// GetTask handles GET /v1/tasks/:id
func (h *PlanningHandler) GetTask(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_task")
	defer observability.FinishSpan(span, nil)

	id, err := pathID(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	task, err := h.planningService.GetTask(ctx, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// UpdateTask handles PUT /v1/tasks/:id
func (h *PlanningHandler) UpdateTask(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_task")
	defer observability.FinishSpan(span, nil)

	id, err := pathID(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	var req models.TaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}
	task, err := h.planningService.UpdateTask(ctx, id, req)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeleteTask handles DELETE /v1/tasks/:id
func (h *PlanningHandler) DeleteTask(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_task")
	defer observability.FinishSpan(span, nil)

	id, err := pathID(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	if err := h.planningService.DeleteTask(ctx, id); err != nil {
		HandleAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListNotes returns the handler for GET /v1/{acts,plans}/:id/notes
func (h *PlanningHandler) ListNotes(kind models.NoteKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_notes")
		defer observability.FinishSpan(span, nil)

		ownerID, err := pathID(c, "id")
		if err != nil {
			HandleAppError(c, err)
			return
		}
		notes, err := h.planningService.ListNotes(ctx, kind, ownerID)
		if err != nil {
			HandleAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"notes": notes})
	}
}

// AddNote returns the handler for POST /v1/{acts,plans}/:id/notes
func (h *PlanningHandler) AddNote(kind models.NoteKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "add_note")
		defer observability.FinishSpan(span, nil)

		ownerID, err := pathID(c, "id")
		if err != nil {
			HandleAppError(c, err)
			return
		}
		var req NoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleBindError(c, err)
			return
		}
		note, err := h.planningService.AddNote(ctx, kind, ownerID, req.Content)
		if err != nil {
			HandleAppError(c, err)
			return
		}
		c.JSON(http.StatusCreated, note)
	}
}

// DeleteNote returns the handler for DELETE /v1/{acts,plans}/:id/notes/:note_id
func (h *PlanningHandler) DeleteNote(kind models.NoteKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_note")
		defer observability.FinishSpan(span, nil)

		ownerID, err := pathID(c, "id")
		if err != nil {
			HandleAppError(c, err)
			return
		}
		noteID, err := pathID(c, "note_id")
		if err != nil {
			HandleAppError(c, err)
			return
		}
		if err := h.planningService.DeleteNote(ctx, kind, ownerID, noteID); err != nil {
			HandleAppError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
