package handlers

import (
	"context"
	"net/http"

	"github.com/rshatalov/rpy/internal/models"
	"github.com/rshatalov/rpy/internal/observability"
	"github.com/rshatalov/rpy/internal/services"
	contextutils "github.com/rshatalov/rpy/internal/utils"

	"github.com/gin-gonic/gin"
)

// TimeTrackingHandler serves per-day time entries and timers
type TimeTrackingHandler struct {
	timeService services.TimeTrackingServiceInterface
	logger      *observability.Logger
}

// NewTimeTrackingHandler creates a new TimeTrackingHandler instance
func NewTimeTrackingHandler(timeService services.TimeTrackingServiceInterface, logger *observability.Logger) *TimeTrackingHandler {
	return &TimeTrackingHandler{timeService: timeService, logger: logger}
}

// TimeEntryRequest sets the time and count of a day
type TimeEntryRequest struct {
	Time  int     `json:"time" binding:"min=0"`
	Count float64 `json:"count" binding:"min=0"`
}

// AddTimeRequest adds seconds to a day
type AddTimeRequest struct {
	Seconds int `json:"seconds" binding:"required,min=1"`
}

// TimerRequest is the body of a new timer
type TimerRequest struct {
	ActID *int `json:"act_id,omitempty"`
}

func dayParam(c *gin.Context) (models.Date, error) {
	day, err := models.ParseDate(c.Param("day"))
	if err != nil {
		return models.Date{}, contextutils.ErrInvalidFormat.With("day must be YYYY-MM-DD", err)
	}
	return day, nil
}

// ListTimes handles GET /v1/acts/:id/times?from=&to=
func (h *TimeTrackingHandler) ListTimes(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_times")
	defer observability.FinishSpan(span, nil)

	actID, err := pathID(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	from, err := optionalQueryDate(c, "from")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	to, err := optionalQueryDate(c, "to")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	entries, err := h.timeService.ListTimes(ctx, actID, from, to)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"times": entries})
}

// UpsertTime handles PUT /v1/acts/:id/times/:day
func (h *TimeTrackingHandler) UpsertTime(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "upsert_time")
	defer observability.FinishSpan(span, nil)

	actID, err := pathID(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	day, err := dayParam(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	var req TimeEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}
	entry, err := h.timeService.UpsertTime(ctx, actID, day, req.Time, req.Count)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// AddTime handles POST /v1/acts/:id/times/:day
func (h *TimeTrackingHandler) AddTime(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "add_time")
	defer observability.FinishSpan(span, nil)

	actID, err := pathID(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	day, err := dayParam(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	var req AddTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}
	entry, err := h.timeService.AddTime(ctx, actID, day, req.Seconds)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// ListTimers handles GET /v1/timers
func (h *TimeTrackingHandler) ListTimers(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_timers")
	defer observability.FinishSpan(span, nil)

	timers, err := h.timeService.ListTimers(ctx)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timers": timers})
}

// CreateTimer handles POST /v1/timers
func (h *TimeTrackingHandler) CreateTimer(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_timer")
	defer observability.FinishSpan(span, nil)

	var req TimerRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleBindError(c, err)
			return
		}
	}
	timer, err := h.timeService.CreateTimer(ctx, req.ActID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, timer)
}

// GetTimer handles GET /v1/timers/:id
func (h *TimeTrackingHandler) GetTimer(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_timer")
	defer observability.FinishSpan(span, nil)

	id, err := pathID(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	timer, err := h.timeService.GetTimer(ctx, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, timer)
}

// DeleteTimer handles DELETE /v1/timers/:id
func (h *TimeTrackingHandler) DeleteTimer(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_timer")
	defer observability.FinishSpan(span, nil)

	id, err := pathID(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	if err := h.timeService.DeleteTimer(ctx, id); err != nil {
		HandleAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StartTimer handles POST /v1/timers/:id/start
func (h *TimeTrackingHandler) StartTimer(c *gin.Context) {
	h.transition(c, "start_timer", h.timeService.StartTimer)
}

// PauseTimer handles POST /v1/timers/:id/pause
func (h *TimeTrackingHandler) PauseTimer(c *gin.Context) {
	h.transition(c, "pause_timer", h.timeService.PauseTimer)
}

// StopTimer handles POST /v1/timers/:id/stop
func (h *TimeTrackingHandler) StopTimer(c *gin.Context) {
	h.transition(c, "stop_timer", h.timeService.StopTimer)
}

func (h *TimeTrackingHandler) transition(c *gin.Context, name string, apply func(ctx context.Context, id int) (*models.Timer, error)) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), name)
	defer observability.FinishSpan(span, nil)

	id, err := pathID(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeTimerID(id))
	timer, err := apply(ctx, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, timer)
}
