package handlers

import (
	"net/http"

	"github.com/rshatalov/rpy/internal/models"
	"github.com/rshatalov/rpy/internal/observability"
	"github.com/rshatalov/rpy/internal/services"

	"github.com/gin-gonic/gin"
)

// StudyHandler serves study sessions, question selection and ratings
type StudyHandler struct {
	studyService services.StudyServiceInterface
	logger       *observability.Logger
}

// NewStudyHandler creates a new StudyHandler instance
func NewStudyHandler(studyService services.StudyServiceInterface, logger *observability.Logger) *StudyHandler {
	return &StudyHandler{studyService: studyService, logger: logger}
}

// RatingRequest is the body of a rating call
type RatingRequest struct {
	Rating string `json:"rating"`
}

// StartSession handles POST /v1/study/sessions
func (h *StudyHandler) StartSession(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "start_session")
	defer observability.FinishSpan(span, nil)

	var req models.SessionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn(ctx, "Invalid start session request", map[string]interface{}{"error": err.Error()})
		HandleBindError(c, err)
		return
	}

	session, err := h.studyService.StartSession(ctx, req)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeSessionID(session.ID))
	c.JSON(http.StatusCreated, session)
}

// ListSessions handles GET /v1/study/sessions
func (h *StudyHandler) ListSessions(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_sessions")
	defer observability.FinishSpan(span, nil)

	sessions, err := h.studyService.ListSessions(ctx, queryBool(c, "active"))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// GetSession handles GET /v1/study/sessions/:id
func (h *StudyHandler) GetSession(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_session")
	defer observability.FinishSpan(span, nil)

	id, err := pathID(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	session, err := h.studyService.GetSession(ctx, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// EndSession handles POST /v1/study/sessions/:id/end
func (h *StudyHandler) EndSession(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "end_session")
	defer observability.FinishSpan(span, nil)

	id, err := pathID(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	session, err := h.studyService.EndSession(ctx, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// DeleteSession handles DELETE /v1/study/sessions/:id
func (h *StudyHandler) DeleteSession(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_session")
	defer observability.FinishSpan(span, nil)

	id, err := pathID(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	if err := h.studyService.DeleteSession(ctx, id); err != nil {
		HandleAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SelectNext handles POST /v1/study/sessions/:id/next.
// A fully mastered session answers 200 with status "no_questions_available".
func (h *StudyHandler) SelectNext(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "select_next")
	defer observability.FinishSpan(span, nil)

	id, err := pathID(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeSessionID(id))

	result, err := h.studyService.SelectNext(ctx, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RateQuestion handles POST /v1/study/sessions/:id/questions/:question_id/rating
func (h *StudyHandler) RateQuestion(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "rate_question")
	defer observability.FinishSpan(span, nil)

	sessionID, err := pathID(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	questionID, err := pathID(c, "question_id")
	if err != nil {
		HandleAppError(c, err)
		return
	}

	var req RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn(ctx, "Invalid rating request", map[string]interface{}{"error": err.Error()})
		HandleBindError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeSessionID(sessionID), observability.AttributeQuestionID(questionID),
		observability.AttributeRating(req.Rating))

	progress, err := h.studyService.RateQuestion(ctx, sessionID, questionID, req.Rating)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// GetSessionStatistics handles GET /v1/study/sessions/:id/statistics
func (h *StudyHandler) GetSessionStatistics(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_session_statistics")
	defer observability.FinishSpan(span, nil)

	id, err := pathID(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	stats, err := h.studyService.GetSessionStatistics(ctx, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
