package handlers

import (
	"net/http"

	"github.com/rshatalov/rpy/internal/config"
	"github.com/rshatalov/rpy/internal/models"
	"github.com/rshatalov/rpy/internal/observability"
	"github.com/rshatalov/rpy/internal/services"

	"github.com/gin-gonic/gin"
)

// QuestionHandler serves the question bank
type QuestionHandler struct {
	questionService services.QuestionServiceInterface
	logger          *observability.Logger
}

// NewQuestionHandler creates a new QuestionHandler instance
func NewQuestionHandler(questionService services.QuestionServiceInterface, logger *observability.Logger) *QuestionHandler {
	return &QuestionHandler{questionService: questionService, logger: logger}
}

// ListQuestions handles GET /v1/questions?page=&page_size=&tag=&search=
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_questions")
	defer observability.FinishSpan(span, nil)

	page, size, err := ParsePagination(c, 1, config.DefaultPageSize)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	filters := ParseFilters(c, "tag", "search")

	result, err := h.questionService.ListQuestions(ctx, models.QuestionFilter{
		Page: page, PageSize: size, Tag: filters["tag"], Search: filters["search"],
	})
	if err != nil {
		HandleAppError(c, err)
		return
	}
	WritePaginated(c, "questions", result.Items, NewPagination(result.Page, result.PageSize, result.Total))
}

// CreateQuestion handles POST /v1/questions
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_question")
	defer observability.FinishSpan(span, nil)

	var req models.QuestionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn(ctx, "Invalid create question request", map[string]interface{}{"error": err.Error()})
		HandleBindError(c, err)
		return
	}
	question, err := h.questionService.CreateQuestion(ctx, req)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, question)
}

// GetQuestion handles GET /v1/questions/:id
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_question")
	defer observability.FinishSpan(span, nil)

	id, err := pathID(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	question, err := h.questionService.GetQuestion(ctx, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

// UpdateQuestion handles PUT /v1/questions/:id
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_question")
	defer observability.FinishSpan(span, nil)

	id, err := pathID(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	var req models.QuestionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}
	question, err := h.questionService.UpdateQuestion(ctx, id, req)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

// DeleteQuestion handles DELETE /v1/questions/:id
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_question")
	defer observability.FinishSpan(span, nil)

	id, err := pathID(c, "id")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	if err := h.questionService.DeleteQuestion(ctx, id); err != nil {
		HandleAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
