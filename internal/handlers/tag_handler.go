package handlers

import (
	"net/http"

	"github.com/rshatalov/rpy/internal/models"
	"github.com/rshatalov/rpy/internal/observability"
	"github.com/rshatalov/rpy/internal/services"

	"github.com/gin-gonic/gin"
)

// TagHandler serves question tags
type TagHandler struct {
	tagService services.TagServiceInterface
	logger     *observability.Logger
}

// NewTagHandler creates a new TagHandler instance
func NewTagHandler(tagService services.TagServiceInterface, logger *observability.Logger) *TagHandler {
	return &TagHandler{tagService: tagService, logger: logger}
}

// ListTags handles GET /v1/tags
func (h *TagHandler) ListTags(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_tags")
	defer observability.FinishSpan(span, nil)

	tags, err := h.tagService.ListTags(ctx)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// CreateTag handles POST /v1/tags
func (h *TagHandler) CreateTag(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_tag")
	defer observability.FinishSpan(span, nil)

	var req models.TagInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn(ctx, "Invalid create tag request", map[string]interface{}{"error": err.Error()})
		HandleBindError(c, err)
		return
	}
	tag, err := h.tagService.CreateTag(ctx, req)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

// GetTag handles GET /v1/tags/:slug
func (h *TagHandler) GetTag(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_tag", observability.AttributeTag(c.Param("slug")))
	defer observability.FinishSpan(span, nil)

	tag, err := h.tagService.GetTag(ctx, c.Param("slug"))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

// UpdateTag handles PUT /v1/tags/:slug
func (h *TagHandler) UpdateTag(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_tag", observability.AttributeTag(c.Param("slug")))
	defer observability.FinishSpan(span, nil)

	var req models.TagInput
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}
	tag, err := h.tagService.UpdateTag(ctx, c.Param("slug"), req)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

// DeleteTag handles DELETE /v1/tags/:slug
func (h *TagHandler) DeleteTag(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_tag", observability.AttributeTag(c.Param("slug")))
	defer observability.FinishSpan(span, nil)

	if err := h.tagService.DeleteTag(ctx, c.Param("slug")); err != nil {
		HandleAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
