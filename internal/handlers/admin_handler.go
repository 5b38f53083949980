// Package handlers provides HTTP request handlers for the study and planning API.
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rshatalov/rpy/internal/observability"
	"github.com/rshatalov/rpy/internal/services"
	contextutils "github.com/rshatalov/rpy/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// AdminHandler serves read-only database inspection
type AdminHandler struct {
	inspectionService services.InspectionServiceInterface
	logger            *observability.Logger
}

// NewAdminHandlerWithLogger creates a new AdminHandler
func NewAdminHandlerWithLogger(inspectionService services.InspectionServiceInterface, logger *observability.Logger) *AdminHandler {
	return &AdminHandler{inspectionService: inspectionService, logger: logger}
}

// ListTables handles GET /v1/admin/db/tables
func (h *AdminHandler) ListTables(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_tables")
	defer observability.FinishSpan(span, nil)

	tables, err := h.inspectionService.ListTables(ctx)
	if err != nil {
		h.logger.Error(ctx, "Failed to list tables", err)
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tables": tables})
}

// PeekTable handles GET /v1/admin/db/tables/:table?limit=
func (h *AdminHandler) PeekTable(c *gin.Context) {
	table := c.Param("table")
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "peek_table", attribute.String("db.table", table))
	defer observability.FinishSpan(span, nil)

	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			HandleAppError(c, contextutils.NewInvalidInputf("limit must be an integer, got %q", raw))
			return
		}
		limit = v
	}

	rows, err := h.inspectionService.PeekTable(ctx, table, limit)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"table": table, "rows": rows})
}
