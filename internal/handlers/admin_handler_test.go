package handlers

import (
	"net/http"
	"testing"

	"github.com/rshatalov/rpy/internal/models"
	contextutils "github.com/rshatalov/rpy/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestAdminHandler_ListTables(t *testing.T) {
	api := newTestAPI(t)
	api.inspection.On("ListTables", mock.Anything).Return([]models.TableInfo{
		{Name: "questions", RowCount: 12},
		{Name: "tags", RowCount: 3},
	}, nil)

	w, response := api.do(t, "GET", "/v1/admin/db/tables", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	tables := response["tables"].([]interface{})
	assert.Len(t, tables, 2)
	assert.Equal(t, float64(12), tables[0].(map[string]interface{})["row_count"])
}

func TestAdminHandler_PeekTable(t *testing.T) {
	api := newTestAPI(t)
	api.inspection.On("PeekTable", mock.Anything, "tags", 0).
		Return([]map[string]interface{}{{"slug": "go", "title": "Go"}}, nil)
	api.inspection.On("PeekTable", mock.Anything, "tags", 5).
		Return([]map[string]interface{}{}, nil)
	api.inspection.On("PeekTable", mock.Anything, "pg_authid", 0).
		Return(nil, contextutils.NewInvalidInputf("unknown table %q", "pg_authid"))

	w, response := api.do(t, "GET", "/v1/admin/db/tables/tags", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tags", response["table"])
	assert.Len(t, response["rows"], 1)

	w, _ = api.do(t, "GET", "/v1/admin/db/tables/tags?limit=5", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = api.do(t, "GET", "/v1/admin/db/tables/tags?limit=five", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = api.do(t, "GET", "/v1/admin/db/tables/pg_authid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
