package handlers

import (
	"net/http"
	"strconv"
	"strings"

	contextutils "github.com/rshatalov/rpy/internal/utils"

	"github.com/gin-gonic/gin"
)

// Pagination describes one page of a listing
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes the page count for total items
func NewPagination(page, pageSize, total int) Pagination {
	p := Pagination{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		p.TotalPages = (total + pageSize - 1) / pageSize
	}
	return p
}

// ParsePagination reads page and page_size. Missing values take the defaults;
// values that are not positive integers are rejected. The upper bound on
// page_size is left to the service.
func ParsePagination(c *gin.Context, defaultPage, defaultSize int) (int, int, error) {
	page, err := positiveQueryInt(c, "page", defaultPage)
	if err != nil {
		return 0, 0, err
	}
	size, err := positiveQueryInt(c, "page_size", defaultSize)
	if err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

func positiveQueryInt(c *gin.Context, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, contextutils.NewInvalidInputf("%s must be a positive integer, got %q", key, raw)
	}
	return v, nil
}

// ParseFilters returns a map of non-empty trimmed query params for the given keys.
func ParseFilters(c *gin.Context, keys ...string) map[string]string {
	filters := make(map[string]string, len(keys))
	for _, key := range keys {
		if val := strings.TrimSpace(c.Query(key)); val != "" {
			filters[key] = val
		}
	}
	return filters
}

// WritePaginated writes items under itemsKey next to a pagination block
func WritePaginated(c *gin.Context, itemsKey string, items any, pagination Pagination) {
	c.JSON(http.StatusOK, gin.H{
		itemsKey:     items,
		"pagination": pagination,
	})
}
