package handlers

import (
	"math"
	"strconv"
	"strings"

	"github.com/rshatalov/rpy/internal/models"
	contextutils "github.com/rshatalov/rpy/internal/utils"

	"github.com/gin-gonic/gin"
)

// parseID accepts identifiers that fit the INTEGER primary key columns
func parseID(name, raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 || id > math.MaxInt32 {
		return 0, contextutils.NewInvalidInputf("%s must be a positive integer up to %d, got %q", name, math.MaxInt32, raw)
	}
	return id, nil
}

// pathID parses a positive integer path parameter
func pathID(c *gin.Context, name string) (int, error) {
	return parseID(name, c.Param(name))
}

// optionalQueryID parses an optional positive integer query parameter
func optionalQueryID(c *gin.Context, name string) (*int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	id, err := parseID(name, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// optionalQueryDate parses an optional YYYY-MM-DD query parameter
func optionalQueryDate(c *gin.Context, name string) (*models.Date, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return nil, contextutils.ErrInvalidFormat.With(name+" must be YYYY-MM-DD", err)
	}
	return &d, nil
}

// queryBool reports whether a query flag is set to a true value
func queryBool(c *gin.Context, name string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(c.Query(name)))
	return err == nil && v
}
