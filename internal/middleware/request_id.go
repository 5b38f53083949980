package middleware

import (
	"strings"

	contextutils "github.com/rshatalov/rpy/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 128

// RequestIDMiddleware reuses a caller-supplied X-Request-ID or generates one, stores it
// on the request context for logging and echoes it in the response.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		c.Request = c.Request.WithContext(contextutils.WithRequestID(c.Request.Context(), id))
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
