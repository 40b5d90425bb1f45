package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tray-validation-backend/internal/observability"
)

// Metrics records request counts and latency per route.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.HTTP(c.Request.Context(), c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
