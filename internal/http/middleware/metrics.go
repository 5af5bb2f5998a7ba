package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/noctisium-backend/internal/observability"
)

// untimedRoutes bypass the request series: long-lived streams and health checks.
var untimedRoutes = map[string]bool{
	"/api/realtime/stream": true,
	"/healthcheck":         true,
	"/readyz":              true,
}

// Metrics records request counts, latency and in-flight requests per matched
// route. Unmatched paths share a single "unmatched" label.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if untimedRoutes[route] {
			c.Next()
			return
		}
		if route == "" {
			route = "unmatched"
		}

		done := m.TrackInflight()
		start := time.Now()
		c.Next()
		done()

		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
