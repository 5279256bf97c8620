package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/usis-routine-api/internal/service"
)

// Metrics records request duration and counts per route template. Requests
// that match no route share one label, and the scrape endpoint is skipped.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
