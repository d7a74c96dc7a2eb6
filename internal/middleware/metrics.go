package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/FerventBolt/tesda-lms-api/internal/service"
)

// Metrics observes every request under its route template, so
// /courses/:id stays one series no matter how many courses exist.
// Prometheus' own scrapes are not observed.
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
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
