package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sportsfest/registration/pkg/metrics"
)

// Metrics records request counts and latency per route template, so
// /products/1 and /products/2 share one series.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer metrics.TrackInFlight()()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), start)
	}
}
