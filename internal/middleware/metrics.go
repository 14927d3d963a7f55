package middleware

import (
	"merchant-checkout/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics records request count and latency per matched route. Unmatched
// paths are folded into one label to keep cardinality bounded.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := metrics.StartTimer()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(route, c.Request.Method, c.Writer.Status(), timer.Duration())
	}
}
