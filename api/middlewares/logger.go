package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rohitbr234/study-scheduler/logger"
)

// RequestLogger logs one line per request with method, path, status and
// duration.
func RequestLogger(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		l.Info("request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
