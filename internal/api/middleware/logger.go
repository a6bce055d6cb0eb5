package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noisycontents/uzu-orders/internal/logger"
)

// Logger writes one line per request through the run logger, so API traffic
// and sync progress land in the same stream.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("%s %s %d %s %s",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start),
			c.ClientIP(),
		)
	}
}
