package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/loggo/v2"
)

var logger = loggo.GetLogger("lingua.api")

// RequestLogger logs one line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		elapsed := time.Since(start)
		switch {
		case status >= 500:
			logger.Errorf("❌ %s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, elapsed)
		case status >= 400:
			logger.Warningf("⚠️ %s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, elapsed)
		default:
			logger.Debugf("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, elapsed)
		}
	}
}
