package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RequestLogger logs every API request with its status and latency.
func RequestLogger() gin.HandlerFunc {
	entry := log.WithField("component", "http")
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		entry.WithFields(log.Fields{
			"method":  ctx.Request.Method,
			"path":    ctx.Request.URL.Path,
			"status":  ctx.Writer.Status(),
			"elapsed": time.Since(start).String(),
		}).Debug("request handled")
	}
}
