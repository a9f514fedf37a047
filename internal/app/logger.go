package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger logs every request and stores a request-scoped logger under
// "logger" for handlers.
func (a *App) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		l := a.Log.With(zap.String("method", c.Request.Method), zap.String("path", c.FullPath()))
		if id := c.Param("id"); id != "" {
			l = l.With(zap.String("id", id))
		}
		c.Set("logger", l)
		c.Next()
		l.Info("request",
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.Int("errors", len(c.Errors)))
	}
}

// getLogger retrieves the request logger from the Gin context.
func (a *App) getLogger(c *gin.Context) *zap.Logger {
	if l, exists := c.Get("logger"); exists {
		if logger, ok := l.(*zap.Logger); ok {
			return logger
		}
	}
	return a.Log
}
