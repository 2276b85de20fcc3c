package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	RequestIDHeader = "X-Request-ID"
	slowRequest     = 3 * time.Second
)

// Logger assigns a request id, puts a request-scoped logger into the gin
// context under "logger" (read by response.Error) and logs every request.
func Logger(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		log := base.With(zap.String("request_id", requestID))
		c.Set("logger", log)

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case latency > slowRequest:
			log.Warn("slow request", fields...)
		case c.Writer.Status() >= 500:
			log.Error("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// GetLogger returns the request logger, or fallback outside Logger.
func GetLogger(c *gin.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := c.Get("logger"); ok {
		if log, ok := l.(*zap.Logger); ok {
			return log
		}
	}
	return fallback
}
