package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/helpdesk-service/internal/metrics"
)

// Logger пишет в лог каждый завершённый запрос и учитывает его в метриках.
func Logger(log *slog.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		m.ObserveHTTP(c.FullPath(), c.Request.Method, status, latency)

		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", latency,
			"client_ip", c.ClientIP(),
			"body_size", c.Writer.Size(),
		}
		if rid := c.GetString(ContextRequestID); rid != "" {
			args = append(args, "request_id", rid)
		}
		if len(c.Errors) > 0 {
			args = append(args, "error", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("http request", args...)
		case status >= 400:
			log.Warn("http request", args...)
		default:
			log.Debug("http request", args...)
		}
	}
}
