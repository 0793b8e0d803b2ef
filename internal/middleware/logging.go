package middleware

import (
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"portfolio-analytics-api/internal/monitoring"
)

// RequestID tags every request with X-Request-ID, reusing an incoming one
func RequestID() gin.HandlerFunc {
	return requestid.New()
}

// Logger logs every HTTP request through logrus
func Logger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		rawQuery := c.Request.URL.RawQuery

		c.Next()

		fields := logrus.Fields{
			"request_id":    requestid.Get(c),
			"status_code":   c.Writer.Status(),
			"latency":       time.Since(start).String(),
			"client_ip":     c.ClientIP(),
			"method":        c.Request.Method,
			"path":          path,
			"response_size": c.Writer.Size(),
		}
		if rawQuery != "" {
			fields["query"] = rawQuery
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		entry := logger.WithFields(fields)
		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("HTTP request processed")
		case status >= 400:
			entry.Warn("HTTP request processed")
		default:
			entry.Info("HTTP request processed")
		}
	}
}

// Metrics records request counts and latencies by route template
func Metrics(metrics monitoring.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}
