package middleware

import (
    "time"

    "github.com/gin-gonic/gin"
    "github.com/google/uuid"
    "github.com/rs/zerolog/log"
)

// LoggingMiddleware logs basic request/response details and injects a request_id into context.
// An X-Request-Id header from the caller is kept so retried writes can be correlated.
func LoggingMiddleware() gin.HandlerFunc {
    return func(c *gin.Context) {
        start := time.Now()
        path := c.Request.URL.Path

        requestID := c.GetHeader("X-Request-Id")
        if requestID == "" {
            requestID = uuid.New().String()[:8]
        }
        c.Set("request_id", requestID)

        c.Next()

        event := log.Info()
        if status := c.Writer.Status(); status >= 500 {
            event = log.Error()
        }
        event.
            Str("request_id", requestID).
            Str("method", c.Request.Method).
            Str("path", path).
            Int("status", c.Writer.Status()).
            Dur("latency", time.Since(start)).
            Str("ip", c.ClientIP()).
            Str("user_id", c.GetString(ContextUserID)).
            Msg("HTTP Request")
    }
}
