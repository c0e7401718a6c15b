package handler

import (
    "context"
    "time"

    "github.com/gin-gonic/gin"

    "github.com/GTDGit/gtd_catalog/internal/utils"
)

var startTime = time.Now()

// Pinger is a backend the health check can probe.
type Pinger interface {
    Ping(ctx context.Context) error
}

// HealthHandler provides health endpoint.
type HealthHandler struct {
    store  Pinger
    redis  Pinger
    driver string
}

// NewHealthHandler creates a new HealthHandler. redis may be nil when the
// service runs without Redis.
func NewHealthHandler(store Pinger, driver string, redis Pinger) *HealthHandler {
    return &HealthHandler{store: store, driver: driver, redis: redis}
}

// GetHealth responds with service, store and Redis status.
func (h *HealthHandler) GetHealth(c *gin.Context) {
    ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
    defer cancel()

    status := "healthy"
    storeStatus := "connected"
    if err := h.store.Ping(ctx); err != nil {
        storeStatus = "disconnected"
        status = "degraded"
    }

    redisStatus := "disabled"
    if h.redis != nil {
        redisStatus = "connected"
        if err := h.redis.Ping(ctx); err != nil {
            redisStatus = "disconnected"
            status = "degraded"
        }
    }

    code := 200
    if status != "healthy" {
        code = 503
    }
    utils.Success(c, code, "Service is "+status, gin.H{
        "status":  status,
        "version": "1.0.0",
        "uptime":  int(time.Since(startTime).Seconds()),
        "store": gin.H{
            "driver": h.driver,
            "status": storeStatus,
        },
        "redis": gin.H{
            "status": redisStatus,
        },
    })
}
