package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is a dependency checked by the readiness endpoint
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	service      string
	version      string
	dependencies map[string]Pinger
	timeout      time.Duration
}

func NewHealthController(service, version string, dependencies map[string]Pinger) *HealthController {
	return &HealthController{
		service:      service,
		version:      version,
		dependencies: dependencies,
		timeout:      3 * time.Second,
	}
}

func (c *HealthController) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", c.Health)
	r.GET("/ready", c.Ready)
}

// Health is the liveness endpoint
func (c *HealthController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   c.service,
		"version":   c.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready pings every dependency
func (c *HealthController) Ready(ctx *gin.Context) {
	checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), c.timeout)
	defer cancel()

	checks := make(gin.H, len(c.dependencies))
	ready := true
	for name, dep := range c.dependencies {
		if err := dep.Ping(checkCtx); err != nil {
			checks[name] = err.Error()
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}

	ctx.JSON(status, gin.H{
		"status": state,
		"checks": checks,
	})
}
