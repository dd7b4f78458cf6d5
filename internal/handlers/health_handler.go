package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pairpoints/pairpoints-backend/internal/services"
)

// HealthHandler reports liveness and store reachability.
type HealthHandler struct {
	monitor services.ConnectivityMonitor
}

// NewHealthHandler creates a new HealthHandler. monitor may be nil.
func NewHealthHandler(monitor services.ConnectivityMonitor) *HealthHandler {
	return &HealthHandler{monitor: monitor}
}

// Check handles GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	storeOK := true
	if h.monitor != nil {
		storeOK = h.monitor.Online(c)
	}
	status := http.StatusOK
	state := "ok"
	if !storeOK {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "store": storeOK})
}
