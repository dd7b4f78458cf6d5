package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pairpoints/pairpoints-backend/internal/services"
)

// SyncHandler exposes the sync status machine
type SyncHandler struct {
	syncManager *services.SyncManager
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(syncManager *services.SyncManager) *SyncHandler {
	return &SyncHandler{syncManager: syncManager}
}

// GetStatus handles GET /sync/status
func (h *SyncHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": h.syncManager.Status()})
}
