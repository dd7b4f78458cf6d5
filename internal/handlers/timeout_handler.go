package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pairpoints/pairpoints-backend/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TimeoutHandler handles cooldown HTTP requests
type TimeoutHandler struct {
	timeoutService *services.TimeoutService
}

// NewTimeoutHandler creates a new TimeoutHandler
func NewTimeoutHandler(timeoutService *services.TimeoutService) *TimeoutHandler {
	return &TimeoutHandler{timeoutService: timeoutService}
}

// CanRequest handles GET /timeouts/can-request
func (h *TimeoutHandler) CanRequest(c *gin.Context) {
	allowed, err := h.timeoutService.CanRequestTimeout(c, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	count, err := h.timeoutService.GetTodayTimeoutCount(c, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"canRequest": allowed,
		"usedToday":  count,
	})
}

type createTimeoutRequest struct {
	ConnectionID string `json:"connectionId" binding:"required"`
}

// Create handles POST /timeouts
func (h *TimeoutHandler) Create(c *gin.Context) {
	var req createTimeoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	connectionID, err := primitive.ObjectIDFromHex(req.ConnectionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid connection id"})
		return
	}

	timeout, err := h.timeoutService.CreateTimeout(c, currentUserID(c), connectionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, timeout)
}

// GetActive handles GET /timeouts/active/:connectionId. A null body means
// no cooldown is running.
func (h *TimeoutHandler) GetActive(c *gin.Context) {
	connectionID, err := primitive.ObjectIDFromHex(c.Param("connectionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid connection id"})
		return
	}
	timeout, err := h.timeoutService.GetActiveTimeout(c, connectionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timeout": timeout, "active": timeout != nil})
}

// Expire handles POST /timeouts/:id/expire for partner-confirmed early
// termination.
func (h *TimeoutHandler) Expire(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid timeout id"})
		return
	}
	if err := h.timeoutService.ExpireTimeout(c, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expired": true})
}

// SyncPartnerState handles POST /timeouts/sync/:connectionId
func (h *TimeoutHandler) SyncPartnerState(c *gin.Context) {
	connectionID, err := primitive.ObjectIDFromHex(c.Param("connectionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid connection id"})
		return
	}
	active, err := h.timeoutService.SynchronizePartnerTimeoutState(c, connectionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": active})
}

// Cleanup handles POST /timeouts/cleanup
func (h *TimeoutHandler) Cleanup(c *gin.Context) {
	corrected, err := h.timeoutService.CleanupExpiredTimeouts(c)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"corrected": corrected})
}
