package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pairpoints/pairpoints-backend/internal/models"
	"github.com/pairpoints/pairpoints-backend/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationHandler exposes the notification hand-off records
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// GetMine handles GET /notifications
func (h *NotificationHandler) GetMine(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	notifications, err := h.notificationService.GetNotifications(c, currentUserID(c), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

type notificationStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus handles POST /notifications/:id/status, used by the delivery
// collaborator to record its outcome.
func (h *NotificationHandler) UpdateStatus(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification id"})
		return
	}
	var req notificationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	switch req.Status {
	case models.NotificationStatusSent, models.NotificationStatusFailed:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status must be SENT or FAILED"})
		return
	}

	if err := h.notificationService.UpdateStatus(c, id, req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}
