package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pairpoints/pairpoints-backend/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConnectionHandler handles pairing HTTP requests
type ConnectionHandler struct {
	connectionService *services.ConnectionService
}

// NewConnectionHandler creates a new ConnectionHandler
func NewConnectionHandler(connectionService *services.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{connectionService: connectionService}
}

type connectRequest struct {
	MatchingCode string `json:"matchingCode" binding:"required"`
}

// Connect handles POST /connections: resolve the partner's matching code,
// then pair the caller with them.
func (h *ConnectionHandler) Connect(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	partnerID, err := h.connectionService.ValidateMatchingCode(c, req.MatchingCode)
	if err != nil {
		respondError(c, err)
		return
	}
	if partnerID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "No user holds that matching code"})
		return
	}

	conn, err := h.connectionService.CreateConnection(c, currentUserID(c), partnerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conn)
}

// ValidateCode handles POST /connections/validate-code without pairing.
func (h *ConnectionHandler) ValidateCode(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	partnerID, err := h.connectionService.ValidateMatchingCode(c, req.MatchingCode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"matched":   partnerID != "",
		"partnerId": partnerID,
	})
}

// GetMine handles GET /connections/me
func (h *ConnectionHandler) GetMine(c *gin.Context) {
	conn, err := h.connectionService.GetConnection(c, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conn)
}

// Disconnect handles DELETE /connections/:id
func (h *ConnectionHandler) Disconnect(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid connection id"})
		return
	}
	if err := h.connectionService.DisconnectUsers(c, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"disconnected": true})
}
