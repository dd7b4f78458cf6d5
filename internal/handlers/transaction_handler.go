package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pairpoints/pairpoints-backend/internal/models"
	"github.com/pairpoints/pairpoints-backend/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionHandler handles ledger HTTP requests
type TransactionHandler struct {
	ledgerService *services.LedgerService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(ledgerService *services.LedgerService) *TransactionHandler {
	return &TransactionHandler{ledgerService: ledgerService}
}

type pointsRequest struct {
	ReceiverID   string `json:"receiverId" binding:"required"`
	Points       int    `json:"points" binding:"required"`
	Message      string `json:"message"`
	ConnectionID string `json:"connectionId" binding:"required"`
}

type pointsOp func(ctx context.Context, senderID, receiverID string, magnitude int, message string, connectionID primitive.ObjectID) (*models.Transaction, error)

// GivePoints handles POST /transactions/give. The caller is the sender and
// supplies a positive magnitude.
func (h *TransactionHandler) GivePoints(c *gin.Context) {
	h.apply(c, h.ledgerService.GivePoints)
}

// DeductPoints handles POST /transactions/deduct. The caller is the sender
// and supplies a positive magnitude; the ledger negates it.
func (h *TransactionHandler) DeductPoints(c *gin.Context) {
	h.apply(c, h.ledgerService.DeductPoints)
}

func (h *TransactionHandler) apply(c *gin.Context, op pointsOp) {
	var req pointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	connectionID, err := primitive.ObjectIDFromHex(req.ConnectionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid connection id"})
		return
	}

	tx, err := op(c, currentUserID(c), req.ReceiverID, req.Points, req.Message, connectionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

// GetHistory handles GET /transactions/history
func (h *TransactionHandler) GetHistory(c *gin.Context) {
	transactions, err := h.ledgerService.GetTransactionHistory(c, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactions)
}
