package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pairpoints/pairpoints-backend/internal/services"
)

// AuthHandler handles sign-in requests
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type signInRequest struct {
	UserID      string `json:"userId" binding:"required"`
	DisplayName string `json:"displayName"`
}

// SignIn handles POST /auth/signin. The user id comes from the upstream
// identity provider; first sign-in provisions the user record.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	user, token, err := h.authService.SignIn(c, req.UserID, req.DisplayName)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":  user,
		"token": token,
	})
}
