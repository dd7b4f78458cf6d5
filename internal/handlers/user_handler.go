package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pairpoints/pairpoints-backend/internal/services"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetMe handles GET /users/me
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.userService.GetUser(c, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// RegenerateMatchingCode handles POST /users/me/matching-code
func (h *UserHandler) RegenerateMatchingCode(c *gin.Context) {
	code, err := h.userService.RegenerateMatchingCode(c, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matchingCode": code})
}
