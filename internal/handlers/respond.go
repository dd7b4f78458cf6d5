package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pairpoints/pairpoints-backend/internal/middleware"
	"github.com/pairpoints/pairpoints-backend/pkg/apperrors"
)

// statusForCode maps the error taxonomy onto HTTP statuses.
func statusForCode(code apperrors.Code) int {
	switch code {
	case apperrors.CodeValidation:
		return http.StatusBadRequest
	case apperrors.CodeConnectionState, apperrors.CodeTimeoutActive:
		return http.StatusConflict
	case apperrors.CodeDailyLimitExceeded:
		return http.StatusTooManyRequests
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodePermission:
		return http.StatusForbidden
	case apperrors.CodeTransientStore:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes a typed error as a JSON response.
func respondError(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)
	c.JSON(statusForCode(code), gin.H{
		"code":  string(code),
		"error": err.Error(),
	})
}

// currentUserID pulls the authenticated user id set by the auth middleware.
func currentUserID(c *gin.Context) string {
	id, _ := c.Get(middleware.UserIDKey)
	s, _ := id.(string)
	return s
}
