package util

import (
	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/models"
)

const (
	// ContextUserID is the gin context key holding the authenticated user id
	ContextUserID = "user_id"
	// ContextUser is the gin context key holding the authenticated *models.User
	ContextUser = "user"
)

// GetUserFromContext returns the authenticated user.
// When absent it writes a 401 and returns false.
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(ContextUser)
	if !exists {
		RespondUnauthorized(c)
		return nil, false
	}
	user, ok := value.(*models.User)
	if !ok {
		RespondInternalError(c, "invalid user data in context")
		return nil, false
	}
	return user, true
}

// GetUserIDFromContext returns the authenticated user id.
// When absent it writes a 401 and returns false.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	value, exists := c.Get(ContextUserID)
	if !exists {
		RespondUnauthorized(c)
		return "", false
	}
	userID, ok := value.(string)
	if !ok || userID == "" {
		RespondInternalError(c, "invalid user ID in context")
		return "", false
	}
	return userID, true
}
