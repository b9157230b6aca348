package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/util"
)

// Middleware requires a valid "Authorization: Bearer <token>" header and stores the
// user under util.ContextUserID and util.ContextUser.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if header == "" || token == "" || token == header {
			util.RespondUnauthorized(c, "missing bearer token")
			return
		}

		user, err := s.AuthenticateToken(c.Request.Context(), token)
		if err != nil {
			util.RespondUnauthorized(c, ErrInvalidToken.Error())
			return
		}

		c.Set(util.ContextUserID, user.ID)
		c.Set(util.ContextUser, user)
		c.Next()
	}
}
