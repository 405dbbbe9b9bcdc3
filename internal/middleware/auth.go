package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chat-client/internal/repositories"
)

// AuthMiddleware validates the Authorization header. The devserver
// accepts the user id itself as the bearer token; it only checks the
// user exists. Real token validation belongs to the production auth
// service, which this harness stands in for.
func AuthMiddleware(userRepo repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		user, err := userRepo.GetUser(c.Request.Context(), parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("userID", user.ID)
		c.Next()
	}
}
