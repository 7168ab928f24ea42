package gin

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// userIDKey is the gin context key the auth middleware stores the caller
// identity under.
const userIDKey = "user_id"

// RequireUser resolves the caller identity. Session handling lives in a
// separate service in front of this API; it forwards the authenticated user
// id in the X-User-ID header, which this middleware requires.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// callerID returns the identity the middleware resolved.
func callerID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
