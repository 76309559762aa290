package middleware

import (
	"net/http"
	"strings"

	"shutterhub/utils"

	"github.com/gin-gonic/gin"
)

// JWTAuthMiddleware validates the Bearer token, rejects revoked tokens, and
// places the caller's identity in the gin context as "userID" and "role".
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		userID, role, err := utils.ExtractClaimsFromToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		// Reject tokens revoked at sign-out.
		revokedKey := utils.RevokedTokenPrefix + utils.HashToken(tokenString)
		if exists, err := utils.GetAuthCacheClient().Exists(c.Request.Context(), revokedKey).Result(); err == nil && exists > 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token has been revoked"})
			return
		}

		c.Set("userID", userID)
		c.Set("role", role)
		c.Set("token", tokenString)
		c.Next()
	}
}
