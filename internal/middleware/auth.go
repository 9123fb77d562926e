package middleware

import (
	"net/http"
	"strings"

	"restaurant-pos-api/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// Context keys set by JWTAuthMiddleware.
const (
	CtxUserID       = "user_id"
	CtxUsername     = "username"
	CtxRestaurantID = "restaurant_id"
	CtxRole         = "role"
)

func unauthorized(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

// JWTAuthMiddleware validates JWT token in Authorization header
func JWTAuthMiddleware(tokens *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString := ""
		if authHeader != "" {
			// Extract token from "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		// Fallback for WebSocket/browser where custom headers cannot be set: allow token in query param
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			unauthorized(c, http.StatusUnauthorized, "Authorization token is required")
			return
		}

		claims, err := tokens.ValidateToken(tokenString)
		if err != nil {
			unauthorized(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUsername, claims.Username)
		c.Set(CtxRestaurantID, claims.RestaurantID)
		c.Set(CtxRole, claims.Role)

		c.Next()
	}
}

// RequireRole lets the request through only for the listed roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !lo.Contains(roles, c.GetString(CtxRole)) {
			unauthorized(c, http.StatusForbidden, "Insufficient permissions")
			return
		}
		c.Next()
	}
}
