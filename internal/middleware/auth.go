// internal/middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/marketua/marketplace-backend/internal/apperror"
	"github.com/marketua/marketplace-backend/internal/permissions"
	"github.com/marketua/marketplace-backend/internal/services"
	"github.com/marketua/marketplace-backend/internal/utils"
)

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// AuthRequired rejects requests without a valid access token and stores the
// authenticated user in the context.
func AuthRequired(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			utils.ErrorResponse(c, apperror.NotAuthenticated())
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			utils.ErrorResponse(c, err)
			return
		}

		c.Set(utils.ContextUserKey, user)
		c.Next()
	}
}

// OptionalAuth sets the user when a valid access token is present and lets
// every request through.
func OptionalAuth(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		if user, err := auth.Authenticate(c.Request.Context(), token); err == nil {
			c.Set(utils.ContextUserKey, user)
		}
		c.Next()
	}
}

// AnonymousOnly must run after OptionalAuth.
func AnonymousOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !permissions.IsUnauthenticated(utils.GetUserFromContext(c)) {
			utils.ErrorResponse(c, apperror.PermissionDenied())
			return
		}
		c.Next()
	}
}

// StaffRequired must run after AuthRequired.
func StaffRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !permissions.IsStaff(utils.GetUserFromContext(c)) {
			utils.ErrorResponse(c, apperror.PermissionDenied())
			return
		}
		c.Next()
	}
}
