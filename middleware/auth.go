package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bellapacxx/guba-backend/services"
	"github.com/bellapacxx/guba-backend/utils/logger"
	"github.com/gin-gonic/gin"
)

const claimsKey = "x-claims"

// Authenticator resolves a raw bearer token into claims.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*services.Claims, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// JwtAuthMiddleware rejects requests without a valid bearer token and stores
// the token's claims in the gin context.
func JwtAuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorBody("Missing authorization header"))
			return
		}

		token, ok := BearerToken(authHeader)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorBody("Authorization header format must be Bearer {token}"))
			return
		}

		claims, err := auth.Authenticate(c.Request.Context(), token)
		if errors.Is(err, services.ErrUnauthorized) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorBody("Not authorized or invalid token"))
			return
		}
		if err != nil {
			logger.Errorf("authenticate %s %s: %v", c.Request.Method, c.FullPath(), err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody("Internal server error"))
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole must run after JwtAuthMiddleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok || claims.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorBody("Forbidden"))
			return
		}
		c.Next()
	}
}

// Claims returns the claims stored by JwtAuthMiddleware.
func Claims(c *gin.Context) (*services.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*services.Claims)
	return claims, ok
}

// UserID returns the authenticated user's id, or "" outside authenticated routes.
func UserID(c *gin.Context) string {
	if claims, ok := Claims(c); ok {
		return claims.UserID()
	}
	return ""
}
