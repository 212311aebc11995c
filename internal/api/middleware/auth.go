// Package middleware provides HTTP middleware for the Gin router.
//
// Go Learning Note — Middleware Pattern (Gin):
// In Gin, middleware is any function with the signature `gin.HandlerFunc`, which
// is `func(*gin.Context)`. Middleware functions form a chain: each one runs,
// optionally calls c.Next() to pass control to the next handler, and can call
// c.Abort() to stop the chain.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sharide/internal/auth"
)

// Context keys for storing authenticated user data.
const (
	UserIDKey = "user_id"
	RoleKey   = "role"
)

// JWTAuth validates the bearer token in the Authorization header and stores
// the caller's id and role in the request context.
//
// Go Learning Note — Returning Functions (Closures):
// JWTAuth() returns a gin.HandlerFunc that captures jwtManager. The outer
// function carries configuration; the inner one runs per request.
func JWTAuth(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrMissingToken.Error()})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}

		claims, err := jwtManager.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidToken.Error()})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

// RequireRole lets the request through only when the caller has one of
// roles. Must be used after JWTAuth() in the chain.
func RequireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRole(c)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
	}
}

// GetUserID retrieves the user ID set by JWTAuth, or "" when absent.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetRole retrieves the role set by JWTAuth.
func GetRole(c *gin.Context) auth.Role {
	v, _ := c.Get(RoleKey)
	role, _ := v.(auth.Role)
	return role
}
