package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ConnectivityChecker reports whether the document store is reachable.
type ConnectivityChecker interface {
	Connected() bool
}

// RequireConnectivity short-circuits with 503 while the store is
// unreachable, so handlers never wait on a dead backend.
func RequireConnectivity(checker ConnectivityChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !checker.Connected() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "store unreachable"})
			return
		}
		c.Next()
	}
}
