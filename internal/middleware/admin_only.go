// admin_only.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminOnly requires the "admin" claim on the authenticated identity.
// AuthMiddleware must run first.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := CallerIdentity(c)
		if id == nil || !id.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin privileges required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
