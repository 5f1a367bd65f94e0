package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequirePermission lets the request through only when every key is in the
// permission set embedded in the verified token. Nothing the client sends
// outside the signed token is consulted.
func RequirePermission(keys ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no claims in context"})
			return
		}
		if !claims.PermissionSet().HasAll(keys...) {
			log.Printf("[authz][deny] userID=%d mode=%s need=%v %s %s",
				claims.UserID, claims.Mode, keys, c.Request.Method, c.FullPath())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not permitted"})
			return
		}
		c.Next()
	}
}

func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
