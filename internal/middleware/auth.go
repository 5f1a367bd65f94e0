package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"taskmarket/internal/authz"
	"taskmarket/internal/models"
)

const (
	CtxClaims = "claims"
	CtxUserID = "user_id"
	CtxMode   = "mode"
)

// AuthMiddleware verifies the Bearer access token and puts its claims into
// the gin context. Revocation is checked on every request; if the store
// cannot be reached the request is refused rather than let through.
func AuthMiddleware(tokens *authz.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		// пропускаем preflight
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		// браузер не может выставить заголовок для WebSocket
		if authHeader == "" && websocket.IsWebSocketUpgrade(c.Request) {
			if t := c.Query(tokenParam); t != "" {
				authHeader = "Bearer " + t
			}
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}

		claims, err := tokens.Parse(c.Request.Context(), strings.TrimSpace(parts[1]))
		switch {
		case err == nil:
		case errors.Is(err, authz.ErrInvalidToken):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		case errors.Is(err, models.ErrTokenRevoked):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token revoked"})
			return
		default:
			log.Printf("[auth][middleware][err] %v", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "authorization unavailable"})
			return
		}

		c.Set(CtxClaims, claims)
		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxMode, claims.Mode)
		c.Next()
	}
}

// ClaimsFrom returns the verified claims set by AuthMiddleware.
func ClaimsFrom(c *gin.Context) (*authz.Claims, bool) {
	v, ok := c.Get(CtxClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*authz.Claims)
	return claims, ok && claims != nil
}
