package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// userCtxKey is where the middleware stores the authenticated bridge account
// id for downstream handlers (including the WebSocket upgrade).
const userCtxKey = "userId"

// userIdMiddleware guards /api/v1: it requires a bearer token issued by
// sign-in and rejects everything else before a handler runs. The Envi cloud
// token never appears here; this check is bridge-local.
func (h *Handler) userIdMiddleware(c *gin.Context) {
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "missing or malformed bearer token",
		})
		return
	}

	userID, err := h.services.ParseToken(token)
	if err != nil {
		if h.log != nil {
			h.log.Infow("bridge_token_rejected", "err", err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired token",
		})
		return
	}

	c.Set(userCtxKey, userID)
	c.Next()
}

// bearerToken extracts the credential from an "Authorization: Bearer <token>"
// header. Empty headers, other schemes and empty credentials all fail.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || scheme != "Bearer" || token == "" {
		return "", false
	}
	return token, true
}
