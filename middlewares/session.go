package middlewares

import (
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/pos_backend/appctx"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/gin-gonic/gin"
)

// openPaths are reachable without a session token.
var openPaths = map[string]bool{
	"/healthz":      true,
	"/auth/login":   true,
	"/auth/signup":  true,
	"/pubsub/store": true,
}

// SessionMiddleware resolves the JWT from the token header (or a Bearer
// Authorization header) into the request context. Requests to open paths pass
// through untouched; everything else without a valid token gets 401.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if openPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		raw := c.GetHeader("token")
		if raw == "" {
			auth := c.GetHeader("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				raw = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		token, err := utils.JwtValidate(raw)
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		claims, ok := token.Claims.(*utils.JwtCustomClaim)
		if !ok || claims.AccountID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx := c.Request.Context()
		ctx = appctx.Set(ctx, appctx.ContextKeyToken, raw)
		ctx = appctx.Set(ctx, appctx.ContextKeyAccountId, claims.AccountID)
		ctx = appctx.Set(ctx, appctx.ContextKeyUserId, claims.UserID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
