package middleware

import (
	"net/http"

	"merchant-checkout/internal/auth"
	"merchant-checkout/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const ClaimsKey = "adminClaims"

// AdminAuth requires an admin token (see auth.ExtractAdminToken). With an
// empty secret the check is disabled and every request passes.
func AdminAuth(secret string) gin.HandlerFunc {
	if secret == "" {
		logger.L().Warn("ADMIN_JWT_SECRET not set, admin endpoints are unauthenticated")
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		claims, err := auth.ParseAdminToken(auth.ExtractAdminToken(c.Request), secret)
		if err != nil {
			logger.FromCtx(c.Request.Context()).Warn("admin token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing admin token"})
			return
		}
		if claims.Role != auth.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}
