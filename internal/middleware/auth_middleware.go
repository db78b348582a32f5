package middleware

import (
	"context"
	"net/http"
	"strings"

	"resume-analyzer/internal/services"
	"resume-analyzer/internal/transport/httpdto"
	"resume-analyzer/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware requires a valid session token, read from the session
// cookie or, for non-browser clients, a Bearer Authorization header.
func AuthMiddleware(service *services.AuthService, l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		claims, err := service.VerifyToken(c.Request.Context(), token)
		if err != nil {
			status := services.HTTPStatus(err)
			if status >= http.StatusInternalServerError && l != nil {
				l.WithContext(c.Request.Context()).Sugar().Errorf("token verification failed: %v", err)
			}
			c.AbortWithStatusJSON(status, httpdto.NewErrorResponse(services.ClientMessage(err), httpdto.CodeForStatus(status)))
			return
		}

		ctx := services.WithSessionClaims(c.Request.Context(), claims)
		ctx = context.WithValue(ctx, logger.UserEmailKey, claims.Email)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := services.SessionClaimsFromContext(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", httpdto.CodeUnauthorized))
			return
		}
		if claims.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, httpdto.NewErrorResponse("forbidden", httpdto.CodeForbidden))
			return
		}
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if token, err := c.Cookie(httpdto.SessionCookieName); err == nil && token != "" {
		return token
	}
	return extractBearer(c)
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
