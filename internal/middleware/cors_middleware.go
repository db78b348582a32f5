package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// corsAllowedHeaders is fixed because credentialed preflights cannot use a
// wildcard. It covers the headers sent by common browser HTTP clients.
var corsAllowedHeaders = []string{
	"Origin",
	"Content-Type",
	"Content-Length",
	"Accept",
	"Accept-Language",
	"Authorization",
	"Cache-Control",
	"Pragma",
	"X-Requested-With",
	"X-CSRF-Token",
	"X-Request-Id",
}

// CORSMiddleware allows credentialed requests from the configured origins.
// A "*" entry admits any origin; the request origin is echoed back because
// browsers reject a literal wildcard on credentialed responses.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodHead,
		http.MethodOptions,
	}
	corsConfig.AllowHeaders = corsAllowedHeaders
	corsConfig.ExposeHeaders = []string{
		"X-Request-Id",
		"X-RateLimit-Limit",
		"X-RateLimit-Remaining",
		"X-RateLimit-Reset",
	}
	corsConfig.MaxAge = 12 * time.Hour

	if allowsAnyOrigin(allowedOrigins) {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	} else {
		corsConfig.AllowOrigins = allowedOrigins
	}
	return cors.New(corsConfig)
}

func allowsAnyOrigin(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
