package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"resume-analyzer/config"
	"resume-analyzer/internal/domain/user"
	"resume-analyzer/internal/redis"
	"resume-analyzer/internal/repository"
	"resume-analyzer/internal/services"
	"resume-analyzer/internal/transport/httpdto"
	"resume-analyzer/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthService(t *testing.T) (*services.AuthService, map[string]string) {
	t.Helper()
	repo := repository.NewMemoryUserRepository(
		user.User{Email: "admin@example.com", Password: user.PasswordValue("admin-pass"), Role: user.RoleAdmin},
		user.User{Email: "jane@example.com", Password: user.PasswordValue("jane-pass")},
	)
	service := services.NewAuthService(repo, nil, &config.Config{JWTSecret: "mw-secret", JWTExpiryMin: 10}, nil)

	tokens := map[string]string{}
	for email, password := range map[string]string{"admin@example.com": "admin-pass", "jane@example.com": "jane-pass"} {
		res, err := service.Login(context.Background(), services.LoginInput{Email: email, Password: password})
		require.NoError(t, err)
		tokens[email] = res.Token
	}
	return service, tokens
}

func protectedRouter(service *services.AuthService) *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthMiddleware(service, logger.NewNop()), func(c *gin.Context) {
		claims, _ := services.SessionClaimsFromContext(c.Request.Context())
		email, _ := c.Request.Context().Value(logger.UserEmailKey).(string)
		c.JSON(http.StatusOK, gin.H{"email": claims.Email, "logged_as": email})
	})
	r.GET("/admin", AuthMiddleware(service, logger.NewNop()), RequireRole(user.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/unguarded", RequireRole(user.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthMiddleware_TokenSources(t *testing.T) {
	service, tokens := newAuthService(t)
	r := protectedRouter(service)

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: httpdto.SessionCookieName, Value: tokens["jane@example.com"]})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"email":"jane@example.com","logged_as":"jane@example.com"}`, w.Body.String())
	})

	t.Run("bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "bearer "+tokens["jane@example.com"])
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), httpdto.CodeUnauthorized)
	})

	t.Run("tampered", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+tokens["jane@example.com"]+"x")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	service, tokens := newAuthService(t)
	r := protectedRouter(service)

	call := func(path, token string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.AddCookie(&http.Cookie{Name: httpdto.SessionCookieName, Value: token})
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, call("/admin", tokens["admin@example.com"]))
	assert.Equal(t, http.StatusForbidden, call("/admin", tokens["jane@example.com"]))
	assert.Equal(t, http.StatusUnauthorized, call("/admin", ""))
	assert.Equal(t, http.StatusUnauthorized, call("/unguarded", tokens["admin@example.com"]))
}

type failingRevoker struct{}

func (failingRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return errors.New("dial tcp 10.0.0.5:6379: connect: connection refused")
}

func (failingRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return false, errors.New("check token denylist: dial tcp 10.0.0.5:6379: connect: connection refused")
}

func TestAuthMiddleware_MasksUnavailableStore(t *testing.T) {
	repo := repository.NewMemoryUserRepository(
		user.User{Email: "jane@example.com", Password: user.PasswordValue("jane-pass")},
	)
	cfg := &config.Config{JWTSecret: "mw-secret", JWTExpiryMin: 10}
	issued, err := services.NewAuthService(repo, nil, cfg, nil).Login(context.Background(), services.LoginInput{Email: "jane@example.com", Password: "jane-pass"})
	require.NoError(t, err)

	r := protectedRouter(services.NewAuthService(repo, failingRevoker{}, cfg, nil))
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: httpdto.SessionCookieName, Value: issued.Token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), httpdto.CodeServiceUnavailable)
	assert.Contains(t, w.Body.String(), "service unavailable")
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
	assert.NotContains(t, w.Body.String(), "denylist")
}

type stubLimiter struct {
	result *redis.RateLimitResult
	err    error
	ips    []string
	resets []string
}

func (s *stubLimiter) AllowLogin(ctx context.Context, ip string) (*redis.RateLimitResult, error) {
	s.ips = append(s.ips, ip)
	return s.result, s.err
}

func (s *stubLimiter) ResetLogin(ctx context.Context, ip string) error {
	s.resets = append(s.resets, ip)
	return nil
}

func limitedRouter(limiter LoginLimiter) *gin.Engine {
	return limitedRouterWithStatus(limiter, http.StatusOK)
}

func limitedRouterWithStatus(limiter LoginLimiter, status int) *gin.Engine {
	r := gin.New()
	r.POST("/auth/login", RateLimitMiddleware(limiter, logger.NewNop()), func(c *gin.Context) {
		c.Status(status)
	})
	return r
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		limiter := &stubLimiter{result: &redis.RateLimitResult{Allowed: true, Remaining: 4, Limit: 5, ResetIn: 60 * time.Second}}
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "203.0.113.7:51234"
		w := httptest.NewRecorder()
		limitedRouter(limiter).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, "60", w.Header().Get("X-RateLimit-Reset"))
		assert.Equal(t, []string{"203.0.113.7"}, limiter.ips)
		assert.Equal(t, []string{"203.0.113.7"}, limiter.resets)
	})

	t.Run("failed login keeps counter", func(t *testing.T) {
		limiter := &stubLimiter{result: &redis.RateLimitResult{Allowed: true, Remaining: 3, Limit: 5, ResetIn: 60 * time.Second}}
		w := httptest.NewRecorder()
		limitedRouterWithStatus(limiter, http.StatusUnauthorized).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Len(t, limiter.ips, 1)
		assert.Empty(t, limiter.resets)
	})

	t.Run("blocked", func(t *testing.T) {
		limiter := &stubLimiter{result: &redis.RateLimitResult{Allowed: false, Remaining: 0, Limit: 5, ResetIn: 42 * time.Second}}
		w := httptest.NewRecorder()
		limitedRouter(limiter).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", nil))

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "42", w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), httpdto.CodeRateLimited)
		assert.Empty(t, limiter.resets)
	})

	t.Run("store unavailable", func(t *testing.T) {
		limiter := &stubLimiter{err: errors.New("connection refused")}
		w := httptest.NewRecorder()
		limitedRouter(limiter).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), httpdto.CodeServiceUnavailable)
	})
}

func TestCORSMiddleware(t *testing.T) {
	newRouter := func(origins []string) *gin.Engine {
		r := gin.New()
		r.Use(CORSMiddleware(origins))
		r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}

	t.Run("wildcard echoes origin with credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://api.example.com/ping", nil)
		req.Header.Set("Origin", "https://app.example.org")
		w := httptest.NewRecorder()
		newRouter([]string{"*"}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://app.example.org", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "http://api.example.com/ping", nil)
		req.Header.Set("Origin", "https://app.example.org")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		newRouter([]string{"https://app.example.org"}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	})

	t.Run("preflight with client headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "http://api.example.com/ping", nil)
		req.Header.Set("Origin", "https://app.example.org")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "content-type,x-requested-with,cache-control")
		w := httptest.NewRecorder()
		newRouter([]string{"*"}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		allowed := strings.Split(w.Header().Get("Access-Control-Allow-Headers"), ",")
		for _, h := range []string{"Content-Type", "X-Requested-With", "Cache-Control", "Authorization"} {
			assert.Contains(t, allowed, h)
		}
	})

	t.Run("unlisted origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://api.example.com/ping", nil)
		req.Header.Set("Origin", "https://evil.example.net")
		w := httptest.NewRecorder()
		newRouter([]string{"https://app.example.org"}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/id", func(c *gin.Context) {
		id, _ := c.Request.Context().Value(logger.RequestIdKey).(string)
		c.String(http.StatusOK, id)
	})

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))
		id := w.Header().Get(requestIDHeader)
		assert.Len(t, id, 32)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/id", nil)
		req.Header.Set(requestIDHeader, "upstream-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "upstream-123", w.Header().Get(requestIDHeader))
	})

	t.Run("oversized is replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/id", nil)
		req.Header.Set(requestIDHeader, strings.Repeat("a", maxRequestIDLen+1))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Len(t, w.Header().Get(requestIDHeader), 32)
	})
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(logger.NewNop()))
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("disk on fire"))
	})
	r.GET("/handled", func(c *gin.Context) {
		_ = c.Error(errors.New("already answered"))
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse("conflict", httpdto.CodeConflict))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), httpdto.CodeInternal)
	assert.NotContains(t, w.Body.String(), "disk on fire")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/handled", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), httpdto.CodeConflict)
}
