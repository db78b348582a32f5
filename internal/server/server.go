package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"resume-analyzer/config"
	"resume-analyzer/internal/domain/user"
	"resume-analyzer/internal/handler"
	"resume-analyzer/internal/middleware"
	"resume-analyzer/internal/services"
	"resume-analyzer/internal/transport/httpdto"
	"resume-analyzer/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Auth  *handler.AuthHandler
	Users *handler.UserHandler
}

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

type Dependencies struct {
	AuthService  *services.AuthService
	LoginLimiter middleware.LoginLimiter
	HealthChecks map[string]HealthCheck
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	// Forwarding headers are only honoured from listed proxies.
	if err := engine.SetTrustedProxies(trustedProxies(cfg.TrustedProxies)); err != nil {
		if l != nil {
			l.Errorf("Invalid trusted proxies, trusting none: %v", err)
		}
		_ = engine.SetTrustedProxies(nil)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.AppPort),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

func trustedProxies(proxies []string) []string {
	if len(proxies) == 0 {
		return nil
	}
	return proxies
}

// Engine exposes the router, mainly for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) SetupRoutes(handlers *Handlers, deps Dependencies) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware(s.config.CORSAllowedOrigins))
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})
	s.engine.GET("/health", healthHandler(deps.HealthChecks, s.logger))

	requireAuth := middleware.AuthMiddleware(deps.AuthService, s.logger)

	auth := s.engine.Group("/auth")
	{
		if deps.LoginLimiter != nil {
			auth.POST("/login", middleware.RateLimitMiddleware(deps.LoginLimiter, s.logger), handlers.Auth.Login)
		} else {
			auth.POST("/login", handlers.Auth.Login)
		}
		auth.GET("/verify_token", handlers.Auth.VerifyToken)
		auth.POST("/logout", handlers.Auth.Logout)
	}

	admin := s.engine.Group("/admin", requireAuth, middleware.RequireRole(user.RoleAdmin))
	{
		admin.GET("/users", handlers.Users.ListUsers)
	}
}

func healthHandler(checks map[string]HealthCheck, l *logger.Logger) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := gin.H{}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				if l != nil {
					l.WithContext(c.Request.Context()).Sugar().Errorf("health check %s failed: %v", name, err)
				}
				c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(name+" unavailable", httpdto.CodeUnhealthy))
				return
			}
			status[name] = "ok"
		}
		status["status"] = "healthy"
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(status))
	}
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
