package main

import (
	"context"
	"log"
	"time"

	"resume-analyzer/config"
	"resume-analyzer/internal/handler"
	"resume-analyzer/internal/redis"
	"resume-analyzer/internal/repository"
	"resume-analyzer/internal/server"
	"resume-analyzer/internal/services"
	"resume-analyzer/pkg/database"
	"resume-analyzer/pkg/events"
	"resume-analyzer/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	l := logger.New(cfg.AppMode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	// Connect to Database
	database.Connect(cfg)
	defer database.Close()

	redis.Initialize(redis.ConfigFrom(cfg))
	defer redis.Close()

	userRepo := repository.NewUserRepository(database.DB)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		l.Warnf("Failed to ensure user indexes: %v", err)
	}
	cancel()

	redisClient := redis.GetClient()
	denylist := redis.NewTokenDenylist(redisClient)
	limiter := redis.NewRateLimiter(redisClient, redis.RateLimitConfigFrom(cfg))

	authService := services.NewAuthService(userRepo, denylist, cfg, l)
	authService.SetEventPublisher(events.NewRedisBroker(redisClient))
	userService := services.NewUserService(userRepo, l)

	handlers := &server.Handlers{
		Auth: handler.NewAuthHandler(authService, handler.CookieConfig{
			Secure:   cfg.CookieSecure,
			SameSite: cfg.SameSiteMode(),
			Domain:   cfg.CookieDomain,
		}, l),
		Users: handler.NewUserHandler(userService, l),
	}

	srv := server.New(cfg, l)
	srv.SetupRoutes(handlers, server.Dependencies{
		AuthService:  authService,
		LoginLimiter: limiter,
		HealthChecks: map[string]server.HealthCheck{
			"mongodb": database.HealthCheck,
			"redis":   redis.Ping,
		},
	})

	if err := srv.Start(); err != nil {
		l.Errorf("Server exited with error: %v", err)
	}
}
