package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"resume-analyzer/config"
)

// Login attempts are counted under ratelimit:{ip}:login with a TTL equal to
// the window.

type RateLimitConfig struct {
	LoginLimit  int           // Max login attempts per window
	LoginWindow time.Duration // Login rate limit window
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		LoginLimit:  5,
		LoginWindow: 60 * time.Second,
	}
}

// RateLimitConfigFrom overrides the defaults with the positive settings of cfg.
func RateLimitConfigFrom(cfg *config.Config) RateLimitConfig {
	rl := DefaultRateLimitConfig()
	if cfg.AuthRateLimit > 0 {
		rl.LoginLimit = cfg.AuthRateLimit
	}
	if cfg.AuthRateWindowSec > 0 {
		rl.LoginWindow = time.Duration(cfg.AuthRateWindowSec) * time.Second
	}
	return rl
}

type RateLimiter struct {
	client *goredis.Client
	config RateLimitConfig
}

type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
	Limit     int
}

func NewRateLimiter(client *goredis.Client, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		client: client,
		config: config,
	}
}

// fixedWindowScript increments the counter while below the limit and returns
// {allowed, remaining, ttl}.
var fixedWindowScript = goredis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])

	local current = redis.call('GET', key)
	if current == false then
		current = 0
	else
		current = tonumber(current)
	end

	local ttl = redis.call('TTL', key)
	if ttl < 0 then
		ttl = window
	end

	if current < limit then
		redis.call('INCR', key)
		if ttl == window then
			redis.call('EXPIRE', key, window)
		end
		return {1, limit - current - 1, ttl}
	else
		return {0, 0, ttl}
	end
`)

// AllowLogin checks and consumes one login attempt for the client IP.
func (r *RateLimiter) AllowLogin(ctx context.Context, ip string) (*RateLimitResult, error) {
	return r.checkLimit(ctx, loginKey(ip), r.config.LoginLimit, r.config.LoginWindow)
}

func (r *RateLimiter) ResetLogin(ctx context.Context, ip string) error {
	return r.client.Del(ctx, loginKey(ip)).Err()
}

func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error) {
	result, err := fixedWindowScript.Run(ctx, r.client, []string{key}, limit, int(window.Seconds())).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	return parseLimitResult(result, limit)
}

func parseLimitResult(result interface{}, limit int) (*RateLimitResult, error) {
	resultSlice, ok := result.([]interface{})
	if !ok || len(resultSlice) < 3 {
		return nil, fmt.Errorf("unexpected rate limit result format")
	}

	values := make([]int64, 3)
	for i := range values {
		v, ok := resultSlice[i].(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected rate limit result element %d: %T", i, resultSlice[i])
		}
		values[i] = v
	}

	return &RateLimitResult{
		Allowed:   values[0] == 1,
		Remaining: int(values[1]),
		ResetIn:   time.Duration(values[2]) * time.Second,
		Limit:     limit,
	}, nil
}

func loginKey(ip string) string {
	return fmt.Sprintf("ratelimit:%s:login", ip)
}
