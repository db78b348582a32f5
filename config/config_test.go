package config

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		AppMode:           "debug",
		MongoDBName:       "resume_analyzer",
		JWTSecret:         "secret",
		JWTExpiryMin:      120,
		CookieSecure:      true,
		CookieSameSite:    "none",
		AuthRateLimit:     5,
		AuthRateWindowSec: 60,
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("APP_MODE", "debug")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	// an explicitly empty secret is rejected
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "dev-secret")
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.JWTExpiryMin)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, http.SameSiteNoneMode, cfg.SameSiteMode())
	assert.Empty(t, cfg.TrustedProxies)
	assert.Empty(t, cfg.CookieDomain)
	assert.Zero(t, cfg.AuthRateLimit)
	assert.Zero(t, cfg.AuthRateWindowSec)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("APP_MODE", "debug")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_EXPIRY_MIN", "30")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("COOKIE_SAMESITE", "Lax")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.10")
	t.Setenv("COOKIE_DOMAIN", ".example.com")
	t.Setenv("AUTH_RATE_LIMIT", "10")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.JWTExpiryMin)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, http.SameSiteLaxMode, cfg.SameSiteMode())
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.10"}, cfg.TrustedProxies)
	assert.Equal(t, ".example.com", cfg.CookieDomain)
	assert.Equal(t, 10, cfg.AuthRateLimit)
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("release requires explicit secret", func(t *testing.T) {
		cfg := validConfig()
		cfg.AppMode = "release"
		cfg.JWTSecret = DefaultJWTSecret
		assert.Error(t, cfg.Validate())

		cfg.JWTSecret = "prod-secret"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("samesite none requires secure", func(t *testing.T) {
		cfg := validConfig()
		cfg.CookieSecure = false
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown samesite", func(t *testing.T) {
		cfg := validConfig()
		cfg.CookieSameSite = "sometimes"
		assert.Error(t, cfg.Validate())
	})

	t.Run("trusted proxies must be addresses", func(t *testing.T) {
		cfg := validConfig()
		cfg.TrustedProxies = []string{"10.0.0.0/8", "::1"}
		assert.NoError(t, cfg.Validate())

		cfg.TrustedProxies = []string{"load-balancer"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative rate limit", func(t *testing.T) {
		cfg := validConfig()
		cfg.AuthRateLimit = 0
		assert.NoError(t, cfg.Validate())

		cfg.AuthRateWindowSec = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("non-positive expiry", func(t *testing.T) {
		cfg := validConfig()
		cfg.JWTExpiryMin = 0
		assert.Error(t, cfg.Validate())
	})
}
