package config

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultJWTSecret is only acceptable outside release mode.
const DefaultJWTSecret = "change-me"

type Config struct {
	AppPort string
	AppMode string

	MongoURI        string
	MongoDBName     string
	MongoTimeoutSec int

	JWTSecret    string
	JWTExpiryMin int

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	CORSAllowedOrigins []string
	CookieSecure       bool
	CookieSameSite     string
	CookieDomain       string

	// TrustedProxies lists the proxy IPs or CIDRs whose forwarding headers
	// are honoured when resolving the client IP. Empty trusts none.
	TrustedProxies []string

	AuthRateLimit     int
	AuthRateWindowSec int
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		AppPort:            getEnv("APP_PORT", "8080"),
		AppMode:            getEnv("APP_MODE", "debug"),
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:        getEnv("MONGO_DB_NAME", "resume_analyzer"),
		MongoTimeoutSec:    getEnvAsInt("MONGO_TIMEOUT_SEC", 10),
		JWTSecret:          getEnv("JWT_SECRET", DefaultJWTSecret),
		JWTExpiryMin:       getEnvAsInt("JWT_EXPIRY_MIN", 120),
		RedisHost:          getEnv("REDIS_HOST", "localhost"),
		RedisPort:          getEnv("REDIS_PORT", "6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvAsInt("REDIS_DB", 0),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		CookieSecure:       getEnvAsBool("COOKIE_SECURE", true),
		CookieSameSite:     strings.ToLower(getEnv("COOKIE_SAMESITE", "none")),
		CookieDomain:       getEnv("COOKIE_DOMAIN", ""),
		TrustedProxies:     getEnvAsList("TRUSTED_PROXIES", nil),
		AuthRateLimit:      getEnvAsInt("AUTH_RATE_LIMIT", 0),
		AuthRateWindowSec:  getEnvAsInt("AUTH_RATE_WINDOW_SEC", 0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with. The JWT secret is
// only enforced in release mode so local setups work without a .env file.
func (c *Config) Validate() error {
	if c.AppMode == "release" && (c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret) {
		return fmt.Errorf("JWT_SECRET must be set in release mode")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.JWTExpiryMin <= 0 {
		return fmt.Errorf("JWT_EXPIRY_MIN must be positive, got %d", c.JWTExpiryMin)
	}
	if c.MongoDBName == "" {
		return fmt.Errorf("MONGO_DB_NAME is required")
	}
	switch c.CookieSameSite {
	case "lax", "strict":
	case "none":
		// browsers drop SameSite=None cookies that are not Secure
		if !c.CookieSecure {
			return fmt.Errorf("COOKIE_SAMESITE=none requires COOKIE_SECURE=true")
		}
	default:
		return fmt.Errorf("COOKIE_SAMESITE must be one of lax, strict, none; got %q", c.CookieSameSite)
	}
	// zero selects the limiter defaults
	if c.AuthRateLimit < 0 || c.AuthRateWindowSec < 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT and AUTH_RATE_WINDOW_SEC must not be negative")
	}
	for _, proxy := range c.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				return fmt.Errorf("TRUSTED_PROXIES entry %q is not an IP or CIDR", proxy)
			}
		}
	}
	return nil
}

func (c *Config) SameSiteMode() http.SameSite {
	switch c.CookieSameSite {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	default:
		return http.SameSiteNoneMode
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var items []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
