package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer   string // Required: issuer claim for tokens
	Audience string // Required: audience claim for tokens

	AccessTTL       time.Duration // Optional: access token validity (default: 15m)
	RefreshTTL      time.Duration // Optional: refresh token validity (default: 30 days)
	ClockSkew       time.Duration // Optional: timing gate tolerance (default: 30s)
	PublicAccess    bool          // Optional: issue v4.public access tokens (default: true)
	DatabaseFile    string        // Optional: path to SQLite database file (default: ./shopauth.db)
	RedisAddr       string        // Optional: redis address for the revocation cache; empty = in-process cache
	RedisPassword   string        // Optional: redis password
	RedisDB         int           // Optional: redis database number (default: 0)
	CacheKeyPrefix  string        // Optional: prefix for revocation cache keys (default: shopauth:revoked)
	RevocationTTL   time.Duration // Optional: cache TTL for revocation lookups (default: 5m)
	MetadataTTL     time.Duration // Optional: cap on metadata cache entries (default: 1m)
	MetricsEnabled  bool          // Optional: register prometheus collectors (default: true)
	Env             string        // Environment (dev, staging, prod) (default: dev)
	LogLevel        string        // Log level (debug, info, warn, error) (default: info)
	LogFormat       string        // Log format (json, text) (default: json)

	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
	RevocationRetention  time.Duration // How long tombstones are kept (default: 30 days)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:               getEnvOrDefault("AUTH_ISSUER", "shopauth"),
		Audience:             getEnvOrDefault("AUTH_AUDIENCE", "shop-api"),
		AccessTTL:            getEnvDurationOrDefault("AUTH_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:           getEnvDurationOrDefault("AUTH_REFRESH_TTL", 30*24*time.Hour),
		ClockSkew:            getEnvDurationOrDefault("AUTH_CLOCK_SKEW", 30*time.Second),
		PublicAccess:         getEnvBoolOrDefault("AUTH_PUBLIC_ACCESS", true),
		DatabaseFile:         getEnvOrDefault("AUTH_DATABASE_FILE", "shopauth.db"),
		RedisAddr:            os.Getenv("AUTH_REDIS_ADDR"), // Optional: empty selects the in-process cache
		RedisPassword:        os.Getenv("AUTH_REDIS_PASSWORD"),
		RedisDB:              getEnvIntOrDefault("AUTH_REDIS_DB", 0),
		CacheKeyPrefix:       getEnvOrDefault("AUTH_CACHE_KEY_PREFIX", "shopauth:revoked"),
		RevocationTTL:        getEnvDurationOrDefault("AUTH_REVOCATION_CACHE_TTL", 5*time.Minute),
		MetadataTTL:          getEnvDurationOrDefault("AUTH_METADATA_CACHE_TTL", time.Minute),
		MetricsEnabled:       getEnvBoolOrDefault("AUTH_METRICS_ENABLED", true),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		RevocationRetention:  getEnvDurationOrDefault("AUTH_REVOCATION_RETENTION", 30*24*time.Hour),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
