package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Upstream   UpstreamConfig
	Cache      CacheConfig
	Redis      RedisConfig
	DynamoDB   DynamoDBConfig
	Session    SessionConfig
	RateLimit  RateLimitConfig
	ImageProxy ImageProxyConfig
	Locale     LocaleConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type UpstreamConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
	MaxDelay     time.Duration
	MaxBodyBytes int64
}

// CacheConfig is the TTL tier table: each resource class reads its expiry
// from here rather than hard-coding one at the call site.
type CacheConfig struct {
	Backend         string
	CleanupInterval time.Duration
	SearchTTL       time.Duration
	HomeTTL         time.Duration
	ProductTTL      time.Duration
	CategoryTTL     time.Duration
	BannerTTL       time.Duration
}

type RedisConfig struct {
	Endpoint string
	Password string
	DB       int
}

type DynamoDBConfig struct {
	Endpoint  string
	Region    string
	TableName string
}

type SessionConfig struct {
	Backend       string
	CookieName    string
	CookieSecret  string
	CookieExpiry  time.Duration
	SealKey       string
	TokenLifetime time.Duration
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	Retention     time.Duration
}

type RateLimitConfig struct {
	Interval               time.Duration
	UniqueTokenPerInterval int
	Retention              time.Duration
	SweepInterval          time.Duration
	LoginLimit             int
	SignupLimit            int
	VerifyLimit            int
}

type ImageProxyConfig struct {
	AllowedHosts []string
	Timeout      time.Duration
	MaxBodyBytes int64
}

type LocaleConfig struct {
	Default string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Upstream: UpstreamConfig{
			BaseURL:      getEnv("UPSTREAM_BASE_URL", ""),
			Timeout:      getEnvAsDuration("UPSTREAM_TIMEOUT", 10*time.Second),
			MaxRetries:   getEnvAsInt("UPSTREAM_MAX_RETRIES", 2),
			RetryDelay:   getEnvAsDuration("UPSTREAM_RETRY_DELAY", time.Second),
			MaxDelay:     getEnvAsDuration("UPSTREAM_MAX_DELAY", 5*time.Second),
			MaxBodyBytes: int64(getEnvAsInt("UPSTREAM_MAX_BODY_BYTES", 10<<20)),
		},
		Cache: CacheConfig{
			Backend:         getEnv("CACHE_BACKEND", "memory"),
			CleanupInterval: getEnvAsDuration("CACHE_CLEANUP_INTERVAL", 5*time.Minute),
			SearchTTL:       getEnvAsDuration("CACHE_SEARCH_TTL", time.Minute),
			HomeTTL:         getEnvAsDuration("CACHE_HOME_TTL", 5*time.Minute),
			ProductTTL:      getEnvAsDuration("CACHE_PRODUCT_TTL", 10*time.Minute),
			CategoryTTL:     getEnvAsDuration("CACHE_CATEGORY_TTL", time.Hour),
			BannerTTL:       getEnvAsDuration("CACHE_BANNER_TTL", 5*time.Minute),
		},
		Redis: RedisConfig{
			Endpoint: getEnv("REDIS_ENDPOINT", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		DynamoDB: DynamoDBConfig{
			Endpoint:  getEnv("DYNAMODB_ENDPOINT", ""),
			Region:    getEnv("DYNAMODB_REGION", "us-east-1"),
			TableName: getEnv("DYNAMODB_TABLE_NAME", "StorefrontSessions"),
		},
		Session: SessionConfig{
			Backend:       getEnv("SESSION_BACKEND", "memory"),
			CookieName:    getEnv("SESSION_COOKIE_NAME", "sf_session"),
			CookieSecret:  getEnv("SESSION_COOKIE_SECRET", ""),
			CookieExpiry:  getEnvAsDuration("SESSION_COOKIE_EXPIRY", 7*24*time.Hour),
			SealKey:       getEnv("SESSION_SEAL_KEY", ""),
			TokenLifetime: getEnvAsDuration("SESSION_TOKEN_LIFETIME", 24*time.Hour),
			IdleTimeout:   getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
			SweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
			Retention:     getEnvAsDuration("SESSION_RETENTION", 24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Interval:               getEnvAsDuration("RATE_LIMIT_INTERVAL", 15*time.Minute),
			UniqueTokenPerInterval: getEnvAsInt("RATE_LIMIT_MAX_IDENTIFIERS", 500),
			Retention:              getEnvAsDuration("RATE_LIMIT_RETENTION", time.Hour),
			SweepInterval:          getEnvAsDuration("RATE_LIMIT_SWEEP_INTERVAL", 10*time.Minute),
			LoginLimit:             getEnvAsInt("RATE_LIMIT_LOGIN", 5),
			SignupLimit:            getEnvAsInt("RATE_LIMIT_SIGNUP", 3),
			VerifyLimit:            getEnvAsInt("RATE_LIMIT_VERIFY", 5),
		},
		ImageProxy: ImageProxyConfig{
			AllowedHosts: getEnvAsSlice("IMAGE_PROXY_HOSTS", nil),
			Timeout:      getEnvAsDuration("IMAGE_PROXY_TIMEOUT", 10*time.Second),
			MaxBodyBytes: int64(getEnvAsInt("IMAGE_PROXY_MAX_BODY_BYTES", 20<<20)),
		},
		Locale: LocaleConfig{
			Default: getEnv("DEFAULT_LOCALE", "en"),
		},
	}

	if cfg.Upstream.BaseURL == "" {
		return nil, fmt.Errorf("UPSTREAM_BASE_URL environment variable is required")
	}

	if cfg.Session.CookieSecret == "" {
		return nil, fmt.Errorf("SESSION_COOKIE_SECRET environment variable is required")
	}

	if len(cfg.Session.CookieSecret) < 32 {
		return nil, fmt.Errorf("SESSION_COOKIE_SECRET must be at least 32 bytes (256 bits)")
	}

	if cfg.Session.Backend == "dynamo" && len(cfg.Session.SealKey) != 32 {
		return nil, fmt.Errorf("SESSION_SEAL_KEY must be exactly 32 bytes when SESSION_BACKEND is dynamo")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
