package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPPort string
	LogLevel string

	DatabaseURL string

	RedisEnabled bool
	RedisAddr    string
	RedisDB      int

	APIRateLimitPerMin    int
	PublicRateLimitPerMin int
	RateLimitFailureMode  string

	IdempotencyTTL time.Duration
	NonceTTL       time.Duration

	ProviderBaseURL string
	ProviderAPIKey  string
	ProviderTimeout time.Duration
	QuoteDeadline   time.Duration

	CheckoutTokenSecret string
	CheckoutTokenTTL    time.Duration
	CheckoutSessionTTL  time.Duration

	ReceiptsEnabled bool
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPPort:              getEnv("HTTP_PORT", "8080"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisEnabled:          getEnvBool("REDIS_ENABLED", false),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:               getEnvInt("REDIS_DB", 0),
		APIRateLimitPerMin:    getEnvInt("API_RATE_LIMIT_PER_MIN", 300),
		PublicRateLimitPerMin: getEnvInt("PUBLIC_RATE_LIMIT_PER_MIN", 600),
		RateLimitFailureMode:  strings.ToLower(getEnv("RATE_LIMIT_FAILURE_MODE", "fail_closed")),
		ProviderBaseURL:       getEnv("SWAP_PROVIDER_BASE_URL", "https://1click.chaindefuser.com"),
		ProviderAPIKey:        os.Getenv("SWAP_PROVIDER_API_KEY"),
		CheckoutTokenSecret:   os.Getenv("CHECKOUT_TOKEN_SECRET"),
		ReceiptsEnabled:       getEnvBool("RECEIPTS_ENABLED", false),
		MinioEndpoint:         os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:        os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:        os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:           getEnv("MINIO_BUCKET", "settlement-receipts"),
		MinioUseSSL:           getEnvBool("MINIO_USE_SSL", true),
	}

	durations := []struct {
		dst *time.Duration
		key string
		def string
	}{
		{&cfg.IdempotencyTTL, "IDEMPOTENCY_TTL", "24h"},
		{&cfg.NonceTTL, "SIGNATURE_NONCE_TTL", "5m"},
		{&cfg.ProviderTimeout, "SWAP_PROVIDER_TIMEOUT", "5s"},
		{&cfg.QuoteDeadline, "QUOTE_DEADLINE", "5m"},
		{&cfg.CheckoutTokenTTL, "CHECKOUT_TOKEN_TTL", "15m"},
		{&cfg.CheckoutSessionTTL, "CHECKOUT_SESSION_TTL", "1h"},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.ProviderBaseURL == "" {
		errs = append(errs, "SWAP_PROVIDER_BASE_URL is required")
	}
	if len(c.CheckoutTokenSecret) < 32 {
		errs = append(errs, "CHECKOUT_TOKEN_SECRET must be at least 32 chars")
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.PublicRateLimitPerMin <= 0 {
		errs = append(errs, "PUBLIC_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.RateLimitFailureMode != "fail_open" && c.RateLimitFailureMode != "fail_closed" {
		errs = append(errs, "RATE_LIMIT_FAILURE_MODE must be fail_open or fail_closed")
	}
	if c.IdempotencyTTL <= 0 || c.IdempotencyTTL > 7*24*time.Hour {
		errs = append(errs, "IDEMPOTENCY_TTL must be between 1s and 7d")
	}
	if c.NonceTTL <= 0 || c.NonceTTL > time.Hour {
		errs = append(errs, "SIGNATURE_NONCE_TTL must be between 1s and 1h")
	}
	if c.ProviderTimeout <= 0 || c.ProviderTimeout > 30*time.Second {
		errs = append(errs, "SWAP_PROVIDER_TIMEOUT must be between 1s and 30s")
	}
	if c.ReceiptsEnabled {
		if c.MinioEndpoint == "" || c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			errs = append(errs, "MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when RECEIPTS_ENABLED=true")
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
