package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/ping_checkout_test")
	t.Setenv("CHECKOUT_TOKEN_SECRET", "abcdefghijklmnopqrstuvwxyz123456")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.HTTPPort)
	}
	if cfg.APIRateLimitPerMin != 300 || cfg.PublicRateLimitPerMin != 600 {
		t.Fatalf("unexpected rate limit defaults: %d/%d", cfg.APIRateLimitPerMin, cfg.PublicRateLimitPerMin)
	}
	if cfg.RateLimitFailureMode != "fail_closed" {
		t.Fatalf("expected fail_closed default, got %q", cfg.RateLimitFailureMode)
	}
	if cfg.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("expected 24h idempotency ttl, got %v", cfg.IdempotencyTTL)
	}
	if cfg.NonceTTL != 5*time.Minute {
		t.Fatalf("expected 5m nonce ttl, got %v", cfg.NonceTTL)
	}
	if cfg.ProviderBaseURL == "" {
		t.Fatal("expected provider base URL default")
	}
}

func TestLoadFailsWithoutDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CHECKOUT_TOKEN_SECRET", "abcdefghijklmnopqrstuvwxyz123456")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing DATABASE_URL")
	}
}

func TestLoadFailsOnShortCheckoutSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ping_checkout_test")
	t.Setenv("CHECKOUT_TOKEN_SECRET", "too-short")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error for short CHECKOUT_TOKEN_SECRET")
	}
	if !strings.Contains(err.Error(), "CHECKOUT_TOKEN_SECRET") {
		t.Fatalf("expected secret length error, got %v", err)
	}
}

func TestLoadRejectsBadFailureMode(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RATE_LIMIT_FAILURE_MODE", "sometimes")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid failure mode")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("IDEMPOTENCY_TTL", "yesterday")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

func TestLoadRequiresMinioWhenReceiptsEnabled(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RECEIPTS_ENABLED", "true")
	t.Setenv("MINIO_ENDPOINT", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for receipts without minio settings")
	}
}
