package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Pingpayio/ping-checkout-sub000/internal/config"
	"github.com/Pingpayio/ping-checkout-sub000/internal/domain"
	"github.com/Pingpayio/ping-checkout-sub000/internal/http/middleware"
	"github.com/Pingpayio/ping-checkout-sub000/internal/service"
)

func newDIDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.IdempotencyRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestProvideHTTPServer(t *testing.T) {
	cfg := &config.Config{HTTPPort: "9090"}
	srv := provideHTTPServer(cfg, http.NewServeMux())
	if srv.Addr != ":9090" {
		t.Fatalf("expected :9090, got %q", srv.Addr)
	}
	if srv.ReadTimeout != 10*time.Second {
		t.Fatalf("unexpected read timeout %v", srv.ReadTimeout)
	}
	if srv.WriteTimeout != 30*time.Second {
		t.Fatalf("unexpected write timeout %v", srv.WriteTimeout)
	}
}

func TestProvideRedisClientDisabled(t *testing.T) {
	cfg := &config.Config{RedisEnabled: false, RedisAddr: "localhost:6379"}
	if client := provideRedisClient(cfg); client != nil {
		t.Fatal("expected nil client when redis is disabled")
	}
}

func TestProvideIdempotencyStoreFallsBackToDatabase(t *testing.T) {
	store := provideIdempotencyStore(nil, newDIDBForTest(t))
	if _, ok := store.(*service.DBIdempotencyStore); !ok {
		t.Fatalf("expected database-backed store without redis, got %T", store)
	}
}

func TestProvideLimiterFallsBackToLocal(t *testing.T) {
	limiter := provideLimiter(nil)
	allowed, _, err := limiter.Allow(context.Background(), "k", 1, time.Minute)
	if err != nil || !allowed {
		t.Fatalf("local limiter must admit the first request: allowed=%v err=%v", allowed, err)
	}
}

func TestProvideNonceCacheFallsBackToLocal(t *testing.T) {
	cache := provideNonceCache(nil)
	seen, err := cache.Seen(context.Background(), "key", "nonce", time.Minute)
	if err != nil || seen {
		t.Fatalf("fresh nonce must not be seen: seen=%v err=%v", seen, err)
	}
}

func TestProvideRouterDependencies(t *testing.T) {
	cfg := &config.Config{
		APIRateLimitPerMin:    120,
		PublicRateLimitPerMin: 240,
		RateLimitFailureMode:  "fail_open",
	}
	dep := provideRouterDependencies(
		cfg, slog.Default(), nil, nil, nil, nil, nil, nil, nil, nil, provideLimiter(nil),
	)
	if dep.APIRateLimitRPM != 120 || dep.PublicRateLimitRPM != 240 {
		t.Fatalf("rate limits not mapped: %+v", dep)
	}
	if dep.RateLimitMode != middleware.FailOpen {
		t.Fatalf("expected fail_open, got %s", dep.RateLimitMode)
	}
}
