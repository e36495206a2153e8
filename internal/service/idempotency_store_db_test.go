package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Pingpayio/ping-checkout-sub000/internal/domain"
)

func newDBIdempotencyStoreForTest(t *testing.T) (*DBIdempotencyStore, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.IdempotencyRecord{}); err != nil {
		t.Fatalf("migrate idempotency record: %v", err)
	}
	return NewDBIdempotencyStore(db), db
}

func TestDBIdempotencyStoreFirstClaimThenReplay(t *testing.T) {
	store, _ := newDBIdempotencyStoreForTest(t)
	ctx := context.Background()

	begin, err := store.Begin(ctx, "m1:POST /v1/payments", "k1", "fp-1", time.Hour)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if begin.State != IdempotencyStateNew {
		t.Fatalf("expected new, got %s", begin.State)
	}

	cached := CachedHTTPResponse{StatusCode: http.StatusCreated, ContentType: "application/json", Body: []byte(`{"id":"pay-1"}`)}
	if err := store.Complete(ctx, "m1:POST /v1/payments", "k1", "fp-1", cached, time.Hour); err != nil {
		t.Fatalf("complete: %v", err)
	}

	begin, err = store.Begin(ctx, "m1:POST /v1/payments", "k1", "fp-1", time.Hour)
	if err != nil {
		t.Fatalf("second begin: %v", err)
	}
	if begin.State != IdempotencyStateReplay {
		t.Fatalf("expected replay, got %s", begin.State)
	}
	if begin.Cached == nil || begin.Cached.StatusCode != http.StatusCreated || string(begin.Cached.Body) != `{"id":"pay-1"}` {
		t.Fatalf("unexpected cached response: %+v", begin.Cached)
	}
}

func TestDBIdempotencyStoreConflictOnDifferentFingerprint(t *testing.T) {
	store, _ := newDBIdempotencyStoreForTest(t)
	ctx := context.Background()

	if _, err := store.Begin(ctx, "scope", "k1", "fp-a", time.Hour); err != nil {
		t.Fatalf("begin: %v", err)
	}
	begin, err := store.Begin(ctx, "scope", "k1", "fp-b", time.Hour)
	if err != nil {
		t.Fatalf("second begin: %v", err)
	}
	if begin.State != IdempotencyStateConflict {
		t.Fatalf("expected conflict, got %s", begin.State)
	}
}

func TestDBIdempotencyStoreInProgressBeforeComplete(t *testing.T) {
	store, _ := newDBIdempotencyStoreForTest(t)
	ctx := context.Background()

	if _, err := store.Begin(ctx, "scope", "k1", "fp-a", time.Hour); err != nil {
		t.Fatalf("begin: %v", err)
	}
	begin, err := store.Begin(ctx, "scope", "k1", "fp-a", time.Hour)
	if err != nil {
		t.Fatalf("second begin: %v", err)
	}
	if begin.State != IdempotencyStateInProgress {
		t.Fatalf("expected in_progress, got %s", begin.State)
	}
}

func TestDBIdempotencyStoreScopesAreIndependent(t *testing.T) {
	store, _ := newDBIdempotencyStoreForTest(t)
	ctx := context.Background()

	if _, err := store.Begin(ctx, "m1:POST /v1/payments", "k1", "fp-a", time.Hour); err != nil {
		t.Fatalf("begin merchant 1: %v", err)
	}
	begin, err := store.Begin(ctx, "m2:POST /v1/payments", "k1", "fp-a", time.Hour)
	if err != nil {
		t.Fatalf("begin merchant 2: %v", err)
	}
	if begin.State != IdempotencyStateNew {
		t.Fatalf("expected new for other merchant, got %s", begin.State)
	}
}

func TestDBIdempotencyStoreExpiredClaimIsReusable(t *testing.T) {
	store, db := newDBIdempotencyStoreForTest(t)
	ctx := context.Background()

	rec := domain.IdempotencyRecord{
		Scope:           "scope",
		IdempotencyKey:  "k1",
		FingerprintHash: "fp-old",
		Status:          "completed",
		ResponseStatus:  http.StatusCreated,
		ResponseBody:    []byte(`{"id":"old"}`),
		ExpiresAt:       time.Now().UTC().Add(-time.Minute),
	}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("seed expired record: %v", err)
	}

	begin, err := store.Begin(ctx, "scope", "k1", "fp-new", time.Hour)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if begin.State != IdempotencyStateNew {
		t.Fatalf("expected expired claim to be reusable, got %s", begin.State)
	}
}

func TestDBIdempotencyStoreCleanupExpiredDeletesOnlyExpiredRows(t *testing.T) {
	store, db := newDBIdempotencyStoreForTest(t)
	now := time.Now().UTC()

	records := []domain.IdempotencyRecord{
		{Scope: "s", IdempotencyKey: "k1", FingerprintHash: "f1", Status: "completed", ExpiresAt: now.Add(-time.Hour)},
		{Scope: "s", IdempotencyKey: "k2", FingerprintHash: "f2", Status: "new", ExpiresAt: now.Add(-2 * time.Minute)},
		{Scope: "s", IdempotencyKey: "k3", FingerprintHash: "f3", Status: "new", ExpiresAt: now.Add(2 * time.Hour)},
	}
	for i := range records {
		if err := db.Create(&records[i]).Error; err != nil {
			t.Fatalf("create record %d: %v", i, err)
		}
	}

	deleted, err := store.CleanupExpired(context.Background(), now, 100)
	if err != nil {
		t.Fatalf("cleanup expired: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted rows, got %d", deleted)
	}

	var remaining []domain.IdempotencyRecord
	if err := db.Order("id ASC").Find(&remaining).Error; err != nil {
		t.Fatalf("query remaining: %v", err)
	}
	if len(remaining) != 1 || remaining[0].IdempotencyKey != "k3" {
		t.Fatalf("expected only unexpired row to remain, got %+v", remaining)
	}
}

func TestDBIdempotencyStoreCleanupExpiredHonorsBatchSize(t *testing.T) {
	store, db := newDBIdempotencyStoreForTest(t)
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		rec := domain.IdempotencyRecord{
			Scope:           "s",
			IdempotencyKey:  fmt.Sprintf("k-%d", i),
			FingerprintHash: fmt.Sprintf("f-%d", i),
			Status:          "completed",
			ExpiresAt:       now.Add(-time.Minute),
		}
		if err := db.Create(&rec).Error; err != nil {
			t.Fatalf("create expired record %d: %v", i, err)
		}
	}

	deleted, err := store.CleanupExpired(context.Background(), now, 1)
	if err != nil {
		t.Fatalf("cleanup expired: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted row with batch=1, got %d", deleted)
	}
}
