package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Pingpayio/ping-checkout-sub000/internal/domain"
)

func seedAPIKey(t *testing.T, repo APIKeyRepository, merchantID, value string) *domain.APIKey {
	t.Helper()
	secret := "whsec_" + value
	key := &domain.APIKey{
		ID:            uuid.NewString(),
		Key:           value,
		MerchantID:    merchantID,
		Kind:          domain.APIKeyKindSecret,
		Scopes:        []string{"payments:write"},
		SigningSecret: &secret,
	}
	if err := repo.Create(context.Background(), key); err != nil {
		t.Fatalf("seed api key: %v", err)
	}
	return key
}

func TestFindActiveByValueDistinguishesRevokedFromUnknown(t *testing.T) {
	repo := NewAPIKeyRepository(newRepositoryDBForTest(t))
	ctx := context.Background()
	key := seedAPIKey(t, repo, "m1", "sk_test_alpha")

	if _, err := repo.FindActiveByValue(ctx, "sk_test_never_issued"); !errors.Is(err, ErrAPIKeyNotFound) {
		t.Fatalf("expected ErrAPIKeyNotFound, got %v", err)
	}

	if err := repo.Revoke(ctx, "m1", key.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := repo.FindActiveByValue(ctx, "sk_test_alpha"); !errors.Is(err, ErrAPIKeyRevoked) {
		t.Fatalf("expected ErrAPIKeyRevoked, got %v", err)
	}
}

func TestRevokeIsIdempotentFailure(t *testing.T) {
	repo := NewAPIKeyRepository(newRepositoryDBForTest(t))
	ctx := context.Background()
	key := seedAPIKey(t, repo, "m1", "sk_test_alpha")

	if err := repo.Revoke(ctx, "m1", key.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := repo.Revoke(ctx, "m1", key.ID); !errors.Is(err, ErrAPIKeyNotFound) {
		t.Fatalf("expected second revoke to report not found, got %v", err)
	}
}

func TestRevokeScopedToMerchant(t *testing.T) {
	repo := NewAPIKeyRepository(newRepositoryDBForTest(t))
	ctx := context.Background()
	key := seedAPIKey(t, repo, "m1", "sk_test_alpha")

	if err := repo.Revoke(ctx, "m2", key.ID); !errors.Is(err, ErrAPIKeyNotFound) {
		t.Fatalf("expected cross-merchant revoke to fail, got %v", err)
	}
	if _, err := repo.FindActiveByValue(ctx, "sk_test_alpha"); err != nil {
		t.Fatalf("key must stay active: %v", err)
	}
}

func TestRegenerateSwapsValueAtomically(t *testing.T) {
	repo := NewAPIKeyRepository(newRepositoryDBForTest(t))
	ctx := context.Background()
	key := seedAPIKey(t, repo, "m1", "sk_test_alpha")

	newSecret := "whsec_new"
	updated, err := repo.Regenerate(ctx, "m1", key.ID, "sk_test_beta", &newSecret)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if updated.Key != "sk_test_beta" {
		t.Fatalf("expected new value, got %q", updated.Key)
	}
	if updated.SigningSecret == nil || *updated.SigningSecret != "whsec_new" {
		t.Fatalf("expected new signing secret, got %v", updated.SigningSecret)
	}
	if _, err := repo.FindActiveByValue(ctx, "sk_test_alpha"); !errors.Is(err, ErrAPIKeyNotFound) {
		t.Fatalf("old value must stop resolving, got %v", err)
	}
}

func TestTouchLastUsed(t *testing.T) {
	repo := NewAPIKeyRepository(newRepositoryDBForTest(t))
	ctx := context.Background()
	key := seedAPIKey(t, repo, "m1", "sk_test_alpha")

	at := time.Now().UTC().Truncate(time.Second)
	if err := repo.TouchLastUsed(ctx, key.ID, at); err != nil {
		t.Fatalf("touch: %v", err)
	}
	stored, err := repo.FindByID(ctx, "m1", key.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.LastUsedAt == nil || !stored.LastUsedAt.Equal(at) {
		t.Fatalf("expected last_used_at %v, got %v", at, stored.LastUsedAt)
	}
}
