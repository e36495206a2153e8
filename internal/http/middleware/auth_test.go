package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Pingpayio/ping-checkout-sub000/internal/domain"
	"github.com/Pingpayio/ping-checkout-sub000/internal/repository"
)

type fakeKeyRepo struct {
	mu   sync.Mutex
	keys map[string]*domain.APIKey

	lastTouched string
}

func newFakeKeyRepo(keys ...*domain.APIKey) *fakeKeyRepo {
	repo := &fakeKeyRepo{keys: make(map[string]*domain.APIKey)}
	for _, k := range keys {
		repo.keys[k.Key] = k
	}
	return repo
}

func (f *fakeKeyRepo) FindActiveByValue(_ context.Context, value string) (*domain.APIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, ok := f.keys[value]
	if !ok {
		return nil, repository.ErrAPIKeyNotFound
	}
	if !key.IsActive() {
		return nil, repository.ErrAPIKeyRevoked
	}
	return key, nil
}

func (f *fakeKeyRepo) FindByID(context.Context, string, string) (*domain.APIKey, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeKeyRepo) ListByMerchant(context.Context, string) ([]domain.APIKey, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeKeyRepo) Create(context.Context, *domain.APIKey) error {
	return errors.New("not implemented")
}

func (f *fakeKeyRepo) Revoke(context.Context, string, string) error {
	return errors.New("not implemented")
}

func (f *fakeKeyRepo) Regenerate(context.Context, string, string, string, *string) (*domain.APIKey, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeKeyRepo) TouchLastUsed(_ context.Context, id string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTouched = id
	return nil
}

func secretTestKey(id, merchantID string, scopes ...string) *domain.APIKey {
	secret := "whsec_test_" + id
	return &domain.APIKey{
		ID:            id,
		Key:           "sk_test_" + id,
		MerchantID:    merchantID,
		Kind:          domain.APIKeyKindSecret,
		Scopes:        scopes,
		SigningSecret: &secret,
	}
}

func publishableTestKey(id, merchantID string) *domain.APIKey {
	return &domain.APIKey{
		ID:         id,
		Key:        "pk_test_" + id,
		MerchantID: merchantID,
		Kind:       domain.APIKeyKindPublishable,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyAuthenticatorMissingKey(t *testing.T) {
	auth := NewAPIKeyAuthenticator(newFakeKeyRepo(), slog.Default())
	h := auth.Middleware()(okHandler())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/payments/x", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestAPIKeyAuthenticatorUnknownKey(t *testing.T) {
	auth := NewAPIKeyAuthenticator(newFakeKeyRepo(), slog.Default())
	h := auth.Middleware()(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/v1/payments/x", nil)
	req.Header.Set(APIKeyHeader, "sk_test_never_issued")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestAPIKeyAuthenticatorRevokedKeyDistinctCode(t *testing.T) {
	revoked := secretTestKey("k1", "m1")
	now := time.Now()
	revoked.RevokedAt = &now
	auth := NewAPIKeyAuthenticator(newFakeKeyRepo(revoked), slog.Default())
	h := auth.Middleware()(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/v1/payments/x", nil)
	req.Header.Set(APIKeyHeader, revoked.Key)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if body := rr.Body.String(); !strings.Contains(body, "INVALID_API_KEY") {
		t.Fatalf("expected INVALID_API_KEY code, got %s", body)
	}
}

func TestAPIKeyAuthenticatorAttachesCredential(t *testing.T) {
	key := secretTestKey("k1", "m1", "payments:write")
	auth := NewAPIKeyAuthenticator(newFakeKeyRepo(key), slog.Default())
	var seen *domain.APIKey
	h := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CredentialFromRequest(r)
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/payments/x", nil)
	req.Header.Set(APIKeyHeader, key.Key)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if seen == nil || seen.ID != "k1" {
		t.Fatalf("expected credential in context, got %+v", seen)
	}
}
