package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Pingpayio/ping-checkout-sub000/internal/domain"
	"github.com/Pingpayio/ping-checkout-sub000/internal/repository"
	"github.com/Pingpayio/ping-checkout-sub000/internal/security"
)

var ErrInvalidKeyKind = errors.New("invalid api key kind")

// CreatedAPIKey carries the one-time plaintext material returned only at
// creation or regeneration; it is never retrievable afterwards.
type CreatedAPIKey struct {
	Key           *domain.APIKey
	PlaintextKey  string
	SigningSecret string
}

type APIKeyService struct {
	keys repository.APIKeyRepository
	env  string
}

func NewAPIKeyService(keys repository.APIKeyRepository, env string) *APIKeyService {
	return &APIKeyService{keys: keys, env: env}
}

func (s *APIKeyService) Create(ctx context.Context, merchantID string, kind domain.APIKeyKind, scopes, allowedOrigins []string) (*CreatedAPIKey, error) {
	if kind != domain.APIKeyKindSecret && kind != domain.APIKeyKindPublishable {
		return nil, ErrInvalidKeyKind
	}
	value, err := security.NewAPIKeyValue(kind, s.env)
	if err != nil {
		return nil, err
	}
	key := &domain.APIKey{
		ID:         uuid.NewString(),
		Key:        value,
		MerchantID: merchantID,
		Kind:       kind,
	}
	created := &CreatedAPIKey{Key: key, PlaintextKey: value}

	if kind == domain.APIKeyKindSecret {
		secret, err := security.NewSigningSecret()
		if err != nil {
			return nil, err
		}
		key.SigningSecret = &secret
		key.Scopes = scopes
		created.SigningSecret = secret
	} else {
		// Publishable keys carry no scopes and no signing secret; they can
		// only reach routes whose required-scope set is empty.
		key.AllowedOrigins = allowedOrigins
	}

	if err := s.keys.Create(ctx, key); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *APIKeyService) List(ctx context.Context, merchantID string) ([]domain.APIKey, error) {
	return s.keys.ListByMerchant(ctx, merchantID)
}

func (s *APIKeyService) Revoke(ctx context.Context, merchantID, id string) error {
	return s.keys.Revoke(ctx, merchantID, id)
}

// Regenerate mints a new presented value (and signing secret for secret
// keys) under the same id and merchant. The old value is invalid as soon as
// the swap commits.
func (s *APIKeyService) Regenerate(ctx context.Context, merchantID, id string) (*CreatedAPIKey, error) {
	current, err := s.keys.FindByID(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	value, err := security.NewAPIKeyValue(current.Kind, s.env)
	if err != nil {
		return nil, err
	}
	var newSecret *string
	created := &CreatedAPIKey{PlaintextKey: value}
	if current.Kind == domain.APIKeyKindSecret {
		secret, err := security.NewSigningSecret()
		if err != nil {
			return nil, err
		}
		newSecret = &secret
		created.SigningSecret = secret
	}
	key, err := s.keys.Regenerate(ctx, merchantID, id, value, newSecret)
	if err != nil {
		return nil, err
	}
	created.Key = key
	return created, nil
}

// Usage reports when each of the merchant's keys was last presented.
type APIKeyUsage struct {
	ID         string            `json:"id"`
	Kind       domain.APIKeyKind `json:"kind"`
	Redacted   string            `json:"key"`
	LastUsedAt *time.Time        `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time        `json:"revoked_at,omitempty"`
}

func (s *APIKeyService) Usage(ctx context.Context, merchantID string) ([]APIKeyUsage, error) {
	keys, err := s.keys.ListByMerchant(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	usage := make([]APIKeyUsage, 0, len(keys))
	for i := range keys {
		usage = append(usage, APIKeyUsage{
			ID:         keys[i].ID,
			Kind:       keys[i].Kind,
			Redacted:   keys[i].Redacted(),
			LastUsedAt: keys[i].LastUsedAt,
			RevokedAt:  keys[i].RevokedAt,
		})
	}
	return usage, nil
}
