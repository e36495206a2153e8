package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Pingpayio/ping-checkout-sub000/internal/domain"
	"github.com/Pingpayio/ping-checkout-sub000/internal/observability"
)

var (
	ErrAPIKeyNotFound = errors.New("api key not found")
	ErrAPIKeyRevoked  = errors.New("api key revoked")
)

type APIKeyRepository interface {
	// FindActiveByValue looks up a key by its presented value. A revoked key
	// returns ErrAPIKeyRevoked so callers can distinguish "never seen" from
	// "known but inactive".
	FindActiveByValue(ctx context.Context, value string) (*domain.APIKey, error)
	FindByID(ctx context.Context, merchantID, id string) (*domain.APIKey, error)
	ListByMerchant(ctx context.Context, merchantID string) ([]domain.APIKey, error)
	Create(ctx context.Context, key *domain.APIKey) error
	Revoke(ctx context.Context, merchantID, id string) error
	// Regenerate swaps the presented value (and signing secret) under the
	// same id and merchant in one transaction. The old value stops working
	// the moment the transaction commits.
	Regenerate(ctx context.Context, merchantID, id, newValue string, newSigningSecret *string) (*domain.APIKey, error)
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}

type GormAPIKeyRepository struct{ db *gorm.DB }

func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository {
	return &GormAPIKeyRepository{db: db}
}

func (r *GormAPIKeyRepository) FindActiveByValue(ctx context.Context, value string) (*domain.APIKey, error) {
	var key domain.APIKey
	err := r.db.WithContext(ctx).Where("key = ?", value).First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "api_key", "find_by_value", "not_found")
			return nil, ErrAPIKeyNotFound
		}
		observability.RecordRepositoryOperation(ctx, "api_key", "find_by_value", "error")
		return nil, err
	}
	if !key.IsActive() {
		observability.RecordRepositoryOperation(ctx, "api_key", "find_by_value", "revoked")
		return nil, ErrAPIKeyRevoked
	}
	observability.RecordRepositoryOperation(ctx, "api_key", "find_by_value", "success")
	return &key, nil
}

func (r *GormAPIKeyRepository) FindByID(ctx context.Context, merchantID, id string) (*domain.APIKey, error) {
	var key domain.APIKey
	err := r.db.WithContext(ctx).Where("id = ? AND merchant_id = ?", id, merchantID).First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "api_key", "find_by_id", "not_found")
			return nil, ErrAPIKeyNotFound
		}
		observability.RecordRepositoryOperation(ctx, "api_key", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "api_key", "find_by_id", "success")
	return &key, nil
}

func (r *GormAPIKeyRepository) ListByMerchant(ctx context.Context, merchantID string) ([]domain.APIKey, error) {
	var keys []domain.APIKey
	err := r.db.WithContext(ctx).Where("merchant_id = ?", merchantID).Order("created_at asc").Find(&keys).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "api_key", "list", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "api_key", "list", "success")
	return keys, nil
}

func (r *GormAPIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	if err := r.db.WithContext(ctx).Create(key).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "api_key", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "api_key", "create", "success")
	return nil
}

func (r *GormAPIKeyRepository) Revoke(ctx context.Context, merchantID, id string) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&domain.APIKey{}).
		Where("id = ? AND merchant_id = ? AND revoked_at IS NULL", id, merchantID).
		Update("revoked_at", now)
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "api_key", "revoke", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "api_key", "revoke", "not_found")
		return ErrAPIKeyNotFound
	}
	observability.RecordRepositoryOperation(ctx, "api_key", "revoke", "success")
	return nil
}

func (r *GormAPIKeyRepository) Regenerate(ctx context.Context, merchantID, id, newValue string, newSigningSecret *string) (*domain.APIKey, error) {
	var key domain.APIKey
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND merchant_id = ?", id, merchantID).First(&key).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAPIKeyNotFound
			}
			return err
		}
		if !key.IsActive() {
			return ErrAPIKeyRevoked
		}
		updates := map[string]any{"key": newValue}
		if newSigningSecret != nil {
			updates["signing_secret"] = *newSigningSecret
		}
		if err := tx.Model(&key).Updates(updates).Error; err != nil {
			return err
		}
		key.Key = newValue
		if newSigningSecret != nil {
			key.SigningSecret = newSigningSecret
		}
		return nil
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrAPIKeyNotFound) {
			outcome = "not_found"
		} else if errors.Is(err, ErrAPIKeyRevoked) {
			outcome = "revoked"
		}
		observability.RecordRepositoryOperation(ctx, "api_key", "regenerate", outcome)
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "api_key", "regenerate", "success")
	return &key, nil
}

func (r *GormAPIKeyRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.APIKey{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}
