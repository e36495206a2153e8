package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Pingpayio/ping-checkout-sub000/internal/domain"
)

const (
	idempotencyStatusNew       = "new"
	idempotencyStatusCompleted = "completed"
)

// DBIdempotencyStore backs idempotency admission with the relational store.
// The unique index on (scope, idempotency_key) makes the insert the atomic
// claim: exactly one concurrent first-request wins it.
type DBIdempotencyStore struct {
	db *gorm.DB
}

func NewDBIdempotencyStore(db *gorm.DB) *DBIdempotencyStore {
	return &DBIdempotencyStore{db: db}
}

func (s *DBIdempotencyStore) Begin(ctx context.Context, scope, key, fingerprint string, ttl time.Duration) (IdempotencyBeginResult, error) {
	now := time.Now().UTC()
	record := domain.IdempotencyRecord{
		Scope:           scope,
		IdempotencyKey:  key,
		FingerprintHash: fingerprint,
		Status:          idempotencyStatusNew,
		ExpiresAt:       now.Add(ttl),
	}
	err := s.db.WithContext(ctx).Create(&record).Error
	if err == nil {
		return IdempotencyBeginResult{State: IdempotencyStateNew}, nil
	}
	if !isDuplicateKeyError(err) {
		return IdempotencyBeginResult{}, err
	}

	var existing domain.IdempotencyRecord
	if err := s.db.WithContext(ctx).
		Where("scope = ? AND idempotency_key = ?", scope, key).
		First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The row expired and was cleaned between insert and read.
			return IdempotencyBeginResult{State: IdempotencyStateInProgress}, nil
		}
		return IdempotencyBeginResult{}, err
	}

	if !existing.ExpiresAt.After(now) {
		// Expired claim: the key is reusable. Take it over in place.
		res := s.db.WithContext(ctx).Model(&domain.IdempotencyRecord{}).
			Where("id = ? AND expires_at <= ?", existing.ID, now).
			Updates(map[string]any{
				"fingerprint_hash": fingerprint,
				"status":           idempotencyStatusNew,
				"response_status":  0,
				"response_body":    []byte(nil),
				"content_type":     "",
				"expires_at":       now.Add(ttl),
			})
		if res.Error != nil {
			return IdempotencyBeginResult{}, res.Error
		}
		if res.RowsAffected == 1 {
			return IdempotencyBeginResult{State: IdempotencyStateNew}, nil
		}
		// Someone else took the expired row over first.
		return IdempotencyBeginResult{State: IdempotencyStateInProgress}, nil
	}

	if existing.FingerprintHash != fingerprint {
		return IdempotencyBeginResult{State: IdempotencyStateConflict}, nil
	}
	if existing.Status == idempotencyStatusCompleted {
		return IdempotencyBeginResult{
			State: IdempotencyStateReplay,
			Cached: &CachedHTTPResponse{
				StatusCode:  existing.ResponseStatus,
				ContentType: existing.ContentType,
				Body:        existing.ResponseBody,
			},
		}, nil
	}
	return IdempotencyBeginResult{State: IdempotencyStateInProgress}, nil
}

func (s *DBIdempotencyStore) Complete(ctx context.Context, scope, key, fingerprint string, response CachedHTTPResponse, ttl time.Duration) error {
	return s.db.WithContext(ctx).Model(&domain.IdempotencyRecord{}).
		Where("scope = ? AND idempotency_key = ? AND fingerprint_hash = ?", scope, key, fingerprint).
		Updates(map[string]any{
			"status":          idempotencyStatusCompleted,
			"response_status": response.StatusCode,
			"response_body":   response.Body,
			"content_type":    response.ContentType,
			"expires_at":      time.Now().UTC().Add(ttl),
		}).Error
}

func (s *DBIdempotencyStore) CleanupExpired(ctx context.Context, now time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&domain.IdempotencyRecord{}).
		Where("expires_at <= ?", now).
		Order("id asc").
		Limit(batchSize).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&domain.IdempotencyRecord{})
	return res.RowsAffected, res.Error
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
