package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Pingpayio/ping-checkout-sub000/internal/domain"
	"github.com/Pingpayio/ping-checkout-sub000/internal/observability"
)

var ErrCheckoutSessionNotFound = errors.New("checkout session not found")

type CheckoutSessionRepository interface {
	Create(ctx context.Context, session *domain.CheckoutSession) error
	FindByID(ctx context.Context, merchantID, id string) (*domain.CheckoutSession, error)
}

type GormCheckoutSessionRepository struct{ db *gorm.DB }

func NewCheckoutSessionRepository(db *gorm.DB) CheckoutSessionRepository {
	return &GormCheckoutSessionRepository{db: db}
}

func (r *GormCheckoutSessionRepository) Create(ctx context.Context, session *domain.CheckoutSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "checkout_session", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "checkout_session", "create", "success")
	return nil
}

func (r *GormCheckoutSessionRepository) FindByID(ctx context.Context, merchantID, id string) (*domain.CheckoutSession, error) {
	var session domain.CheckoutSession
	err := r.db.WithContext(ctx).Where("id = ? AND merchant_id = ?", id, merchantID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "checkout_session", "find_by_id", "not_found")
			return nil, ErrCheckoutSessionNotFound
		}
		observability.RecordRepositoryOperation(ctx, "checkout_session", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "checkout_session", "find_by_id", "success")
	return &session, nil
}
