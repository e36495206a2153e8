package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Pingpayio/ping-checkout-sub000/internal/domain"
	"github.com/Pingpayio/ping-checkout-sub000/internal/observability"
)

var ErrWebhookSubscriptionNotFound = errors.New("webhook subscription not found")

type WebhookRepository interface {
	Create(ctx context.Context, sub *domain.WebhookSubscription) error
	ListByMerchant(ctx context.Context, merchantID string) ([]domain.WebhookSubscription, error)
	Delete(ctx context.Context, merchantID, id string) error
}

type GormWebhookRepository struct{ db *gorm.DB }

func NewWebhookRepository(db *gorm.DB) WebhookRepository {
	return &GormWebhookRepository{db: db}
}

func (r *GormWebhookRepository) Create(ctx context.Context, sub *domain.WebhookSubscription) error {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "webhook_subscription", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "webhook_subscription", "create", "success")
	return nil
}

func (r *GormWebhookRepository) ListByMerchant(ctx context.Context, merchantID string) ([]domain.WebhookSubscription, error) {
	var subs []domain.WebhookSubscription
	err := r.db.WithContext(ctx).Where("merchant_id = ?", merchantID).Order("created_at asc").Find(&subs).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "webhook_subscription", "list", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "webhook_subscription", "list", "success")
	return subs, nil
}

func (r *GormWebhookRepository) Delete(ctx context.Context, merchantID, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND merchant_id = ?", id, merchantID).Delete(&domain.WebhookSubscription{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "webhook_subscription", "delete", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "webhook_subscription", "delete", "not_found")
		return ErrWebhookSubscriptionNotFound
	}
	observability.RecordRepositoryOperation(ctx, "webhook_subscription", "delete", "success")
	return nil
}
