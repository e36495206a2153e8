package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Pingpayio/ping-checkout-sub000/internal/domain"
	"github.com/Pingpayio/ping-checkout-sub000/internal/observability"
)

var ErrPaymentLinkNotFound = errors.New("payment link not found")

type PaymentLinkRepository interface {
	Create(ctx context.Context, link *domain.PaymentLink) error
	ListByMerchant(ctx context.Context, merchantID string) ([]domain.PaymentLink, error)
	Deactivate(ctx context.Context, merchantID, id string) error
}

type GormPaymentLinkRepository struct{ db *gorm.DB }

func NewPaymentLinkRepository(db *gorm.DB) PaymentLinkRepository {
	return &GormPaymentLinkRepository{db: db}
}

func (r *GormPaymentLinkRepository) Create(ctx context.Context, link *domain.PaymentLink) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "payment_link", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "payment_link", "create", "success")
	return nil
}

func (r *GormPaymentLinkRepository) ListByMerchant(ctx context.Context, merchantID string) ([]domain.PaymentLink, error) {
	var links []domain.PaymentLink
	err := r.db.WithContext(ctx).Where("merchant_id = ?", merchantID).Order("created_at asc").Find(&links).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "payment_link", "list", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "payment_link", "list", "success")
	return links, nil
}

func (r *GormPaymentLinkRepository) Deactivate(ctx context.Context, merchantID, id string) error {
	res := r.db.WithContext(ctx).Model(&domain.PaymentLink{}).
		Where("id = ? AND merchant_id = ? AND active", id, merchantID).
		Update("active", false)
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "payment_link", "deactivate", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "payment_link", "deactivate", "not_found")
		return ErrPaymentLinkNotFound
	}
	observability.RecordRepositoryOperation(ctx, "payment_link", "deactivate", "success")
	return nil
}
