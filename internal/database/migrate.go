package database

import (
	"github.com/Pingpayio/ping-checkout-sub000/internal/domain"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.APIKey{},
		&domain.Payment{},
		&domain.IdempotencyRecord{},
		&domain.CheckoutSession{},
		&domain.WebhookSubscription{},
		&domain.PaymentLink{},
	)
}
