package domain

import "time"

// WebhookSubscription is a merchant-registered delivery target. Delivery
// itself happens out of process; this row only records the registration.
type WebhookSubscription struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	MerchantID string    `gorm:"size:64;index;not null" json:"merchant_id"`
	URL        string    `gorm:"size:512;not null" json:"url"`
	Secret     string    `gorm:"size:128;not null" json:"-"`
	Events     []string  `gorm:"serializer:json" json:"events"`
	Active     bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
