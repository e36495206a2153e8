package domain

import "time"

type CheckoutSessionStatus string

const (
	CheckoutSessionStatusOpen      CheckoutSessionStatus = "open"
	CheckoutSessionStatusCompleted CheckoutSessionStatus = "completed"
	CheckoutSessionStatusExpired   CheckoutSessionStatus = "expired"
)

// CheckoutSession backs a hosted checkout page. The session token is a
// short-lived signed token the page presents instead of an API key.
type CheckoutSession struct {
	ID         string                `gorm:"primaryKey;size:36" json:"id"`
	MerchantID string                `gorm:"size:64;index;not null" json:"merchant_id"`
	PaymentID  *string               `gorm:"size:36;index" json:"payment_id,omitempty"`
	SuccessURL string                `gorm:"size:512" json:"success_url"`
	CancelURL  string                `gorm:"size:512" json:"cancel_url"`
	Status     CheckoutSessionStatus `gorm:"size:16;not null;index" json:"status"`
	ExpiresAt  time.Time             `gorm:"index;not null" json:"expires_at"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}
