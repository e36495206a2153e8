package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentLink is a reusable hosted payment link ("ping link"). Each visit
// starts a fresh checkout session; the link row itself is plain CRUD.
type PaymentLink struct {
	ID         string          `gorm:"primaryKey;size:36" json:"id"`
	MerchantID string          `gorm:"size:64;index;not null" json:"merchant_id"`
	Slug       string          `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	Title      string          `gorm:"size:128" json:"title"`
	Symbol     string          `gorm:"size:16;not null" json:"symbol"`
	Network    string          `gorm:"size:32;not null" json:"network"`
	Amount     decimal.Decimal `gorm:"type:decimal(38,18)" json:"amount"`
	Active     bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
