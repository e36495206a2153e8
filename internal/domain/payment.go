package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// IsTerminal reports whether no further status transition is permitted.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed
}

// Party identifies one side of a settlement on a specific network.
type Party struct {
	Address string `gorm:"size:128" json:"address"`
	Network string `gorm:"size:32" json:"network"`
}

// AssetAmount pairs an asset identity with a quantity.
type AssetAmount struct {
	Symbol  string          `gorm:"size:16" json:"symbol"`
	Network string          `gorm:"size:32" json:"network"`
	Amount  decimal.Decimal `gorm:"type:decimal(38,18)" json:"amount"`
}

// SettlementRef points at an on-chain transaction reported by the swap
// provider once a payment is executed.
type SettlementRef struct {
	ChainID string `json:"chain_id"`
	TxHash  string `json:"tx_hash"`
}

// Payment is the settlement unit. (merchant_id, idempotency_key) is unique;
// re-preparing with the same pair returns the existing row. Once the status
// is terminal it is never written again.
type Payment struct {
	ID             string           `gorm:"primaryKey;size:36" json:"id"`
	MerchantID     string           `gorm:"size:64;not null;uniqueIndex:idx_payments_merchant_idem" json:"merchant_id"`
	IdempotencyKey string           `gorm:"size:128;not null;uniqueIndex:idx_payments_merchant_idem" json:"idempotency_key"`
	Status         PaymentStatus    `gorm:"size:16;not null;index" json:"status"`
	Payer          Party            `gorm:"embedded;embeddedPrefix:payer_" json:"payer"`
	Recipient      Party            `gorm:"embedded;embeddedPrefix:recipient_" json:"recipient"`
	Asset          AssetAmount      `gorm:"embedded;embeddedPrefix:asset_" json:"asset"`
	Memo           *string          `gorm:"size:256" json:"memo,omitempty"`
	FeeQuote       *decimal.Decimal `gorm:"type:decimal(38,18)" json:"fee_quote,omitempty"`
	DepositAddress *string          `gorm:"size:128;index" json:"deposit_address,omitempty"`
	QuoteDeadline  *time.Time       `json:"quote_deadline,omitempty"`
	SettlementRefs []SettlementRef  `gorm:"serializer:json" json:"settlement_refs,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}
