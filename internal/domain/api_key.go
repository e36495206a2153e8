package domain

import (
	"strings"
	"time"
)

type APIKeyKind string

const (
	APIKeyKindSecret      APIKeyKind = "secret"
	APIKeyKindPublishable APIKeyKind = "publishable"
)

// APIKey is a merchant credential. The presented key value is compared by
// exact match and is never written to logs in full.
type APIKey struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	Key            string     `gorm:"size:128;uniqueIndex;not null" json:"-"`
	MerchantID     string     `gorm:"size:64;index;not null" json:"merchant_id"`
	Kind           APIKeyKind `gorm:"size:16;not null" json:"kind"`
	Scopes         []string   `gorm:"serializer:json" json:"scopes"`
	SigningSecret  *string    `gorm:"size:128" json:"-"`
	AllowedOrigins []string   `gorm:"serializer:json" json:"allowed_origins,omitempty"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
	RevokedAt      *time.Time `gorm:"index" json:"revoked_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (k *APIKey) IsActive() bool {
	return k.RevokedAt == nil
}

func (k *APIKey) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Redacted masks everything between the key prefix and the last four
// characters. List and usage responses expose only this form.
func (k *APIKey) Redacted() string {
	v := k.Key
	prefixLen := strings.Index(v, "_")
	if prefixLen < 0 {
		prefixLen = 0
	} else {
		prefixLen++
		if i := strings.Index(v[prefixLen:], "_"); i >= 0 {
			prefixLen += i + 1
		}
	}
	if len(v) <= prefixLen+4 {
		return strings.Repeat("*", len(v))
	}
	return v[:prefixLen] + strings.Repeat("*", len(v)-prefixLen-4) + v[len(v)-4:]
}
