package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/Pingpayio/ping-checkout-sub000/internal/domain"
)

func NewRandomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewAPIKeyValue mints a presented key value with a kind-revealing prefix
// (sk_live_... / pk_live_...) so support can classify a leaked key at a
// glance without looking it up.
func NewAPIKeyValue(kind domain.APIKeyKind, env string) (string, error) {
	prefix := "pk"
	if kind == domain.APIKeyKindSecret {
		prefix = "sk"
	}
	mode := "live"
	if env != "production" {
		mode = "test"
	}
	raw, err := NewRandomString(24)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_%s_%s", prefix, mode, raw), nil
}

// NewSigningSecret mints the per-key HMAC secret issued alongside a secret
// API key. It is returned to the merchant exactly once at creation time.
func NewSigningSecret() (string, error) {
	raw, err := NewRandomString(32)
	if err != nil {
		return "", err
	}
	return "whsec_" + raw, nil
}
