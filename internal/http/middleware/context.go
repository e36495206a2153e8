package middleware

import (
	"context"
	"net/http"

	"github.com/Pingpayio/ping-checkout-sub000/internal/domain"
)

type contextKey string

const credentialContextKey contextKey = "credential"

func withCredential(ctx context.Context, key *domain.APIKey) context.Context {
	return context.WithValue(ctx, credentialContextKey, key)
}

// CredentialFromContext returns the authenticated API key, or nil when the
// request never passed the authenticator.
func CredentialFromContext(ctx context.Context) *domain.APIKey {
	key, _ := ctx.Value(credentialContextKey).(*domain.APIKey)
	return key
}

// CredentialFromRequest is a convenience wrapper for handlers.
func CredentialFromRequest(r *http.Request) *domain.APIKey {
	return CredentialFromContext(r.Context())
}
