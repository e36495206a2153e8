package middleware

import (
	"net/http"

	"github.com/Pingpayio/ping-checkout-sub000/internal/domain"
	"github.com/Pingpayio/ping-checkout-sub000/internal/http/response"
	"github.com/Pingpayio/ping-checkout-sub000/internal/observability"
)

// RequireScopes authorizes the authenticated credential against the route's
// required scope set. Secret keys must hold every scope literally;
// publishable keys pass only routes that require no scopes at all.
func RequireScopes(scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := CredentialFromRequest(r)
			if key == nil {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHENTICATED", "missing credential", nil)
				return
			}
			if key.Kind == domain.APIKeyKindPublishable {
				if len(scopes) > 0 {
					observability.RecordAdmissionRejection(r.Context(), "scope", "FORBIDDEN")
					response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "publishable keys cannot access scoped routes", nil)
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			for _, scope := range scopes {
				if !key.HasScope(scope) {
					observability.RecordAdmissionRejection(r.Context(), "scope", "FORBIDDEN")
					response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "missing required scope: "+scope, nil)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSecretKey hard-gates key-management routes: a leaked publishable
// key must never be able to mint or revoke credentials, whatever its
// scope set claims.
func RequireSecretKey() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := CredentialFromRequest(r)
			if key == nil {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHENTICATED", "missing credential", nil)
				return
			}
			if key.Kind != domain.APIKeyKindSecret {
				observability.RecordAdmissionRejection(r.Context(), "scope", "FORBIDDEN")
				response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "key management requires a secret API key", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
