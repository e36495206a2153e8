package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Pingpayio/ping-checkout-sub000/internal/http/response"
	"github.com/Pingpayio/ping-checkout-sub000/internal/observability"
	"github.com/Pingpayio/ping-checkout-sub000/internal/repository"
)

const APIKeyHeader = "X-Api-Key"

// APIKeyAuthenticator resolves the presented key to a credential and
// attaches it to the request context. A value that was never issued is
// UNAUTHENTICATED; a value that exists but is revoked is INVALID_API_KEY,
// so clients can tell a typo from a dead key.
type APIKeyAuthenticator struct {
	keys   repository.APIKeyRepository
	logger *slog.Logger
}

func NewAPIKeyAuthenticator(keys repository.APIKeyRepository, logger *slog.Logger) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{keys: keys, logger: logger}
}

func (a *APIKeyAuthenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			if presented == "" {
				observability.RecordAdmissionRejection(r.Context(), "auth", "UNAUTHENTICATED")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHENTICATED", "missing API key", nil)
				return
			}
			key, err := a.keys.FindActiveByValue(r.Context(), presented)
			if err != nil {
				switch {
				case errors.Is(err, repository.ErrAPIKeyRevoked):
					observability.RecordAdmissionRejection(r.Context(), "auth", "INVALID_API_KEY")
					response.Error(w, r, http.StatusUnauthorized, "INVALID_API_KEY", "API key is revoked", nil)
				case errors.Is(err, repository.ErrAPIKeyNotFound):
					observability.RecordAdmissionRejection(r.Context(), "auth", "UNAUTHENTICATED")
					response.Error(w, r, http.StatusUnauthorized, "UNAUTHENTICATED", "unknown API key", nil)
				default:
					a.logger.ErrorContext(r.Context(), "api key lookup failed", "error", err.Error())
					response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to authenticate request", nil)
				}
				return
			}

			// Last-used is advisory; its write must never block or fail the
			// request.
			go func(id string) {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := a.keys.TouchLastUsed(ctx, id, time.Now().UTC()); err != nil {
					a.logger.Debug("failed to touch api key last_used_at", "key_id", id, "error", err.Error())
				}
			}(key.ID)

			next.ServeHTTP(w, r.WithContext(withCredential(r.Context(), key)))
		})
	}
}
