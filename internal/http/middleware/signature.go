package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Pingpayio/ping-checkout-sub000/internal/domain"
	"github.com/Pingpayio/ping-checkout-sub000/internal/http/response"
	"github.com/Pingpayio/ping-checkout-sub000/internal/observability"
	"github.com/Pingpayio/ping-checkout-sub000/internal/security"
)

const (
	NonceHeader     = "X-Nonce"
	SignatureHeader = "X-Signature"

	maxSignedBodyBytes = 1 << 20
)

// SignatureVerifier recomputes the request HMAC for routes that require
// one. Publishable keys are turned away before any HMAC work: they have no
// signing secret and can never pass a signed route.
type SignatureVerifier struct {
	nonces   NonceCache
	nonceTTL time.Duration
	logger   *slog.Logger
}

func NewSignatureVerifier(nonces NonceCache, nonceTTL time.Duration, logger *slog.Logger) *SignatureVerifier {
	return &SignatureVerifier{nonces: nonces, nonceTTL: nonceTTL, logger: logger}
}

func (v *SignatureVerifier) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := CredentialFromRequest(r)
			if key == nil {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHENTICATED", "missing credential", nil)
				return
			}
			if key.Kind != domain.APIKeyKindSecret || key.SigningSecret == nil {
				observability.RecordAdmissionRejection(r.Context(), "signature", "FORBIDDEN")
				response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "a secret API key is required for this route", nil)
				return
			}

			nonce := r.Header.Get(NonceHeader)
			presented := r.Header.Get(SignatureHeader)
			if nonce == "" || presented == "" {
				observability.RecordAdmissionRejection(r.Context(), "signature", "MISSING_SIGNATURE")
				response.Error(w, r, http.StatusUnauthorized, "MISSING_SIGNATURE", "nonce and signature headers are required", nil)
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxSignedBodyBytes+1))
			if err != nil {
				response.Error(w, r, http.StatusBadRequest, "INVALID_PARAMS", "failed to read request body", nil)
				return
			}
			_ = r.Body.Close()
			if len(body) > maxSignedBodyBytes {
				response.Error(w, r, http.StatusBadRequest, "INVALID_PARAMS", "request body too large", nil)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			path := r.URL.Path
			if r.URL.RawQuery != "" {
				path += "?" + r.URL.RawQuery
			}
			if !security.VerifyRequestSignature(*key.SigningSecret, nonce, r.Method, path, body, presented) {
				observability.RecordAdmissionRejection(r.Context(), "signature", "INVALID_SIGNATURE")
				response.Error(w, r, http.StatusUnauthorized, "INVALID_SIGNATURE", "request signature mismatch", nil)
				return
			}

			// Replay defense is best-effort: a cache outage fails open so
			// the signature check above remains the gate.
			seen, err := v.nonces.Seen(r.Context(), key.ID, nonce, v.nonceTTL)
			if err != nil {
				v.logger.WarnContext(r.Context(), "nonce cache unavailable, skipping replay check", "error", err.Error())
			} else if seen {
				observability.RecordAdmissionRejection(r.Context(), "signature", "INVALID_SIGNATURE")
				response.Error(w, r, http.StatusUnauthorized, "INVALID_SIGNATURE", "nonce already used", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
