package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Pingpayio/ping-checkout-sub000/internal/http/response"
	"github.com/Pingpayio/ping-checkout-sub000/internal/observability"
	"github.com/Pingpayio/ping-checkout-sub000/internal/service"
)

const (
	IdempotencyKeyHeader   = "Idempotency-Key"
	IdempotencyReplyHeader = "X-Idempotency-Replayed"

	maxIdempotencyKeyLen = 128
)

// IdempotencyCoordinator guarantees at-most-one handler execution per
// (merchant, route, key). Replays return the recorded response byte for
// byte, error responses included; a different payload under the same key is
// a conflict rather than a misleading replay.
type IdempotencyCoordinator struct {
	store  service.IdempotencyStore
	ttl    time.Duration
	logger *slog.Logger
}

func NewIdempotencyCoordinator(store service.IdempotencyStore, ttl time.Duration, logger *slog.Logger) *IdempotencyCoordinator {
	return &IdempotencyCoordinator{store: store, ttl: ttl, logger: logger}
}

func (c *IdempotencyCoordinator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cred := CredentialFromRequest(r)
			if cred == nil {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHENTICATED", "missing credential", nil)
				return
			}
			key := r.Header.Get(IdempotencyKeyHeader)
			if key == "" {
				observability.RecordAdmissionRejection(r.Context(), "idempotency", "MISSING_IDEMPOTENCY_KEY")
				response.Error(w, r, http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "missing Idempotency-Key header", nil)
				return
			}
			if len(key) > maxIdempotencyKeyLen {
				response.Error(w, r, http.StatusBadRequest, "INVALID_PARAMS", "Idempotency-Key header too long", nil)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				response.Error(w, r, http.StatusBadRequest, "INVALID_PARAMS", "failed to read request body", nil)
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			scope := cred.MerchantID + ":" + routePattern(r)
			fingerprint := requestFingerprint(r.Method, r.URL.Path, body)

			begin, err := c.store.Begin(r.Context(), scope, key, fingerprint, c.ttl)
			if err != nil {
				c.logger.ErrorContext(r.Context(), "idempotency begin failed", "error", err.Error())
				response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "idempotency store unavailable", nil)
				return
			}

			switch begin.State {
			case service.IdempotencyStateReplay:
				w.Header().Set(IdempotencyReplyHeader, "true")
				if begin.Cached.ContentType != "" {
					w.Header().Set("Content-Type", begin.Cached.ContentType)
				}
				w.WriteHeader(begin.Cached.StatusCode)
				_, _ = w.Write(begin.Cached.Body)
				return
			case service.IdempotencyStateConflict:
				response.Error(w, r, http.StatusConflict, "CONFLICT", "Idempotency-Key was reused with a different request payload", nil)
				return
			case service.IdempotencyStateInProgress:
				// A first execution is still running (or its client vanished;
				// the claim expires via TTL). Retrying later is the caller's
				// move; running the handler again is not ours.
				response.Error(w, r, http.StatusConflict, "CONFLICT", "a request with this Idempotency-Key is already in progress", nil)
				return
			}

			recorder := newResponseRecorder(w)
			next.ServeHTTP(recorder, r)

			cached := service.CachedHTTPResponse{
				StatusCode:  recorder.status,
				ContentType: recorder.Header().Get("Content-Type"),
				Body:        recorder.body.Bytes(),
			}
			if err := c.store.Complete(r.Context(), scope, key, fingerprint, cached, c.ttl); err != nil {
				c.logger.ErrorContext(r.Context(), "idempotency complete failed", "error", err.Error())
			}
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return r.Method + " " + pattern
		}
	}
	return r.Method + " " + r.URL.Path
}

func requestFingerprint(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{'|'})
	h.Write([]byte(path))
	h.Write([]byte{'|'})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// responseRecorder tees the handler's response so it can be persisted after
// being sent.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func newResponseRecorder(w http.ResponseWriter) *responseRecorder {
	return &responseRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *responseRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}
