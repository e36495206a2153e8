package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Pingpayio/ping-checkout-sub000/internal/http/handler"
	"github.com/Pingpayio/ping-checkout-sub000/internal/http/middleware"
	"github.com/Pingpayio/ping-checkout-sub000/internal/http/response"
)

// Dependencies carries everything the route tree needs. Wiring stays in di;
// this package only decides which middleware guards which route.
type Dependencies struct {
	Logger *slog.Logger

	Payments         *handler.PaymentHandler
	APIKeys          *handler.APIKeyHandler
	CheckoutSessions *handler.CheckoutSessionHandler
	Webhooks         *handler.WebhookHandler
	PaymentLinks     *handler.PaymentLinkHandler

	Auth        *middleware.APIKeyAuthenticator
	Signatures  *middleware.SignatureVerifier
	Idempotency *middleware.IdempotencyCoordinator

	Limiter            middleware.Limiter
	APIRateLimitRPM    int
	PublicRateLimitRPM int
	RateLimitMode      middleware.FailureMode
}

// New assembles the route tree. Mutating routes run the full admission
// pipeline in order: authentication, rate limit, signature, scopes,
// idempotency. Scoped reads are signed but not idempotency-keyed; routes
// with no scope requirement skip the signature so publishable keys can
// reach them; public routes only get an IP rate limit.
func New(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	publicLimit := middleware.NewRateLimiter(
		dep.Limiter, dep.PublicRateLimitRPM, time.Minute, dep.RateLimitMode, "public", middleware.ClientIPKey,
	).Middleware()
	apiLimit := middleware.NewRateLimiter(
		dep.Limiter, dep.APIRateLimitRPM, time.Minute, dep.RateLimitMode, "api", middleware.CredentialOrIPKey,
	).Middleware()

	r.Group(func(r chi.Router) {
		r.Use(publicLimit)
		r.Get("/healthz", handleHealth)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(dep.Auth.Middleware())
		r.Use(apiLimit)

		signed := dep.Signatures.Middleware()
		idem := dep.Idempotency.Middleware()

		r.Route("/payments", func(r chi.Router) {
			// Status polls carry no scope requirement so hosted checkout
			// pages can poll with a publishable key.
			r.With(middleware.RequireScopes()).Get("/status", dep.Payments.Status)
			r.With(signed, middleware.RequireScopes("payments:read")).Get("/{id}", dep.Payments.Get)
			r.With(signed, middleware.RequireScopes("payments:write"), idem).Post("/", dep.Payments.Prepare)
			r.With(signed, middleware.RequireScopes("payments:write"), idem).Post("/{id}/submit", dep.Payments.Submit)
		})

		r.Route("/checkout/sessions", func(r chi.Router) {
			r.With(signed, middleware.RequireScopes("checkout:read")).Get("/{id}", dep.CheckoutSessions.Get)
			r.With(signed, middleware.RequireScopes("checkout:write"), idem).Post("/", dep.CheckoutSessions.Create)
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.With(signed, middleware.RequireScopes("webhooks:manage")).Get("/", dep.Webhooks.List)
			r.With(signed, middleware.RequireScopes("webhooks:manage"), idem).Post("/", dep.Webhooks.Create)
			r.With(signed, middleware.RequireScopes("webhooks:manage")).Delete("/{id}", dep.Webhooks.Delete)
		})

		r.Route("/links", func(r chi.Router) {
			r.With(signed, middleware.RequireScopes("links:manage")).Get("/", dep.PaymentLinks.List)
			r.With(signed, middleware.RequireScopes("links:manage"), idem).Post("/", dep.PaymentLinks.Create)
			r.With(signed, middleware.RequireScopes("links:manage")).Delete("/{id}", dep.PaymentLinks.Deactivate)
		})

		r.Route("/keys", func(r chi.Router) {
			r.Use(middleware.RequireSecretKey())
			r.Get("/", dep.APIKeys.List)
			r.Get("/usage", dep.APIKeys.Usage)
			r.With(signed, idem).Post("/", dep.APIKeys.Create)
			r.With(signed, idem).Post("/{id}/regenerate", dep.APIKeys.Regenerate)
			r.With(signed).Delete("/{id}", dep.APIKeys.Revoke)
		})
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
