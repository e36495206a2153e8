package di

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Pingpayio/ping-checkout-sub000/internal/app"
	"github.com/Pingpayio/ping-checkout-sub000/internal/config"
	"github.com/Pingpayio/ping-checkout-sub000/internal/database"
	"github.com/Pingpayio/ping-checkout-sub000/internal/http/handler"
	"github.com/Pingpayio/ping-checkout-sub000/internal/http/middleware"
	"github.com/Pingpayio/ping-checkout-sub000/internal/http/router"
	"github.com/Pingpayio/ping-checkout-sub000/internal/observability"
	"github.com/Pingpayio/ping-checkout-sub000/internal/provider"
	"github.com/Pingpayio/ping-checkout-sub000/internal/repository"
	"github.com/Pingpayio/ping-checkout-sub000/internal/security"
	"github.com/Pingpayio/ping-checkout-sub000/internal/service"
)

var (
	ConfigSet        = wire.NewSet(config.Load)
	ObservabilitySet = wire.NewSet(provideLogger)
	RuntimeInfraSet  = wire.NewSet(provideOpenDB, provideRedisClient)
	RepositorySet    = wire.NewSet(
		repository.NewAPIKeyRepository,
		repository.NewPaymentRepository,
		repository.NewCheckoutSessionRepository,
		repository.NewWebhookRepository,
		repository.NewPaymentLinkRepository,
	)
	SecuritySet = wire.NewSet(provideCheckoutTokenManager)
	ServiceSet  = wire.NewSet(
		provideSwapClient,
		provideReceiptArchiver,
		provideIdempotencyStore,
		provideAPIKeyService,
		providePaymentService,
		provideCheckoutSessionService,
	)
	HTTPSet = wire.NewSet(
		handler.NewPaymentHandler,
		handler.NewAPIKeyHandler,
		handler.NewCheckoutSessionHandler,
		handler.NewWebhookHandler,
		handler.NewPaymentLinkHandler,
		provideAuthenticator,
		provideNonceCache,
		provideSignatureVerifier,
		provideIdempotencyCoordinator,
		provideLimiter,
		provideRouterDependencies,
		provideHTTPHandler,
		provideHTTPServer,
	)
	AppSet = wire.NewSet(app.New)
)

func provideLogger(cfg *config.Config) *slog.Logger {
	return observability.NewLogger(cfg.Env, cfg.LogLevel)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

// provideRedisClient returns nil when Redis is disabled; downstream
// providers fall back to local or database-backed implementations.
func provideRedisClient(cfg *config.Config) redis.UniversalClient {
	if !cfg.RedisEnabled {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
}

func provideCheckoutTokenManager(cfg *config.Config) *security.CheckoutTokenManager {
	return security.NewCheckoutTokenManager("ping-checkout", cfg.CheckoutTokenSecret)
}

func provideSwapClient(cfg *config.Config, logger *slog.Logger) provider.Client {
	return provider.NewHTTPClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderTimeout, logger)
}

func provideReceiptArchiver(cfg *config.Config) (service.ReceiptArchiver, error) {
	if !cfg.ReceiptsEnabled {
		return nil, nil
	}
	archiver, err := service.NewMinIOReceiptArchiver(
		cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		return nil, fmt.Errorf("init receipt archiver: %w", err)
	}
	return archiver, nil
}

func provideIdempotencyStore(client redis.UniversalClient, db *gorm.DB) service.IdempotencyStore {
	if client != nil {
		return service.NewRedisIdempotencyStore(client, "idem")
	}
	return service.NewDBIdempotencyStore(db)
}

func provideAPIKeyService(cfg *config.Config, keys repository.APIKeyRepository) *service.APIKeyService {
	return service.NewAPIKeyService(keys, cfg.Env)
}

func providePaymentService(
	cfg *config.Config,
	payments repository.PaymentRepository,
	swap provider.Client,
	receipts service.ReceiptArchiver,
	logger *slog.Logger,
) *service.PaymentService {
	return service.NewPaymentService(payments, swap, receipts, logger, cfg.QuoteDeadline)
}

func provideCheckoutSessionService(
	cfg *config.Config,
	sessions repository.CheckoutSessionRepository,
	tokens *security.CheckoutTokenManager,
) *service.CheckoutSessionService {
	return service.NewCheckoutSessionService(sessions, tokens, cfg.CheckoutTokenTTL, cfg.CheckoutSessionTTL)
}

func provideAuthenticator(keys repository.APIKeyRepository, logger *slog.Logger) *middleware.APIKeyAuthenticator {
	return middleware.NewAPIKeyAuthenticator(keys, logger)
}

func provideNonceCache(client redis.UniversalClient) middleware.NonceCache {
	if client != nil {
		return middleware.NewRedisNonceCache(client, "nonce")
	}
	return middleware.NewLocalNonceCache()
}

func provideSignatureVerifier(cfg *config.Config, nonces middleware.NonceCache, logger *slog.Logger) *middleware.SignatureVerifier {
	return middleware.NewSignatureVerifier(nonces, cfg.NonceTTL, logger)
}

func provideIdempotencyCoordinator(cfg *config.Config, store service.IdempotencyStore, logger *slog.Logger) *middleware.IdempotencyCoordinator {
	return middleware.NewIdempotencyCoordinator(store, cfg.IdempotencyTTL, logger)
}

func provideLimiter(client redis.UniversalClient) middleware.Limiter {
	if client != nil {
		return middleware.NewRedisFixedWindowLimiter(client, "ratelimit")
	}
	return middleware.NewLocalFixedWindowLimiter()
}

func provideRouterDependencies(
	cfg *config.Config,
	logger *slog.Logger,
	payments *handler.PaymentHandler,
	apiKeys *handler.APIKeyHandler,
	sessions *handler.CheckoutSessionHandler,
	webhooks *handler.WebhookHandler,
	links *handler.PaymentLinkHandler,
	auth *middleware.APIKeyAuthenticator,
	signatures *middleware.SignatureVerifier,
	idempotency *middleware.IdempotencyCoordinator,
	limiter middleware.Limiter,
) router.Dependencies {
	return router.Dependencies{
		Logger:             logger,
		Payments:           payments,
		APIKeys:            apiKeys,
		CheckoutSessions:   sessions,
		Webhooks:           webhooks,
		PaymentLinks:       links,
		Auth:               auth,
		Signatures:         signatures,
		Idempotency:        idempotency,
		Limiter:            limiter,
		APIRateLimitRPM:    cfg.APIRateLimitPerMin,
		PublicRateLimitRPM: cfg.PublicRateLimitPerMin,
		RateLimitMode:      middleware.FailureMode(cfg.RateLimitFailureMode),
	}
}

func provideHTTPHandler(dep router.Dependencies) http.Handler {
	return router.New(dep)
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// MigrationRunner applies the schema and exits; it exists so deploys can run
// migrations before rolling the API.
type MigrationRunner struct {
	db *gorm.DB
}

func NewMigrationRunner(db *gorm.DB) *MigrationRunner {
	return &MigrationRunner{db: db}
}

func (m *MigrationRunner) Run() error {
	return database.Migrate(m.db)
}
