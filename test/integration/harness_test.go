package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Pingpayio/ping-checkout-sub000/internal/domain"
	"github.com/Pingpayio/ping-checkout-sub000/internal/http/handler"
	"github.com/Pingpayio/ping-checkout-sub000/internal/http/middleware"
	"github.com/Pingpayio/ping-checkout-sub000/internal/http/router"
	"github.com/Pingpayio/ping-checkout-sub000/internal/provider"
	"github.com/Pingpayio/ping-checkout-sub000/internal/repository"
	"github.com/Pingpayio/ping-checkout-sub000/internal/security"
	"github.com/Pingpayio/ping-checkout-sub000/internal/service"
)

// fakeSwapProvider stands in for the settlement provider so the full HTTP
// stack can run against deterministic outcomes.
type fakeSwapProvider struct {
	quote    *provider.Quote
	quoteErr error

	execResult *provider.ExecuteResult
	execErr    error

	status    provider.SettlementStatus
	statusErr error
}

func (f *fakeSwapProvider) Quote(context.Context, provider.QuoteRequest) (*provider.Quote, error) {
	return f.quote, f.quoteErr
}

func (f *fakeSwapProvider) Execute(context.Context, provider.ExecuteRequest) (*provider.ExecuteResult, error) {
	return f.execResult, f.execErr
}

func (f *fakeSwapProvider) Status(context.Context, string) (provider.SettlementStatus, error) {
	return f.status, f.statusErr
}

type gatewayEnv struct {
	handler http.Handler
	db      *gorm.DB
	keys    repository.APIKeyRepository
	swap    *fakeSwapProvider
}

type envOption func(*router.Dependencies)

func withAPIRateLimit(limit int) envOption {
	return func(dep *router.Dependencies) { dep.APIRateLimitRPM = limit }
}

func newGatewayEnv(t *testing.T, opts ...envOption) *gatewayEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.APIKey{},
		&domain.Payment{},
		&domain.IdempotencyRecord{},
		&domain.CheckoutSession{},
		&domain.WebhookSubscription{},
		&domain.PaymentLink{},
	); err != nil {
		t.Fatalf("migrate db: %v", err)
	}

	log := slog.Default()
	swap := &fakeSwapProvider{
		quote: &provider.Quote{
			DepositAddress: "dep-default",
			Fee:            decimal.RequireFromString("0.5"),
		},
		execResult: &provider.ExecuteResult{
			Status: provider.SettlementStatusSuccess,
			Refs:   []provider.SettlementRef{{ChainID: "near", TxHash: "0xfinal"}},
		},
		status: provider.SettlementStatusPending,
	}

	keys := repository.NewAPIKeyRepository(db)
	payments := repository.NewPaymentRepository(db)
	sessions := repository.NewCheckoutSessionRepository(db)
	webhooks := repository.NewWebhookRepository(db)
	links := repository.NewPaymentLinkRepository(db)

	tokens := security.NewCheckoutTokenManager("ping-checkout", "abcdefghijklmnopqrstuvwxyz123456")
	paymentSvc := service.NewPaymentService(payments, swap, nil, log, 5*time.Minute)
	apiKeySvc := service.NewAPIKeyService(keys, "development")
	sessionSvc := service.NewCheckoutSessionService(sessions, tokens, 15*time.Minute, time.Hour)

	dep := router.Dependencies{
		Logger:             log,
		Payments:           handler.NewPaymentHandler(paymentSvc),
		APIKeys:            handler.NewAPIKeyHandler(apiKeySvc),
		CheckoutSessions:   handler.NewCheckoutSessionHandler(sessionSvc),
		Webhooks:           handler.NewWebhookHandler(webhooks),
		PaymentLinks:       handler.NewPaymentLinkHandler(links),
		Auth:               middleware.NewAPIKeyAuthenticator(keys, log),
		Signatures:         middleware.NewSignatureVerifier(middleware.NewLocalNonceCache(), 5*time.Minute, log),
		Idempotency:        middleware.NewIdempotencyCoordinator(service.NewDBIdempotencyStore(db), time.Hour, log),
		Limiter:            middleware.NewLocalFixedWindowLimiter(),
		APIRateLimitRPM:    300,
		PublicRateLimitRPM: 600,
		RateLimitMode:      middleware.FailClosed,
	}
	for _, opt := range opts {
		opt(&dep)
	}

	return &gatewayEnv{handler: router.New(dep), db: db, keys: keys, swap: swap}
}

type testCredential struct {
	key           *domain.APIKey
	value         string
	signingSecret string
}

func (e *gatewayEnv) seedSecretKey(t *testing.T, merchantID string, scopes ...string) *testCredential {
	t.Helper()
	value := "sk_test_" + uuid.NewString()
	secret := "whsec_" + uuid.NewString()
	key := &domain.APIKey{
		ID:            uuid.NewString(),
		Key:           value,
		MerchantID:    merchantID,
		Kind:          domain.APIKeyKindSecret,
		Scopes:        scopes,
		SigningSecret: &secret,
	}
	if err := e.keys.Create(context.Background(), key); err != nil {
		t.Fatalf("seed secret key: %v", err)
	}
	return &testCredential{key: key, value: value, signingSecret: secret}
}

func (e *gatewayEnv) seedPublishableKey(t *testing.T, merchantID string) *testCredential {
	t.Helper()
	value := "pk_test_" + uuid.NewString()
	key := &domain.APIKey{
		ID:         uuid.NewString(),
		Key:        value,
		MerchantID: merchantID,
		Kind:       domain.APIKeyKindPublishable,
	}
	if err := e.keys.Create(context.Background(), key); err != nil {
		t.Fatalf("seed publishable key: %v", err)
	}
	return &testCredential{key: key, value: value}
}

type requestSpec struct {
	method  string
	target  string
	body    string
	idemKey string
	nonce   string
	badSig  bool
	accept  string
}

func (e *gatewayEnv) do(t *testing.T, cred *testCredential, spec requestSpec) *httptest.ResponseRecorder {
	t.Helper()
	var body []byte
	if spec.body != "" {
		body = []byte(spec.body)
	}
	req := httptest.NewRequest(spec.method, spec.target, bytes.NewReader(body))
	req.RemoteAddr = "10.0.0.1:1234"
	if spec.accept != "" {
		req.Header.Set("Accept", spec.accept)
	}
	if cred != nil {
		req.Header.Set(middleware.APIKeyHeader, cred.value)
	}
	if spec.idemKey != "" {
		req.Header.Set(middleware.IdempotencyKeyHeader, spec.idemKey)
	}
	if spec.nonce != "" {
		req.Header.Set(middleware.NonceHeader, spec.nonce)
		sig := "deadbeef"
		if !spec.badSig && cred != nil && cred.signingSecret != "" {
			path := req.URL.Path
			if req.URL.RawQuery != "" {
				path += "?" + req.URL.RawQuery
			}
			sig = security.SignRequest(cred.signingSecret, spec.nonce, spec.method, path, body)
		}
		req.Header.Set(middleware.SignatureHeader, sig)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

type wireEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) wireEnvelope {
	t.Helper()
	var env wireEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rr.Body.String())
	}
	return env
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	env := decodeEnvelope(t, rr)
	if !env.Success {
		t.Fatalf("expected success envelope, got %s", rr.Body.String())
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data: %v (body %s)", err, rr.Body.String())
	}
}

func assertErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d (body %s)", status, rr.Code, rr.Body.String())
	}
	env := decodeEnvelope(t, rr)
	if env.Success || env.Error == nil {
		t.Fatalf("expected error envelope, got %s", rr.Body.String())
	}
	if env.Error.Code != code {
		t.Fatalf("expected error code %s, got %s", code, env.Error.Code)
	}
}

const preparePaymentBody = `{
  "payer": {"address": "payer.base", "network": "base"},
  "recipient": {"address": "shop.near", "network": "near"},
  "asset": {"symbol": "USDC", "network": "near", "amount": "25.00"}
}`
