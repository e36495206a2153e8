package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Pingpayio/ping-checkout-sub000/internal/domain"
	"github.com/Pingpayio/ping-checkout-sub000/internal/repository"
	"github.com/Pingpayio/ping-checkout-sub000/internal/security"
)

// CreatedCheckoutSession pairs the stored row with the signed token the
// hosted page presents.
type CreatedCheckoutSession struct {
	Session      *domain.CheckoutSession
	SessionToken string
}

type CheckoutSessionService struct {
	sessions   repository.CheckoutSessionRepository
	tokens     *security.CheckoutTokenManager
	tokenTTL   time.Duration
	sessionTTL time.Duration
}

func NewCheckoutSessionService(
	sessions repository.CheckoutSessionRepository,
	tokens *security.CheckoutTokenManager,
	tokenTTL, sessionTTL time.Duration,
) *CheckoutSessionService {
	return &CheckoutSessionService{
		sessions:   sessions,
		tokens:     tokens,
		tokenTTL:   tokenTTL,
		sessionTTL: sessionTTL,
	}
}

func (s *CheckoutSessionService) Create(ctx context.Context, merchantID, successURL, cancelURL string, paymentID *string) (*CreatedCheckoutSession, error) {
	session := &domain.CheckoutSession{
		ID:         uuid.NewString(),
		MerchantID: merchantID,
		PaymentID:  paymentID,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
		Status:     domain.CheckoutSessionStatusOpen,
		ExpiresAt:  time.Now().UTC().Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	token, err := s.tokens.SignSessionToken(session.ID, merchantID, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &CreatedCheckoutSession{Session: session, SessionToken: token}, nil
}

func (s *CheckoutSessionService) Get(ctx context.Context, merchantID, id string) (*domain.CheckoutSession, error) {
	return s.sessions.FindByID(ctx, merchantID, id)
}
