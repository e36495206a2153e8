package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Pingpayio/ping-checkout-sub000/internal/domain"
	"github.com/Pingpayio/ping-checkout-sub000/internal/provider"
	"github.com/Pingpayio/ping-checkout-sub000/internal/repository"
)

var (
	ErrPaymentNotFound  = repository.ErrPaymentNotFound
	ErrPaymentFinalized = repository.ErrPaymentFinalized
	ErrInvalidParams    = errors.New("invalid payment parameters")
	ErrMissingDeposit   = errors.New("payment has no deposit address")
)

type PreparePaymentRequest struct {
	IdempotencyKey string
	Payer          domain.Party
	Recipient      domain.Party
	Asset          domain.AssetAmount
	Memo           *string
}

// PaymentService owns the payment state machine: pending on prepare, a
// single terminal transition on submit, never anything else.
type PaymentService struct {
	payments      repository.PaymentRepository
	swap          provider.Client
	receipts      ReceiptArchiver
	logger        *slog.Logger
	quoteDeadline time.Duration
}

func NewPaymentService(
	payments repository.PaymentRepository,
	swap provider.Client,
	receipts ReceiptArchiver,
	logger *slog.Logger,
	quoteDeadline time.Duration,
) *PaymentService {
	return &PaymentService{
		payments:      payments,
		swap:          swap,
		receipts:      receipts,
		logger:        logger,
		quoteDeadline: quoteDeadline,
	}
}

// Prepare creates a pending payment, deduplicated on the merchant's
// idempotency key. The quote is advisory: a provider failure leaves
// fee_quote and deposit_address empty and never fails the creation.
func (s *PaymentService) Prepare(ctx context.Context, merchantID string, req PreparePaymentRequest) (*domain.Payment, bool, error) {
	if err := validatePrepareRequest(req); err != nil {
		return nil, false, err
	}

	existing, err := s.payments.FindByIdempotencyKey(ctx, merchantID, req.IdempotencyKey)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrPaymentNotFound) {
		return nil, false, err
	}

	payment := &domain.Payment{
		ID:             uuid.NewString(),
		MerchantID:     merchantID,
		IdempotencyKey: req.IdempotencyKey,
		Payer:          req.Payer,
		Recipient:      req.Recipient,
		Asset:          req.Asset,
		Memo:           req.Memo,
	}

	quote, quoteErr := s.swap.Quote(ctx, provider.QuoteRequest{
		OriginSymbol:       req.Asset.Symbol,
		OriginNetwork:      req.Payer.Network,
		DestinationSymbol:  req.Asset.Symbol,
		DestinationNetwork: req.Recipient.Network,
		ExactAmountOut:     req.Asset.Amount,
		RecipientAddress:   req.Recipient.Address,
		RefundAddress:      req.Payer.Address,
		Deadline:           time.Now().Add(s.quoteDeadline),
	})
	if quoteErr != nil {
		s.logger.WarnContext(ctx, "quote unavailable during prepare, creating payment without it",
			"merchant_id", merchantID,
			"error", quoteErr.Error(),
		)
	} else {
		payment.DepositAddress = &quote.DepositAddress
		fee := quote.Fee
		payment.FeeQuote = &fee
		if !quote.Deadline.IsZero() {
			deadline := quote.Deadline
			payment.QuoteDeadline = &deadline
		}
	}

	return s.payments.CreatePending(ctx, payment)
}

// Submit executes a pending payment through the swap provider. The provider
// call and the status transition form one logical step: on a transport or
// provider failure the payment stays pending and the error propagates; only
// a provider-reported terminal outcome finalizes the row.
func (s *PaymentService) Submit(ctx context.Context, merchantID, paymentID, signedPayload string) (*domain.Payment, error) {
	payment, err := s.payments.FindByID(ctx, merchantID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status.IsTerminal() {
		return payment, ErrPaymentFinalized
	}
	if payment.DepositAddress == nil {
		return nil, ErrMissingDeposit
	}

	result, err := s.swap.Execute(ctx, provider.ExecuteRequest{
		DepositAddress: *payment.DepositAddress,
		SignedPayload:  signedPayload,
	})
	if err != nil {
		return nil, err
	}

	var status domain.PaymentStatus
	switch result.Status {
	case provider.SettlementStatusSuccess:
		status = domain.PaymentStatusSuccess
	case provider.SettlementStatusFailed:
		status = domain.PaymentStatusFailed
	default:
		// Accepted but not terminal yet; the payment stays pending and the
		// caller polls status.
		return payment, nil
	}

	refs := make([]domain.SettlementRef, 0, len(result.Refs))
	for _, ref := range result.Refs {
		refs = append(refs, domain.SettlementRef{ChainID: ref.ChainID, TxHash: ref.TxHash})
	}
	updated, err := s.payments.Finalize(ctx, merchantID, paymentID, status, refs)
	if err != nil {
		return updated, err
	}

	if s.receipts != nil {
		if archiveErr := s.receipts.ArchiveReceipt(ctx, updated); archiveErr != nil {
			s.logger.WarnContext(ctx, "failed to archive settlement receipt",
				"payment_id", updated.ID,
				"error", archiveErr.Error(),
			)
		}
	}
	return updated, nil
}

// GetStatus polls the provider for the state of a deposit address. Any
// provider error degrades to pending; a transient polling failure must never
// read as a failed payment.
func (s *PaymentService) GetStatus(ctx context.Context, depositAddress string) provider.SettlementStatus {
	status, err := s.swap.Status(ctx, depositAddress)
	if err != nil {
		s.logger.WarnContext(ctx, "status poll failed, reporting pending",
			"deposit_address", depositAddress,
			"error", err.Error(),
		)
		return provider.SettlementStatusPending
	}
	return status
}

// Get returns a payment scoped to its merchant.
func (s *PaymentService) Get(ctx context.Context, merchantID, paymentID string) (*domain.Payment, error) {
	return s.payments.FindByID(ctx, merchantID, paymentID)
}

func validatePrepareRequest(req PreparePaymentRequest) error {
	switch {
	case strings.TrimSpace(req.IdempotencyKey) == "":
		return ErrInvalidParams
	case req.Payer.Address == "" || req.Payer.Network == "":
		return ErrInvalidParams
	case req.Recipient.Address == "" || req.Recipient.Network == "":
		return ErrInvalidParams
	case req.Asset.Symbol == "" || req.Asset.Network == "":
		return ErrInvalidParams
	case !req.Asset.Amount.GreaterThan(decimal.Zero):
		return ErrInvalidParams
	}
	return nil
}
