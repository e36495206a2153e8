package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Pingpayio/ping-checkout-sub000/internal/domain"
	"github.com/Pingpayio/ping-checkout-sub000/internal/http/middleware"
	"github.com/Pingpayio/ping-checkout-sub000/internal/http/response"
	"github.com/Pingpayio/ping-checkout-sub000/internal/observability"
	"github.com/Pingpayio/ping-checkout-sub000/internal/provider"
	"github.com/Pingpayio/ping-checkout-sub000/internal/service"
)

type PaymentHandler struct {
	svc *service.PaymentService
}

func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

type partyBody struct {
	Address string `json:"address"`
	Network string `json:"network"`
}

type preparePaymentBody struct {
	Payer     partyBody `json:"payer"`
	Recipient partyBody `json:"recipient"`
	Asset     struct {
		Symbol  string `json:"symbol"`
		Network string `json:"network"`
		Amount  string `json:"amount"`
	} `json:"asset"`
	Memo *string `json:"memo,omitempty"`
}

func (h *PaymentHandler) Prepare(w http.ResponseWriter, r *http.Request) {
	cred := middleware.CredentialFromRequest(r)
	var body preparePaymentBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "INVALID_PARAMS", "invalid payload", nil)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(body.Asset.Amount))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "INVALID_PARAMS", "invalid asset amount", nil)
		return
	}
	req := service.PreparePaymentRequest{
		IdempotencyKey: r.Header.Get(middleware.IdempotencyKeyHeader),
		Payer:          domain.Party{Address: body.Payer.Address, Network: body.Payer.Network},
		Recipient:      domain.Party{Address: body.Recipient.Address, Network: body.Recipient.Network},
		Asset:          domain.AssetAmount{Symbol: body.Asset.Symbol, Network: body.Asset.Network, Amount: amount},
		Memo:           body.Memo,
	}
	payment, created, err := h.svc.Prepare(r.Context(), cred.MerchantID, req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidParams) {
			response.Error(w, r, http.StatusBadRequest, "INVALID_PARAMS", "invalid payment parameters", nil)
			return
		}
		writePaymentError(w, r, err, "failed to prepare payment")
		return
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	observability.EmitAudit(r, observability.AuditInput{
		EventName:  "payment.prepare",
		MerchantID: cred.MerchantID,
		TargetType: "payment",
		TargetID:   payment.ID,
		Action:     "prepare",
		Outcome:    "success",
	}, "created", created)
	response.JSON(w, r, status, payment)
}

func (h *PaymentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	cred := middleware.CredentialFromRequest(r)
	paymentID := chi.URLParam(r, "id")
	var body struct {
		SignedPayload string `json:"signed_payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "INVALID_PARAMS", "invalid payload", nil)
		return
	}
	if strings.TrimSpace(body.SignedPayload) == "" {
		response.Error(w, r, http.StatusBadRequest, "INVALID_PARAMS", "signed_payload is required", nil)
		return
	}
	payment, err := h.svc.Submit(r.Context(), cred.MerchantID, paymentID, body.SignedPayload)
	if err != nil {
		if errors.Is(err, service.ErrPaymentFinalized) {
			response.Error(w, r, http.StatusConflict, "PAYMENT_ALREADY_FINALIZED", "payment is already finalized", map[string]any{"status": payment.Status})
			return
		}
		if errors.Is(err, service.ErrMissingDeposit) {
			response.Error(w, r, http.StatusBadRequest, "INVALID_PARAMS", "payment has no deposit address; prepare again to obtain a quote", nil)
			return
		}
		writePaymentError(w, r, err, "failed to submit payment")
		return
	}
	observability.EmitAudit(r, observability.AuditInput{
		EventName:  "payment.submit",
		MerchantID: cred.MerchantID,
		TargetType: "payment",
		TargetID:   paymentID,
		Action:     "submit",
		Outcome:    string(payment.Status),
	})
	response.JSON(w, r, http.StatusOK, payment)
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	cred := middleware.CredentialFromRequest(r)
	payment, err := h.svc.Get(r.Context(), cred.MerchantID, chi.URLParam(r, "id"))
	if err != nil {
		writePaymentError(w, r, err, "failed to load payment")
		return
	}
	response.JSON(w, r, http.StatusOK, payment)
}

func (h *PaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	depositAddress := strings.TrimSpace(r.URL.Query().Get("deposit_address"))
	if depositAddress == "" {
		response.Error(w, r, http.StatusBadRequest, "INVALID_PARAMS", "deposit_address is required", nil)
		return
	}
	status := h.svc.GetStatus(r.Context(), depositAddress)
	response.JSON(w, r, http.StatusOK, map[string]any{"status": status})
}

func writePaymentError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if errors.Is(err, service.ErrPaymentNotFound) {
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "payment not found", nil)
		return
	}
	var perr *provider.Error
	if errors.As(err, &perr) {
		switch perr.Kind {
		case provider.ErrorKindValidation:
			response.Error(w, r, http.StatusBadRequest, "INVALID_PARAMS", perr.Message, nil)
		case provider.ErrorKindAuth, provider.ErrorKindRateLimited:
			response.Error(w, r, http.StatusBadGateway, "PROVIDER_ERROR", "settlement provider rejected the request", nil)
		default:
			response.Error(w, r, http.StatusServiceUnavailable, "PROVIDER_ERROR", "settlement provider is unavailable", nil)
		}
		return
	}
	response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", fallback, nil)
}
