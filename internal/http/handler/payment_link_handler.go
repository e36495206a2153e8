package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Pingpayio/ping-checkout-sub000/internal/domain"
	"github.com/Pingpayio/ping-checkout-sub000/internal/http/middleware"
	"github.com/Pingpayio/ping-checkout-sub000/internal/http/response"
	"github.com/Pingpayio/ping-checkout-sub000/internal/observability"
	"github.com/Pingpayio/ping-checkout-sub000/internal/repository"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{2,63}$`)

type PaymentLinkHandler struct {
	repo repository.PaymentLinkRepository
}

func NewPaymentLinkHandler(repo repository.PaymentLinkRepository) *PaymentLinkHandler {
	return &PaymentLinkHandler{repo: repo}
}

func (h *PaymentLinkHandler) Create(w http.ResponseWriter, r *http.Request) {
	cred := middleware.CredentialFromRequest(r)
	var body struct {
		Slug    string `json:"slug"`
		Title   string `json:"title"`
		Symbol  string `json:"symbol"`
		Network string `json:"network"`
		Amount  string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "INVALID_PARAMS", "invalid payload", nil)
		return
	}
	if !slugPattern.MatchString(body.Slug) {
		response.Error(w, r, http.StatusBadRequest, "INVALID_PARAMS", "slug must be 3-64 lowercase letters, digits or hyphens", nil)
		return
	}
	if body.Symbol == "" || body.Network == "" {
		response.Error(w, r, http.StatusBadRequest, "INVALID_PARAMS", "symbol and network are required", nil)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(body.Amount))
	if err != nil || amount.Sign() <= 0 {
		response.Error(w, r, http.StatusBadRequest, "INVALID_PARAMS", "amount must be a positive decimal string", nil)
		return
	}
	link := &domain.PaymentLink{
		ID:         uuid.NewString(),
		MerchantID: cred.MerchantID,
		Slug:       body.Slug,
		Title:      body.Title,
		Symbol:     body.Symbol,
		Network:    body.Network,
		Amount:     amount,
		Active:     true,
	}
	if err := h.repo.Create(r.Context(), link); err != nil {
		response.Error(w, r, http.StatusConflict, "CONFLICT", "a payment link with this slug already exists", nil)
		return
	}
	observability.EmitAudit(r, observability.AuditInput{
		EventName:  "payment_link.create",
		MerchantID: cred.MerchantID,
		TargetType: "payment_link",
		TargetID:   link.ID,
		Action:     "create",
		Outcome:    "success",
	}, "slug", link.Slug)
	response.JSON(w, r, http.StatusCreated, link)
}

func (h *PaymentLinkHandler) List(w http.ResponseWriter, r *http.Request) {
	cred := middleware.CredentialFromRequest(r)
	links, err := h.repo.ListByMerchant(r.Context(), cred.MerchantID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list payment links", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"items": links})
}

func (h *PaymentLinkHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	cred := middleware.CredentialFromRequest(r)
	id := chi.URLParam(r, "id")
	if err := h.repo.Deactivate(r.Context(), cred.MerchantID, id); err != nil {
		if errors.Is(err, repository.ErrPaymentLinkNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "payment link not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to deactivate payment link", nil)
		return
	}
	observability.EmitAudit(r, observability.AuditInput{
		EventName:  "payment_link.deactivate",
		MerchantID: cred.MerchantID,
		TargetType: "payment_link",
		TargetID:   id,
		Action:     "deactivate",
		Outcome:    "success",
	})
	response.JSON(w, r, http.StatusOK, map[string]any{"active": false})
}
