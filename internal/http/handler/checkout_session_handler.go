package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Pingpayio/ping-checkout-sub000/internal/http/middleware"
	"github.com/Pingpayio/ping-checkout-sub000/internal/http/response"
	"github.com/Pingpayio/ping-checkout-sub000/internal/observability"
	"github.com/Pingpayio/ping-checkout-sub000/internal/repository"
	"github.com/Pingpayio/ping-checkout-sub000/internal/service"
)

type CheckoutSessionHandler struct {
	svc *service.CheckoutSessionService
}

func NewCheckoutSessionHandler(svc *service.CheckoutSessionService) *CheckoutSessionHandler {
	return &CheckoutSessionHandler{svc: svc}
}

func (h *CheckoutSessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	cred := middleware.CredentialFromRequest(r)
	var body struct {
		SuccessURL string  `json:"success_url"`
		CancelURL  string  `json:"cancel_url"`
		PaymentID  *string `json:"payment_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "INVALID_PARAMS", "invalid payload", nil)
		return
	}
	if !isHTTPURL(body.SuccessURL) || !isHTTPURL(body.CancelURL) {
		response.Error(w, r, http.StatusBadRequest, "INVALID_PARAMS", "success_url and cancel_url must be absolute http(s) URLs", nil)
		return
	}
	created, err := h.svc.Create(r.Context(), cred.MerchantID, body.SuccessURL, body.CancelURL, body.PaymentID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to create checkout session", nil)
		return
	}
	observability.EmitAudit(r, observability.AuditInput{
		EventName:  "checkout_session.create",
		MerchantID: cred.MerchantID,
		TargetType: "checkout_session",
		TargetID:   created.Session.ID,
		Action:     "create",
		Outcome:    "success",
	})
	response.JSON(w, r, http.StatusCreated, map[string]any{
		"session":       created.Session,
		"session_token": created.SessionToken,
	})
}

func (h *CheckoutSessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	cred := middleware.CredentialFromRequest(r)
	session, err := h.svc.Get(r.Context(), cred.MerchantID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrCheckoutSessionNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "checkout session not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load checkout session", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, session)
}

func isHTTPURL(raw string) bool {
	return strings.HasPrefix(raw, "https://") || strings.HasPrefix(raw, "http://")
}
