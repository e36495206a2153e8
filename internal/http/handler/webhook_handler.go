package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Pingpayio/ping-checkout-sub000/internal/domain"
	"github.com/Pingpayio/ping-checkout-sub000/internal/http/middleware"
	"github.com/Pingpayio/ping-checkout-sub000/internal/http/response"
	"github.com/Pingpayio/ping-checkout-sub000/internal/observability"
	"github.com/Pingpayio/ping-checkout-sub000/internal/repository"
	"github.com/Pingpayio/ping-checkout-sub000/internal/security"
)

var webhookEvents = map[string]bool{
	"payment.succeeded": true,
	"payment.failed":    true,
	"payment.prepared":  true,
}

type WebhookHandler struct {
	repo repository.WebhookRepository
}

func NewWebhookHandler(repo repository.WebhookRepository) *WebhookHandler {
	return &WebhookHandler{repo: repo}
}

func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	cred := middleware.CredentialFromRequest(r)
	var body struct {
		URL    string   `json:"url"`
		Events []string `json:"events"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "INVALID_PARAMS", "invalid payload", nil)
		return
	}
	if !strings.HasPrefix(body.URL, "https://") {
		response.Error(w, r, http.StatusBadRequest, "INVALID_PARAMS", "url must be an https URL", nil)
		return
	}
	if len(body.Events) == 0 {
		response.Error(w, r, http.StatusBadRequest, "INVALID_PARAMS", "at least one event is required", nil)
		return
	}
	for _, event := range body.Events {
		if !webhookEvents[event] {
			response.Error(w, r, http.StatusBadRequest, "INVALID_PARAMS", "unknown event: "+event, nil)
			return
		}
	}
	secret, err := security.NewSigningSecret()
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to create webhook subscription", nil)
		return
	}
	sub := &domain.WebhookSubscription{
		ID:         uuid.NewString(),
		MerchantID: cred.MerchantID,
		URL:        body.URL,
		Secret:     secret,
		Events:     body.Events,
		Active:     true,
	}
	if err := h.repo.Create(r.Context(), sub); err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to create webhook subscription", nil)
		return
	}
	observability.EmitAudit(r, observability.AuditInput{
		EventName:  "webhook.create",
		MerchantID: cred.MerchantID,
		TargetType: "webhook_subscription",
		TargetID:   sub.ID,
		Action:     "create",
		Outcome:    "success",
	})
	// The signing secret is shown exactly once, on creation.
	response.JSON(w, r, http.StatusCreated, map[string]any{
		"subscription": sub,
		"secret":       secret,
	})
}

func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	cred := middleware.CredentialFromRequest(r)
	subs, err := h.repo.ListByMerchant(r.Context(), cred.MerchantID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list webhook subscriptions", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"items": subs})
}

func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	cred := middleware.CredentialFromRequest(r)
	id := chi.URLParam(r, "id")
	if err := h.repo.Delete(r.Context(), cred.MerchantID, id); err != nil {
		if errors.Is(err, repository.ErrWebhookSubscriptionNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "webhook subscription not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to delete webhook subscription", nil)
		return
	}
	observability.EmitAudit(r, observability.AuditInput{
		EventName:  "webhook.delete",
		MerchantID: cred.MerchantID,
		TargetType: "webhook_subscription",
		TargetID:   id,
		Action:     "delete",
		Outcome:    "success",
	})
	response.JSON(w, r, http.StatusOK, map[string]any{"deleted": true})
}
