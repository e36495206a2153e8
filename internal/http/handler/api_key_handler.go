package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Pingpayio/ping-checkout-sub000/internal/domain"
	"github.com/Pingpayio/ping-checkout-sub000/internal/http/middleware"
	"github.com/Pingpayio/ping-checkout-sub000/internal/http/response"
	"github.com/Pingpayio/ping-checkout-sub000/internal/observability"
	"github.com/Pingpayio/ping-checkout-sub000/internal/repository"
	"github.com/Pingpayio/ping-checkout-sub000/internal/service"
)

type APIKeyHandler struct {
	svc *service.APIKeyService
}

func NewAPIKeyHandler(svc *service.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{svc: svc}
}

type createdKeyView struct {
	ID            string            `json:"id"`
	Kind          domain.APIKeyKind `json:"kind"`
	Key           string            `json:"key"`
	SigningSecret string            `json:"signing_secret,omitempty"`
	Scopes        []string          `json:"scopes,omitempty"`
}

func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	cred := middleware.CredentialFromRequest(r)
	var body struct {
		Kind           string   `json:"kind"`
		Scopes         []string `json:"scopes"`
		AllowedOrigins []string `json:"allowed_origins"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "INVALID_PARAMS", "invalid payload", nil)
		return
	}
	created, err := h.svc.Create(r.Context(), cred.MerchantID, domain.APIKeyKind(body.Kind), body.Scopes, body.AllowedOrigins)
	if err != nil {
		if errors.Is(err, service.ErrInvalidKeyKind) {
			response.Error(w, r, http.StatusBadRequest, "INVALID_PARAMS", "kind must be secret or publishable", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to create api key", nil)
		return
	}
	observability.EmitAudit(r, observability.AuditInput{
		EventName:  "api_key.create",
		MerchantID: cred.MerchantID,
		TargetType: "api_key",
		TargetID:   created.Key.ID,
		Action:     "create",
		Outcome:    "success",
	}, "kind", string(created.Key.Kind))
	response.JSON(w, r, http.StatusCreated, createdKeyView{
		ID:            created.Key.ID,
		Kind:          created.Key.Kind,
		Key:           created.PlaintextKey,
		SigningSecret: created.SigningSecret,
		Scopes:        created.Key.Scopes,
	})
}

func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	cred := middleware.CredentialFromRequest(r)
	keys, err := h.svc.List(r.Context(), cred.MerchantID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list api keys", nil)
		return
	}
	items := make([]map[string]any, 0, len(keys))
	for i := range keys {
		items = append(items, map[string]any{
			"id":           keys[i].ID,
			"kind":         keys[i].Kind,
			"key":          keys[i].Redacted(),
			"scopes":       keys[i].Scopes,
			"last_used_at": keys[i].LastUsedAt,
			"revoked_at":   keys[i].RevokedAt,
			"created_at":   keys[i].CreatedAt,
		})
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"items": items})
}

func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	cred := middleware.CredentialFromRequest(r)
	id := chi.URLParam(r, "id")
	if err := h.svc.Revoke(r.Context(), cred.MerchantID, id); err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "api key not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to revoke api key", nil)
		return
	}
	observability.EmitAudit(r, observability.AuditInput{
		EventName:  "api_key.revoke",
		MerchantID: cred.MerchantID,
		TargetType: "api_key",
		TargetID:   id,
		Action:     "revoke",
		Outcome:    "success",
	})
	response.JSON(w, r, http.StatusOK, map[string]any{"revoked": true})
}

func (h *APIKeyHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	cred := middleware.CredentialFromRequest(r)
	id := chi.URLParam(r, "id")
	created, err := h.svc.Regenerate(r.Context(), cred.MerchantID, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAPIKeyNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "api key not found", nil)
		case errors.Is(err, repository.ErrAPIKeyRevoked):
			response.Error(w, r, http.StatusConflict, "CONFLICT", "cannot regenerate a revoked api key", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to regenerate api key", nil)
		}
		return
	}
	observability.EmitAudit(r, observability.AuditInput{
		EventName:  "api_key.regenerate",
		MerchantID: cred.MerchantID,
		TargetType: "api_key",
		TargetID:   id,
		Action:     "regenerate",
		Outcome:    "success",
	})
	response.JSON(w, r, http.StatusOK, createdKeyView{
		ID:            created.Key.ID,
		Kind:          created.Key.Kind,
		Key:           created.PlaintextKey,
		SigningSecret: created.SigningSecret,
		Scopes:        created.Key.Scopes,
	})
}

func (h *APIKeyHandler) Usage(w http.ResponseWriter, r *http.Request) {
	cred := middleware.CredentialFromRequest(r)
	usage, err := h.svc.Usage(r.Context(), cred.MerchantID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load api key usage", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"items": usage})
}
