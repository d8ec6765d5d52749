// Package handler exposes the admin webhook destination API. All routes sit
// behind bearer-token auth; the account comes from the token claims, never
// from the request.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"formgate/internal/platform/middleware"
	"formgate/internal/webhook"
	"formgate/pkg/requestcontext"
)

// Handler manages webhook destinations for an account.
type Handler struct {
	registry webhook.Registry
	logger   *slog.Logger
}

func New(registry webhook.Registry, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, logger: logger}
}

// Register mounts the admin routes. Callers wrap the router with
// middleware.RequireAuth.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/webhook_urls", h.handleList)
	r.Post("/admin/webhook_urls", h.handleCreate)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	urls, err := h.registry.ListByAccount(r.Context(), claims.AccountID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list webhook urls",
			"account_id", claims.AccountID,
			"error", err.Error(),
			"request_id", requestcontext.RequestID(r.Context()),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, listResponse{WebhookURLs: urls})
}

type createRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if fields := validateCreate(req); len(fields) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: fields})
		return
	}

	dest := &webhook.URL{
		AccountID: claims.AccountID,
		URL:       req.URL,
		Events:    req.Events,
	}
	if len(dest.Events) == 0 {
		dest.Events = []string{webhook.EventSubmissionCreated}
	}

	if err := h.registry.Create(r.Context(), dest); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to create webhook url",
			"account_id", claims.AccountID,
			"error", err.Error(),
			"request_id", requestcontext.RequestID(r.Context()),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, dest)
}

func validateCreate(req createRequest) map[string]string {
	fields := make(map[string]string)

	parsed, err := url.Parse(req.URL)
	if err != nil || parsed.Host == "" || !strings.HasPrefix(parsed.Scheme, "http") {
		fields["url"] = "must be an http(s) URL"
	}
	for _, event := range req.Events {
		if event != webhook.EventSubmissionCreated {
			fields["events"] = "unknown event: " + event
			break
		}
	}
	return fields
}

type listResponse struct {
	WebhookURLs []*webhook.URL `json:"webhook_urls"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
