// Package handler exposes the public intake routes. It is a thin layer:
// decoding, redirect/render translation and error mapping; the state
// machine itself lives in the service.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"formgate/internal/intake/models"
	"formgate/internal/intake/service"
	dErrors "formgate/pkg/domain-errors"
	"formgate/pkg/requestcontext"
)

// Service is the intake surface the handler delegates to.
type Service interface {
	Show(ctx context.Context, slug string) (*models.Template, *models.Submitter, error)
	Update(ctx context.Context, slug string, params service.UpdateParams) (service.Outcome, error)
	Completed(ctx context.Context, slug, email string) (*models.Submitter, error)
}

// Handler handles the public start-form endpoints.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the intake routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/d/{slug}", h.handleShow)
	r.Post("/d/{slug}", h.handleUpdate)
	r.Get("/d/{slug}/completed", h.handleCompleted)
}

func (h *Handler) handleShow(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	template, submitter, err := h.svc.Show(r.Context(), slug)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, showResponse{Template: template, Submitter: submitter})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	params, err := decodeUpdateParams(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	outcome, err := h.svc.Update(r.Context(), slug, params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	switch outcome.Kind {
	case service.OutcomeRedirectStart:
		http.Redirect(w, r, "/d/"+outcome.TemplateSlug, http.StatusFound)
	case service.OutcomeRedirectCompleted:
		target := "/d/" + outcome.TemplateSlug + "/completed"
		if outcome.Email != "" {
			target += "?email=" + url.QueryEscape(outcome.Email)
		}
		http.Redirect(w, r, target, http.StatusFound)
	case service.OutcomeRedirectSubmit:
		http.Redirect(w, r, "/f/"+outcome.SubmitterSlug, http.StatusFound)
	case service.OutcomeRenderNotFound:
		writeJSON(w, http.StatusUnprocessableEntity, renderResponse{Error: outcome.Message})
	case service.OutcomeRenderInvalid:
		writeJSON(w, http.StatusUnprocessableEntity, renderResponse{
			Error:  "validation failed",
			Fields: outcome.FieldErrors,
		})
	default:
		h.logger.ErrorContext(r.Context(), "unknown intake outcome", "kind", string(outcome.Kind))
		writeJSON(w, http.StatusInternalServerError, renderResponse{Error: "internal error"})
	}
}

func (h *Handler) handleCompleted(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	email := r.URL.Query().Get("email")

	submitter, err := h.svc.Completed(r.Context(), slug, email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, completedResponse{Submitter: submitter})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := dErrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "intake request failed",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(r.Context()),
		)
	}
	writeJSON(w, status, renderResponse{Error: errorMessage(err, code), Fields: dErrors.FieldsOf(err)})
}

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeNotFound:     http.StatusNotFound,
	dErrors.CodeBadRequest:   http.StatusBadRequest,
	dErrors.CodeValidation:   http.StatusUnprocessableEntity,
	dErrors.CodeConflict:     http.StatusConflict,
	dErrors.CodeUnauthorized: http.StatusUnauthorized,
	dErrors.CodeInternal:     http.StatusInternalServerError,
}

// errorMessage hides internal detail; everything else surfaces its domain
// message.
func errorMessage(err error, code dErrors.Code) string {
	if code == dErrors.CodeInternal {
		return "internal error"
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
