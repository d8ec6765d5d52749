package handler

import (
	"encoding/json"
	"net/http"

	"formgate/internal/intake/models"
	"formgate/internal/intake/service"
	dErrors "formgate/pkg/domain-errors"
)

const maxBodyBytes = 1 << 20

type updateRequest struct {
	Submitter struct {
		Email  string         `json:"email"`
		Phone  string         `json:"phone"`
		Name   string         `json:"name"`
		CPF    string         `json:"cpf"`
		Values map[string]any `json:"values"`
	} `json:"submitter"`
	Resubmit string `json:"resubmit"`
}

func decodeUpdateParams(r *http.Request) (service.UpdateParams, error) {
	var req updateRequest

	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return service.UpdateParams{}, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}

	// The resubmit token may arrive as a query parameter on shared links.
	resubmit := req.Resubmit
	if resubmit == "" {
		resubmit = r.URL.Query().Get("resubmit")
	}

	return service.UpdateParams{
		Email:        req.Submitter.Email,
		Phone:        req.Submitter.Phone,
		Name:         req.Submitter.Name,
		CPF:          req.Submitter.CPF,
		Values:       req.Submitter.Values,
		ResubmitSlug: resubmit,
	}, nil
}

type showResponse struct {
	Template  *models.Template  `json:"template"`
	Submitter *models.Submitter `json:"submitter,omitempty"`
}

type completedResponse struct {
	Submitter *models.Submitter `json:"submitter"`
}

type renderResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
