package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"finances/internal/core"
	"finances/internal/log"
	"finances/internal/middleware/trace"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
	// RequestID lets clients quote the failing request.
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain errors to HTTP statuses. Internal failures are
// logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classifyError(r, err)
	body.RequestID = trace.GetRequestID(r.Context())
	writeJSON(w, status, body)
}

func classifyError(r *http.Request, err error) (int, errorResponse) {
	logger := log.FromContext(r.Context())

	var (
		validation *core.ValidationError
		maxBytes   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large", Code: "too_large"}
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "bad_request"}
	case errors.As(err, &validation):
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Code: log.ErrorTypeValidation, Field: validation.Field}
	case errors.Is(err, core.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Code: log.ErrorTypeInsufficientFunds}
	case errors.Is(err, core.ErrSourceRead):
		logger.WarnContext(r.Context(), "Import source unreadable", log.NewFields().WithError(err, log.ErrorTypeSource).ToSlice()...)
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Code: log.ErrorTypeSource}
	case errors.Is(err, core.ErrStore):
		logger.ErrorContext(r.Context(), "Store failure", log.NewFields().WithError(err, log.ErrorTypeDatabase).ToSlice()...)
		return http.StatusInternalServerError, errorResponse{Error: "internal error", Code: log.ErrorTypeDatabase}
	default:
		logger.ErrorContext(r.Context(), "Request failed", log.NewFields().WithError(err, log.ErrorTypeInternal).ToSlice()...)
		return http.StatusInternalServerError, errorResponse{Error: "internal error", Code: log.ErrorTypeInternal}
	}
}
