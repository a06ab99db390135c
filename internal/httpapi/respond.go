package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

// mutationResponse is the envelope for every mutating endpoint.
type mutationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	ID      int64  `json:"id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeSuccess(w http.ResponseWriter, id int64) {
	writeJSON(w, http.StatusOK, mutationResponse{Success: true, ID: id})
}

// writeError maps domain errors onto the wire contract: validation errors
// come back 422 with the message inline, business rejections come back 200
// with success=false so the client renders them inline, unknown rows 404,
// and anything else is a generic 500 that never leaks internals.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyBankCode),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidTime):
		writeJSON(w, http.StatusUnprocessableEntity, mutationResponse{Success: false, Message: err.Error()})

	case errors.Is(err, core.ErrDuplicateTransaction),
		errors.Is(err, core.ErrAccountNameTaken),
		errors.Is(err, core.ErrAccountHasTransactions):
		writeJSON(w, http.StatusOK, mutationResponse{Success: false, Message: err.Error()})

	case errors.Is(err, core.ErrNotFound), errors.Is(err, services.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, mutationResponse{Success: false, Message: err.Error()})

	case errors.Is(err, services.ErrStaleCheck):
		// A newer recheck is already running; the client drops this one.
		writeJSON(w, http.StatusConflict, mutationResponse{Success: false, Message: err.Error()})

	default:
		s.logger.ErrorContext(r.Context(), "Request failed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, mutationResponse{Success: false, Message: "internal error"})
	}
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
