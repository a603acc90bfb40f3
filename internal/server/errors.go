package server

import (
	"errors"
	"net/http"

	"github.com/vanshika/debtledger/backend/internal/service"
)

type validationResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// writeServiceError maps the service error taxonomy onto HTTP. Conflicts are
// benign: they answer 200 with a notice and whatever current state
// conflictBody provides.
func (h *APIHandlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error, conflictBody func() noticeResponse) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusUnprocessableEntity, validationResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "you are not allowed to do that")
	case errors.Is(err, service.ErrConflict):
		body := noticeResponse{}
		if conflictBody != nil {
			body = conflictBody()
		}
		body.Notice = noticeFor(err)
		respondJSON(w, http.StatusOK, body)
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		h.logger.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func noticeFor(err error) string {
	if errors.Is(err, service.ErrNotPending) {
		return "this payment was already reviewed"
	}
	return "this was already processed"
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}
