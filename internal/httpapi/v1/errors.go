package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tinoosan/homeledger/internal/errs"
	"github.com/tinoosan/homeledger/internal/service/transaction"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func toJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeErr(w, http.StatusBadRequest, msg, "bad_request")
}

// mapError normalizes domain errors into a status, code and message.
func mapError(err error) (status int, code, msg string) {
	msg = err.Error()
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "not_found", "not_found"
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict, "conflict", msg
	case errors.Is(err, errs.ErrImmutable):
		return http.StatusConflict, "immutable", "system-generated rows cannot be changed directly"
	case errors.Is(err, errs.ErrUnprocessable):
		return http.StatusUnprocessableEntity, "unprocessable", msg
	case errors.Is(err, errs.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_amount", msg
	case errors.Is(err, errs.ErrInvalidTerm):
		return http.StatusBadRequest, "invalid_term", msg
	case errors.Is(err, transaction.ErrInvalidTag):
		return http.StatusBadRequest, "invalid_tag", msg
	case errors.Is(err, errs.ErrInvalid):
		return http.StatusBadRequest, "validation_error", msg
	}
	return http.StatusInternalServerError, "internal_error", "internal error"
}

// writeServiceErr writes err and logs it when it is not a client error.
func (s *Server) writeServiceErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := mapError(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeErr(w, status, msg, code)
}
