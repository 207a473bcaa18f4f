package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mixzter/duel/internal/match"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// statusFor maps an engine error code to an HTTP status.
func statusFor(code match.Code) int {
	switch code {
	case match.CodeValidation:
		return http.StatusUnprocessableEntity
	case match.CodeProvider:
		return http.StatusBadGateway
	case match.CodeContractViolation, match.CodeBusy:
		return http.StatusConflict
	case match.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeMatchError(w http.ResponseWriter, err error) {
	var merr *match.Error
	if !errors.As(err, &merr) {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, statusFor(merr.Code), ErrorResponse{Error: err.Error(), Code: string(merr.Code)})
}
