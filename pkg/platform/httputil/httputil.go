// Package httputil writes JSON responses and domain errors in the shape
// every HTTP surface of the service shares.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "treasury/pkg/domain-errors"
)

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	Field            string `json:"field,omitempty"`
}

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// WriteError maps err onto an HTTP status and error body. Errors without a
// domain code are reported as internal errors; internal errors never leak
// their description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	resp := ErrorResponse{}
	if de, ok := dErrors.As(err); ok {
		code = de.Code
		resp.Field = de.Field
		if code != dErrors.CodeInternal {
			resp.ErrorDescription = de.Message
		}
	}
	resp.Error = string(code)
	WriteJSON(w, StatusFor(code), resp)
}

// StatusFor returns the HTTP status for a domain error code.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
