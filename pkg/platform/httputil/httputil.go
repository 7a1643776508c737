// Package httputil writes JSON responses and translates domain errors into
// HTTP statuses.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain-errors"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error            string         `json:"error"`
	ErrorDescription string         `json:"error_description,omitempty"`
	Details          map[string]any `json:"details,omitempty"`
}

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeBadRequest:            http.StatusBadRequest,
	dErrors.CodeInvalidInput:          http.StatusBadRequest,
	dErrors.CodeMissingToken:          http.StatusBadRequest,
	dErrors.CodeMissingSubject:        http.StatusBadRequest,
	dErrors.CodeInvalidVerifier:       http.StatusBadRequest,
	dErrors.CodeInvalidProvider:       http.StatusBadRequest,
	dErrors.CodeExchangeFailed:        http.StatusBadRequest,
	dErrors.CodeInvalidIDToken:        http.StatusBadRequest,
	dErrors.CodeInvalidAudience:       http.StatusBadRequest,
	dErrors.CodeProviderError:         http.StatusBadRequest,
	dErrors.CodeNicknameAlreadySet:    http.StatusBadRequest,
	dErrors.CodeUnauthorized:          http.StatusUnauthorized,
	dErrors.CodeInvalidRefreshToken:   http.StatusUnauthorized,
	dErrors.CodeForbidden:             http.StatusForbidden,
	dErrors.CodeNotFound:              http.StatusNotFound,
	dErrors.CodeUserNotFound:          http.StatusNotFound,
	dErrors.CodeSessionNotFound:       http.StatusNotFound,
	dErrors.CodeConflict:              http.StatusConflict,
	dErrors.CodeIdentityConflict:      http.StatusConflict,
	dErrors.CodeProviderAlreadyLinked: http.StatusConflict,
	dErrors.CodeValidation:            http.StatusUnprocessableEntity,
	dErrors.CodeInvalidNickname:       http.StatusUnprocessableEntity,
	dErrors.CodeInvalidUID:            http.StatusUnprocessableEntity,
	dErrors.CodeRateLimited:           http.StatusTooManyRequests,
	dErrors.CodeInternal:              http.StatusInternalServerError,
	dErrors.CodeInvariantViolation:    http.StatusInternalServerError,
	dErrors.CodeServerMisconfigured:   http.StatusInternalServerError,
	dErrors.CodeUIDCreateFailed:       http.StatusInternalServerError,
	dErrors.CodeUnavailable:           http.StatusServiceUnavailable,
	dErrors.CodeTimeout:               http.StatusGatewayTimeout,
}

// StatusFor returns the HTTP status for a domain code. Unmapped codes are
// client errors.
func StatusFor(code dErrors.Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusBadRequest
}

// ErrorBody returns the status and envelope for err. Non-domain errors are
// reported as internal errors; 5xx responses never describe their cause.
func ErrorBody(err error) (int, ErrorResponse) {
	de, ok := dErrors.As(err)
	if !ok {
		return http.StatusInternalServerError, ErrorResponse{Error: string(dErrors.CodeInternal)}
	}
	status := StatusFor(de.Code)
	resp := ErrorResponse{Error: string(de.Code)}
	if status < http.StatusInternalServerError {
		resp.ErrorDescription = de.Message
		resp.Details = de.Details
	}
	return status, resp
}

// WriteError writes err as a JSON error envelope.
func WriteError(w http.ResponseWriter, err error) {
	status, body := ErrorBody(err)
	WriteJSON(w, status, body)
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
