package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/logger"
	pkgctx "github.com/baechuer/real-time-ressys/services/identity-service/internal/pkg/context"
)

type ErrorBody struct {
	Status    string            `json:"status"` // always "error"
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteError converts a domain error into a consistent JSON HTTP error response.
// Non-domain errors are treated as internal errors (500) without leaking details.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"
	message := "internal error"
	var fields map[string]string

	var de *domain.Error
	if errors.As(err, &de) {
		status = StatusFromKind(de.Kind)
		code = de.Code
		message = de.Message
		if de.Kind == domain.KindValidation {
			fields = de.Meta
		}
	}

	if status >= http.StatusInternalServerError {
		logger.WithCtx(r.Context()).Error().
			Err(err).
			Str("code", code).
			Str("path", r.URL.Path).
			Msg("request_failed")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(ErrorBody{
		Status:    "error",
		Code:      code,
		Message:   message,
		Errors:    fields,
		RequestID: pkgctx.RequestID(r.Context()),
	})
}

// StatusFromKind maps domain error kinds to HTTP status codes.
func StatusFromKind(kind domain.ErrKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusUnprocessableEntity
	case domain.KindStateMismatch:
		return http.StatusBadRequest
	case domain.KindAuth:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
