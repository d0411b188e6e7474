package response

import (
	"errors"
	"net/http"

	"github.com/lmsworks/member-service/internal/domain"
	"github.com/lmsworks/member-service/internal/logger"
)

type ErrorBody struct {
	Error ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Meta      map[string]string `json:"meta,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

var statusByKind = map[domain.ErrKind]int{
	domain.KindValidation:     http.StatusBadRequest,
	domain.KindAuth:           http.StatusUnauthorized,
	domain.KindForbidden:      http.StatusForbidden,
	domain.KindNotFound:       http.StatusNotFound,
	domain.KindConflict:       http.StatusConflict,
	domain.KindRateLimited:    http.StatusTooManyRequests,
	domain.KindInfrastructure: http.StatusServiceUnavailable,
	domain.KindInternal:       http.StatusInternalServerError,
}

// StatusOf returns the HTTP status for err. Anything that is not a
// *domain.Error is a 500.
func StatusOf(err error) int {
	var de *domain.Error
	if !errors.As(err, &de) {
		return http.StatusInternalServerError
	}
	if s, ok := statusByKind[de.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// WriteError renders err as {"error":{...}}. Server-side failures are logged
// with their cause; the client only sees the code and a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	payload := ErrorPayload{
		Code:      "internal_error",
		Message:   "internal error",
		RequestID: RequestIDFromContext(r),
	}

	var de *domain.Error
	if errors.As(err, &de) {
		payload.Code = de.Code
		payload.Message = de.Message
		payload.Meta = de.Meta
	}

	if status >= http.StatusInternalServerError {
		logger.WithCtx(r.Context()).Error().
			Err(err).
			Str("code", payload.Code).
			Str("path", r.URL.Path).
			Int("status", status).
			Msg("request failed")
	}

	if status == http.StatusTooManyRequests {
		if s := payload.Meta["retry_after_seconds"]; s != "" {
			w.Header().Set("Retry-After", s)
		}
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, status, ErrorBody{Error: payload})
}
