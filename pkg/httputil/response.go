package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/yangxb919/prspares-website/pkg/errors"
	"github.com/yangxb919/prspares-website/pkg/logger"
	"github.com/yangxb919/prspares-website/pkg/validator"
)

// GenericErrorMessage is the only message shown to callers for unexpected failures.
const GenericErrorMessage = "an internal error occurred"

// ErrorBody is the JSON error shape returned by every endpoint: a human-readable
// "error" string plus a machine code.
type ErrorBody struct {
	Error     string            `json:"error"`
	Code      string            `json:"code,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteNoStore marks the response as never cacheable.
func WriteNoStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
}

// WriteError writes an ErrorBody derived from err. AppErrors keep their code and
// message; anything else maps through apperrors.HTTPStatus and internal errors
// are logged and masked. The request-scoped logger is preferred over fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}

	requestID := logger.CorrelationIDFromContext(r.Context())

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			l.ErrorContext(r.Context(), "request failed",
				slog.String("error", err.Error()),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
		}
		WriteJSON(w, appErr.Status, ErrorBody{Error: appErr.Message, Code: appErr.Code, RequestID: requestID})
		return
	}

	status := apperrors.HTTPStatus(err)
	code := "INTERNAL_ERROR"
	message := GenericErrorMessage

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code = "NOT_FOUND"
		message = "resource not found"
	case errors.Is(err, apperrors.ErrInvalidInput):
		code = "INVALID_INPUT"
		message = err.Error()
	case errors.Is(err, apperrors.ErrServiceUnavail):
		code = "SERVICE_UNAVAILABLE"
		message = "service unavailable"
	}

	if status == http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, ErrorBody{Error: message, Code: code, RequestID: requestID})
}

// WriteValidationError writes a 400 response. Field-level messages are included
// when err is a *validator.ValidationError.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, ErrorBody{
			Error:     valErr.Error(),
			Code:      "VALIDATION_ERROR",
			Fields:    valErr.Fields(),
			RequestID: requestID,
		})
		return
	}

	WriteJSON(w, http.StatusBadRequest, ErrorBody{Error: err.Error(), Code: "INVALID_INPUT", RequestID: requestID})
}
