package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sony/gobreaker/v2"

	apperrors "github.com/yangxb919/prspares-website/pkg/errors"
)

const maxErrorBody = 1 << 20

// errorBody is the {"error": "..."} shape returned by this service's JSON API.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ParseResponseError reads a non-2xx response and turns it into an AppError
// carrying the upstream's error message. The body is consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}
	return errorFromBody(resp.StatusCode, body, serviceName)
}

// FromError converts errors returned by CircuitBreakerClient into AppErrors:
// a *StatusError keeps the upstream message, an open breaker becomes 503.
// Other errors pass through unchanged.
func FromError(err error, serviceName string) error {
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		return errorFromBody(statusErr.StatusCode, statusErr.Body, serviceName)
	case errors.Is(err, ErrCircuitOpen), errors.Is(err, gobreaker.ErrTooManyRequests):
		return apperrors.ServiceUnavailable(serviceName+" is unavailable", err)
	default:
		return err
	}
}

func errorFromBody(status int, body []byte, serviceName string) error {
	message := strings.TrimSpace(string(body))
	code := ""
	var parsed errorBody
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
		message = parsed.Error
		code = parsed.Code
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return mapDownstreamError(status, code, message, serviceName)
}

func mapDownstreamError(status int, code, message, serviceName string) error {
	switch {
	case status == http.StatusNotFound:
		return &apperrors.AppError{Code: "NOT_FOUND", Message: message, Status: status, Err: apperrors.ErrNotFound}
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(message)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(message)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(message)
	case status == http.StatusTooManyRequests:
		return &apperrors.AppError{Code: "RATE_LIMITED", Message: message, Status: status, Err: apperrors.ErrRateLimited}
	case status >= 500:
		return &apperrors.AppError{
			Code:    "SERVICE_UNAVAILABLE",
			Message: message,
			Status:  http.StatusServiceUnavailable,
			Err:     fmt.Errorf("%w: %s responded %d", apperrors.ErrServiceUnavail, serviceName, status),
		}
	default:
		if code == "" {
			code = "UPSTREAM_ERROR"
		}
		return &apperrors.AppError{Code: code, Message: message, Status: status}
	}
}
