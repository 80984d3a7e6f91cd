package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrInvalidInput, ErrUnauthorized, ErrForbidden,
		ErrInternal, ErrServiceUnavail, ErrRateLimited,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

func TestAppError_ErrorString(t *testing.T) {
	inner := fmt.Errorf("db connection lost")
	withInner := &AppError{Code: "INTERNAL_ERROR", Message: "something broke", Err: inner}
	assert.Equal(t, "INTERNAL_ERROR: something broke: db connection lost", withInner.Error())

	bare := &AppError{Code: "NOT_FOUND", Message: "product not found"}
	assert.Equal(t, "NOT_FOUND: product not found", bare.Error())
	assert.Nil(t, bare.Unwrap())
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		code     string
		status   int
		sentinel error
	}{
		{"not found", NotFound("product", "p-1"), "NOT_FOUND", http.StatusNotFound, ErrNotFound},
		{"invalid input", InvalidInput("bad page"), "INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput},
		{"unauthorized", Unauthorized("no session"), "UNAUTHORIZED", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", Forbidden("nope"), "FORBIDDEN", http.StatusForbidden, ErrForbidden},
		{"unavailable", ServiceUnavailable("catalog down", nil), "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, ErrServiceUnavail},
		{"rate limited", TooManyRequests(), "RATE_LIMITED", http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.ErrorIs(t, tt.err, tt.sentinel)
		})
	}
}

func TestNotFound_Message(t *testing.T) {
	assert.Equal(t, "product with id abc-123 not found", NotFound("product", "abc-123").Message)
}

func TestServiceUnavailable_WrapsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := ServiceUnavailable("catalog down", cause)
	assert.ErrorIs(t, err, ErrServiceUnavail)
	assert.ErrorIs(t, err, cause)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", InvalidInput("x"), http.StatusBadRequest},
		{"wrapped app error", fmt.Errorf("list: %w", NotFound("product", "1")), http.StatusNotFound},
		{"sentinel not found", fmt.Errorf("get: %w", ErrNotFound), http.StatusNotFound},
		{"sentinel invalid", ErrInvalidInput, http.StatusBadRequest},
		{"sentinel unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"sentinel forbidden", ErrForbidden, http.StatusForbidden},
		{"sentinel rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"sentinel unavailable", ErrServiceUnavail, http.StatusServiceUnavailable},
		{"unknown", errors.New("mystery"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
