package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yangxb919/prspares-website/pkg/errors"
	"github.com/yangxb919/prspares-website/pkg/logger"
	"github.com/yangxb919/prspares-website/pkg/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

// --- WriteJSON ---

func TestWriteJSON_SetsContentTypeAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]string{"key": "value"})

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"key":"value"}`, rec.Body.String())
}

func TestWriteNoStore(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteNoStore(rec)
	WriteJSON(rec, http.StatusOK, struct{}{})

	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

// --- WriteError ---

func TestWriteError_AppErrorKeepsMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)

	WriteError(rec, req, apperrors.InvalidInput("page must be positive"), testLogger())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorBody(t, rec)
	assert.Equal(t, "page must be positive", body.Error)
	assert.Equal(t, "INVALID_INPUT", body.Code)
}

func TestWriteError_WrappedAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)

	err := fmt.Errorf("list products: %w", apperrors.ServiceUnavailable("catalog unavailable", errors.New("dial tcp")))
	WriteError(rec, req, err, testLogger())

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeErrorBody(t, rec)
	assert.Equal(t, "catalog unavailable", body.Error)
	assert.Equal(t, "SERVICE_UNAVAILABLE", body.Code)
}

func TestWriteError_UnknownErrorIsMasked(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)

	WriteError(rec, req, errors.New("pq: password authentication failed"), testLogger())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeErrorBody(t, rec)
	assert.Equal(t, GenericErrorMessage, body.Error)
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestWriteError_Sentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", fmt.Errorf("get: %w", apperrors.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"invalid input", fmt.Errorf("bad page: %w", apperrors.ErrInvalidInput), http.StatusBadRequest, "INVALID_INPUT"},
		{"unavailable", apperrors.ErrServiceUnavail, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			WriteError(rec, req, tt.err, testLogger())

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeErrorBody(t, rec).Code)
		})
	}
}

func TestWriteError_IncludesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.WithCorrelationID(req.Context(), "req-42"))

	WriteError(rec, req, apperrors.NotFound("product", "p-1"), nil)

	assert.Equal(t, "req-42", decodeErrorBody(t, rec).RequestID)
}

// --- WriteValidationError ---

type pageQuery struct {
	Page int `query:"page" validate:"gte=0"`
}

func TestWriteValidationError_WithFields(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	err := validator.Validate(pageQuery{Page: -3})
	require.Error(t, err)
	WriteValidationError(rec, req, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorBody(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Equal(t, "must be greater than or equal to 0", body.Fields["page"])
	assert.Equal(t, "page must be greater than or equal to 0", body.Error)
}

func TestWriteValidationError_PlainError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteValidationError(rec, req, errors.New("page must be a number"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorBody(t, rec)
	assert.Equal(t, "INVALID_INPUT", body.Code)
	assert.Equal(t, "page must be a number", body.Error)
	assert.Empty(t, body.Fields)
}
