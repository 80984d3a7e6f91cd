package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yangxb919/prspares-website/internal/catalog"
	"github.com/yangxb919/prspares-website/internal/domain"
)

type mockProductLister struct {
	mock.Mock
}

func (m *mockProductLister) ListProducts(ctx context.Context, q catalog.Query) (*catalog.Result, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Result), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func sampleProducts(n int) []domain.Product {
	out := make([]domain.Product, n)
	for i := range out {
		out[i] = domain.Product{
			ID:     "prod-" + string(rune('a'+i)),
			Title:  strPtr("Screen " + string(rune('A'+i))),
			Specs:  domain.Specs{"price": 10.0 + float64(i)},
			Images: []string{"https://cdn.example.com/" + string(rune('a'+i)) + ".jpg"},
		}
	}
	return out
}

func serveProducts(t *testing.T, lister ProductLister, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	h := NewProductHandler(lister, newTestLogger())
	rec := httptest.NewRecorder()
	h.ListProducts(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestListProducts_Unpaged(t *testing.T) {
	lister := new(mockProductLister)
	lister.On("ListProducts", mock.Anything, catalog.Query{Model: "iphone"}).
		Return(&catalog.Result{Products: sampleProducts(3), TotalCount: 3}, nil)

	rec, body := serveProducts(t, lister, "/api/products?model=iphone")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Len(t, body["products"], 3)
	assert.Equal(t, float64(3), body["total_count"])
	assert.NotContains(t, body, "page")
	assert.NotContains(t, body, "total_pages")
	lister.AssertExpectations(t)
}

func TestListProducts_Paged(t *testing.T) {
	lister := new(mockProductLister)
	lister.On("ListProducts", mock.Anything, catalog.Query{Search: "battery", Page: 2, PerPage: 10}).
		Return(&catalog.Result{Products: sampleProducts(2), TotalCount: 12, Page: 2, PerPage: 10, TotalPages: 2}, nil)

	rec, body := serveProducts(t, lister, "/api/products?search=battery&page=2&per_page=10")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(12), body["total_count"])
	assert.Equal(t, float64(2), body["page"])
	assert.Equal(t, float64(10), body["per_page"])
	assert.Equal(t, float64(2), body["total_pages"])
}

func TestListProducts_PagedEmptyKeepsPagingFields(t *testing.T) {
	lister := new(mockProductLister)
	lister.On("ListProducts", mock.Anything, mock.Anything).
		Return(&catalog.Result{Products: []domain.Product{}, Page: 1, PerPage: 24}, nil)

	_, body := serveProducts(t, lister, "/api/products?page=1")

	assert.Equal(t, []any{}, body["products"])
	assert.Equal(t, float64(0), body["total_pages"])
}

func TestListProducts_InvalidInput(t *testing.T) {
	long := make([]byte, 201)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name   string
		target string
	}{
		{"page not a number", "/api/products?page=two"},
		{"page zero", "/api/products?page=0"},
		{"page negative", "/api/products?page=-2"},
		{"per_page not a number", "/api/products?page=1&per_page=lots"},
		{"per_page too large", "/api/products?page=1&per_page=101"},
		{"search too long", "/api/products?search=" + string(long)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := new(mockProductLister)
			rec, body := serveProducts(t, lister, tt.target)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, body["error"])
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
			lister.AssertNotCalled(t, "ListProducts", mock.Anything, mock.Anything)
		})
	}
}

func TestListProducts_BadPageNamesParameter(t *testing.T) {
	lister := new(mockProductLister)
	rec, body := serveProducts(t, lister, "/api/products?per_page=0")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", body["code"])
	assert.Equal(t, "per_page must be a positive integer", body["error"])
}

func TestListProducts_ServiceError(t *testing.T) {
	lister := new(mockProductLister)
	lister.On("ListProducts", mock.Anything, mock.Anything).Return(nil, errors.New("pq: connection refused"))

	rec, body := serveProducts(t, lister, "/api/products")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "an internal error occurred", body["error"])
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestListModels(t *testing.T) {
	h := NewProductHandler(new(mockProductLister), newTestLogger())
	rec := httptest.NewRecorder()
	h.ListModels(rec, httptest.NewRequest(http.MethodGet, "/api/models", nil))

	var body ModelsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, catalog.Categories, body.Models)
}
