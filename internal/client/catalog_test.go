package client

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yangxb919/prspares-website/internal/catalog"
	apperrors "github.com/yangxb919/prspares-website/pkg/errors"
	"github.com/yangxb919/prspares-website/pkg/httpclient"
	"github.com/yangxb919/prspares-website/pkg/logger"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, name string) *CatalogClient {
	t.Helper()
	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	cfg.Timeout = 2 * time.Second
	cb := httpclient.DefaultCircuitBreakerConfig(name)
	return NewCatalogClient(httpclient.NewCircuitBreakerClient(httpclient.New(cfg), cb, discardLogger()), "", discardLogger())
}

func TestCatalogClient_Fetch(t *testing.T) {
	var gotURL, gotCacheControl, gotCorrelation string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		gotCacheControl = r.Header.Get("Cache-Control")
		gotCorrelation = r.Header.Get("X-Correlation-ID")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"products":[{"id":"p1","title":"Pixel 7 Screen","specs":{"price":59,"model":"google-pixel"},"images":[]}],"total_count":30,"page":2,"per_page":24,"total_pages":2}`)
	}))
	defer srv.Close()

	c := newTestClient(t, t.Name())
	ctx := logger.WithCorrelationID(context.Background(), "corr-42")

	res, err := c.Fetch(ctx, srv.URL, catalog.Query{Model: "Google-Pixel", Search: "screen", Page: 2, PerPage: 24})
	require.NoError(t, err)
	assert.Equal(t, "/api/products?model=google-pixel&page=2&per_page=24&search=screen", gotURL)
	assert.Equal(t, "no-store", gotCacheControl)
	assert.Equal(t, "corr-42", gotCorrelation)

	require.Len(t, res.Products, 1)
	assert.Equal(t, "p1", res.Products[0].ID)
	assert.Equal(t, 30, res.TotalCount)
	assert.Equal(t, 2, res.TotalPages)
}

func TestCatalogClient_Fetch_ErrorMessage(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantMsg    string
		wantStatus int
	}{
		{"bad request", http.StatusBadRequest, `{"error":"page must be at least 1"}`, "page must be at least 1", http.StatusBadRequest},
		{"server error", http.StatusInternalServerError, `{"error":"database unavailable"}`, "database unavailable", http.StatusServiceUnavailable},
		{"plain text", http.StatusBadGateway, "upstream exploded", "upstream exploded", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestClient(t, t.Name()).Fetch(context.Background(), srv.URL, catalog.Query{})
			require.Error(t, err)

			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.wantMsg, appErr.Message)
			assert.Equal(t, tt.wantStatus, appErr.Status)
		})
	}
}

func TestCatalogClient_Fetch_MalformedJSON(t *testing.T) {
	for name, body := range map[string]string{
		"truncated":        `{"products":[`,
		"missing products": `{"total_count":3}`,
		"html":             `<html>oops</html>`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			}))
			defer srv.Close()

			_, err := newTestClient(t, t.Name()).Fetch(context.Background(), srv.URL, catalog.Query{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "decode catalog response")
		})
	}
}

func TestCatalogClient_Fetch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, t.Name()).Fetch(context.Background(), url, catalog.Query{})
	assert.Error(t, err)
}

func TestCatalogClient_For_UsesBaseURL(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, `{"products":[],"total_count":0}`)
	}))
	defer srv.Close()

	cfg := httpclient.DefaultConfig()
	cb := httpclient.DefaultCircuitBreakerConfig(t.Name())
	c := NewCatalogClient(httpclient.NewCircuitBreakerClient(httpclient.New(cfg), cb, discardLogger()), srv.URL+"/", discardLogger())

	page := httptest.NewRequest(http.MethodGet, "http://elsewhere.invalid/pricing", nil)
	res, err := c.For(page).Fetch(context.Background(), catalog.Query{})
	require.NoError(t, err)
	assert.Empty(t, res.Products)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCatalogClient_For_ForwardsCredentials(t *testing.T) {
	var gotCookie, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"products":[],"total_count":0}`)
	}))
	defer srv.Close()

	page := httptest.NewRequest(http.MethodGet, srv.URL+"/pricing", nil)
	page.Host = srv.Listener.Addr().String()
	page.AddCookie(&http.Cookie{Name: "prs_session", Value: "tok-1"})
	page.Header.Set("Authorization", "Bearer tok-2")
	page.Header.Set("X-Other", "not forwarded")

	_, err := newTestClient(t, t.Name()).For(page).Fetch(context.Background(), catalog.Query{})
	require.NoError(t, err)
	assert.Equal(t, "prs_session=tok-1", gotCookie)
	assert.Equal(t, "Bearer tok-2", gotAuth)
}

func TestCatalogClient_Fetch_SendsNoCredentials(t *testing.T) {
	var gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		_, _ = io.WriteString(w, `{"products":[],"total_count":0}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, t.Name()).Fetch(context.Background(), srv.URL, catalog.Query{})
	require.NoError(t, err)
	assert.Empty(t, gotCookie)
}

func TestCredentials(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/pricing", nil)
	r.Header.Set("Cookie", "a=1")
	r.Header.Set("Accept", "text/html")

	h := Credentials(r)
	assert.Equal(t, "a=1", h.Get("Cookie"))
	assert.Empty(t, h.Get("Authorization"))
	assert.Empty(t, h.Get("Accept"))
}

func TestEncodeQuery(t *testing.T) {
	tests := []struct {
		q    catalog.Query
		want string
	}{
		{catalog.Query{}, ""},
		{catalog.Query{PerPage: 24}, ""},
		{catalog.Query{Search: "  oled "}, "search=oled"},
		{catalog.Query{Model: "IPHONE", Page: 1}, "model=iphone&page=1"},
		{catalog.Query{Search: "a&b", Page: 3, PerPage: 10}, "page=3&per_page=10&search=a%26b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EncodeQuery(tt.q))
	}
}

func TestRequestOrigin(t *testing.T) {
	plain := httptest.NewRequest(http.MethodGet, "http://shop.example:8080/pricing", nil)
	assert.Equal(t, "http://shop.example:8080", RequestOrigin(plain))

	secure := httptest.NewRequest(http.MethodGet, "https://shop.example/pricing", nil)
	secure.TLS = &tls.ConnectionState{}
	assert.Equal(t, "https://shop.example", RequestOrigin(secure))

	proxied := httptest.NewRequest(http.MethodGet, "http://10.0.0.5:8080/pricing", nil)
	proxied.Header.Set("X-Forwarded-Proto", "https, http")
	proxied.Header.Set("X-Forwarded-Host", "www.prsparts.example")
	assert.Equal(t, "https://www.prsparts.example", RequestOrigin(proxied))

	bogus := httptest.NewRequest(http.MethodGet, "http://shop.example/pricing", nil)
	bogus.Header.Set("X-Forwarded-Proto", "gopher")
	assert.Equal(t, "http://shop.example", RequestOrigin(bogus))
}
