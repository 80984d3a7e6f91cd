package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/yangxb919/prspares-website/internal/catalog"
	"github.com/yangxb919/prspares-website/pkg/httpclient"
	"github.com/yangxb919/prspares-website/pkg/logger"
)

// ServiceName names the catalog endpoint in errors and breaker metrics.
const ServiceName = "catalog-api"

// ProductsPath is the catalog data endpoint.
const ProductsPath = "/api/products"

const maxResponseBody = 16 << 20

// Doer executes HTTP requests. *httpclient.CircuitBreakerClient implements it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// CatalogClient fetches catalog pages from the products endpoint.
type CatalogClient struct {
	http    Doer
	baseURL string
	logger  *slog.Logger
}

// NewCatalogClient creates a client. An empty baseURL resolves the origin
// from each incoming request.
func NewCatalogClient(doer Doer, baseURL string, logger *slog.Logger) *CatalogClient {
	return &CatalogClient{
		http:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// For returns a Fetcher that calls the endpoint on the origin serving r.
// The visitor's session cookie and bearer token are sent along, since the
// endpoint admits signed-in users only.
func (c *CatalogClient) For(r *http.Request) catalog.Fetcher {
	origin := c.baseURL
	if origin == "" {
		origin = RequestOrigin(r)
	}
	creds := Credentials(r)
	return catalog.FetcherFunc(func(ctx context.Context, q catalog.Query) (*catalog.Result, error) {
		return c.fetch(ctx, origin, q, creds)
	})
}

// Fetch requests one catalog result from origin. Non-2xx responses become
// errors carrying the endpoint's error message.
func (c *CatalogClient) Fetch(ctx context.Context, origin string, q catalog.Query) (*catalog.Result, error) {
	return c.fetch(ctx, origin, q, nil)
}

func (c *CatalogClient) fetch(ctx context.Context, origin string, q catalog.Query, creds http.Header) (*catalog.Result, error) {
	endpoint := strings.TrimRight(origin, "/") + ProductsPath
	if qs := EncodeQuery(q); qs != "" {
		endpoint += "?" + qs
	}

	header := creds.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set("Accept", "application/json")
	header.Set("Cache-Control", "no-store")
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		header.Set("X-Correlation-ID", id)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(header))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create catalog request: %w", err)
	}
	req.Header = header

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, httpclient.FromError(err, ServiceName)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, httpclient.ParseResponseError(resp, ServiceName)
	}
	defer func() { _ = resp.Body.Close() }()

	var res catalog.Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}
	if res.Products == nil {
		return nil, fmt.Errorf("decode catalog response: missing products")
	}

	c.logger.DebugContext(ctx, "catalog fetched",
		slog.String("url", endpoint),
		slog.Int("products", len(res.Products)),
		slog.Int("total_count", res.TotalCount),
	)
	return &res, nil
}

// EncodeQuery renders q as the endpoint's query string. Empty filters are
// omitted.
func EncodeQuery(q catalog.Query) string {
	q = q.Normalize()
	v := url.Values{}
	if q.Model != "" {
		v.Set("model", q.Model)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Paged() {
		v.Set("page", strconv.Itoa(q.Page))
		if q.PerPage > 0 {
			v.Set("per_page", strconv.Itoa(q.PerPage))
		}
	}
	return v.Encode()
}

// Credentials returns the Cookie and Authorization headers of r.
func Credentials(r *http.Request) http.Header {
	h := http.Header{}
	for _, name := range []string{"Cookie", "Authorization"} {
		for _, v := range r.Header.Values(name) {
			h.Add(name, v)
		}
	}
	return h
}

// RequestOrigin returns scheme://host of the origin that served r, honouring
// X-Forwarded-Proto and X-Forwarded-Host.
func RequestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := firstValue(r.Header.Get("X-Forwarded-Proto")); proto == "http" || proto == "https" {
		scheme = proto
	}

	host := r.Host
	if fwd := firstValue(r.Header.Get("X-Forwarded-Host")); fwd != "" {
		host = fwd
	}
	return scheme + "://" + host
}

func firstValue(h string) string {
	v, _, _ := strings.Cut(h, ",")
	return strings.ToLower(strings.TrimSpace(v))
}
