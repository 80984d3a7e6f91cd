package catalog

import (
	"context"
	"strings"

	"github.com/yangxb919/prspares-website/internal/domain"
)

// Query selects products from the catalog data endpoint. Page 0 asks for the
// whole filtered set.
type Query struct {
	Model   string `json:"model,omitempty"`
	Search  string `json:"search,omitempty"`
	Page    int    `json:"page,omitempty"`
	PerPage int    `json:"per_page,omitempty"`
}

// Normalize trims the filters and clears PerPage on unpaged queries, so equal
// queries compare and cache equally.
func (q Query) Normalize() Query {
	q.Model = strings.ToLower(strings.TrimSpace(q.Model))
	q.Search = strings.TrimSpace(q.Search)
	if q.Page <= 0 {
		q.Page = 0
		q.PerPage = 0
	}
	return q
}

// Paged reports whether q asks for a single page.
func (q Query) Paged() bool {
	return q.Page > 0
}

// Result is the body of a successful catalog response.
type Result struct {
	Products   []domain.Product `json:"products"`
	TotalCount int              `json:"total_count"`
	Page       int              `json:"page,omitempty"`
	PerPage    int              `json:"per_page,omitempty"`
	TotalPages int              `json:"total_pages,omitempty"`
}

// Fetcher loads products for a query.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) (*Result, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, q Query) (*Result, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, q Query) (*Result, error) {
	return f(ctx, q)
}
