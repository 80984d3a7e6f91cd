package catalog

import (
	"context"
	"errors"
	"sync"

	"github.com/yangxb919/prspares-website/internal/domain"
)

// ErrSuperseded is returned by Fetch when a newer fetch was issued before this
// one resolved. Its result was discarded.
var ErrSuperseded = errors.New("catalog: fetch superseded by a newer request")

// ViewMode selects what the results region renders.
type ViewMode int

const (
	ViewGrid ViewMode = iota
	ViewEmpty
	ViewError
)

func (m ViewMode) String() string {
	switch m {
	case ViewEmpty:
		return "empty"
	case ViewError:
		return "error"
	default:
		return "grid"
	}
}

// BrowserState is a consistent copy of a Browser for rendering.
type BrowserState struct {
	SearchTerm       string
	SelectedCategory string
	CurrentPage      int
	TotalCount       int
	TotalPages       int
	Products         []domain.Product
	Visible          []domain.Product
	Pages            []PageItem
	Loading          bool
	Err              error
	View             ViewMode
}

// HasPrev reports whether a previous page exists.
func (s BrowserState) HasPrev() bool { return s.CurrentPage > 1 }

// HasNext reports whether a next page exists.
func (s BrowserState) HasNext() bool { return s.CurrentPage < s.TotalPages }

// Option configures a Browser.
type Option func(*Browser)

// WithServerPaging makes the browser request one page at a time instead of
// holding the whole filtered set.
func WithServerPaging() Option {
	return func(b *Browser) { b.serverPaging = true }
}

// WithPageSize overrides PageSize.
func WithPageSize(n int) Option {
	return func(b *Browser) {
		if n > 0 {
			b.pageSize = n
		}
	}
}

// WithInitialState seeds filters and page, e.g. from a page URL, without
// fetching.
func WithInitialState(search, category string, page int) Option {
	return func(b *Browser) {
		b.search = search
		b.category = category
		if page > 0 {
			b.page = page
		}
	}
}

// Browser holds the search, category and page state of the pricing grid and
// loads products through a Fetcher. Every fetch is tagged with a sequence
// number; only the response to the latest fetch is applied, so a slow, stale
// response never overwrites a newer one. It is safe for concurrent use.
type Browser struct {
	fetcher      Fetcher
	pageSize     int
	serverPaging bool

	mu       sync.Mutex
	seq      uint64
	search   string
	category string
	page     int
	products []domain.Product
	total    int
	loading  bool
	err      error
}

// NewBrowser creates a browser on page 1 with no filters.
func NewBrowser(f Fetcher, opts ...Option) *Browser {
	b := &Browser{fetcher: f, pageSize: PageSize, page: 1}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetSearch replaces the search term, returns to page 1 and fetches.
func (b *Browser) SetSearch(ctx context.Context, term string) error {
	b.mu.Lock()
	b.search = term
	b.page = 1
	b.mu.Unlock()
	return b.Fetch(ctx)
}

// ToggleCategory selects token, or clears the selection when token is already
// selected, then returns to page 1 and fetches.
func (b *Browser) ToggleCategory(ctx context.Context, token string) error {
	b.mu.Lock()
	if b.category == token {
		b.category = ""
	} else {
		b.category = token
	}
	b.page = 1
	b.mu.Unlock()
	return b.Fetch(ctx)
}

// GoToPage moves to page, clamped to the available pages. With the whole set
// held locally no fetch is made.
func (b *Browser) GoToPage(ctx context.Context, page int) error {
	b.mu.Lock()
	if !b.serverPaging {
		b.page = ClampPage(page, TotalPages(b.total, b.pageSize))
		b.mu.Unlock()
		return nil
	}
	if tp := TotalPages(b.total, b.pageSize); tp > 0 {
		page = ClampPage(page, tp)
	} else if page < 1 {
		page = 1
	}
	b.page = page
	b.mu.Unlock()
	return b.Fetch(ctx)
}

// Fetch loads products for the current filters. On success the product set is
// replaced and any error cleared; on failure the error is kept and the
// products are cleared. A response that is no longer the latest is dropped
// and ErrSuperseded returned.
func (b *Browser) Fetch(ctx context.Context) error {
	b.mu.Lock()
	b.seq++
	seq := b.seq
	q := Query{Model: b.category, Search: b.search}
	if b.serverPaging {
		q.Page = b.page
		q.PerPage = b.pageSize
	}
	b.loading = true
	b.mu.Unlock()

	res, err := b.fetcher.Fetch(ctx, q)
	if err == nil && res == nil {
		err = errors.New("catalog: empty response")
	}

	b.mu.Lock()
	if seq != b.seq {
		b.mu.Unlock()
		return ErrSuperseded
	}
	b.loading = false
	if err != nil {
		b.err = err
		b.products = nil
		b.total = 0
		b.page = 1
		b.mu.Unlock()
		return err
	}

	b.err = nil
	b.products = res.Products
	b.total = res.TotalCount
	if !q.Paged() {
		b.total = len(res.Products)
	}
	tp := TotalPages(b.total, b.pageSize)
	clamped := ClampPage(b.page, tp)
	refetch := b.serverPaging && clamped != b.page
	b.page = clamped
	b.mu.Unlock()

	if refetch {
		// The requested page was past the end; load the last one instead.
		return b.Fetch(ctx)
	}
	return nil
}

// Snapshot returns the current state.
func (b *Browser) Snapshot() BrowserState {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := BrowserState{
		SearchTerm:       b.search,
		SelectedCategory: b.category,
		CurrentPage:      b.page,
		TotalCount:       b.total,
		TotalPages:       TotalPages(b.total, b.pageSize),
		Products:         append([]domain.Product(nil), b.products...),
		Loading:          b.loading,
		Err:              b.err,
	}
	if b.serverPaging {
		s.Visible = s.Products
	} else {
		s.Visible = Paginate(s.Products, s.CurrentPage, b.pageSize)
	}
	s.Pages = PageWindow(s.CurrentPage, s.TotalPages)

	switch {
	case s.Err != nil:
		s.View = ViewError
	case s.TotalCount == 0:
		s.View = ViewEmpty
	default:
		s.View = ViewGrid
	}
	return s
}
