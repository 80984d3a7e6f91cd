package pagination

import (
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/yangxb919/prspares-website/pkg/errors"
)

// MaxPerPage caps the page size a caller may request.
const MaxPerPage = 100

// Params holds the page and per_page query parameters. Zero means the
// parameter was absent; a missing page asks for the whole set.
type Params struct {
	Page    int
	PerPage int
}

// FromQuery reads page and per_page from values. A present value that is not
// a positive integer is an InvalidInput error.
func FromQuery(values url.Values) (Params, error) {
	var p Params
	for _, f := range []struct {
		name string
		dst  *int
	}{{"page", &p.Page}, {"per_page", &p.PerPage}} {
		raw := strings.TrimSpace(values.Get(f.name))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return Params{}, apperrors.InvalidInput(f.name + " must be a positive integer")
		}
		*f.dst = v
	}
	return p, nil
}

// TotalPages returns ceil(total/perPage), or 0 for an empty set.
func TotalPages(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	pages := total / perPage
	if total%perPage > 0 {
		pages++
	}
	return pages
}

// Clamp keeps page within [1, totalPages]. With no pages it returns 1.
func Clamp(page, totalPages int) int {
	if totalPages < 1 || page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Slice returns the items that belong to page, which must be 1-based.
func Slice[T any](items []T, page, perPage int) []T {
	if page < 1 || perPage <= 0 {
		return nil
	}
	start := (page - 1) * perPage
	if start >= len(items) {
		return []T{}
	}
	end := min(start+perPage, len(items))
	return items[start:end]
}

// Item is one cell of a pagination control: either a page number or a gap.
type Item struct {
	Page     int  `json:"page,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
	Current  bool `json:"current,omitempty"`
}

// Window returns the pagination control for current out of totalPages. It shows
// the first and last page and the current page with its immediate neighbours.
// Any run of hidden pages collapses into one ellipsis.
func Window(current, totalPages int) []Item {
	if totalPages < 1 {
		return nil
	}
	current = Clamp(current, totalPages)

	items := make([]Item, 0, 7)
	prev := 0
	for _, p := range []int{1, current - 1, current, current + 1, totalPages} {
		if p < 1 || p > totalPages || p <= prev {
			continue
		}
		if prev > 0 && p > prev+1 {
			items = append(items, Item{Ellipsis: true})
		}
		items = append(items, Item{Page: p, Current: p == current})
		prev = p
	}
	return items
}
