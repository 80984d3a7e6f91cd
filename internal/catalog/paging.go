package catalog

import "github.com/yangxb919/prspares-website/pkg/pagination"

// PageSize is the number of products per page in the grid.
const PageSize = 24

// PageItem is one cell of the pagination control.
type PageItem = pagination.Item

// TotalPages returns ceil(total/size), 0 for an empty catalog.
func TotalPages(total, size int) int {
	return pagination.TotalPages(total, size)
}

// ClampPage keeps page within [1, totalPages]; 1 when there are no pages.
func ClampPage(page, totalPages int) int {
	return pagination.Clamp(page, totalPages)
}

// Paginate returns items[(page-1)*size : min(page*size, len(items))].
func Paginate[T any](items []T, page, size int) []T {
	return pagination.Slice(items, page, size)
}

// PageWindow returns the page-number control for current out of totalPages.
func PageWindow(current, totalPages int) []PageItem {
	return pagination.Window(current, totalPages)
}
