package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yangxb919/prspares-website/internal/catalog"
	"github.com/yangxb919/prspares-website/internal/domain"
	"github.com/yangxb919/prspares-website/pkg/httputil"
	"github.com/yangxb919/prspares-website/pkg/pagination"
	"github.com/yangxb919/prspares-website/pkg/validator"
)

// ProductLister reads catalog results. *service.CatalogService implements it.
type ProductLister interface {
	ListProducts(ctx context.Context, q catalog.Query) (*catalog.Result, error)
}

// ProductHandler handles the catalog data endpoints.
type ProductHandler struct {
	service ProductLister
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc ProductLister, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request / response DTOs ---

// ListProductsRequest holds the query parameters of GET /api/products.
type ListProductsRequest struct {
	Model   string `query:"model" validate:"max=64"`
	Search  string `query:"search" validate:"max=200"`
	Page    int    `query:"page" validate:"omitempty,min=1"`
	PerPage int    `query:"per_page" validate:"omitempty,min=1,max=100"`
}

// ListProductsResponse is the body of an unpaged listing.
type ListProductsResponse struct {
	Products   []domain.Product `json:"products"`
	TotalCount int              `json:"total_count"`
}

// PagedProductsResponse is the body of a paged listing.
type PagedProductsResponse struct {
	Products   []domain.Product `json:"products"`
	TotalCount int              `json:"total_count"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`
	TotalPages int              `json:"total_pages"`
}

// ModelsResponse is the body of GET /api/models.
type ModelsResponse struct {
	Models []catalog.Category `json:"models"`
}

func parseListProductsRequest(r *http.Request) (ListProductsRequest, error) {
	q := r.URL.Query()
	p, err := pagination.FromQuery(q)
	if err != nil {
		return ListProductsRequest{}, err
	}
	return ListProductsRequest{
		Model:   strings.TrimSpace(q.Get("model")),
		Search:  strings.TrimSpace(q.Get("search")),
		Page:    p.Page,
		PerPage: p.PerPage,
	}, nil
}

// --- Handlers ---

// ListProducts handles GET /api/products. Without page every match is
// returned; with page one page of per_page (default 24) products.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	httputil.WriteNoStore(w)

	req, err := parseListProductsRequest(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	res, err := h.service.ListProducts(r.Context(), catalog.Query{
		Model:   req.Model,
		Search:  req.Search,
		Page:    req.Page,
		PerPage: req.PerPage,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if req.Page == 0 {
		httputil.WriteJSON(w, http.StatusOK, ListProductsResponse{
			Products:   res.Products,
			TotalCount: res.TotalCount,
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PagedProductsResponse{
		Products:   res.Products,
		TotalCount: res.TotalCount,
		Page:       res.Page,
		PerPage:    res.PerPage,
		TotalPages: res.TotalPages,
	})
}

// ListModels handles GET /api/models.
func (h *ProductHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=300")
	httputil.WriteJSON(w, http.StatusOK, ModelsResponse{Models: catalog.Categories})
}
