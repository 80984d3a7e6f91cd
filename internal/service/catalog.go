package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yangxb919/prspares-website/internal/catalog"
	"github.com/yangxb919/prspares-website/internal/domain"
	"github.com/yangxb919/prspares-website/internal/repository"
	"github.com/yangxb919/prspares-website/pkg/pagination"
)

// SearchPublisher records filtered catalog reads.
type SearchPublisher interface {
	PublishCatalogSearched(ctx context.Context, q catalog.Query, totalCount int) error
}

// CatalogService implements the catalog read path.
type CatalogService struct {
	repo   repository.ProductRepository
	cache  repository.CatalogCache
	events SearchPublisher
	logger *slog.Logger
}

// NewCatalogService creates a CatalogService. cache and events may be nil.
func NewCatalogService(
	repo repository.ProductRepository,
	cache repository.CatalogCache,
	events SearchPublisher,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		repo:   repo,
		cache:  cache,
		events: events,
		logger: logger,
	}
}

func normalizeQuery(q catalog.Query) catalog.Query {
	q = q.Normalize()
	if q.Paged() {
		if q.PerPage <= 0 {
			q.PerPage = catalog.PageSize
		}
		if q.PerPage > pagination.MaxPerPage {
			q.PerPage = pagination.MaxPerPage
		}
	}
	return q
}

// ListProducts returns the products matching q, newest first. An unpaged
// query returns every match. Results are read through the catalog cache
// when one is configured; cache failures fall back to the database.
func (s *CatalogService) ListProducts(ctx context.Context, q catalog.Query) (*catalog.Result, error) {
	q = normalizeQuery(q)

	res := s.cached(ctx, q)
	if res == nil {
		var err error
		res, err = s.load(ctx, q)
		if err != nil {
			return nil, err
		}
		s.store(ctx, q, res)
	}

	if q.Search != "" || q.Model != "" {
		s.publishSearched(ctx, q, res.TotalCount)
	}
	return res, nil
}

func (s *CatalogService) cached(ctx context.Context, q catalog.Query) *catalog.Result {
	if s.cache == nil {
		return nil
	}
	res, err := s.cache.Get(ctx, q)
	if err != nil {
		if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.WarnContext(ctx, "catalog cache read failed", slog.String("error", err.Error()))
		}
		return nil
	}
	return res
}

func (s *CatalogService) store(ctx context.Context, q catalog.Query, res *catalog.Result) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, q, res); err != nil {
		s.logger.WarnContext(ctx, "catalog cache write failed", slog.String("error", err.Error()))
	}
}

func (s *CatalogService) load(ctx context.Context, q catalog.Query) (*catalog.Result, error) {
	products, total, err := s.repo.List(ctx, repository.ProductFilter{
		Model:   q.Model,
		Search:  q.Search,
		Page:    q.Page,
		PerPage: q.PerPage,
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []domain.Product{}
	}

	res := &catalog.Result{Products: products, TotalCount: total}
	if q.Paged() {
		res.Page = q.Page
		res.PerPage = q.PerPage
		res.TotalPages = catalog.TotalPages(total, q.PerPage)
	}
	return res, nil
}

func (s *CatalogService) publishSearched(ctx context.Context, q catalog.Query, total int) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishCatalogSearched(ctx, q, total); err != nil {
		s.logger.WarnContext(ctx, "failed to publish catalog.searched", slog.String("error", err.Error()))
	}
}

// InvalidateCache drops every cached catalog result.
func (s *CatalogService) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "catalog cache invalidated")
	return nil
}

// Ping checks the product store.
func (s *CatalogService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
