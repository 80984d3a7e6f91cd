package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yangxb919/prspares-website/internal/catalog"
	"github.com/yangxb919/prspares-website/internal/domain"
	"github.com/yangxb919/prspares-website/internal/repository"
)

// --- Mocks ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockCatalogCache struct {
	mock.Mock
}

func (m *mockCatalogCache) Get(ctx context.Context, q catalog.Query) (*catalog.Result, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Result), args.Error(1)
}

func (m *mockCatalogCache) Set(ctx context.Context, q catalog.Query, res *catalog.Result) error {
	return m.Called(ctx, q, res).Error(0)
}

func (m *mockCatalogCache) Invalidate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockSearchPublisher struct {
	mock.Mock
}

func (m *mockSearchPublisher) PublishCatalogSearched(ctx context.Context, q catalog.Query, totalCount int) error {
	return m.Called(ctx, q, totalCount).Error(0)
}

// --- Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	repo   *mockProductRepository
	cache  *mockCatalogCache
	events *mockSearchPublisher
	svc    *CatalogService
}

func newFixture() *fixture {
	f := &fixture{
		repo:   new(mockProductRepository),
		cache:  new(mockCatalogCache),
		events: new(mockSearchPublisher),
	}
	f.svc = NewCatalogService(f.repo, f.cache, f.events, newTestLogger())
	return f
}

func strPtr(s string) *string { return &s }

func products(n int) []domain.Product {
	out := make([]domain.Product, n)
	for i := range out {
		out[i] = domain.Product{ID: string(rune('a' + i)), Title: strPtr("Part")}
	}
	return out
}

// --- Tests ---

func TestListProducts_CacheMissLoadsAndStores(t *testing.T) {
	f := newFixture()
	q := catalog.Query{Page: 2}
	want := catalog.Query{Page: 2, PerPage: catalog.PageSize}

	f.cache.On("Get", mock.Anything, want).Return(nil, repository.ErrCacheMiss)
	f.repo.On("List", mock.Anything, repository.ProductFilter{Page: 2, PerPage: 24}).Return(products(3), 27, nil)
	f.cache.On("Set", mock.Anything, want, mock.AnythingOfType("*catalog.Result")).Return(nil)

	res, err := f.svc.ListProducts(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, res.Products, 3)
	assert.Equal(t, 27, res.TotalCount)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 24, res.PerPage)
	assert.Equal(t, 2, res.TotalPages)

	f.repo.AssertExpectations(t)
	f.cache.AssertExpectations(t)
	f.events.AssertNotCalled(t, "PublishCatalogSearched", mock.Anything, mock.Anything, mock.Anything)
}

func TestListProducts_CacheHitSkipsRepository(t *testing.T) {
	f := newFixture()
	cached := &catalog.Result{Products: products(1), TotalCount: 1}

	f.cache.On("Get", mock.Anything, catalog.Query{}).Return(cached, nil)

	res, err := f.svc.ListProducts(context.Background(), catalog.Query{PerPage: 50})
	require.NoError(t, err)
	assert.Same(t, cached, res)
	f.repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestListProducts_CacheErrorsBypassed(t *testing.T) {
	f := newFixture()

	f.cache.On("Get", mock.Anything, mock.Anything).Return(nil, errors.New("redis down"))
	f.repo.On("List", mock.Anything, mock.Anything).Return(products(2), 2, nil)
	f.cache.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

	res, err := f.svc.ListProducts(context.Background(), catalog.Query{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalCount)
	assert.Zero(t, res.Page)
	assert.Zero(t, res.TotalPages)
}

func TestListProducts_NormalizesFilters(t *testing.T) {
	f := newFixture()
	svc := NewCatalogService(f.repo, nil, f.events, newTestLogger())
	want := catalog.Query{Model: "samsung", Search: "battery", Page: 1, PerPage: 100}

	f.repo.On("List", mock.Anything, repository.ProductFilter{Model: "samsung", Search: "battery", Page: 1, PerPage: 100}).
		Return(products(1), 1, nil)
	f.events.On("PublishCatalogSearched", mock.Anything, want, 1).Return(nil)

	_, err := svc.ListProducts(context.Background(), catalog.Query{Model: " Samsung", Search: " battery ", Page: 1, PerPage: 500})
	require.NoError(t, err)
	f.repo.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestListProducts_PublishFailureIsNotFatal(t *testing.T) {
	f := newFixture()

	f.cache.On("Get", mock.Anything, mock.Anything).Return(nil, repository.ErrCacheMiss)
	f.repo.On("List", mock.Anything, mock.Anything).Return(products(0), 0, nil)
	f.cache.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.events.On("PublishCatalogSearched", mock.Anything, mock.Anything, 0).Return(errors.New("broker down"))

	res, err := f.svc.ListProducts(context.Background(), catalog.Query{Search: "hinge"})
	require.NoError(t, err)
	assert.NotNil(t, res.Products)
	assert.Empty(t, res.Products)
	f.events.AssertExpectations(t)
}

func TestListProducts_RepositoryError(t *testing.T) {
	f := newFixture()

	f.cache.On("Get", mock.Anything, mock.Anything).Return(nil, repository.ErrCacheMiss)
	f.repo.On("List", mock.Anything, mock.Anything).Return(nil, 0, errors.New("connection refused"))

	res, err := f.svc.ListProducts(context.Background(), catalog.Query{})
	assert.Nil(t, res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list products")
	f.cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}

func TestListProducts_NilRepositorySliceBecomesEmpty(t *testing.T) {
	f := newFixture()
	svc := NewCatalogService(f.repo, nil, nil, newTestLogger())
	f.repo.On("List", mock.Anything, mock.Anything).Return(nil, 0, nil)

	res, err := svc.ListProducts(context.Background(), catalog.Query{Model: "oppo"})
	require.NoError(t, err)
	assert.NotNil(t, res.Products)
}

func TestInvalidateCache(t *testing.T) {
	f := newFixture()
	f.cache.On("Invalidate", mock.Anything).Return(nil).Once()
	require.NoError(t, f.svc.InvalidateCache(context.Background()))

	f.cache.On("Invalidate", mock.Anything).Return(errors.New("redis down")).Once()
	assert.Error(t, f.svc.InvalidateCache(context.Background()))

	noCache := NewCatalogService(f.repo, nil, nil, newTestLogger())
	assert.NoError(t, noCache.InvalidateCache(context.Background()))
}
