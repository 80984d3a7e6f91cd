package repository

import (
	"context"
	"errors"

	"github.com/yangxb919/prspares-website/internal/catalog"
	"github.com/yangxb919/prspares-website/internal/domain"
)

// ErrCacheMiss is returned by caches when no entry exists.
var ErrCacheMiss = errors.New("cache miss")

// ProductFilter defines filter criteria for listing products. Page 0 lists
// every match.
type ProductFilter struct {
	Model   string
	Search  string
	Page    int
	PerPage int
}

// ProductRepository reads the product catalog.
type ProductRepository interface {
	// List returns products matching filter, newest first, with the total
	// number of matches.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)
	// Ping checks the backing store.
	Ping(ctx context.Context) error
}

// SessionRepository reads login sessions.
type SessionRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
}

// UserRepository reads user accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// CatalogCache stores catalog results keyed by normalized query.
type CatalogCache interface {
	Get(ctx context.Context, q catalog.Query) (*catalog.Result, error)
	Set(ctx context.Context, q catalog.Query, res *catalog.Result) error
	// Invalidate drops every cached result.
	Invalidate(ctx context.Context) error
}

// CachedUser is a user cached for one session.
type CachedUser struct {
	SessionID string       `json:"session_id"`
	User      *domain.User `json:"user"`
}

// UserCache is a derived cache of users by user id. Entries remember the
// session they were loaded for so callers can discard mismatches.
type UserCache interface {
	Get(ctx context.Context, userID string) (*CachedUser, error)
	Set(ctx context.Context, entry *CachedUser) error
	Delete(ctx context.Context, userID string) error
}
