package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/yangxb919/prspares-website/internal/catalog"
	"github.com/yangxb919/prspares-website/internal/repository"
)

const (
	catalogKeyPrefix  = "catalog:"
	catalogVersionKey = catalogKeyPrefix + "version"
)

var catalogCacheRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "prspares_catalog_cache_requests_total",
		Help: "Catalog cache lookups by result (hit, miss).",
	},
	[]string{"result"},
)

// CatalogCache implements repository.CatalogCache using Redis. Keys embed a
// namespace version; Invalidate bumps the version so stale entries are never
// read again and expire on their own TTL.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCatalogCache creates a new Redis-backed catalog cache. A zero ttl
// disables caching.
func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *CatalogCache) version(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, catalogVersionKey).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get catalog version: %w", err)
	}
	return v, nil
}

func catalogKey(version int64, q catalog.Query) string {
	q = q.Normalize()
	v := url.Values{}
	v.Set("model", q.Model)
	v.Set("search", q.Search)
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("per_page", strconv.Itoa(q.PerPage))
	return catalogKeyPrefix + "v" + strconv.FormatInt(version, 10) + ":" + v.Encode()
}

// Get returns the cached result for q or repository.ErrCacheMiss.
func (c *CatalogCache) Get(ctx context.Context, q catalog.Query) (*catalog.Result, error) {
	if c.ttl <= 0 {
		return nil, repository.ErrCacheMiss
	}

	version, err := c.version(ctx)
	if err != nil {
		return nil, err
	}

	data, err := c.client.Get(ctx, catalogKey(version, q)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			catalogCacheRequests.WithLabelValues("miss").Inc()
			return nil, repository.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get catalog: %w", err)
	}

	var res catalog.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("unmarshal catalog result: %w", err)
	}
	catalogCacheRequests.WithLabelValues("hit").Inc()
	return &res, nil
}

// Set stores res for q with the configured TTL.
func (c *CatalogCache) Set(ctx context.Context, q catalog.Query, res *catalog.Result) error {
	if c.ttl <= 0 {
		return nil
	}

	version, err := c.version(ctx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal catalog result: %w", err)
	}

	if err := c.client.Set(ctx, catalogKey(version, q), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set catalog: %w", err)
	}
	return nil
}

// Invalidate starts a new key namespace.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, catalogVersionKey).Err(); err != nil {
		return fmt.Errorf("redis incr catalog version: %w", err)
	}
	return nil
}
