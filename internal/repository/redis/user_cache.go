package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yangxb919/prspares-website/internal/repository"
)

const userKeyPrefix = "user:"

// UserCache implements repository.UserCache using Redis.
type UserCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewUserCache creates a new Redis-backed user cache.
func NewUserCache(client *redis.Client, ttl time.Duration) *UserCache {
	return &UserCache{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves the cached user for userID or repository.ErrCacheMiss.
func (c *UserCache) Get(ctx context.Context, userID string) (*repository.CachedUser, error) {
	data, err := c.client.Get(ctx, userKeyPrefix+userID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get user: %w", err)
	}

	var entry repository.CachedUser
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal cached user: %w", err)
	}
	if entry.User == nil {
		return nil, repository.ErrCacheMiss
	}
	return &entry, nil
}

// Set caches entry under its user id.
func (c *UserCache) Set(ctx context.Context, entry *repository.CachedUser) error {
	if entry == nil || entry.User == nil {
		return errors.New("cache user: nil user")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cached user: %w", err)
	}

	if err := c.client.Set(ctx, userKeyPrefix+entry.User.ID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set user: %w", err)
	}
	return nil
}

// Delete removes the cached user.
func (c *UserCache) Delete(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, userKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("redis del user: %w", err)
	}
	return nil
}
