package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/postboard/postboard/internal/model"
)

const (
	postKeyPrefix = "post:"

	// DefaultPostTTL bounds how long a post may be served from cache.
	DefaultPostTTL = 10 * time.Minute

	// postTombstone marks a recently invalidated post. It outlives any
	// in-flight read so that read cannot refill the key with stale data.
	postTombstone    = "-"
	postTombstoneTTL = 30 * time.Second
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// GetPost retrieves a post from cache by id.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetPost(ctx context.Context, id string) (*model.Post, error) {
	data, err := c.client.Get(ctx, postKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	if string(data) == postTombstone {
		return nil, ErrCacheMiss
	}

	var post model.Post
	if err := json.Unmarshal(data, &post); err != nil {
		// Unreadable entries are dropped and treated as a miss.
		c.client.Del(ctx, postKeyPrefix+id)
		return nil, ErrCacheMiss
	}
	return &post, nil
}

// SetPost stores post in cache unless the key is already held, either by a
// cached copy or by the tombstone of a recent DeletePost.
func (c *Cache) SetPost(ctx context.Context, post *model.Post) error {
	data, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("failed to encode post: %w", err)
	}

	if err := c.client.SetNX(ctx, postKeyPrefix+post.ID, data, c.postTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache post: %w", err)
	}
	return nil
}

// DeletePost invalidates the cached post by replacing it with a short-lived
// tombstone. Reads see a miss and fills are refused until it expires.
func (c *Cache) DeletePost(ctx context.Context, id string) error {
	if err := c.client.Set(ctx, postKeyPrefix+id, postTombstone, postTombstoneTTL).Err(); err != nil {
		return fmt.Errorf("failed to delete post from cache: %w", err)
	}
	return nil
}
