package search

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"github.com/masahif/sitesearch/internal/config"
	"github.com/masahif/sitesearch/internal/logging"
)

const keyPrefix = "search:"

// Cache stores search responses by key. Get and Set never fail: a broken
// backend degrades to a miss.
type Cache interface {
	Get(ctx context.Context, key string) (*Response, bool)
	Set(ctx context.Context, key string, resp *Response)
	// Invalidate drops every cached response
	Invalidate(ctx context.Context) error
}

// CacheKey derives the cache key of a normalized query
func CacheKey(q Query) string {
	text := strings.Join(strings.Fields(strings.ToLower(q.Text)), " ")
	raw := fmt.Sprintf("%s|site=%s|offset=%d|limit=%d", text, q.Site, q.Offset, q.Limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// NewRedisClient connects to redis and verifies the connection with a PING
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// RedisCache keeps responses in redis as JSON, shared between processes
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache creates a redis backed cache
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logging.WithComponent("search-cache"),
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*Response, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return &resp, true
}

func (c *RedisCache) Set(ctx context.Context, key string, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// Invalidate deletes every key under the search prefix
func (c *RedisCache) Invalidate(ctx context.Context) error {
	var deleted int64
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("deleting key %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning search keys: %w", err)
	}
	c.logger.Debug("cache invalidated", "keys_deleted", deleted)
	return nil
}

// MemoryCache is an in-process LRU with a per-entry TTL
type MemoryCache struct {
	lru *expirable.LRU[string, *Response]
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates a cache holding at most size responses for ttl
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = 512
	}
	return &MemoryCache{lru: expirable.NewLRU[string, *Response](size, nil, ttl)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*Response, bool) {
	return c.lru.Get(key)
}

func (c *MemoryCache) Set(_ context.Context, key string, resp *Response) {
	c.lru.Add(key, resp)
}

func (c *MemoryCache) Invalidate(context.Context) error {
	c.lru.Purge()
	return nil
}

// Len returns the number of cached responses
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}
