// Package cache provides Redis caching utilities for the application.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"dojo/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	PostKeyPrefix        = "post:%d"
	PublishedListKey     = "posts:published:%d:%d"
	UnreadCountKeyPrefix = "notifications:unread:%d"
)

const (
	PostTTL        = 30 * time.Minute
	ListTTL        = 5 * time.Minute
	UnreadCountTTL = time.Minute
)

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// Cache wraps a Redis client. All methods tolerate a nil client so the
// application degrades to uncached operation when Redis is unavailable.
type Cache struct {
	client *redis.Client
}

// New connects to Redis at addr (host:port or redis:// URL). A failed
// connection is logged and yields a disabled cache, not an error.
func New(addr string) *Cache {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			log.Printf("Redis connection warning: invalid REDIS_URL %q: %v (continuing without cache)", addr, err)
			return &Cache{}
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	client.AddHook(metricsHook{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis connection warning: %v (continuing without cache)", err)
		return &Cache{}
	}

	log.Println("Redis connected successfully")
	return &Cache{client: client}
}

// NewWithClient wraps an existing client. Used by tests.
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Client exposes the underlying Redis client, or nil when disabled.
func (c *Cache) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.client
}

// Enabled reports whether a Redis connection is available.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// GetJSON loads a JSON-encoded value. Returns false on miss or when disabled.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if !c.Enabled() {
		return false
	}
	family := keyFamily(key)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		observability.CacheHits.WithLabelValues(family, "miss").Inc()
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		observability.CacheHits.WithLabelValues(family, "miss").Inc()
		return false
	}
	observability.CacheHits.WithLabelValues(family, "hit").Inc()
	return true
}

// SetJSON stores a JSON-encoded value with a TTL. Failures are ignored.
func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if !c.Enabled() {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, data, ttl)
}

// Invalidate removes keys. A nil client is a no-op.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}
	c.client.Del(ctx, keys...)
}

// PostKey is the cache key for one post's detail payload.
func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

// PublishedPageKey is the cache key for one page of the published feed.
func PublishedPageKey(page, perPage int) string {
	return fmt.Sprintf(PublishedListKey, page, perPage)
}

// UnreadCountKey is the cache key for a user's unread notification count.
func UnreadCountKey(userID uint) string {
	return fmt.Sprintf(UnreadCountKeyPrefix, userID)
}

// InvalidatePost drops a post's detail entry and the published feed pages.
func (c *Cache) InvalidatePost(ctx context.Context, postID uint) {
	if !c.Enabled() {
		return
	}
	c.client.Del(ctx, PostKey(postID))
	c.InvalidatePublishedFeed(ctx)
}

// InvalidatePublishedFeed drops every cached page of the published feed.
func (c *Cache) InvalidatePublishedFeed(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	ctx2, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	iter := c.client.Scan(ctx2, 0, "posts:published:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx2) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		c.client.Del(ctx2, keys...)
	}
}

// InvalidateUnreadCount drops a user's cached unread notification count.
func (c *Cache) InvalidateUnreadCount(ctx context.Context, userID uint) {
	c.Invalidate(ctx, UnreadCountKey(userID))
}

func keyFamily(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
