// Package cache holds Redis-backed read caches.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// UnreadCounter caches per-recipient unread notification counts. The
// database stays authoritative; writers invalidate and readers repopulate.
type UnreadCounter interface {
	Get(ctx context.Context, recipient string) (count int64, ok bool, err error)
	Set(ctx context.Context, recipient string, count int64) error
	Invalidate(ctx context.Context, recipient string) error
}

// RedisUnreadCounter stores counts under notifications:unread:<recipient>.
type RedisUnreadCounter struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewUnreadCounter returns a Redis-backed counter, or a no-op counter when
// client is nil.
func NewUnreadCounter(client *redis.Client, ttl time.Duration) UnreadCounter {
	if client == nil {
		return NopUnreadCounter{}
	}
	return &RedisUnreadCounter{client: client, ttl: ttl}
}

func unreadKey(recipient string) string {
	return "notifications:unread:" + strings.ToLower(recipient)
}

func (c *RedisUnreadCounter) Get(ctx context.Context, recipient string) (int64, bool, error) {
	count, err := c.client.Get(ctx, unreadKey(recipient)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

func (c *RedisUnreadCounter) Set(ctx context.Context, recipient string, count int64) error {
	return c.client.Set(ctx, unreadKey(recipient), count, c.ttl).Err()
}

func (c *RedisUnreadCounter) Invalidate(ctx context.Context, recipient string) error {
	return c.client.Del(ctx, unreadKey(recipient)).Err()
}

// NopUnreadCounter never caches.
type NopUnreadCounter struct{}

func (NopUnreadCounter) Get(context.Context, string) (int64, bool, error) { return 0, false, nil }
func (NopUnreadCounter) Set(context.Context, string, int64) error         { return nil }
func (NopUnreadCounter) Invalidate(context.Context, string) error         { return nil }
