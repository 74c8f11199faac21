package cache

import (
	"context"
	"time"
)

// Cache abstracts the Redis operations the judging pipeline relies on.
// Queue, event-log and command-channel semantics are all built on the
// list operations; Expire bounds the lifetime of abandoned event logs.
type Cache interface {
	Ping(ctx context.Context) error
	Close() error

	Del(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// List operations
	LPush(ctx context.Context, key string, values ...interface{}) error
	RPush(ctx context.Context, key string, values ...interface{}) error
	LPop(ctx context.Context, key string) (string, error)
	RPop(ctx context.Context, key string) (string, error)
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LLen(ctx context.Context, key string) (int64, error)
}
