package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis-backed cache
type RedisConfig struct {
	URL          string // redis:// or rediss:// URL
	Token        string // Bearer credential, sent as the AUTH password when set
	KeyPrefix    string // Prepended to every key and pattern
	ScanPageSize int64  // COUNT hint for the single SCAN page read by DeletePattern
	DialTimeout  time.Duration
}

// Redis implements Cache over the Redis protocol
type Redis struct {
	client   redis.UniversalClient
	prefix   string
	pageSize int64
	logger   *slog.Logger
}

var _ Cache = (*Redis)(nil)

// NewRedis connects to the Redis server described by cfg.
// The connection is lazy: an unreachable server surfaces as cache misses.
func NewRedis(cfg RedisConfig, logger *slog.Logger) (*Redis, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis URL is required")
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.Token != "" {
		opts.Password = cfg.Token
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}

	return NewRedisFromClient(redis.NewClient(opts), cfg.KeyPrefix, cfg.ScanPageSize, logger), nil
}

// NewRedisFromClient wraps an existing client
func NewRedisFromClient(client redis.UniversalClient, prefix string, pageSize int64, logger *slog.Logger) *Redis {
	if pageSize <= 0 {
		pageSize = DefaultScanPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{
		client:   client,
		prefix:   prefix,
		pageSize: pageSize,
		logger:   logger.With("component", "cache", "backend", "redis"),
	}
}

// Ping checks connectivity; used by health reporting only
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close releases the underlying connection pool
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		r.warn("get", key, err)
		return "", false
	}
	return val, true
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) bool {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		r.warn("set", key, err)
		return false
	}
	return true
}

func (r *Redis) Delete(ctx context.Context, key string) bool {
	n, err := r.client.Del(ctx, r.key(key)).Result()
	if err != nil {
		r.warn("delete", key, err)
		return false
	}
	return n > 0
}

// DeletePattern reads a single SCAN page of keys matching pattern and
// deletes them in one DEL. Matches beyond the first page are left in place;
// a warning is logged when the scan cursor shows more keys remain.
func (r *Redis) DeletePattern(ctx context.Context, pattern string) int {
	keys, cursor, err := r.client.Scan(ctx, 0, r.key(pattern), r.pageSize).Result()
	if err != nil {
		r.warn("scan", pattern, err)
		return 0
	}
	if cursor != 0 {
		r.logger.Warn("pattern delete truncated to first scan page",
			"pattern", pattern, "page_size", r.pageSize, "matched", len(keys))
	}
	if len(keys) == 0 {
		return 0
	}

	n, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		r.warn("delete pattern", pattern, err)
		return 0
	}
	return int(n)
}

func (r *Redis) Exists(ctx context.Context, key string) bool {
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		r.warn("exists", key, err)
		return false
	}
	return n > 0
}

func (r *Redis) TTL(ctx context.Context, key string) int64 {
	d, err := r.client.TTL(ctx, r.key(key)).Result()
	if err != nil {
		r.warn("ttl", key, err)
		return TTLMissing
	}
	// go-redis passes the -1/-2 replies through unscaled
	switch d {
	case -1:
		return TTLNoExpiry
	case -2:
		return TTLMissing
	}
	return int64(d / time.Second)
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

func (r *Redis) warn(op, key string, err error) {
	r.logger.Warn("cache operation failed",
		"op", op, "key", key, "error", fmt.Errorf("%w: %v", ErrUnavailable, err))
}
