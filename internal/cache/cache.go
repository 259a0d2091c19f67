package cache

import (
	"context"
	"time"

	"github.com/dshills/personarag/pkg/types"
)

// ErrUnavailable wraps transport and auth failures in logs. It is never
// returned from Get, Exists or TTL.
var ErrUnavailable = types.ErrCacheUnavailable

// Remaining-TTL sentinels returned by Cache.TTL
const (
	TTLNoExpiry int64 = -1 // Key exists without an expiry
	TTLMissing  int64 = -2 // Key does not exist (or the cache is unreachable)
)

// DefaultScanPageSize bounds how many keys one DeletePattern call inspects
const DefaultScanPageSize = 100

// Cache is a best-effort key/value store.
//
// Get, Exists and TTL never return errors: transport failures are logged and
// reported as a miss, false or TTLMissing. Set reports success with a boolean
// and Delete reports whether a live key was removed; callers must not fail
// their own operation because caching did.
type Cache interface {
	// Get returns the value for key and whether it was found
	Get(ctx context.Context, key string) (string, bool)

	// Set stores value under key. A ttl <= 0 stores without expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) bool

	// Delete removes key and reports whether it was present
	Delete(ctx context.Context, key string) bool

	// DeletePattern removes keys matching a glob and returns how many were deleted
	DeletePattern(ctx context.Context, pattern string) int

	// Exists reports whether key is present
	Exists(ctx context.Context, key string) bool

	// TTL returns the remaining lifetime in seconds, TTLNoExpiry or TTLMissing
	TTL(ctx context.Context, key string) int64
}

// Nop is a Cache that stores nothing. Every read misses.
type Nop struct{}

var _ Cache = Nop{}

func (Nop) Get(context.Context, string) (string, bool)              { return "", false }
func (Nop) Set(context.Context, string, string, time.Duration) bool { return false }
func (Nop) Delete(context.Context, string) bool                     { return false }
func (Nop) DeletePattern(context.Context, string) int               { return 0 }
func (Nop) Exists(context.Context, string) bool                     { return false }
func (Nop) TTL(context.Context, string) int64                       { return TTLMissing }
