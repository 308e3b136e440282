// Package cache implements the cache-aside store shared by every service
// and the per-user session cache consulted by the authorization guard.
package cache

import (
	"context"
	"strings"
	"time"
)

// Store is a key-value store with TTL and "prefix:*" pattern support.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// Keys lists keys matching pattern; only a trailing '*' wildcard is portable.
	Keys(ctx context.Context, pattern string) ([]string, error)
	DelPattern(ctx context.Context, pattern string) error
	Ping(ctx context.Context) error
}

// patternPrefix returns the literal part of a "prefix:*" pattern and whether
// the pattern had a wildcard at all.
func patternPrefix(pattern string) (string, bool) {
	if !strings.HasSuffix(pattern, "*") {
		return pattern, false
	}
	return strings.TrimSuffix(pattern, "*"), true
}
