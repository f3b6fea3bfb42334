// Package cache provides the resolve-result cache.
//
// A cache entry is the serialized outcome of one package inspection,
// keyed by the package specifier and a hash of the marker environment it
// was evaluated against. Backends:
//   - file: entry-per-file under a directory, for CLI usage
//   - redis: shared cache for serve-mode deployments
//   - null: no-op, for --no-cache and tests
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by helpers that treat a miss as an error.
var ErrCacheMiss = errors.New("cache miss")

// Cache is the interface implemented by all cache backends.
type Cache interface {
	// Get retrieves a value. The second return value is false on a miss;
	// expired entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of zero means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
