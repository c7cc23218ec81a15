// Package cache memoizes parsed descriptor data.
//
// The resolver stores the child list of every descriptor it parses, keyed by
// the descriptor coordinate and the descriptor file's digest, so a second
// resolution of the same tree skips XML parsing entirely. Three backends
// implement [Cache]:
//
//   - [NullCache]: stores nothing (the default)
//   - [FileCache]: JSON entries under a directory, for single-machine CLI use
//   - [RedisCache]: a shared Redis instance, for CI fleets resolving the
//     same trees
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry TTL.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the data for key and whether it was found.
	// Expired entries are reported as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
