// Package cache provides the byte-level key-value store behind the profile
// cache.
//
// Every backend implements [Cache]. Values are opaque bytes with an optional
// TTL; callers that need freshness semantics beyond TTL (such as the profile
// enricher, which compares stored fetch timestamps against an injected
// clock) encode them in the value.
//
// Backends:
//   - [FileCache]: one JSON file per key, for the CLI
//   - [MemoryCache]: process-local map, for tests and the API server
//   - [RedisCache]: shared cache for multi-instance deployments
//   - [NullCache]: never stores anything (--no-cache)
//
// [Scoped] prefixes keys with a namespace and reports hits and misses to the
// observability hooks.
//
// All backends are safe for concurrent use. A Set is a single atomic write
// per key, so concurrent writers to the same key resolve last-write-wins.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-level key-value store.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by backends that can drop every entry.
type Clearer interface {
	Clear(ctx context.Context) error
}
