// Package cache provides the key/value cache used by the pipeline runner.
//
// Pipeline results are cached by a hash of their inputs, rendered artifacts
// by a hash of the layout they were rendered from. Because the layout engine
// is deterministic, a cached entry is always identical to what a fresh run
// would produce; caching only saves work.
//
// Three backends are provided: [FileCache] for the CLI, [RedisCache] for the
// API server and [NewNullCache] to disable caching.
package cache

import (
	"context"
	"time"
)

// Default time-to-live values.
const (
	// TTLResult is how long pipeline results are kept.
	TTLResult = 7 * 24 * time.Hour

	// TTLArtifact is how long rendered artifacts are kept.
	TTLArtifact = 24 * time.Hour
)

// Cache stores opaque byte values by key.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A non-positive ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// NewNullCache returns a Cache that keeps nothing. Every Get is a miss, so
// the runner lays out and renders from scratch each time.
func NewNullCache() Cache { return nullCache{} }

type nullCache struct{}

func (nullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (nullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (nullCache) Delete(context.Context, string) error                     { return nil }
func (nullCache) Close() error                                             { return nil }
