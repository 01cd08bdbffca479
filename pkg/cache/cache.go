// Package cache provides a small byte-cache abstraction used to share
// instance-detection results.
//
// The in-process memoization required for detection lives in the detect
// package itself; this cache is the optional second level behind it, so
// that server deployments can share detection results across processes
// (memory for a single process, Redis for several).
package cache

import (
	"context"
	"time"
)

// Cache is the interface for cache backends.
type Cache interface {
	// Get retrieves a value. The bool reports whether the key was present
	// and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
