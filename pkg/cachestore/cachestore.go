// Package cachestore is the ephemeral TTL key-value store backing the
// detector's short-lived state: recent-message windows, spam counters,
// and the unsend lookup cache. Values are JSON-encoded; expiry is
// enforced by the backend, so readers never see stale windows.
package cachestore

import (
	"context"
	"time"
)

// Store is a TTL'd key-value store scoped by kind.
type Store interface {
	// Get unmarshals the value at (kind, key) into out. Returns false
	// with a nil error when the key is absent or expired.
	Get(ctx context.Context, kind, key string, out any) (bool, error)

	// Set stores val under (kind, key) with the given TTL. A zero TTL
	// means no expiry.
	Set(ctx context.Context, kind, key string, val any, ttl time.Duration) error

	// Delete removes the key; removing a missing key is not an error.
	Delete(ctx context.Context, kind, key string) error
}
