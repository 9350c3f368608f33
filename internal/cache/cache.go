// Package cache stores encoded forecast results keyed by rounded
// coordinates. Two backends share the Cache interface: an in-process LRU
// with per-entry expiry and Redis for deployments running several engines.
package cache

import (
	"context"
	"fmt"
)

// Cache is a byte-value store with a fixed time-to-live per entry.
type Cache interface {
	// Get returns the stored value and true, or false on a miss or expiry.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// CoordKey builds a cache key from coordinates rounded to five decimals so
// requests for the same point share an entry.
func CoordKey(prefix string, lat, lon float64) string {
	return fmt.Sprintf("%s:%.5f,%.5f", prefix, lat, lon)
}
