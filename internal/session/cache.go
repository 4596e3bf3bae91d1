// Package session caches validated token claims so that hot request paths
// do not pay signature verification on every call. Entries are keyed by the
// raw token and expire with the token itself.
package session

import (
	"context"
	"time"
)

// Cache stores short-lived token-to-principal mappings.
type Cache interface {
	// Get returns the cached principal id for the token, and whether a
	// live entry exists.
	Get(ctx context.Context, token string) (string, bool, error)
	// Set stores the mapping with an expiry.
	Set(ctx context.Context, token, principalID string, ttl time.Duration) error
	// Invalidate drops a single entry. Missing entries are not an error.
	Invalidate(ctx context.Context, token string) error
}
