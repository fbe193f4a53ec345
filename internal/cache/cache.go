package cache

import (
	"context"
	"time"
)

// Cache stores opaque JSON documents under deterministic keys with a
// per-entry TTL and optional tags for bulk invalidation. Entries are
// written whole and overwritten whole; an expired entry is never
// returned.
type Cache interface {
	// Get returns the stored value and true on a fresh hit, or false
	// when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for ttl, replacing any previous entry,
	// and associates the entry with the given tags.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error
	// DeleteByTag removes every entry associated with tag.
	DeleteByTag(ctx context.Context, tag string) error
	// Close releases background resources.
	Close() error
}
