// Package kvstore defines the opaque key-value contract every cache tier
// and every upstream service's durable storage is built on, plus two
// implementations: an in-memory Store, used by unit tests and as the
// cache store of most actors, and a Postgres-backed Store (grounded on
// invalidation/audit.go's use of encore.dev/storage/sqldb) for the state
// of the actors that keeps across restarts.
//
// Keys are opaque strings; callers own key layout. TTL of zero means the
// entry never expires until explicitly deleted or overwritten.
package kvstore

import (
	"context"
	"time"
)

// Store is the minimal contract every cache tier and durable table is
// built on: get, put-with-optional-ttl, delete, and a prefix scan with a
// cursor for pagination.
type Store interface {
	// Get returns the value and true if key exists and has not expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put writes value under key. ttl <= 0 means the entry never expires.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns keys with the given prefix in ascending order, starting
	// strictly after cursor (empty cursor starts from the beginning).
	// nextCursor is empty when the scan reached the end of the prefix.
	List(ctx context.Context, prefix, cursor string, limit int) (keys []string, nextCursor string, err error)
}
