// Package cache stores owner display names so that command rendering does
// not depend on the account backend answering every lookup.
package cache

import (
	"time"

	"github.com/google/uuid"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// OwnerKey generates a cache key for an owner's display name
func OwnerKey(owner uuid.UUID) string {
	return "claimexpiry:v1:owner:" + owner.String()
}
