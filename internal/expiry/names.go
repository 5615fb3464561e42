package expiry

import (
	"github.com/google/uuid"

	"github.com/ppiankov/claimexpiry/internal/cache"
	"github.com/ppiankov/claimexpiry/internal/host"
)

const (
	// AdminName is shown for claims without an owning account
	AdminName = "administrator"
	// UnknownName is shown when an owner's name cannot be resolved
	UnknownName = "unknown"
)

// Names resolves owner display names, reading through a cache.
// A nil cache disables caching.
type Names struct {
	accounts host.Accounts
	cache    cache.Cache
}

// NewNames creates a resolver over accounts
func NewNames(accounts host.Accounts, c cache.Cache) *Names {
	return &Names{accounts: accounts, cache: c}
}

// Name returns the display name for owner
func (n *Names) Name(owner uuid.UUID) string {
	if owner == uuid.Nil {
		return AdminName
	}

	key := cache.OwnerKey(owner)
	if n.cache != nil {
		if name, ok := n.cache.Get(key); ok && len(name) > 0 {
			return string(name)
		}
	}

	account, ok := n.accounts.Account(owner)
	if !ok || account.Name == "" {
		return UnknownName
	}

	if n.cache != nil {
		_ = n.cache.Set(key, []byte(account.Name), 0)
	}
	return account.Name
}
