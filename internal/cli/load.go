package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/ppiankov/claimexpiry/internal/cache"
	"github.com/ppiankov/claimexpiry/internal/expiry"
	"github.com/ppiankov/claimexpiry/internal/model"
	"github.com/ppiankov/claimexpiry/internal/worker"
)

// loadConfig merges the config file and environment over the defaults
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()

	// Maps and lists from the file replace the defaults instead of merging.
	if v.IsSet("expiration.days_per_area") {
		cfg.Expiration.DaysPerArea = nil
	}
	if v.IsSet("expiration.claim.commands") {
		cfg.Expiration.Claim.Commands = nil
	}
	if v.IsSet("expiration.bypass.permissions") {
		cfg.Expiration.Bypass.Permissions = nil
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// newCache builds the owner name cache, or nil when caching is disabled
func newCache(cfg model.CacheConfig) cache.Cache {
	if !cfg.Enabled {
		return nil
	}

	dir := cfg.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			logger.Warningf("no home directory, caching owner names in memory only: %v", err)
			return cache.NewMemoryCache(cfg.MemoryTTL, cfg.MemoryTTL)
		}
		dir = filepath.Join(home, ".claimexpiry", "cache")
	}
	return cache.NewLayeredCache(cfg.MemoryTTL, dir, cfg.DiskTTL)
}

// newSyncLimiter paces synchronized calls. Full snapshots get their own
// bucket when refresh_per_second is set.
func newSyncLimiter(cfg model.SyncConfig) *worker.Limiter {
	limiter := worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst)
	if cfg.RefreshPerSecond > 0 {
		limiter.SetKindRate(expiry.SyncRefresh, cfg.RefreshPerSecond, 1)
	}
	return limiter
}

// worldPath picks the world file from a flag or the configuration
func worldPath(flag string, cfg *model.Config) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if cfg.Host.World != "" {
		return cfg.Host.World, nil
	}
	return "", fmt.Errorf("no world file: pass --world or set host.world")
}
