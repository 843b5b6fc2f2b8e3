package cache

import (
	"fmt"
	"path/filepath"

	"story-coach/internal/config"
	"story-coach/internal/telemetry"
)

// Open builds a Store from configuration, picking the disk backend.
func Open(cfg *config.Config, collector telemetry.Collector) (*Store, error) {
	memory, err := NewMemoryTier(cfg.MemoryCacheSize)
	if err != nil {
		return nil, err
	}

	var disk DiskTier
	switch cfg.CacheBackend {
	case config.CacheBackendSQLite:
		disk, err = NewSQLiteTier(filepath.Join(cfg.CacheDir, "cache.db"))
	case config.CacheBackendJSON, "":
		disk, err = NewJSONFileTier(cfg.CacheDir)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.CacheBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", cfg.CacheBackend, err)
	}

	return NewStore(memory, disk, Options{
		Enabled: cfg.EnableScenarioCache,
		Expiry:  cfg.CacheExpiry(),
		MaxSize: cfg.MaxCacheSize,
	}, collector), nil
}
