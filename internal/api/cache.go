package api

import (
	"context"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
)

// CacheConfig contains export cache configuration
type CacheConfig struct {
	SizeMB int
	TTL    time.Duration
}

// ExportCache holds rendered export bodies. keys include the sheet
// revision, so an edit makes every older entry unreachable and the cache
// never has to be invalidated.
type ExportCache struct {
	cache *bigcache.BigCache
}

// NewExportCache creates an export cache
func NewExportCache(cfg CacheConfig) (*ExportCache, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	config := bigcache.Config{
		Shards:             16,
		LifeWindow:         cfg.TTL,
		CleanWindow:        cfg.TTL / 2,
		MaxEntriesInWindow: 1024,
		MaxEntrySize:       64 * 1024,
		HardMaxCacheSize:   cfg.SizeMB,
		Verbose:            false,
	}

	cache, err := bigcache.New(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create export cache: %w", err)
	}
	return &ExportCache{cache: cache}, nil
}

// Get retrieves an export body
func (c *ExportCache) Get(key string) ([]byte, bool) {
	data, err := c.cache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores an export body
func (c *ExportCache) Set(key string, data []byte) error {
	return c.cache.Set(key, data)
}

// Len returns the number of cached bodies
func (c *ExportCache) Len() int {
	return c.cache.Len()
}

// Close releases the cache
func (c *ExportCache) Close() error {
	return c.cache.Close()
}

// ExportKey generates a cache key for one export of one revision
func ExportKey(format, mode string, revision uint64) string {
	return fmt.Sprintf("export:%s:%s:%d", format, mode, revision)
}
