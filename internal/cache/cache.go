// Package cache keeps the HTTP validators of fetched feeds so refreshes can
// issue conditional requests.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauern/feedsync/internal/util"
)

// Entry holds what the last fetch of a feed URL returned.
type Entry struct {
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	ContentHash  uint64    `json:"content_hash,omitempty"`
	Title        string    `json:"title,omitempty"`
	CachedAt     time.Time `json:"cached_at"`
}

// Cache maps feed URLs to their last fetch metadata. It is safe for
// concurrent use.
type Cache struct {
	Version string           `json:"version"`
	Entries map[string]Entry `json:"entries"`

	mu   sync.Mutex
	path string
	now  func() time.Time
}

const (
	cacheVersion = "1.0"
	// DefaultTTL is the default time-to-live for cache entries
	DefaultTTL = 7 * 24 * time.Hour
)

// New creates or loads a cache for the given source name (e.g., "feeds").
// If cacheDir is empty, defaults to $FEEDSYNC_HOME/cache.
func New(sourceName string, cacheDir string) (*Cache, error) {
	if cacheDir == "" {
		cacheDir = util.CacheDir()
	}
	if err := os.MkdirAll(cacheDir, 0o750); err != nil {
		return nil, err
	}

	cachePath := filepath.Join(cacheDir, sourceName+".json")
	c := &Cache{
		Version: cacheVersion,
		Entries: make(map[string]Entry),
		path:    cachePath,
		now:     time.Now,
	}

	// #nosec G304 - cachePath is constructed from trusted configuration path
	if data, err := os.ReadFile(cachePath); err == nil {
		if err := json.Unmarshal(data, c); err != nil {
			// Corrupted cache, start fresh
			c.Entries = make(map[string]Entry)
		}
		if c.Version != cacheVersion {
			c.Entries = make(map[string]Entry)
			c.Version = cacheVersion
		}
		if c.Entries == nil {
			c.Entries = make(map[string]Entry)
		}
	}

	return c, nil
}

// NewMemory creates a cache that is never written to disk.
func NewMemory() *Cache {
	return &Cache{Version: cacheVersion, Entries: make(map[string]Entry), now: time.Now}
}

// Get returns the entry stored for key.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.Entries[key]
	return entry, ok
}

// Set stores entry under key, stamping it with the current time.
func (c *Cache) Set(key string, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry.CachedAt = c.now()
	c.Entries[key] = entry
}

// Touch refreshes the timestamp of an existing entry, as after a 304.
func (c *Cache) Touch(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.Entries[key]; ok {
		entry.CachedAt = c.now()
		c.Entries[key] = entry
	}
}

// Save persists the cache to disk
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	// #nosec G306 - cache files should be readable by user
	return os.WriteFile(c.path, data, 0o644)
}

// Clear removes all entries from the cache
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Entries = make(map[string]Entry)
	if c.path == "" {
		return nil
	}
	return os.Remove(c.path)
}

// Size returns the number of entries in the cache
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Entries)
}

// IsStale checks if any cache entry has expired based on TTL
func (c *Cache) IsStale(ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, entry := range c.Entries {
		if c.now().Sub(entry.CachedAt) > ttl {
			return true
		}
	}
	return false
}

// Prune removes stale entries based on TTL
func (c *Cache) Prune(ttl time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	pruned := 0
	for key, entry := range c.Entries {
		if c.now().Sub(entry.CachedAt) > ttl {
			delete(c.Entries, key)
			pruned++
		}
	}
	return pruned
}
