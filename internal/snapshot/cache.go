package snapshot

import (
	"context"
	"sync"
	"time"

	"codetrail/internal/logging"
)

// DefaultTTL is the snapshot freshness window when the config does not
// override it.
const DefaultTTL = 30 * time.Second

type cacheKey struct {
	projectID string
	mode      Mode
}

type cacheEntry struct {
	snap      *Snapshot
	expiresAt time.Time
}

// Cache memoizes built snapshots per (project, mode) with a fixed TTL.
// Entries are replaced atomically as whole Snapshot values, so readers never
// observe a half-built snapshot. Concurrent callers that miss simultaneously
// may each build; builds are idempotent, last write wins.
type Cache struct {
	builder *Builder
	logger  *logging.Logger
	ttl     time.Duration

	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry

	// now is swappable for TTL tests.
	now func() time.Time
}

// NewCache creates a snapshot cache around the given builder.
func NewCache(builder *Builder, logger *logging.Logger, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		builder: builder,
		logger:  logger,
		ttl:     ttl,
		entries: make(map[cacheKey]cacheEntry),
		now:     time.Now,
	}
}

// GetOrBuild returns the cached snapshot for (project, mode) if it is still
// fresh, otherwise builds one synchronously and installs it. A failed build
// installs nothing; the next call retries from scratch.
func (c *Cache) GetOrBuild(ctx context.Context, projectID, projectRoot string, mode Mode) (*Snapshot, error) {
	key := cacheKey{projectID: projectID, mode: mode}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expiresAt) {
		c.logger.Debug("Snapshot cache hit", map[string]interface{}{
			"project": projectID,
			"mode":    string(mode),
		})
		return entry.snap, nil
	}

	// Build outside the lock; duplicate concurrent builds are tolerated.
	snap, err := c.builder.Build(ctx, projectID, projectRoot, mode)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{snap: snap, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return snap, nil
}

// Invalidate removes all cached snapshots for a project. It does not block
// on in-flight builds.
func (c *Cache) Invalidate(projectID string) {
	c.mu.Lock()
	for key := range c.entries {
		if key.projectID == projectID {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()

	c.logger.Debug("Snapshot cache invalidated", map[string]interface{}{
		"project": projectID,
	})
}

// InvalidateAll clears the entire cache.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[cacheKey]cacheEntry)
	c.mu.Unlock()

	c.logger.Debug("Snapshot cache cleared", nil)
}

// CacheEntryInfo describes one live cache entry for introspection.
type CacheEntryInfo struct {
	ProjectID string    `json:"projectId"`
	Mode      Mode      `json:"mode"`
	BuildID   string    `json:"buildId"`
	BuiltAt   time.Time `json:"builtAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Files     int       `json:"files"`
}

// StatsInfo returns a description of every live (unexpired) cache entry.
func (c *Cache) StatsInfo() []CacheEntryInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	out := make([]CacheEntryInfo, 0, len(c.entries))
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			continue
		}
		out = append(out, CacheEntryInfo{
			ProjectID: key.projectID,
			Mode:      key.mode,
			BuildID:   entry.snap.BuildID,
			BuiltAt:   entry.snap.BuiltAt,
			ExpiresAt: entry.expiresAt,
			Files:     len(entry.snap.Files),
		})
	}
	return out
}
