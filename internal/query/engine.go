// Package query exposes the three read operations the dashboard consumes:
// a depth-limited activity tree, a filterable flat file list, and a deep
// per-file detail. Each request is one sequential flow: cache lookup,
// optional snapshot build, in-memory aggregation.
package query

import (
	"time"

	"codetrail/internal/config"
	"codetrail/internal/logging"
	"codetrail/internal/registry"
	"codetrail/internal/snapshot"
	"codetrail/internal/store"
)

// Engine coordinates snapshot access and query aggregation for one project.
type Engine struct {
	project registry.Project
	store   store.Store
	cache   *snapshot.Cache
	logger  *logging.Logger
	cfg     *config.Config
}

// NewEngine creates a query engine for the project. The snapshot cache is
// injected per engine rather than kept as package state.
func NewEngine(project registry.Project, st store.Store, logger *logging.Logger, cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	builder := snapshot.NewBuilder(st, logger, cfg.Scan.ExtraIgnores)
	ttl := time.Duration(cfg.Cache.SnapshotTtlSeconds) * time.Second
	cache := snapshot.NewCache(builder, logger, ttl)

	return &Engine{
		project: project,
		store:   st,
		cache:   cache,
		logger:  logger,
		cfg:     cfg,
	}
}

// Project returns the project this engine serves.
func (e *Engine) Project() registry.Project {
	return e.project
}

// InvalidateCache drops the project's cached snapshots.
func (e *Engine) InvalidateCache() {
	e.cache.Invalidate(e.project.ID)
}

// InvalidateAll clears the whole snapshot cache.
func (e *Engine) InvalidateAll() {
	e.cache.InvalidateAll()
}

// CacheStats describes the live snapshot cache entries.
func (e *Engine) CacheStats() []snapshot.CacheEntryInfo {
	return e.cache.StatsInfo()
}

func modeFor(includeUntouched bool) snapshot.Mode {
	if includeUntouched {
		return snapshot.ModeFull
	}
	return snapshot.ModeTouched
}

// clamp bounds v to [1, max], substituting def when v is unset (<= 0).
func clamp(v, def, max int) int {
	if v <= 0 {
		v = def
	}
	if v < 1 {
		v = 1
	}
	if v > max {
		v = max
	}
	return v
}
