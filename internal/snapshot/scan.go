package snapshot

import (
	"io/fs"
	"path/filepath"
	"time"

	"codetrail/internal/ignore"
	"codetrail/internal/logging"
)

// ScanEntry records existence metadata for one surviving file.
type ScanEntry struct {
	Path      string
	SizeBytes int64
	ModTime   time.Time
}

// skipReason explains why a walk entry was dropped. Skips are expected
// (ignored paths, permission errors, entries that vanished mid-walk) and
// never abort the walk.
type skipReason string

const (
	skipIgnored   skipReason = "ignored"
	skipWalkError skipReason = "walk-error"
	skipStatError skipReason = "stat-error"
	skipNonFile   skipReason = "non-file"
)

// entryResult is the per-entry outcome of the walk: either a usable entry or
// a reason it was dropped.
type entryResult struct {
	entry ScanEntry
	skip  skipReason
}

// ScanTree walks the project root, pruning ignored directories without
// descending into them, and returns metadata for every surviving file keyed
// by normalized relative path. Per-entry failures are dropped silently; only
// a root that cannot be walked at all returns an error.
func ScanTree(projectRoot string, matcher *ignore.Matcher, logger *logging.Logger) (map[string]ScanEntry, error) {
	entries := make(map[string]ScanEntry)
	skips := make(map[skipReason]int)

	err := filepath.WalkDir(projectRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if path == projectRoot {
			if walkErr != nil {
				return walkErr
			}
			return nil
		}

		rel, relErr := filepath.Rel(projectRoot, path)
		if relErr != nil {
			skips[skipWalkError]++
			return nil
		}
		rel = filepath.ToSlash(rel)

		res := classifyEntry(rel, d, walkErr, matcher)
		if res.skip != "" {
			skips[res.skip]++
			if res.skip == skipIgnored && d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		entries[res.entry.Path] = res.entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Debug("Filesystem scan complete", map[string]interface{}{
			"root":    projectRoot,
			"files":   len(entries),
			"skipped": skips,
		})
	}

	return entries, nil
}

// classifyEntry turns one walk callback into an entryResult.
func classifyEntry(rel string, d fs.DirEntry, walkErr error, matcher *ignore.Matcher) entryResult {
	// A directory we cannot list, or a file that vanished between listing
	// and visiting, is a per-entry loss.
	if walkErr != nil || d == nil {
		return entryResult{skip: skipWalkError}
	}

	if matcher.ShouldIgnore(rel, d.IsDir()) {
		return entryResult{skip: skipIgnored}
	}

	if d.IsDir() || !d.Type().IsRegular() {
		// Directories contribute nothing themselves; sockets, device files
		// and broken symlinks are not project files.
		return entryResult{skip: skipNonFile}
	}

	info, err := d.Info()
	if err != nil {
		return entryResult{skip: skipStatError}
	}

	return entryResult{entry: ScanEntry{
		Path:      rel,
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}}
}
