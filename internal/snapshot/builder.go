package snapshot

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"codetrail/internal/ignore"
	"codetrail/internal/logging"
	"codetrail/internal/paths"
	"codetrail/internal/store"
	"codetrail/internal/trailerr"
)

// Builder constructs snapshots from the row-fetch contract and, in full mode,
// one ignore-pruned filesystem scan.
type Builder struct {
	store        store.Store
	logger       *logging.Logger
	extraIgnores []string
}

// NewBuilder creates a snapshot builder.
func NewBuilder(st store.Store, logger *logging.Logger, extraIgnores []string) *Builder {
	return &Builder{store: st, logger: logger, extraIgnores: extraIgnores}
}

// Build assembles an immutable snapshot for the project. Any row-fetch
// failure aborts the whole build; per-row problems (unmappable paths,
// vanished filesystem entries) are dropped without aborting.
func (b *Builder) Build(ctx context.Context, projectID, projectRoot string, mode Mode) (*Snapshot, error) {
	start := time.Now()

	snap := &Snapshot{
		ProjectID:      projectID,
		ProjectRoot:    projectRoot,
		Mode:           mode,
		BuildID:        uuid.NewString(),
		BuiltAt:        start,
		Files:          make(map[string]*FileSummary),
		Events:         make(map[string][]FileEvent),
		Sessions:       make(map[string]*SessionRecord),
		LinksBySession: make(map[string][]FeatureLink),
		DocsBySource:   make(map[string][]DocumentRef),
		DocsByRef:      make(map[string][]DocumentRef),
	}

	// (1) Filesystem scan, only when untouched files must be visible.
	if mode == ModeFull {
		matcher := ignore.NewMatcher(projectRoot, b.extraIgnores)
		entries, err := ScanTree(projectRoot, matcher, b.logger)
		if err != nil {
			return nil, trailerr.Upstream("filesystem scan failed", err)
		}
		for rel, entry := range entries {
			summary := snap.summaryFor(rel)
			summary.Exists = true
			summary.SizeBytes = entry.SizeBytes
			summary.ModifiedAt = entry.ModTime
		}
	}

	// (2) Fold event rows into per-file summaries.
	dropped, err := b.foldEvents(ctx, snap)
	if err != nil {
		return nil, err
	}

	// (3) Feature links, deduplicated by highest confidence per pair.
	if err := b.loadFeatureLinks(ctx, snap); err != nil {
		return nil, err
	}

	// (4) Score feature involvement on every touched file.
	for _, summary := range snap.Files {
		if summary.Touched() {
			summary.Features = ScoreInvolvements(summary.Path, summary.SessionActions(), snap.LinksBySession)
		}
	}

	// (5) Documents and their path references.
	if err := b.loadDocuments(ctx, snap); err != nil {
		return nil, err
	}

	stats := snap.Stats()
	b.logger.Info("Snapshot built", map[string]interface{}{
		"project":        projectID,
		"mode":           string(mode),
		"buildId":        snap.BuildID,
		"files":          stats.Files,
		"touched":        stats.Touched,
		"events":         stats.Events,
		"sessions":       stats.Sessions,
		"droppedEvents":  dropped,
		"durationMs":     time.Since(start).Milliseconds(),
	})

	return snap, nil
}

func (s *Snapshot) summaryFor(path string) *FileSummary {
	if summary, ok := s.Files[path]; ok {
		return summary
	}
	summary := NewFileSummary(path)
	s.Files[path] = summary
	return summary
}

// foldEvents fetches event rows and folds each into its file summary.
// Returns how many rows were dropped for unmappable paths.
func (b *Builder) foldEvents(ctx context.Context, snap *Snapshot) (int, error) {
	rows, err := b.store.FetchFileEvents(ctx, snap.ProjectID)
	if err != nil {
		return 0, trailerr.Upstream("fetching file events", err)
	}

	dropped := 0
	for _, row := range rows {
		path := paths.MapEventPath(snap.ProjectRoot, row.FilePath)
		if path == "" {
			dropped++
			continue
		}

		event := FileEvent{
			ID:               row.ID,
			SessionID:        row.SessionID,
			RootSessionID:    row.RootSessionID,
			ParentSessionID:  row.ParentSessionID,
			SessionStatus:    row.SessionStatus,
			SessionStartedAt: row.SessionStartedAt,
			SessionCostUSD:   row.SessionCostUSD,
			Path:             path,
			Action:           ClassifyAction(row.Action, row.ToolName),
			FileType:         row.FileType,
			Timestamp:        row.Timestamp,
			LinesAdded:       row.LinesAdded,
			LinesDeleted:     row.LinesDeleted,
			AgentName:        row.AgentName,
			LogID:            row.LogID,
		}

		snap.summaryFor(path).ApplyEvent(event)
		snap.Events[path] = append(snap.Events[path], event)

		if row.SessionID != "" {
			rec := snap.Sessions[row.SessionID]
			if rec == nil {
				rec = &SessionRecord{ID: row.SessionID}
				snap.Sessions[row.SessionID] = rec
			}
			rec.EventCount++
			// Refresh session fields; rows carry the same session snapshot,
			// so any row's values will do, but prefer non-empty ones.
			if row.RootSessionID != "" {
				rec.RootSessionID = row.RootSessionID
			}
			if row.ParentSessionID != "" {
				rec.ParentSessionID = row.ParentSessionID
			}
			if row.SessionStatus != "" {
				rec.Status = row.SessionStatus
			}
			if row.SessionStartedAt != "" {
				rec.StartedAt = row.SessionStartedAt
			}
			if row.SessionCostUSD != 0 {
				rec.CostUSD = row.SessionCostUSD
			}
		}
	}

	if dropped > 0 {
		b.logger.Debug("Dropped events with unmappable paths", map[string]interface{}{
			"project": snap.ProjectID,
			"count":   dropped,
		})
	}

	return dropped, nil
}

// loadFeatureLinks fetches links and keeps the highest-confidence record per
// (feature, session) pair.
func (b *Builder) loadFeatureLinks(ctx context.Context, snap *Snapshot) error {
	rows, err := b.store.FetchFeatureLinks(ctx, snap.ProjectID)
	if err != nil {
		return trailerr.Upstream("fetching feature links", err)
	}

	best := make(map[[2]string]FeatureLink)
	for _, row := range rows {
		if row.FeatureID == "" || row.SessionID == "" {
			continue
		}

		link := FeatureLink{
			FeatureID:  row.FeatureID,
			Name:       row.FeatureName,
			Status:     row.FeatureStatus,
			Category:   row.FeatureCategory,
			SessionID:  row.SessionID,
			Confidence: row.Confidence,
			Commands:   row.Commands,
		}
		for _, sig := range row.Signals {
			link.Signals = append(link.Signals, SignalRef{
				Type:        sig.Type,
				Description: sig.Description,
				FilePath:    sig.FilePath,
			})
		}

		key := [2]string{row.FeatureID, row.SessionID}
		if prev, ok := best[key]; !ok || link.Confidence > prev.Confidence {
			best[key] = link
		}
	}

	for _, link := range best {
		snap.LinksBySession[link.SessionID] = append(snap.LinksBySession[link.SessionID], link)
	}

	return nil
}

// loadDocuments buckets documents by source path and references by
// referenced path. Unmappable paths drop the row, same as events.
func (b *Builder) loadDocuments(ctx context.Context, snap *Snapshot) error {
	docs, err := b.store.FetchDocuments(ctx, snap.ProjectID)
	if err != nil {
		return trailerr.Upstream("fetching documents", err)
	}
	for _, d := range docs {
		path := paths.MapEventPath(snap.ProjectRoot, d.FilePath)
		if path == "" {
			continue
		}
		snap.DocsBySource[path] = append(snap.DocsBySource[path], DocumentRef{
			DocumentID: d.ID,
			Title:      d.Title,
			DocType:    d.DocType,
			Path:       path,
			Relation:   "source",
		})
	}

	refs, err := b.store.FetchDocumentRefs(ctx, snap.ProjectID)
	if err != nil {
		return trailerr.Upstream("fetching document refs", err)
	}
	for _, r := range refs {
		path := paths.MapEventPath(snap.ProjectRoot, r.FilePath)
		if path == "" {
			continue
		}
		relation := r.Relation
		if relation == "" {
			relation = "references"
		}
		snap.DocsByRef[path] = append(snap.DocsByRef[path], DocumentRef{
			DocumentID: r.DocumentID,
			Title:      r.Title,
			DocType:    r.DocType,
			Path:       path,
			Relation:   relation,
		})
	}

	return nil
}

// ClassifyAction derives the event action from an explicit action field or,
// failing that, from the originating tool name. Unrecognized input defaults
// to update, the most common touch kind.
func ClassifyAction(action, toolName string) Action {
	switch Action(strings.ToLower(strings.TrimSpace(action))) {
	case ActionRead:
		return ActionRead
	case ActionCreate:
		return ActionCreate
	case ActionUpdate:
		return ActionUpdate
	case ActionDelete:
		return ActionDelete
	}

	tool := strings.ToLower(strings.TrimSpace(toolName))
	switch {
	case tool == "":
		return ActionUpdate
	case tool == "ls" || tool == "cat":
		return ActionRead
	case containsAny(tool, "read", "view", "open", "grep", "search", "glob"):
		return ActionRead
	case tool == "rm" || containsAny(tool, "delete", "remove"):
		return ActionDelete
	case containsAny(tool, "write", "edit", "patch", "apply"):
		return ActionUpdate
	default:
		return ActionUpdate
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
