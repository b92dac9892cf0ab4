package query

import (
	"context"
	"sort"

	"codetrail/internal/paths"
	"codetrail/internal/snapshot"
	"codetrail/internal/store"
	"codetrail/internal/trailerr"
)

// GetFileDetailOptions selects the per-file deep view.
type GetFileDetailOptions struct {
	Path          string
	ActivityLimit int // newest events carried in the activity feed
}

// SessionSummary rolls one session's touches on the file into a single row.
type SessionSummary struct {
	SessionID       string            `json:"sessionId"`
	RootSessionID   string            `json:"rootSessionId,omitempty"`
	ParentSessionID string            `json:"parentSessionId,omitempty"`
	Status          string            `json:"status,omitempty"`
	StartedAt       string            `json:"startedAt,omitempty"`
	CostUSD         float64           `json:"costUsd,omitempty"`
	TouchCount      int               `json:"touchCount"`
	Actions         []snapshot.Action `json:"actions"`
	AgentNames      []string          `json:"agentNames,omitempty"`
	LastTouched     string            `json:"lastTouched,omitempty"`
	ArtifactCount   int               `json:"artifactCount"`

	actionSet map[snapshot.Action]bool
	agentSet  map[string]bool
	lastEpoch int64
}

// ActivityEntry is one event of the activity feed with its joined log content
// and the owning session's artifact count.
type ActivityEntry struct {
	Event         snapshot.FileEvent `json:"event"`
	LogType       string             `json:"logType,omitempty"`
	LogContent    string             `json:"logContent,omitempty"`
	ArtifactCount int                `json:"artifactCount"`
}

// FileDetailResponse is the result of GetFileDetail.
type FileDetailResponse struct {
	File      FileListItem           `json:"file"`
	Sessions  []*SessionSummary      `json:"sessions"`
	Documents []snapshot.DocumentRef `json:"documents,omitempty"`
	Activity  []ActivityEntry        `json:"activity"`
}

// GetFileDetail returns the deep per-file view: the summary, per-session
// rollups, associated documents, and an activity feed of the newest events
// joined with session logs and artifact counts.
func (e *Engine) GetFileDetail(ctx context.Context, opts GetFileDetailOptions) (*FileDetailResponse, error) {
	rel, err := paths.Normalize(opts.Path)
	if err != nil {
		return nil, err
	}
	if rel == "" {
		return nil, trailerr.Validation("file path must not be empty")
	}
	if _, err := paths.ResolveSafe(e.project.Root, rel); err != nil {
		return nil, err
	}
	activityLimit := clamp(opts.ActivityLimit, e.cfg.Query.DefaultActivity, e.cfg.Query.MaxActivity)

	// Touched snapshot first; a file only known to the filesystem scan needs
	// the full one.
	snap, err := e.cache.GetOrBuild(ctx, e.project.ID, e.project.Root, snapshot.ModeTouched)
	if err != nil {
		return nil, err
	}
	summary, ok := snap.Files[rel]
	if !ok {
		snap, err = e.cache.GetOrBuild(ctx, e.project.ID, e.project.Root, snapshot.ModeFull)
		if err != nil {
			return nil, err
		}
		summary, ok = snap.Files[rel]
	}
	if !ok {
		return nil, trailerr.NotFoundf("file not tracked: %s", rel)
	}

	events := append([]snapshot.FileEvent(nil), snap.Events[rel]...)
	sort.SliceStable(events, func(i, j int) bool {
		return snapshot.ParseEpoch(events[i].Timestamp) > snapshot.ParseEpoch(events[j].Timestamp)
	})

	sessions := rollupSessions(events, snap)

	sessionIDs := make([]string, 0, len(sessions))
	for _, s := range sessions {
		sessionIDs = append(sessionIDs, s.SessionID)
	}

	logsByID, artifactCounts, err := e.loadSessionContext(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}
	for _, s := range sessions {
		s.ArtifactCount = artifactCounts[s.SessionID]
	}

	if len(events) > activityLimit {
		events = events[:activityLimit]
	}
	activity := make([]ActivityEntry, 0, len(events))
	for _, ev := range events {
		entry := ActivityEntry{
			Event:         ev,
			ArtifactCount: artifactCounts[ev.SessionID],
		}
		if log, ok := logsByID[ev.LogID]; ok {
			entry.LogType = log.LogType
			entry.LogContent = log.Content
		}
		activity = append(activity, entry)
	}

	return &FileDetailResponse{
		File:      toListItem(summary),
		Sessions:  sessions,
		Documents: documentsFor(snap, rel),
		Activity:  activity,
	}, nil
}

// rollupSessions folds the file's events into per-session summaries, sorted
// by recency and then session id, both descending.
func rollupSessions(events []snapshot.FileEvent, snap *snapshot.Snapshot) []*SessionSummary {
	byID := make(map[string]*SessionSummary)
	var out []*SessionSummary

	for _, ev := range events {
		if ev.SessionID == "" {
			continue
		}
		s, ok := byID[ev.SessionID]
		if !ok {
			s = &SessionSummary{
				SessionID:       ev.SessionID,
				RootSessionID:   ev.RootSessionID,
				ParentSessionID: ev.ParentSessionID,
				Status:          ev.SessionStatus,
				StartedAt:       ev.SessionStartedAt,
				CostUSD:         ev.SessionCostUSD,
				actionSet:       make(map[snapshot.Action]bool),
				agentSet:        make(map[string]bool),
			}
			if rec, known := snap.Sessions[ev.SessionID]; known {
				s.Status = rec.Status
				s.StartedAt = rec.StartedAt
				s.CostUSD = rec.CostUSD
			}
			byID[ev.SessionID] = s
			out = append(out, s)
		}

		s.TouchCount++
		s.actionSet[ev.Action] = true
		if ev.AgentName != "" {
			s.agentSet[ev.AgentName] = true
		}
		if epoch := snapshot.ParseEpoch(ev.Timestamp); epoch > s.lastEpoch {
			s.lastEpoch = epoch
			s.LastTouched = ev.Timestamp
		}
	}

	for _, s := range out {
		for a := range s.actionSet {
			s.Actions = append(s.Actions, a)
		}
		sort.Slice(s.Actions, func(i, j int) bool { return s.Actions[i] < s.Actions[j] })
		for name := range s.agentSet {
			s.AgentNames = append(s.AgentNames, name)
		}
		sort.Strings(s.AgentNames)
		s.actionSet = nil
		s.agentSet = nil
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].lastEpoch != out[j].lastEpoch {
			return out[i].lastEpoch > out[j].lastEpoch
		}
		return out[i].SessionID > out[j].SessionID
	})

	return out
}

// documentsFor merges the path's source and referencing documents,
// deduplicated by (document id, relation).
func documentsFor(snap *snapshot.Snapshot, rel string) []snapshot.DocumentRef {
	type docKey struct {
		id       string
		relation string
	}
	seen := make(map[docKey]bool)
	var out []snapshot.DocumentRef

	for _, refs := range [][]snapshot.DocumentRef{snap.DocsBySource[rel], snap.DocsByRef[rel]} {
		for _, ref := range refs {
			key := docKey{ref.DocumentID, ref.Relation}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, ref)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].Relation < out[j].Relation
	})
	return out
}

// loadSessionContext bulk-fetches logs and artifacts once per request for
// all contributing sessions.
func (e *Engine) loadSessionContext(ctx context.Context, sessionIDs []string) (map[string]store.SessionLogRow, map[string]int, error) {
	logsByID := make(map[string]store.SessionLogRow)
	artifactCounts := make(map[string]int)
	if len(sessionIDs) == 0 {
		return logsByID, artifactCounts, nil
	}

	logs, err := e.store.FetchSessionLogs(ctx, sessionIDs)
	if err != nil {
		return nil, nil, trailerr.Upstream("fetching session logs", err)
	}
	for _, log := range logs {
		logsByID[log.ID] = log
	}

	artifacts, err := e.store.FetchSessionArtifacts(ctx, sessionIDs)
	if err != nil {
		return nil, nil, trailerr.Upstream("fetching session artifacts", err)
	}
	for _, a := range artifacts {
		artifactCounts[a.SessionID]++
	}

	return logsByID, artifactCounts, nil
}
