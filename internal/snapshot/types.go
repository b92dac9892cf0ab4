// Package snapshot builds and caches immutable aggregate views of all
// file-touch activity for a project. A Snapshot is a pure function of the
// underlying event rows plus (in full mode) one filesystem scan; rebuilding
// from the same inputs yields identical summaries.
package snapshot

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Action is the kind of touch a session performed on a file.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ActionWeights rank how strongly each action type signals involvement.
var ActionWeights = map[Action]float64{
	ActionCreate: 1.00,
	ActionUpdate: 0.80,
	ActionDelete: 0.70,
	ActionRead:   0.40,
}

// Mode selects whether untouched filesystem entries are part of a snapshot.
type Mode string

const (
	// ModeFull includes untouched files, which requires a filesystem scan.
	ModeFull Mode = "full"
	// ModeTouched includes only database-known files.
	ModeTouched Mode = "touched"
)

// FileEvent is one recorded touch. Immutable once constructed.
type FileEvent struct {
	ID               int64   `json:"id"`
	SessionID        string  `json:"sessionId"`
	RootSessionID    string  `json:"rootSessionId,omitempty"`
	ParentSessionID  string  `json:"parentSessionId,omitempty"`
	SessionStatus    string  `json:"sessionStatus,omitempty"`
	SessionStartedAt string  `json:"sessionStartedAt,omitempty"`
	SessionCostUSD   float64 `json:"sessionCostUsd,omitempty"`
	Path             string  `json:"path"`
	Action           Action  `json:"action"`
	FileType         string  `json:"fileType,omitempty"`
	Timestamp        string  `json:"timestamp"`
	LinesAdded       int     `json:"linesAdded"`
	LinesDeleted     int     `json:"linesDeleted"`
	AgentName        string  `json:"agentName,omitempty"`
	LogID            string  `json:"logId,omitempty"`
}

// FileSummary is the aggregate state for one normalized path within a
// snapshot. ApplyEvent is the only mutator.
type FileSummary struct {
	Path string `json:"path"`

	// Populated only when the file was seen by a filesystem scan.
	Exists     bool      `json:"exists"`
	SizeBytes  int64     `json:"sizeBytes,omitempty"`
	ModifiedAt time.Time `json:"modifiedAt,omitempty"`

	TouchCount   int                       `json:"touchCount"`
	Additions    int                       `json:"additions"`
	Deletions    int                       `json:"deletions"`
	NetDiff      int                       `json:"netDiff"`
	LastTouched  string                    `json:"lastTouched,omitempty"`
	ActionCounts map[Action]int            `json:"actionCounts"`
	Features     []FeatureInvolvement      `json:"features,omitempty"`

	actions        map[Action]bool
	sessions       map[string]bool
	agents         map[string]bool
	sessionActions map[string]map[Action]bool
	lastEpoch      int64
}

// NewFileSummary creates an empty summary for a normalized path.
func NewFileSummary(path string) *FileSummary {
	return &FileSummary{
		Path:           path,
		ActionCounts:   make(map[Action]int),
		actions:        make(map[Action]bool),
		sessions:       make(map[string]bool),
		agents:         make(map[string]bool),
		sessionActions: make(map[string]map[Action]bool),
	}
}

// ApplyEvent folds one event into the summary. Replaying the same event set
// in any order produces the same summary.
func (s *FileSummary) ApplyEvent(e FileEvent) {
	s.TouchCount++
	s.Additions += e.LinesAdded
	s.Deletions += e.LinesDeleted
	s.NetDiff = s.Additions - s.Deletions

	s.actions[e.Action] = true
	s.ActionCounts[e.Action]++

	if e.SessionID != "" {
		s.sessions[e.SessionID] = true
		if s.sessionActions[e.SessionID] == nil {
			s.sessionActions[e.SessionID] = make(map[Action]bool)
		}
		s.sessionActions[e.SessionID][e.Action] = true
	}
	if e.AgentName != "" {
		s.agents[e.AgentName] = true
	}

	// Last touched is decided by timestamp comparison, not arrival order.
	if epoch := ParseEpoch(e.Timestamp); epoch > s.lastEpoch {
		s.lastEpoch = epoch
		s.LastTouched = e.Timestamp
	}
}

// Actions returns the accumulated action set in sorted order.
func (s *FileSummary) Actions() []Action {
	out := make([]Action, 0, len(s.actions))
	for a := range s.actions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasAction reports whether the summary saw the given action.
func (s *FileSummary) HasAction(a Action) bool {
	return s.actions[a]
}

// SessionIDs returns the distinct contributing session IDs, sorted.
func (s *FileSummary) SessionIDs() []string {
	return sortedKeys(s.sessions)
}

// SessionCount returns the number of distinct contributing sessions.
func (s *FileSummary) SessionCount() int { return len(s.sessions) }

// AgentNames returns the distinct acting agent names, sorted.
func (s *FileSummary) AgentNames() []string {
	return sortedKeys(s.agents)
}

// AgentCount returns the number of distinct acting agents.
func (s *FileSummary) AgentCount() int { return len(s.agents) }

// SessionActions returns the mapping from session ID to the set of actions
// that session performed on this file. Callers must not mutate it.
func (s *FileSummary) SessionActions() map[string]map[Action]bool {
	return s.sessionActions
}

// LastTouchedEpoch returns the parsed epoch of the newest touch, 0 if none.
func (s *FileSummary) LastTouchedEpoch() int64 { return s.lastEpoch }

// Touched reports whether any event touched this file.
func (s *FileSummary) Touched() bool { return s.TouchCount > 0 }

// InvolvementTier buckets a feature-involvement score.
type InvolvementTier string

const (
	TierPrimary    InvolvementTier = "primary"
	TierSupporting InvolvementTier = "supporting"
	TierPeripheral InvolvementTier = "peripheral"
)

// FeatureInvolvement is one scored feature attached to a FileSummary.
type FeatureInvolvement struct {
	FeatureID     string          `json:"featureId"`
	Name          string          `json:"name"`
	Status        string          `json:"status,omitempty"`
	Category      string          `json:"category,omitempty"`
	Score         float64         `json:"score"`
	MaxConfidence float64         `json:"maxConfidence"`
	Tier          InvolvementTier `json:"tier"`
	SessionCount  int             `json:"sessionCount"`
	Actions       []Action        `json:"actions"`
}

// FeatureLink is a deduplicated (feature, session) association.
type FeatureLink struct {
	FeatureID  string
	Name       string
	Status     string
	Category   string
	SessionID  string
	Confidence float64
	Signals    []SignalRef
	Commands   []string
}

// SignalRef is a link signal reduced to what scoring needs.
type SignalRef struct {
	Type        string
	Description string
	FilePath    string
}

// SessionRecord is the lightweight per-session record kept on a snapshot.
type SessionRecord struct {
	ID              string  `json:"id"`
	RootSessionID   string  `json:"rootSessionId,omitempty"`
	ParentSessionID string  `json:"parentSessionId,omitempty"`
	Status          string  `json:"status,omitempty"`
	StartedAt       string  `json:"startedAt,omitempty"`
	CostUSD         float64 `json:"costUsd,omitempty"`
	EventCount      int     `json:"eventCount"`
}

// DocumentRef ties a document to a file path, either as the document's own
// source location or as a path the document references.
type DocumentRef struct {
	DocumentID string `json:"documentId"`
	Title      string `json:"title,omitempty"`
	DocType    string `json:"docType,omitempty"`
	Path       string `json:"path"`
	Relation   string `json:"relation"`
}

// Snapshot is the immutable cached aggregate view for one project.
type Snapshot struct {
	ProjectID   string
	ProjectRoot string
	Mode        Mode
	BuildID     string
	BuiltAt     time.Time

	Files          map[string]*FileSummary
	Events         map[string][]FileEvent
	Sessions       map[string]*SessionRecord
	LinksBySession map[string][]FeatureLink
	DocsBySource   map[string][]DocumentRef
	DocsByRef      map[string][]DocumentRef
}

// Stats summarizes a snapshot for logging and CLI headers.
type Stats struct {
	Files    int `json:"files"`
	Touched  int `json:"touched"`
	Events   int `json:"events"`
	Sessions int `json:"sessions"`
	Features int `json:"features"`
}

// Stats computes aggregate totals over the snapshot.
func (s *Snapshot) Stats() Stats {
	st := Stats{
		Files:    len(s.Files),
		Sessions: len(s.Sessions),
	}
	for _, events := range s.Events {
		st.Events += len(events)
	}
	features := make(map[string]bool)
	for _, links := range s.LinksBySession {
		for _, l := range links {
			features[l.FeatureID] = true
		}
	}
	st.Features = len(features)
	for _, f := range s.Files {
		if f.Touched() {
			st.Touched++
		}
	}
	return st
}

// ParseEpoch parses an event timestamp into epoch milliseconds. Supported
// forms: RFC3339 (with or without fractional seconds), "2006-01-02 15:04:05",
// and raw epoch seconds or milliseconds. Returns 0 for anything else.
func ParseEpoch(ts string) int64 {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return 0
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.UnixMilli()
		}
	}

	if n, err := strconv.ParseInt(ts, 10, 64); err == nil {
		// Heuristic: values this large are already milliseconds.
		if n > 1e12 {
			return n
		}
		return n * 1000
	}

	return 0
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
