// Package store gives the activity engine its row-fetch contract: parameterized
// queries over the relational store that the session-ingestion pipeline
// populates. The engine only ever sees the typed row structs below; all
// field-name mapping and defaulting (missing numeric -> 0, missing string -> "")
// happens once at this boundary, never in aggregation logic.
package store

import "context"

// EventRow is one file-touch event joined to its owning session.
type EventRow struct {
	ID              int64
	SessionID       string
	RootSessionID   string
	ParentSessionID string
	SessionStatus   string
	SessionStartedAt string
	SessionCostUSD  float64
	FilePath        string
	Action          string
	FileType        string
	ToolName        string
	Timestamp       string
	LinesAdded      int
	LinesDeleted    int
	AgentName       string
	LogID           string
}

// Signal is one piece of evidence attached to a feature link. A signal may
// name the file it holds directly responsible.
type Signal struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	FilePath    string `json:"file_path,omitempty"`
}

// FeatureLinkRow is one feature<->session association, already normalized to
// feature-id/session-id direction and joined to the feature record. Signals
// and Commands come from the link's metadata JSON; malformed metadata yields
// empty slices rather than an error.
type FeatureLinkRow struct {
	FeatureID       string
	FeatureName     string
	FeatureStatus   string
	FeatureCategory string
	SessionID       string
	Confidence      float64
	Signals         []Signal
	Commands        []string
}

// DocumentRow is one document owned by the project.
type DocumentRow struct {
	ID        string
	Title     string
	DocType   string
	FilePath  string
	SessionID string
	CreatedAt string
}

// DocRefRow is one path reference made by a document.
type DocRefRow struct {
	DocumentID string
	Title      string
	DocType    string
	FilePath   string
	Relation   string
	CreatedAt  string
}

// SessionLogRow is one raw transcript entry. Content is decompressed at the
// store boundary when the row is stored compressed.
type SessionLogRow struct {
	ID        string
	SessionID string
	LogType   string
	Content   string
	Timestamp string
}

// ArtifactRow is one artifact a session produced.
type ArtifactRow struct {
	ID           string
	SessionID    string
	ArtifactType string
	Name         string
	FilePath     string
	CreatedAt    string
}

// Store is the row-fetch contract consumed by the snapshot builder and the
// query layer. Implementations return rows in descending insertion order for
// events; the engine does not depend on that ordering for correctness.
type Store interface {
	// FetchFileEvents returns all file-touch events for the project's sessions.
	FetchFileEvents(ctx context.Context, projectID string) ([]EventRow, error)

	// FetchFeatureLinks returns feature<->session links with both schema
	// directions normalized to feature-id/session-id.
	FetchFeatureLinks(ctx context.Context, projectID string) ([]FeatureLinkRow, error)

	// FetchDocuments returns the project's documents.
	FetchDocuments(ctx context.Context, projectID string) ([]DocumentRow, error)

	// FetchDocumentRefs returns the project's document path references.
	FetchDocumentRefs(ctx context.Context, projectID string) ([]DocRefRow, error)

	// FetchSessionLogs bulk-fetches raw log entries for a set of sessions.
	FetchSessionLogs(ctx context.Context, sessionIDs []string) ([]SessionLogRow, error)

	// FetchSessionArtifacts bulk-fetches artifacts for a set of sessions.
	FetchSessionArtifacts(ctx context.Context, sessionIDs []string) ([]ArtifactRow, error)
}
