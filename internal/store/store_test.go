package store

import (
	"context"
	"testing"

	"github.com/klauspost/compress/zstd"

	"codetrail/internal/logging"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	logger := logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel})
	db, err := Open(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mustExec(t *testing.T, db *DB, query string, args ...interface{}) {
	t.Helper()
	if _, err := db.Conn().Exec(query, args...); err != nil {
		t.Fatalf("exec failed: %v\n%s", err, query)
	}
}

func TestFetchFileEventsDefaulting(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	mustExec(t, db, `INSERT INTO sessions (id, project_id, root_session_id, status, started_at, cost_usd)
		VALUES ('s1', 'p1', 'r1', 'completed', '2026-08-01T10:00:00Z', 1.25)`)
	mustExec(t, db, `INSERT INTO file_events
		(project_id, session_id, file_path, action, tool_name, timestamp, lines_added, lines_deleted, agent_name, log_id)
		VALUES ('p1', 's1', 'src/a.ts', 'update', 'Edit', '2026-08-01T10:05:00Z', 10, 2, 'coder', 'log-1')`)
	// Row with NULLs everywhere optional, and a session that doesn't exist.
	mustExec(t, db, `INSERT INTO file_events (project_id, session_id, file_path)
		VALUES ('p1', 's-ghost', 'src/b.ts')`)
	// Different project must not leak in.
	mustExec(t, db, `INSERT INTO file_events (project_id, session_id, file_path)
		VALUES ('p2', 's9', 'other.ts')`)

	events, err := db.FetchFileEvents(ctx, "p1")
	if err != nil {
		t.Fatalf("FetchFileEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}

	// Descending insertion order: the NULL-heavy row comes first.
	bare := events[0]
	if bare.FilePath != "src/b.ts" {
		t.Fatalf("Expected src/b.ts first, got %s", bare.FilePath)
	}
	if bare.Action != "" || bare.LinesAdded != 0 || bare.SessionCostUSD != 0 {
		t.Errorf("NULL columns should default to zero values: %+v", bare)
	}

	full := events[1]
	if full.SessionStatus != "completed" || full.RootSessionID != "r1" {
		t.Errorf("Expected session join fields, got %+v", full)
	}
	if full.LinesAdded != 10 || full.LinesDeleted != 2 || full.SessionCostUSD != 1.25 {
		t.Errorf("Unexpected numeric fields: %+v", full)
	}
}

func TestFetchFeatureLinksBothDirections(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	mustExec(t, db, `INSERT INTO features (id, project_id, name, status, category)
		VALUES ('f1', 'p1', 'Login Flow', 'active', 'auth')`)
	mustExec(t, db, `INSERT INTO features (id, project_id, name, status, category)
		VALUES ('f2', 'p1', 'Search', 'done', 'ux')`)

	// feature -> session direction, with signals metadata.
	mustExec(t, db, `INSERT INTO entity_links (project_id, source_type, source_id, target_type, target_id, confidence, metadata)
		VALUES ('p1', 'feature', 'f1', 'session', 's1', 0.9,
		'{"signals":[{"type":"diff","file_path":"src/login.ts"}],"commands":["npm test"]}')`)
	// session -> feature direction.
	mustExec(t, db, `INSERT INTO entity_links (project_id, source_type, source_id, target_type, target_id, confidence)
		VALUES ('p1', 'session', 's2', 'feature', 'f2', 0.4)`)
	// Malformed metadata is tolerated.
	mustExec(t, db, `INSERT INTO entity_links (project_id, source_type, source_id, target_type, target_id, confidence, metadata)
		VALUES ('p1', 'feature', 'f2', 'session', 's3', 0.5, '{not json')`)

	links, err := db.FetchFeatureLinks(ctx, "p1")
	if err != nil {
		t.Fatalf("FetchFeatureLinks failed: %v", err)
	}
	if len(links) != 3 {
		t.Fatalf("Expected 3 links, got %d", len(links))
	}

	byPair := make(map[string]FeatureLinkRow)
	for _, l := range links {
		byPair[l.FeatureID+"/"+l.SessionID] = l
	}

	f1 := byPair["f1/s1"]
	if f1.FeatureName != "Login Flow" || f1.Confidence != 0.9 {
		t.Errorf("Unexpected f1 link: %+v", f1)
	}
	if len(f1.Signals) != 1 || f1.Signals[0].FilePath != "src/login.ts" {
		t.Errorf("Expected parsed signal, got %+v", f1.Signals)
	}
	if len(f1.Commands) != 1 || f1.Commands[0] != "npm test" {
		t.Errorf("Expected parsed commands, got %+v", f1.Commands)
	}

	f2 := byPair["f2/s2"]
	if f2.FeatureID != "f2" || f2.SessionID != "s2" {
		t.Error("session->feature direction should be normalized to feature/session")
	}

	bad := byPair["f2/s3"]
	if bad.Signals != nil || bad.Commands != nil {
		t.Errorf("Malformed metadata should yield empty signals/commands, got %+v", bad)
	}
}

func TestFetchDocumentsAndRefs(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	mustExec(t, db, `INSERT INTO documents (id, project_id, title, doc_type, file_path, session_id, created_at)
		VALUES ('d1', 'p1', 'Design Notes', 'design', 'docs/design.md', 's1', '2026-08-01T09:00:00Z')`)
	mustExec(t, db, `INSERT INTO document_path_refs (project_id, document_id, file_path, relation)
		VALUES ('p1', 'd1', 'src/login.ts', 'mentions')`)

	docs, err := db.FetchDocuments(ctx, "p1")
	if err != nil {
		t.Fatalf("FetchDocuments failed: %v", err)
	}
	if len(docs) != 1 || docs[0].Title != "Design Notes" {
		t.Fatalf("Unexpected documents: %+v", docs)
	}

	refs, err := db.FetchDocumentRefs(ctx, "p1")
	if err != nil {
		t.Fatalf("FetchDocumentRefs failed: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("Expected 1 ref, got %d", len(refs))
	}
	if refs[0].Title != "Design Notes" || refs[0].Relation != "mentions" {
		t.Errorf("Expected ref joined to document, got %+v", refs[0])
	}
}

func TestFetchSessionLogsZstd(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	compressed := encoder.EncodeAll([]byte("tool_use: Edit src/a.ts"), nil)
	_ = encoder.Close()

	mustExec(t, db, `INSERT INTO session_logs (id, session_id, log_type, content, compression, timestamp)
		VALUES ('log-1', 's1', 'tool_use', ?, 'zstd', '2026-08-01T10:05:00Z')`, compressed)
	mustExec(t, db, `INSERT INTO session_logs (id, session_id, log_type, content, timestamp)
		VALUES ('log-2', 's1', 'message', 'plain text', '2026-08-01T10:06:00Z')`)
	mustExec(t, db, `INSERT INTO session_logs (id, session_id, content) VALUES ('log-3', 's-other', 'x')`)

	logs, err := db.FetchSessionLogs(ctx, []string{"s1"})
	if err != nil {
		t.Fatalf("FetchSessionLogs failed: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("Expected 2 logs, got %d", len(logs))
	}

	byID := map[string]SessionLogRow{}
	for _, l := range logs {
		byID[l.ID] = l
	}
	if byID["log-1"].Content != "tool_use: Edit src/a.ts" {
		t.Errorf("Expected zstd content decompressed, got %q", byID["log-1"].Content)
	}
	if byID["log-2"].Content != "plain text" {
		t.Errorf("Expected plain content verbatim, got %q", byID["log-2"].Content)
	}

	// Empty ID set short-circuits without touching the database.
	empty, err := db.FetchSessionLogs(ctx, nil)
	if err != nil || empty != nil {
		t.Errorf("Expected nil result for empty id set, got %v, %v", empty, err)
	}
}

func TestFetchSessionArtifacts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	mustExec(t, db, `INSERT INTO session_artifacts (id, session_id, artifact_type, name, file_path, created_at)
		VALUES ('a1', 's1', 'patch', 'login.patch', 'artifacts/login.patch', '2026-08-01T10:07:00Z')`)
	mustExec(t, db, `INSERT INTO session_artifacts (id, session_id) VALUES ('a2', 's2')`)

	artifacts, err := db.FetchSessionArtifacts(ctx, []string{"s1", "s2"})
	if err != nil {
		t.Fatalf("FetchSessionArtifacts failed: %v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("Expected 2 artifacts, got %d", len(artifacts))
	}
}
