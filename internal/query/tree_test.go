package query

import (
	"context"
	"errors"
	"testing"

	"codetrail/internal/config"
	"codetrail/internal/logging"
	"codetrail/internal/registry"
	"codetrail/internal/snapshot"
	"codetrail/internal/store"
	"codetrail/internal/trailerr"
)

// fakeStore serves canned rows and can fail individual fetches.
type fakeStore struct {
	events    []store.EventRow
	links     []store.FeatureLinkRow
	documents []store.DocumentRow
	refs      []store.DocRefRow
	logs      []store.SessionLogRow
	artifacts []store.ArtifactRow

	failLogs bool

	logFetches int
}

func (f *fakeStore) FetchFileEvents(ctx context.Context, projectID string) ([]store.EventRow, error) {
	return f.events, nil
}

func (f *fakeStore) FetchFeatureLinks(ctx context.Context, projectID string) ([]store.FeatureLinkRow, error) {
	return f.links, nil
}

func (f *fakeStore) FetchDocuments(ctx context.Context, projectID string) ([]store.DocumentRow, error) {
	return f.documents, nil
}

func (f *fakeStore) FetchDocumentRefs(ctx context.Context, projectID string) ([]store.DocRefRow, error) {
	return f.refs, nil
}

func (f *fakeStore) FetchSessionLogs(ctx context.Context, sessionIDs []string) ([]store.SessionLogRow, error) {
	f.logFetches++
	if f.failLogs {
		return nil, errors.New("connection refused")
	}
	return f.logs, nil
}

func (f *fakeStore) FetchSessionArtifacts(ctx context.Context, sessionIDs []string) ([]store.ArtifactRow, error) {
	return f.artifacts, nil
}

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel})
}

func newTestEngine(t *testing.T, fs *fakeStore) *Engine {
	t.Helper()
	project := registry.Project{ID: "proj", Name: "proj", Root: t.TempDir()}
	return NewEngine(project, fs, testLogger(), config.DefaultConfig())
}

func event(id int64, session, path, action, ts string) store.EventRow {
	return store.EventRow{ID: id, SessionID: session, FilePath: path, Action: action, Timestamp: ts}
}

func TestGetTreeRejectsBadDepth(t *testing.T) {
	e := newTestEngine(t, &fakeStore{})
	if _, err := e.GetTree(context.Background(), GetTreeOptions{Depth: 0}); !trailerr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetTreeRollups(t *testing.T) {
	fs := &fakeStore{events: []store.EventRow{
		event(1, "s1", "src/a.ts", "update", "2026-08-01T10:00:00Z"),
		event(2, "s2", "src/a.ts", "read", "2026-08-01T11:00:00Z"),
		event(3, "s1", "src/lib/b.ts", "create", "2026-08-01T09:00:00Z"),
		event(4, "s1", "README.md", "update", "2026-08-01T08:00:00Z"),
	}}
	e := newTestEngine(t, fs)

	resp, err := e.GetTree(context.Background(), GetTreeOptions{Depth: 5})
	if err != nil {
		t.Fatal(err)
	}
	if resp.TotalFiles != 3 {
		t.Fatalf("totalFiles = %d, want 3", resp.TotalFiles)
	}
	if len(resp.Nodes) != 2 {
		t.Fatalf("root children = %d, want 2", len(resp.Nodes))
	}

	// Folders sort before files.
	src, readme := resp.Nodes[0], resp.Nodes[1]
	if src.Path != "src" || src.Type != NodeFolder {
		t.Fatalf("first node = %s (%s), want src folder", src.Path, src.Type)
	}
	if readme.Path != "README.md" || readme.Type != NodeFile {
		t.Fatalf("second node = %s (%s), want README.md file", readme.Path, readme.Type)
	}

	if src.TouchCount != 3 {
		t.Errorf("src touchCount = %d, want 3", src.TouchCount)
	}
	if src.SessionCount != 2 {
		t.Errorf("src sessionCount = %d, want 2", src.SessionCount)
	}
	if src.LastTouched != "2026-08-01T11:00:00Z" {
		t.Errorf("src lastTouched = %q", src.LastTouched)
	}

	var lib *TreeNode
	for _, child := range src.Children {
		if child.Name == "lib" {
			lib = child
		}
	}
	if lib == nil || lib.Type != NodeFolder {
		t.Fatal("expected src/lib folder node")
	}
	if lib.TouchCount != 1 || len(lib.Children) != 1 || lib.Children[0].Path != "src/lib/b.ts" {
		t.Errorf("unexpected lib rollup: %+v", lib)
	}
}

func TestGetTreeDepthBoundary(t *testing.T) {
	fs := &fakeStore{events: []store.EventRow{
		event(1, "s1", "a/b/c/d/e.ts", "update", "2026-08-01T10:00:00Z"),
	}}
	e := newTestEngine(t, fs)

	resp, err := e.GetTree(context.Background(), GetTreeOptions{Depth: 3})
	if err != nil {
		t.Fatal(err)
	}

	node := resp.Nodes[0]
	for _, want := range []string{"a", "a/b", "a/b/c"} {
		if node.Path != want {
			t.Fatalf("node path = %q, want %q", node.Path, want)
		}
		if node.TouchCount != 1 {
			t.Errorf("%s touchCount = %d, want 1", node.Path, node.TouchCount)
		}
		if len(node.Children) > 0 {
			node = node.Children[0]
		}
	}

	// The boundary node carries the rollup but materializes nothing deeper.
	if !node.HasChildren {
		t.Error("boundary node should report hasChildren")
	}
	if len(node.Children) != 0 {
		t.Errorf("boundary node has %d children, want 0", len(node.Children))
	}
}

func TestGetTreePrefixAndSearch(t *testing.T) {
	fs := &fakeStore{events: []store.EventRow{
		event(1, "s1", "src/auth/login.ts", "update", "2026-08-01T10:00:00Z"),
		event(2, "s1", "src/auth/token.ts", "update", "2026-08-01T10:00:00Z"),
		event(3, "s1", "docs/login.md", "update", "2026-08-01T10:00:00Z"),
	}}
	e := newTestEngine(t, fs)

	resp, err := e.GetTree(context.Background(), GetTreeOptions{Path: "src/auth", Depth: 2, Search: "login"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.TotalFiles != 1 {
		t.Fatalf("totalFiles = %d, want 1", resp.TotalFiles)
	}
	if len(resp.Nodes) != 1 || resp.Nodes[0].Path != "src/auth/login.ts" {
		t.Fatalf("unexpected nodes: %+v", resp.Nodes)
	}
}

func TestGetTreeClampsDepth(t *testing.T) {
	e := newTestEngine(t, &fakeStore{})
	resp, err := e.GetTree(context.Background(), GetTreeOptions{Depth: 99})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Depth != config.DefaultConfig().Query.MaxTreeDepth {
		t.Fatalf("depth = %d, want clamped to %d", resp.Depth, config.DefaultConfig().Query.MaxTreeDepth)
	}
}

func TestGetTreeExcludesUntouchedByDefault(t *testing.T) {
	fs := &fakeStore{events: []store.EventRow{
		event(1, "s1", "a.ts", "update", "2026-08-01T10:00:00Z"),
	}}
	e := newTestEngine(t, fs)

	resp, err := e.GetTree(context.Background(), GetTreeOptions{Depth: 1})
	if err != nil {
		t.Fatal(err)
	}
	if resp.TotalFiles != 1 {
		t.Fatalf("totalFiles = %d, want 1", resp.TotalFiles)
	}
	if resp.Nodes[0].Actions[0] != snapshot.ActionUpdate {
		t.Errorf("unexpected actions: %v", resp.Nodes[0].Actions)
	}
}
