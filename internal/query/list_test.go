package query

import (
	"context"
	"reflect"
	"testing"

	"codetrail/internal/snapshot"
	"codetrail/internal/store"
	"codetrail/internal/trailerr"
)

func TestListFilesEndToEnd(t *testing.T) {
	fs := &fakeStore{events: []store.EventRow{
		{ID: 1, SessionID: "s1", FilePath: "a.ts", Action: "update", Timestamp: "2026-08-01T10:00:00Z", LinesAdded: 10, LinesDeleted: 2},
		{ID: 2, SessionID: "s1", FilePath: "a.ts", Action: "read", Timestamp: "2026-08-01T10:05:00Z"},
	}}
	e := newTestEngine(t, fs)

	resp, err := e.ListFiles(context.Background(), ListFilesOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || len(resp.Files) != 1 {
		t.Fatalf("got %d files (total %d), want 1", len(resp.Files), resp.Total)
	}

	f := resp.Files[0]
	if f.Path != "a.ts" || f.TouchCount != 2 || f.NetDiff != 8 {
		t.Errorf("unexpected item: %+v", f)
	}
	want := []snapshot.Action{snapshot.ActionRead, snapshot.ActionUpdate}
	if !reflect.DeepEqual(f.Actions, want) {
		t.Errorf("actions = %v, want %v", f.Actions, want)
	}
}

func TestListFilesSortAndPaginate(t *testing.T) {
	fs := &fakeStore{events: []store.EventRow{
		event(1, "s1", "one.ts", "update", "2026-08-01T10:00:00Z"),
		event(2, "s1", "two.ts", "update", "2026-08-01T11:00:00Z"),
		event(3, "s1", "two.ts", "read", "2026-08-01T11:05:00Z"),
		event(4, "s1", "three.ts", "update", "2026-08-01T12:00:00Z"),
		event(5, "s1", "three.ts", "read", "2026-08-01T12:05:00Z"),
		event(6, "s1", "three.ts", "create", "2026-08-01T09:00:00Z"),
	}}
	e := newTestEngine(t, fs)
	ctx := context.Background()

	resp, err := e.ListFiles(ctx, ListFilesOptions{SortBy: SortByTouches, SortOrder: "asc"})
	if err != nil {
		t.Fatal(err)
	}
	got := make([]string, 0, len(resp.Files))
	for _, f := range resp.Files {
		got = append(got, f.Path)
	}
	if want := []string{"one.ts", "two.ts", "three.ts"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}

	// Default order is last-touched descending.
	resp, err = e.ListFiles(ctx, ListFilesOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Files[0].Path != "three.ts" {
		t.Errorf("newest first, got %s", resp.Files[0].Path)
	}

	resp, err = e.ListFiles(ctx, ListFilesOptions{SortBy: SortByPath, SortOrder: "asc", Offset: 1, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 3 || len(resp.Files) != 1 || resp.Files[0].Path != "three.ts" {
		t.Errorf("pagination: total=%d files=%v", resp.Total, resp.Files)
	}

	// Limits clamp to the configured maximum; zero means the default.
	resp, err = e.ListFiles(ctx, ListFilesOptions{Limit: 100000})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Limit != e.cfg.Query.MaxLimit {
		t.Errorf("limit = %d, want %d", resp.Limit, e.cfg.Query.MaxLimit)
	}
	resp, err = e.ListFiles(ctx, ListFilesOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Limit != e.cfg.Query.DefaultLimit {
		t.Errorf("default limit = %d, want %d", resp.Limit, e.cfg.Query.DefaultLimit)
	}
}

func TestListFilesFilters(t *testing.T) {
	fs := &fakeStore{
		events: []store.EventRow{
			event(1, "s1", "src/login.ts", "update", "2026-08-01T10:00:00Z"),
			event(2, "s2", "src/token.ts", "read", "2026-08-01T10:00:00Z"),
			event(3, "s1", "docs/notes.md", "delete", "2026-08-01T10:00:00Z"),
		},
		links: []store.FeatureLinkRow{
			{FeatureID: "AUTH", FeatureName: "Auth", SessionID: "s1", Confidence: 0.9},
		},
	}
	e := newTestEngine(t, fs)
	ctx := context.Background()

	cases := []struct {
		name string
		opts ListFilesOptions
		want []string
	}{
		{"prefix", ListFilesOptions{Path: "src", SortBy: SortByPath, SortOrder: "asc"}, []string{"src/login.ts", "src/token.ts"}},
		{"search", ListFilesOptions{Search: "TOKEN"}, []string{"src/token.ts"}},
		{"action", ListFilesOptions{Action: "delete"}, []string{"docs/notes.md"}},
		{"feature case-insensitive", ListFilesOptions{FeatureID: "auth", SortBy: SortByPath, SortOrder: "asc"}, []string{"docs/notes.md", "src/login.ts"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := e.ListFiles(ctx, tc.opts)
			if err != nil {
				t.Fatal(err)
			}
			got := make([]string, 0, len(resp.Files))
			for _, f := range resp.Files {
				got = append(got, f.Path)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("paths = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestListFilesRejectsBadParameters(t *testing.T) {
	e := newTestEngine(t, &fakeStore{})
	ctx := context.Background()

	if _, err := e.ListFiles(ctx, ListFilesOptions{SortBy: "size"}); !trailerr.IsValidation(err) {
		t.Errorf("bad sort key: got %v", err)
	}
	if _, err := e.ListFiles(ctx, ListFilesOptions{SortOrder: "sideways"}); !trailerr.IsValidation(err) {
		t.Errorf("bad sort order: got %v", err)
	}
	if _, err := e.ListFiles(ctx, ListFilesOptions{Offset: -1}); !trailerr.IsValidation(err) {
		t.Errorf("negative offset: got %v", err)
	}
	if _, err := e.ListFiles(ctx, ListFilesOptions{Path: "../etc"}); !trailerr.IsValidation(err) {
		t.Errorf("traversal prefix: got %v", err)
	}
}
