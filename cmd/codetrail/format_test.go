package main

import (
	"strings"
	"testing"

	"codetrail/internal/query"
)

func TestFormatResponseJSON(t *testing.T) {
	resp := &FilesResponseCLI{
		Project: "demo",
		Files:   []query.FileListItem{{Path: "src/a.ts", TouchCount: 2}},
		Total:   1,
		Limit:   100,
	}

	out, err := FormatResponse(resp, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"project": "demo"`, `"path": "src/a.ts"`, `"touchCount": 2`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestFormatResponseYAML(t *testing.T) {
	resp := &FilesResponseCLI{Project: "demo", Total: 0, Limit: 100}

	out, err := FormatResponse(resp, FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	// yaml keys follow the json tags
	if !strings.Contains(out, "project: demo") {
		t.Errorf("unexpected yaml:\n%s", out)
	}
}

func TestFormatResponseHumanTree(t *testing.T) {
	resp := &TreeResponseCLI{
		Project:    "demo",
		Depth:      2,
		TotalFiles: 1,
		Nodes: []*query.TreeNode{{
			Path: "src", Name: "src", Type: query.NodeFolder, Touched: true,
			TouchCount: 3, SessionCount: 1,
			Children: []*query.TreeNode{{
				Path: "src/a.ts", Name: "a.ts", Type: query.NodeFile, Touched: true,
				TouchCount: 3, SessionCount: 1,
			}},
		}},
	}

	out, err := FormatResponse(resp, FormatHuman)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "src/") || !strings.Contains(out, "a.ts") {
		t.Errorf("unexpected human output:\n%s", out)
	}
	if !strings.Contains(out, "[3 touches, 1 sessions]") {
		t.Errorf("missing rollup line:\n%s", out)
	}
}

func TestFormatResponseUnknownFormat(t *testing.T) {
	if _, err := FormatResponse(&FilesResponseCLI{}, OutputFormat("csv")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
