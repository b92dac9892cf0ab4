package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"codetrail/internal/ignore"
	"codetrail/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel})
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestScanTree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/main.go", "package main\n")
	writeFile(t, root, "src/util/helper.go", "package util\n")
	writeFile(t, root, "README.md", "# readme\n")
	writeFile(t, root, "node_modules/react/index.js", "x")
	writeFile(t, root, ".git/HEAD", "ref: refs/heads/main\n")
	writeFile(t, root, "logs/app.log", "line\n")
	writeFile(t, root, ".gitignore", "logs/\n")

	matcher := ignore.NewMatcher(root, nil)
	entries, err := ScanTree(root, matcher, testLogger())
	if err != nil {
		t.Fatalf("ScanTree failed: %v", err)
	}

	for _, want := range []string{"src/main.go", "src/util/helper.go", "README.md", ".gitignore"} {
		if _, ok := entries[want]; !ok {
			t.Errorf("Expected %s in scan results", want)
		}
	}
	for _, banned := range []string{"node_modules/react/index.js", ".git/HEAD", "logs/app.log"} {
		if _, ok := entries[banned]; ok {
			t.Errorf("%s should have been pruned", banned)
		}
	}

	main := entries["src/main.go"]
	if main.SizeBytes != int64(len("package main\n")) {
		t.Errorf("SizeBytes = %d", main.SizeBytes)
	}
	if main.ModTime.IsZero() {
		t.Error("ModTime should be populated")
	}
}

func TestScanTreeMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "does-not-exist")
	matcher := ignore.NewMatcher(root, nil)
	if _, err := ScanTree(root, matcher, testLogger()); err == nil {
		t.Error("Scanning a missing root should fail")
	}
}

func TestScanTreeSkipsDanglingSymlink(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ok.txt", "x")
	if err := os.Symlink(filepath.Join(root, "gone.txt"), filepath.Join(root, "dangling")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	matcher := ignore.NewMatcher(root, nil)
	entries, err := ScanTree(root, matcher, testLogger())
	if err != nil {
		t.Fatalf("ScanTree failed: %v", err)
	}
	if _, ok := entries["dangling"]; ok {
		t.Error("Dangling symlink should be skipped, not recorded")
	}
	if _, ok := entries["ok.txt"]; !ok {
		t.Error("Per-entry skips must not abort the walk")
	}
}
