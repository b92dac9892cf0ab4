// Package ignore decides which filesystem entries are excluded from activity
// scans. Exclusion comes from two sources: a fixed built-in set that is always
// active, and gitignore-style patterns loaded best-effort from the project's
// .gitignore.
//
// The matcher is deliberately dependency-free and does not reproduce full
// gitignore precedence: negation lines ("!pattern") are skipped, so re-inclusion
// never happens. Directory patterns ("dist/") exclude the directory and
// everything under it, patterns containing a separator glob against the whole
// relative path, and bare patterns glob against the base name only.
package ignore

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// BuiltinExcludes are always excluded regardless of .gitignore contents:
// version control, dependency installs, build outputs, and coverage output.
var BuiltinExcludes = []string{".git", "node_modules", "dist", "build", "coverage"}

type pattern struct {
	body     string
	dirOnly  bool // trailing "/" in the source line
	anchored bool // contains a separator, matched against the full path
}

// Matcher answers ShouldIgnore for paths relative to one project root.
type Matcher struct {
	builtins map[string]bool
	patterns []pattern
}

// NewMatcher builds a matcher for the project root. A missing or unreadable
// .gitignore means "no patterns". Extra patterns (from config) are appended
// after the .gitignore ones and use the same syntax.
func NewMatcher(projectRoot string, extra []string) *Matcher {
	m := &Matcher{builtins: make(map[string]bool, len(BuiltinExcludes))}
	for _, token := range BuiltinExcludes {
		m.builtins[token] = true
	}

	m.loadGitignore(filepath.Join(projectRoot, ".gitignore"))
	for _, line := range extra {
		m.addPattern(line)
	}

	return m
}

func (m *Matcher) loadGitignore(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		m.addPattern(scanner.Text())
	}
}

func (m *Matcher) addPattern(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	// Negation is not honored here; skipping keeps the matcher conservative
	// rather than wrongly re-including.
	if strings.HasPrefix(line, "!") {
		return
	}

	p := pattern{body: line}
	if strings.HasSuffix(p.body, "/") {
		p.dirOnly = true
		p.body = strings.TrimSuffix(p.body, "/")
	}
	p.body = strings.TrimPrefix(p.body, "/")
	if p.body == "" {
		return
	}
	p.anchored = strings.Contains(p.body, "/")

	m.patterns = append(m.patterns, p)
}

// ShouldIgnore reports whether the relative path is excluded from scans.
// relPath must be in normalized form (forward slashes, no leading slash).
func (m *Matcher) ShouldIgnore(relPath string, isDir bool) bool {
	if relPath == "" {
		return false
	}

	segments := strings.Split(relPath, "/")
	for _, seg := range segments {
		if m.builtins[seg] {
			return true
		}
	}

	base := segments[len(segments)-1]
	for _, p := range m.patterns {
		if p.matches(relPath, base, segments, isDir) {
			return true
		}
	}

	return false
}

func (p pattern) matches(relPath, base string, segments []string, isDir bool) bool {
	if p.dirOnly {
		if p.anchored {
			// e.g. "docs/generated/": the directory itself or anything below it
			if relPath == p.body || strings.HasPrefix(relPath, p.body+"/") {
				return isDir || relPath != p.body
			}
			return false
		}
		// e.g. "logs/": any directory segment with that name excludes the subtree
		for i, seg := range segments {
			last := i == len(segments)-1
			if match(p.body, seg) && (!last || isDir) {
				return true
			}
		}
		return false
	}

	if p.anchored {
		return match(p.body, relPath)
	}
	return match(p.body, base)
}

// match wraps path.Match, treating a malformed glob as a literal comparison.
func match(glob, name string) bool {
	ok, err := path.Match(glob, name)
	if err != nil {
		return glob == name
	}
	return ok
}
