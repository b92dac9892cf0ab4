// Package paths canonicalizes file paths used as snapshot map keys and
// guards every filesystem access against directory traversal.
//
// Three operations with different strictness:
//   - Normalize rejects any ".." segment outright (strict, for caller input)
//   - ResolveSafe produces a verified absolute path inside the project root
//   - MapEventPath is lenient and returns "" for unmappable event-row paths
package paths

import (
	"os"
	"path/filepath"
	"strings"

	"codetrail/internal/trailerr"
)

// Normalize converts a raw path into its canonical relative form: forward
// slashes, no leading/trailing slash, no empty or "." segments. Any ".."
// segment fails with a traversal error; Normalize never collapses it.
func Normalize(raw string) (string, error) {
	if raw == "" {
		return "", trailerr.Validation("empty path")
	}

	s := strings.ReplaceAll(raw, "\\", "/")

	// Strip a Windows volume prefix so "C:/x" and "/x" normalize alike.
	if len(s) >= 2 && s[1] == ':' {
		s = s[2:]
	}

	var segments []string
	for _, seg := range strings.Split(s, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			return "", trailerr.Traversal(raw)
		default:
			segments = append(segments, seg)
		}
	}

	if len(segments) == 0 {
		return "", trailerr.Validation("path has no segments: " + raw)
	}

	return strings.Join(segments, "/"), nil
}

// ResolveSafe resolves a relative path to an absolute filesystem path and
// verifies the result stays inside the project root. The relative path is
// normalized first, so traversal segments fail before touching the disk.
func ResolveSafe(projectRoot, raw string) (string, error) {
	rel, err := Normalize(raw)
	if err != nil {
		return "", err
	}

	rootAbs, err := filepath.Abs(projectRoot)
	if err != nil {
		return "", trailerr.New(trailerr.ValidationFailed, "invalid project root", err)
	}
	rootAbs = resolveSymlinks(rootAbs)

	target := resolveSymlinks(filepath.Join(rootAbs, filepath.FromSlash(rel)))

	if !isDescendant(rootAbs, target) {
		return "", trailerr.Traversal(raw)
	}

	return target, nil
}

// MapEventPath maps a path from an event row to its snapshot key. Event rows
// may carry absolute paths recorded on another machine; those are re-rooted
// under the project root when possible. Returns "" for unmappable paths so
// ingestion can drop the row instead of aborting.
func MapEventPath(projectRoot, raw string) string {
	if raw == "" {
		return ""
	}

	s := strings.ReplaceAll(raw, "\\", "/")
	if len(s) >= 2 && s[1] == ':' {
		s = s[2:]
	}

	if strings.HasPrefix(s, "/") {
		s = rerootAbsolute(projectRoot, s)
		if s == "" {
			return ""
		}
	}

	rel, err := Normalize(s)
	if err != nil {
		return ""
	}
	return rel
}

// rerootAbsolute turns an absolute path into a root-relative one. If the path
// is not under the project root, the root's base name is searched for as a
// path component and the remainder after it is used.
func rerootAbsolute(projectRoot, abs string) string {
	rootAbs, err := filepath.Abs(projectRoot)
	if err != nil {
		return ""
	}
	rootSlash := filepath.ToSlash(rootAbs)

	if abs == rootSlash {
		return ""
	}
	if strings.HasPrefix(abs, rootSlash+"/") {
		return abs[len(rootSlash)+1:]
	}

	base := filepath.Base(rootAbs)
	if base != "" && base != "/" && base != "." {
		marker := "/" + base + "/"
		if idx := strings.Index(abs, marker); idx >= 0 {
			return abs[idx+len(marker):]
		}
	}

	return ""
}

// resolveSymlinks resolves path through symlinks, falling back to the input
// for paths that do not exist yet.
func resolveSymlinks(path string) string {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Resolve the deepest existing ancestor so a symlinked root
			// still verifies correctly for not-yet-created children.
			dir, base := filepath.Split(path)
			dir = strings.TrimRight(dir, string(filepath.Separator))
			if dir == "" || dir == path {
				return path
			}
			return filepath.Join(resolveSymlinks(dir), base)
		}
		return path
	}
	return resolved
}

// isDescendant reports whether target equals root or sits beneath it.
func isDescendant(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, "../"))
}
