package query

import (
	"context"
	"sort"
	"strings"
	"time"

	"codetrail/internal/paths"
	"codetrail/internal/snapshot"
	"codetrail/internal/trailerr"
)

// Sort keys accepted by ListFiles. An empty key sorts by last-touched epoch.
const (
	SortByPath     = "path"
	SortByFileName = "file_name"
	SortByTouches  = "touches"
	SortBySessions = "sessions"
	SortByAgents   = "agents"
	SortByNetDiff  = "net_diff"
	SortByLastTouched = "last_touched"
)

var validSortKeys = map[string]bool{
	SortByPath:     true,
	SortByFileName: true,
	SortByTouches:  true,
	SortBySessions: true,
	SortByAgents:   true,
	SortByNetDiff:  true,
	SortByLastTouched: true,
}

// ListFilesOptions filters, sorts, and paginates the flat file view.
type ListFilesOptions struct {
	Path             string // optional prefix
	Search           string // case-insensitive substring
	IncludeUntouched bool
	Action           string // membership in the summary's action set
	FeatureID        string // case-insensitive match against attached feature ids
	SortBy           string
	SortOrder        string // "asc" or "desc"; default desc
	Offset           int
	Limit            int
}

// FileListItem is one row of the flat file view.
type FileListItem struct {
	Path        string                        `json:"path"`
	FileName    string                        `json:"fileName"`
	Exists      bool                          `json:"exists"`
	SizeBytes   int64                         `json:"sizeBytes,omitempty"`
	ModifiedAt  time.Time                     `json:"modifiedAt,omitempty"`
	Touched     bool                          `json:"touched"`
	TouchCount  int                           `json:"touchCount"`
	Actions     []snapshot.Action             `json:"actions"`
	SessionCount int                          `json:"sessionCount"`
	AgentCount  int                           `json:"agentCount"`
	Additions   int                           `json:"additions"`
	Deletions   int                           `json:"deletions"`
	NetDiff     int                           `json:"netDiff"`
	LastTouched string                        `json:"lastTouched,omitempty"`
	Features    []snapshot.FeatureInvolvement `json:"features,omitempty"`
}

// FileListResponse is the paginated result of ListFiles.
type FileListResponse struct {
	Files  []FileListItem `json:"files"`
	Total  int            `json:"total"`
	Offset int            `json:"offset"`
	Limit  int            `json:"limit"`
}

// ListFiles returns the filtered, sorted, paginated flat file view.
func (e *Engine) ListFiles(ctx context.Context, opts ListFilesOptions) (*FileListResponse, error) {
	if opts.SortBy != "" && !validSortKeys[opts.SortBy] {
		return nil, trailerr.Validation("unknown sort key: " + opts.SortBy)
	}
	if opts.SortOrder != "" && opts.SortOrder != "asc" && opts.SortOrder != "desc" {
		return nil, trailerr.Validation("sort order must be asc or desc")
	}
	if opts.Offset < 0 {
		return nil, trailerr.Validation("offset must not be negative")
	}
	limit := clamp(opts.Limit, e.cfg.Query.DefaultLimit, e.cfg.Query.MaxLimit)

	prefix := ""
	if opts.Path != "" {
		p, err := paths.Normalize(opts.Path)
		if err != nil {
			return nil, err
		}
		prefix = p
	}

	snap, err := e.cache.GetOrBuild(ctx, e.project.ID, e.project.Root, modeFor(opts.IncludeUntouched))
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(opts.Search)
	action := snapshot.Action(strings.ToLower(opts.Action))
	feature := strings.ToLower(opts.FeatureID)

	var matched []*snapshot.FileSummary
	for path, summary := range snap.Files {
		if _, ok := underPrefix(path, prefix); !ok {
			continue
		}
		if !opts.IncludeUntouched && !summary.Touched() {
			continue
		}
		if search != "" && !matchesSearch(path, search) {
			continue
		}
		if action != "" && !summary.HasAction(action) {
			continue
		}
		if feature != "" && !hasFeature(summary, feature) {
			continue
		}
		matched = append(matched, summary)
	}

	sortSummaries(matched, opts.SortBy, opts.SortOrder)

	total := len(matched)
	start := opts.Offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	files := make([]FileListItem, 0, end-start)
	for _, summary := range matched[start:end] {
		files = append(files, toListItem(summary))
	}

	return &FileListResponse{
		Files:  files,
		Total:  total,
		Offset: opts.Offset,
		Limit:  limit,
	}, nil
}

func hasFeature(summary *snapshot.FileSummary, feature string) bool {
	for _, f := range summary.Features {
		if strings.ToLower(f.FeatureID) == feature {
			return true
		}
	}
	return false
}

func fileNameOf(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// sortSummaries orders by the selected key; ties fall back to path so
// pagination is stable.
func sortSummaries(items []*snapshot.FileSummary, sortBy, sortOrder string) {
	desc := sortOrder != "asc"

	less := func(a, b *snapshot.FileSummary) bool {
		switch sortBy {
		case SortByPath:
			return a.Path < b.Path
		case SortByFileName:
			return strings.ToLower(fileNameOf(a.Path)) < strings.ToLower(fileNameOf(b.Path))
		case SortByTouches:
			return a.TouchCount < b.TouchCount
		case SortBySessions:
			return a.SessionCount() < b.SessionCount()
		case SortByAgents:
			return a.AgentCount() < b.AgentCount()
		case SortByNetDiff:
			return a.NetDiff < b.NetDiff
		default: // last-touched epoch
			return a.LastTouchedEpoch() < b.LastTouchedEpoch()
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if less(a, b) != less(b, a) {
			if desc {
				return less(b, a)
			}
			return less(a, b)
		}
		return a.Path < b.Path
	})
}

func toListItem(s *snapshot.FileSummary) FileListItem {
	return FileListItem{
		Path:         s.Path,
		FileName:     fileNameOf(s.Path),
		Exists:       s.Exists,
		SizeBytes:    s.SizeBytes,
		ModifiedAt:   s.ModifiedAt,
		Touched:      s.Touched(),
		TouchCount:   s.TouchCount,
		Actions:      s.Actions(),
		SessionCount: s.SessionCount(),
		AgentCount:   s.AgentCount(),
		Additions:    s.Additions,
		Deletions:    s.Deletions,
		NetDiff:      s.NetDiff,
		LastTouched:  s.LastTouched,
		Features:     s.Features,
	}
}
