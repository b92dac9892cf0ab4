package query

import (
	"context"
	"sort"
	"strings"

	"codetrail/internal/paths"
	"codetrail/internal/snapshot"
	"codetrail/internal/trailerr"
)

// NodeType distinguishes tree node kinds.
type NodeType string

const (
	NodeFile   NodeType = "file"
	NodeFolder NodeType = "folder"
)

// TreeNode is one node of a depth-limited activity tree. Nodes are built per
// request and discarded after serialization; they are never cached.
type TreeNode struct {
	Path        string            `json:"path"`
	Name        string            `json:"name"`
	Type        NodeType          `json:"type"`
	Depth       int               `json:"depth"`
	ParentPath  string            `json:"parentPath,omitempty"`
	TouchCount  int               `json:"touchCount"`
	Touched     bool              `json:"touched"`
	LastTouched string            `json:"lastTouched,omitempty"`
	Actions     []snapshot.Action `json:"actions,omitempty"`
	SessionCount int              `json:"sessionCount"`
	FeatureCount int              `json:"featureCount"`
	HasChildren bool              `json:"hasChildren"`
	Exists      bool              `json:"exists,omitempty"`
	SizeBytes   int64             `json:"sizeBytes,omitempty"`
	Children    []*TreeNode       `json:"children,omitempty"`

	// rollup bookkeeping, collapsed into the public fields by finalize
	sessionSet map[string]bool
	featureSet map[string]bool
	actionSet  map[snapshot.Action]bool
	lastEpoch  int64
}

// GetTreeOptions selects the tree view.
type GetTreeOptions struct {
	Path             string // optional prefix; "" is the project root
	Depth            int    // maximum depth below the prefix, >= 1
	IncludeUntouched bool
	Search           string // case-insensitive substring on path or file name
}

// TreeResponse is the result of GetTree.
type TreeResponse struct {
	Path       string      `json:"path,omitempty"`
	Depth      int         `json:"depth"`
	Nodes      []*TreeNode `json:"nodes"`
	TotalFiles int         `json:"totalFiles"`
}

// GetTree builds the depth-limited hierarchical view with rollups.
func (e *Engine) GetTree(ctx context.Context, opts GetTreeOptions) (*TreeResponse, error) {
	if opts.Depth < 1 {
		return nil, trailerr.Validation("tree depth must be at least 1")
	}
	depth := opts.Depth
	if depth > e.cfg.Query.MaxTreeDepth {
		depth = e.cfg.Query.MaxTreeDepth
	}

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

	root := &TreeNode{Type: NodeFolder}
	nodes := map[string]*TreeNode{"": root}
	search := strings.ToLower(opts.Search)
	total := 0

	for path, summary := range snap.Files {
		rel, ok := underPrefix(path, prefix)
		if !ok {
			continue
		}
		if !opts.IncludeUntouched && !summary.Touched() {
			continue
		}
		if search != "" && !matchesSearch(path, search) {
			continue
		}

		total++
		placeFile(nodes, root, prefix, rel, depth, summary)
	}

	finalize(root)

	return &TreeResponse{
		Path:       prefix,
		Depth:      depth,
		Nodes:      root.Children,
		TotalFiles: total,
	}, nil
}

// underPrefix strips the prefix from path, reporting whether path is inside it.
func underPrefix(path, prefix string) (string, bool) {
	if prefix == "" {
		return path, true
	}
	if strings.HasPrefix(path, prefix+"/") {
		return path[len(prefix)+1:], true
	}
	return "", false
}

func matchesSearch(path, search string) bool {
	lower := strings.ToLower(path)
	if strings.Contains(lower, search) {
		return true
	}
	if idx := strings.LastIndex(lower, "/"); idx >= 0 {
		return strings.Contains(lower[idx+1:], search)
	}
	return false
}

// placeFile walks/creates the ancestor chain for one file and rolls its
// summary into every materialized node. Descent stops at the depth boundary;
// the last materialized node gets hasChildren instead of deeper children.
func placeFile(nodes map[string]*TreeNode, root *TreeNode, prefix, rel string, maxDepth int, summary *snapshot.FileSummary) {
	segments := strings.Split(rel, "/")
	parent := root
	parentKey := ""

	for i, seg := range segments {
		depth := i + 1
		if depth > maxDepth {
			parent.HasChildren = true
			return
		}

		key := seg
		if parentKey != "" {
			key = parentKey + "/" + seg
		}

		node, ok := nodes[key]
		if !ok {
			fullPath := key
			if prefix != "" {
				fullPath = prefix + "/" + key
			}
			node = &TreeNode{
				Path:       fullPath,
				Name:       seg,
				Type:       NodeFolder,
				Depth:      depth,
				ParentPath: parentPathOf(fullPath),
				sessionSet: make(map[string]bool),
				featureSet: make(map[string]bool),
				actionSet:  make(map[snapshot.Action]bool),
			}
			nodes[key] = node
			parent.Children = append(parent.Children, node)
		}

		isLeaf := i == len(segments)-1
		if isLeaf {
			node.Type = NodeFile
			node.Exists = summary.Exists
			node.SizeBytes = summary.SizeBytes
		}

		rollup(node, summary)

		parent = node
		parentKey = key
	}
}

func parentPathOf(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[:idx]
	}
	return ""
}

func rollup(node *TreeNode, summary *snapshot.FileSummary) {
	node.TouchCount += summary.TouchCount
	if summary.Touched() {
		node.Touched = true
	}
	for _, id := range summary.SessionIDs() {
		node.sessionSet[id] = true
	}
	for _, a := range summary.Actions() {
		node.actionSet[a] = true
	}
	for _, f := range summary.Features {
		node.featureSet[f.FeatureID] = true
	}
	if epoch := summary.LastTouchedEpoch(); epoch > node.lastEpoch {
		node.lastEpoch = epoch
		node.LastTouched = summary.LastTouched
	}
}

// finalize sorts children (folders before files, then case-insensitive name)
// and collapses rollup sets into their public cardinalities.
func finalize(node *TreeNode) {
	if node.sessionSet != nil {
		node.SessionCount = len(node.sessionSet)
		node.FeatureCount = len(node.featureSet)
		actions := make([]snapshot.Action, 0, len(node.actionSet))
		for a := range node.actionSet {
			actions = append(actions, a)
		}
		sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
		node.Actions = actions
		node.sessionSet = nil
		node.featureSet = nil
		node.actionSet = nil
	}

	sort.Slice(node.Children, func(i, j int) bool {
		a, b := node.Children[i], node.Children[j]
		if a.Type != b.Type {
			return a.Type == NodeFolder
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})

	for _, child := range node.Children {
		finalize(child)
	}
}
