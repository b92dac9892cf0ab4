package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"codetrail/internal/query"
)

var (
	treeFormat    string
	treePath      string
	treeDepth     int
	treeUntouched bool
	treeSearch    string
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show the activity tree with per-folder rollups",
	Long: `Show a depth-limited hierarchical view of the project with touch
counts, session counts, and feature counts rolled up into folders.

Examples:
  codetrail tree
  codetrail tree --path=src --depth=2
  codetrail tree --include-untouched
  codetrail tree --search=login --format=human`,
	Run: runTree,
}

func init() {
	treeCmd.Flags().StringVar(&treeFormat, "format", "json", "Output format (json, human, yaml)")
	treeCmd.Flags().StringVar(&treePath, "path", "", "Subtree prefix to show (default: project root)")
	treeCmd.Flags().IntVar(&treeDepth, "depth", 3, "Maximum tree depth")
	treeCmd.Flags().BoolVar(&treeUntouched, "include-untouched", false, "Include files with no recorded activity")
	treeCmd.Flags().StringVar(&treeSearch, "search", "", "Case-insensitive substring filter on paths")
	rootCmd.AddCommand(treeCmd)
}

func runTree(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(treeFormat)
	engine := mustGetEngine(logger)
	ctx := newContext()

	response, err := engine.GetTree(ctx, query.GetTreeOptions{
		Path:             treePath,
		Depth:            treeDepth,
		IncludeUntouched: treeUntouched,
		Search:           treeSearch,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting tree: %v\n", err)
		os.Exit(1)
	}

	cliResponse := &TreeResponseCLI{
		Project:    engine.Project().ID,
		Path:       response.Path,
		Depth:      response.Depth,
		TotalFiles: response.TotalFiles,
		Nodes:      response.Nodes,
	}

	output, err := FormatResponse(cliResponse, OutputFormat(treeFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(output)

	logger.Debug("Tree query completed", map[string]interface{}{
		"totalFiles": response.TotalFiles,
		"duration":   time.Since(start).Milliseconds(),
	})
}

// TreeResponseCLI contains the activity tree for CLI output
type TreeResponseCLI struct {
	Project    string            `json:"project"`
	Path       string            `json:"path,omitempty"`
	Depth      int               `json:"depth"`
	TotalFiles int               `json:"totalFiles"`
	Nodes      []*query.TreeNode `json:"nodes"`
}

func formatTreeHuman(resp *TreeResponseCLI) (string, error) {
	var b strings.Builder

	title := fmt.Sprintf("Activity Tree - %s", resp.Project)
	if resp.Path != "" {
		title += "/" + resp.Path
	}
	header(&b, title)
	b.WriteString(fmt.Sprintf("Files: %d (depth %d)\n\n", resp.TotalFiles, resp.Depth))

	for _, node := range resp.Nodes {
		writeTreeNode(&b, node, 0)
	}

	return b.String(), nil
}

func writeTreeNode(b *strings.Builder, node *query.TreeNode, indent int) {
	prefix := strings.Repeat("  ", indent)

	name := node.Name
	if node.Type == query.NodeFolder {
		name += "/"
	}

	line := fmt.Sprintf("%s%s", prefix, name)
	if node.Touched {
		line += fmt.Sprintf("  [%d touches, %d sessions", node.TouchCount, node.SessionCount)
		if node.FeatureCount > 0 {
			line += fmt.Sprintf(", %d features", node.FeatureCount)
		}
		line += "]"
	}
	if node.HasChildren && len(node.Children) == 0 {
		line += " ..."
	}
	b.WriteString(line + "\n")

	for _, child := range node.Children {
		writeTreeNode(b, child, indent+1)
	}
}
