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
	filesFormat    string
	filesPath      string
	filesSearch    string
	filesUntouched bool
	filesAction    string
	filesFeature   string
	filesSortBy    string
	filesSortOrder string
	filesOffset    int
	filesLimit     int
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List files with activity summaries",
	Long: `List files as a flat, filterable, sortable view with per-file touch
counts, sessions, agents, diff totals, and feature involvement.

Examples:
  codetrail files
  codetrail files --path=src --sort-by=touches --sort-order=desc
  codetrail files --action=delete
  codetrail files --feature=auth --format=human
  codetrail files --offset=100 --limit=50`,
	Run: runFiles,
}

func init() {
	filesCmd.Flags().StringVar(&filesFormat, "format", "json", "Output format (json, human, yaml)")
	filesCmd.Flags().StringVar(&filesPath, "path", "", "Path prefix filter")
	filesCmd.Flags().StringVar(&filesSearch, "search", "", "Case-insensitive substring filter")
	filesCmd.Flags().BoolVar(&filesUntouched, "include-untouched", false, "Include files with no recorded activity")
	filesCmd.Flags().StringVar(&filesAction, "action", "", "Only files with this action (read, create, update, delete)")
	filesCmd.Flags().StringVar(&filesFeature, "feature", "", "Only files involved in this feature ID")
	filesCmd.Flags().StringVar(&filesSortBy, "sort-by", "", "Sort key (path, file_name, touches, sessions, agents, net_diff, last_touched)")
	filesCmd.Flags().StringVar(&filesSortOrder, "sort-order", "", "Sort order (asc, desc)")
	filesCmd.Flags().IntVar(&filesOffset, "offset", 0, "Pagination offset")
	filesCmd.Flags().IntVar(&filesLimit, "limit", 0, "Page size (max 500)")
	rootCmd.AddCommand(filesCmd)
}

func runFiles(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(filesFormat)
	engine := mustGetEngine(logger)
	ctx := newContext()

	response, err := engine.ListFiles(ctx, query.ListFilesOptions{
		Path:             filesPath,
		Search:           filesSearch,
		IncludeUntouched: filesUntouched,
		Action:           filesAction,
		FeatureID:        filesFeature,
		SortBy:           filesSortBy,
		SortOrder:        filesSortOrder,
		Offset:           filesOffset,
		Limit:            filesLimit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing files: %v\n", err)
		os.Exit(1)
	}

	cliResponse := &FilesResponseCLI{
		Project: engine.Project().ID,
		Files:   response.Files,
		Total:   response.Total,
		Offset:  response.Offset,
		Limit:   response.Limit,
	}

	output, err := FormatResponse(cliResponse, OutputFormat(filesFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(output)

	logger.Debug("File list query completed", map[string]interface{}{
		"returned": len(response.Files),
		"total":    response.Total,
		"duration": time.Since(start).Milliseconds(),
	})
}

// FilesResponseCLI contains the flat file list for CLI output
type FilesResponseCLI struct {
	Project string               `json:"project"`
	Files   []query.FileListItem `json:"files"`
	Total   int                  `json:"total"`
	Offset  int                  `json:"offset"`
	Limit   int                  `json:"limit"`
}

func formatFilesHuman(resp *FilesResponseCLI) (string, error) {
	var b strings.Builder

	header(&b, fmt.Sprintf("Files - %s", resp.Project))
	end := resp.Offset + len(resp.Files)
	b.WriteString(fmt.Sprintf("Showing %d-%d of %d\n\n", resp.Offset+1, end, resp.Total))
	if len(resp.Files) == 0 {
		b.WriteString("No matching files.\n")
		return b.String(), nil
	}

	for _, f := range resp.Files {
		b.WriteString(f.Path + "\n")
		actions := make([]string, 0, len(f.Actions))
		for _, a := range f.Actions {
			actions = append(actions, string(a))
		}
		b.WriteString(fmt.Sprintf("  %d touches, %d sessions, %d agents, %+d lines [%s]\n",
			f.TouchCount, f.SessionCount, f.AgentCount, f.NetDiff, strings.Join(actions, ", ")))
		if f.LastTouched != "" {
			b.WriteString(fmt.Sprintf("  last touched %s\n", f.LastTouched))
		}
		for _, feat := range f.Features {
			b.WriteString(fmt.Sprintf("  feature %s (%s, %.2f)\n", feat.Name, feat.Tier, feat.Score))
		}
	}

	return b.String(), nil
}
