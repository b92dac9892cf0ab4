package main

import (
	"codetrail/internal/version"

	"github.com/spf13/cobra"
)

var (
	// projectFlag is the CLI --project flag value
	projectFlag string
)

var rootCmd = &cobra.Command{
	Use:   "codetrail",
	Short: "Codetrail - codebase activity aggregation",
	Long: `Codetrail aggregates file-touch activity recorded by autonomous coding
sessions into queryable views over a source tree: a depth-limited activity
tree, a filterable flat file list, and a deep per-file detail with session
rollups, feature involvement, documents, and an activity feed.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("Codetrail version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&projectFlag, "project", "",
		"Project ID from PROJECTS.toml (default: the working directory)")
}
