package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"codetrail/internal/snapshot"
)

var (
	cacheStatsFormat string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the snapshot cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show live snapshot cache entries",
	Run:   runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop cached snapshots",
	Long: `Drop cached snapshots so the next query rebuilds from the store.
With --project set, only that project's entries are dropped; otherwise the
whole cache is cleared.`,
	Run: runCacheClear,
}

func init() {
	cacheStatsCmd.Flags().StringVar(&cacheStatsFormat, "format", "json", "Output format (json, human, yaml)")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) {
	logger := newLogger(cacheStatsFormat)
	engine := mustGetEngine(logger)

	cliResponse := &CacheStatsResponseCLI{
		Project: engine.Project().ID,
		Entries: engine.CacheStats(),
	}

	output, err := FormatResponse(cliResponse, OutputFormat(cacheStatsFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(output)
}

func runCacheClear(cmd *cobra.Command, args []string) {
	logger := newLogger("human")
	engine := mustGetEngine(logger)

	if projectFlag != "" {
		engine.InvalidateCache()
		fmt.Printf("Cleared cached snapshots for project %s\n", engine.Project().ID)
		return
	}

	engine.InvalidateAll()
	fmt.Println("Cleared all cached snapshots")
}

// CacheStatsResponseCLI contains snapshot cache entries for CLI output
type CacheStatsResponseCLI struct {
	Project string                    `json:"project"`
	Entries []snapshot.CacheEntryInfo `json:"entries"`
}

func formatCacheStatsHuman(resp *CacheStatsResponseCLI) (string, error) {
	var b strings.Builder

	header(&b, "Snapshot Cache")

	if len(resp.Entries) == 0 {
		b.WriteString("No cached snapshots.\n")
		return b.String(), nil
	}

	for _, e := range resp.Entries {
		b.WriteString(fmt.Sprintf("%s (%s)\n", e.ProjectID, e.Mode))
		b.WriteString(fmt.Sprintf("  build %s\n", e.BuildID))
		b.WriteString(fmt.Sprintf("  built %s, expires %s\n",
			e.BuiltAt.Format("15:04:05"), e.ExpiresAt.Format("15:04:05")))
		b.WriteString(fmt.Sprintf("  files %d\n", e.Files))
	}

	return b.String(), nil
}
