package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"codetrail/internal/query"
	"codetrail/internal/snapshot"
)

var (
	detailFormat        string
	detailActivityLimit int
)

var detailCmd = &cobra.Command{
	Use:   "detail <file>",
	Short: "Show the deep per-file activity view",
	Long: `Show everything recorded for one file: the activity summary,
per-session rollups, feature involvement, associated documents, and an
activity feed with session log content.

Examples:
  codetrail detail src/auth/login.ts
  codetrail detail src/auth/login.ts --activity=10 --format=human`,
	Args: cobra.ExactArgs(1),
	Run:  runDetail,
}

func init() {
	detailCmd.Flags().StringVar(&detailFormat, "format", "json", "Output format (json, human, yaml)")
	detailCmd.Flags().IntVar(&detailActivityLimit, "activity", 0, "Newest events in the activity feed (max 500)")
	rootCmd.AddCommand(detailCmd)
}

func runDetail(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(detailFormat)
	engine := mustGetEngine(logger)
	ctx := newContext()

	response, err := engine.GetFileDetail(ctx, query.GetFileDetailOptions{
		Path:          args[0],
		ActivityLimit: detailActivityLimit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting file detail: %v\n", err)
		os.Exit(1)
	}

	cliResponse := &DetailResponseCLI{
		Project:   engine.Project().ID,
		File:      response.File,
		Sessions:  response.Sessions,
		Documents: response.Documents,
		Activity:  response.Activity,
	}

	output, err := FormatResponse(cliResponse, OutputFormat(detailFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(output)

	logger.Debug("File detail query completed", map[string]interface{}{
		"path":     response.File.Path,
		"sessions": len(response.Sessions),
		"duration": time.Since(start).Milliseconds(),
	})
}

// DetailResponseCLI contains the per-file deep view for CLI output
type DetailResponseCLI struct {
	Project   string                  `json:"project"`
	File      query.FileListItem      `json:"file"`
	Sessions  []*query.SessionSummary `json:"sessions"`
	Documents []snapshot.DocumentRef  `json:"documents,omitempty"`
	Activity  []query.ActivityEntry   `json:"activity"`
}

func formatDetailHuman(resp *DetailResponseCLI) (string, error) {
	var b strings.Builder

	header(&b, resp.File.Path)

	f := resp.File
	actions := make([]string, 0, len(f.Actions))
	for _, a := range f.Actions {
		actions = append(actions, string(a))
	}
	b.WriteString(fmt.Sprintf("Touches: %d  Sessions: %d  Agents: %d  Lines: %+d\n",
		f.TouchCount, f.SessionCount, f.AgentCount, f.NetDiff))
	if len(actions) > 0 {
		b.WriteString(fmt.Sprintf("Actions: %s\n", strings.Join(actions, ", ")))
	}
	if f.LastTouched != "" {
		b.WriteString(fmt.Sprintf("Last touched: %s\n", f.LastTouched))
	}
	b.WriteString("\n")

	if len(f.Features) > 0 {
		b.WriteString("Features:\n")
		for _, feat := range f.Features {
			b.WriteString(fmt.Sprintf("  %s (%s, score %.2f, %d sessions)\n",
				feat.Name, feat.Tier, feat.Score, feat.SessionCount))
		}
		b.WriteString("\n")
	}

	if len(resp.Documents) > 0 {
		b.WriteString("Documents:\n")
		for _, doc := range resp.Documents {
			title := doc.Title
			if title == "" {
				title = doc.DocumentID
			}
			b.WriteString(fmt.Sprintf("  %s (%s)\n", title, doc.Relation))
		}
		b.WriteString("\n")
	}

	if len(resp.Sessions) > 0 {
		b.WriteString("Sessions:\n")
		for _, s := range resp.Sessions {
			b.WriteString(fmt.Sprintf("  %s: %d touches", s.SessionID, s.TouchCount))
			if len(s.AgentNames) > 0 {
				b.WriteString(fmt.Sprintf(" by %s", strings.Join(s.AgentNames, ", ")))
			}
			if s.LastTouched != "" {
				b.WriteString(fmt.Sprintf(" (last %s)", s.LastTouched))
			}
			if s.ArtifactCount > 0 {
				b.WriteString(fmt.Sprintf(", %d artifacts", s.ArtifactCount))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(resp.Activity) > 0 {
		b.WriteString("Activity:\n")
		for _, entry := range resp.Activity {
			ev := entry.Event
			b.WriteString(fmt.Sprintf("  %s  %s  %s", ev.Timestamp, ev.Action, ev.SessionID))
			if ev.LinesAdded > 0 || ev.LinesDeleted > 0 {
				b.WriteString(fmt.Sprintf("  +%d/-%d", ev.LinesAdded, ev.LinesDeleted))
			}
			b.WriteString("\n")
			if entry.LogContent != "" {
				content := entry.LogContent
				if len(content) > 120 {
					content = content[:120] + "..."
				}
				b.WriteString(fmt.Sprintf("    > %s\n", content))
			}
		}
	}

	return b.String(), nil
}
