package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"codetrail/internal/registry"
)

var (
	projectsFormat string
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List declared projects",
	Long: `List the projects declared in PROJECTS.toml. The registry is looked
up at $CODETRAIL_PROJECTS or ~/.codetrail/PROJECTS.toml.`,
	Run: runProjects,
}

func init() {
	projectsCmd.Flags().StringVar(&projectsFormat, "format", "json", "Output format (json, human, yaml)")
	rootCmd.AddCommand(projectsCmd)
}

func runProjects(cmd *cobra.Command, args []string) {
	reg, err := registry.Load(registryPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading project registry: %v\n", err)
		os.Exit(1)
	}

	projects := reg.List()
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })

	cliResponse := &ProjectsResponseCLI{
		RegistryPath: registryPath(),
		Projects:     projects,
	}

	output, err := FormatResponse(cliResponse, OutputFormat(projectsFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(output)
}

// ProjectsResponseCLI contains the declared projects for CLI output
type ProjectsResponseCLI struct {
	RegistryPath string             `json:"registryPath"`
	Projects     []registry.Project `json:"projects"`
}

func formatProjectsHuman(resp *ProjectsResponseCLI) (string, error) {
	var b strings.Builder

	header(&b, "Projects")
	b.WriteString(fmt.Sprintf("Registry: %s\n\n", resp.RegistryPath))

	if len(resp.Projects) == 0 {
		b.WriteString("No projects declared. Queries default to the working directory.\n")
		return b.String(), nil
	}

	for _, p := range resp.Projects {
		b.WriteString(fmt.Sprintf("%s  %s\n", p.ID, p.Root))
		if p.Name != p.ID {
			b.WriteString(fmt.Sprintf("  name: %s\n", p.Name))
		}
	}

	return b.String(), nil
}
