// Package registry resolves project identities to filesystem roots.
// Projects are declared in a PROJECTS.toml file; when no declaration exists,
// the current working directory is treated as an ad-hoc project.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// RegistryFile is the default filename for project declarations
const RegistryFile = "PROJECTS.toml"

// Project represents one declared project
type Project struct {
	// ID is the unique project identifier
	ID string `toml:"id" json:"id"`

	// Name is the human-readable project name (optional, defaults to ID)
	Name string `toml:"name,omitempty" json:"name"`

	// Root is the absolute or home-relative path to the project root
	Root string `toml:"root" json:"root"`
}

// registryFile represents the root structure of PROJECTS.toml
type registryFile struct {
	Projects []Project `toml:"projects"`
}

// Registry holds the declared projects keyed by ID.
type Registry struct {
	projects map[string]Project
}

// Load reads a PROJECTS.toml file. A missing file yields an empty registry.
func Load(path string) (*Registry, error) {
	reg := &Registry{projects: make(map[string]Project)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return reg, nil
		}
		return nil, fmt.Errorf("read project registry: %w", err)
	}

	var file registryFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse project registry %s: %w", path, err)
	}

	for _, p := range file.Projects {
		if p.ID == "" || p.Root == "" {
			return nil, fmt.Errorf("project registry %s: every project needs id and root", path)
		}
		if p.Name == "" {
			p.Name = p.ID
		}
		p.Root = expandHome(p.Root)
		if _, dup := reg.projects[p.ID]; dup {
			return nil, fmt.Errorf("project registry %s: duplicate project id %q", path, p.ID)
		}
		reg.projects[p.ID] = p
	}

	return reg, nil
}

// Resolve returns the project for the given ID. An empty ID resolves the
// working directory as an ad-hoc project named after its base directory.
func (r *Registry) Resolve(id string) (Project, error) {
	if id == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return Project{}, fmt.Errorf("resolve working directory: %w", err)
		}
		base := filepath.Base(cwd)
		return Project{ID: base, Name: base, Root: cwd}, nil
	}

	p, ok := r.projects[id]
	if !ok {
		return Project{}, fmt.Errorf("unknown project %q (not declared in %s)", id, RegistryFile)
	}
	return p, nil
}

// List returns all declared projects.
func (r *Registry) List() []Project {
	out := make([]Project, 0, len(r.projects))
	for _, p := range r.projects {
		out = append(out, p)
	}
	return out
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
