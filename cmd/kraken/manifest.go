package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kraken-build/kraken/pkg/system"
)

// manifestName is the file the CLI looks for in a project directory.
const manifestName = "kraken.yaml"

// manifest describes one project: its tasks and nested subprojects. The CLI
// is a thin host over the build core; Go consumers assemble project trees in
// code instead and get the full task API.
type manifest struct {
	Tasks    map[string]manifestTask `yaml:"tasks"`
	Projects map[string]manifest     `yaml:"projects"`
}

type manifestTask struct {
	Description string   `yaml:"description"`
	Command     string   `yaml:"command"`
	Default     bool     `yaml:"default"`
	DependsOn   []string `yaml:"dependsOn"`
	Group       string   `yaml:"group"`
}

// loadProjectTree reads the manifest in dir and assembles the project tree.
func loadProjectTree(dir string, logger *slog.Logger) (*system.Project, error) {
	path := filepath.Join(dir, manifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	root := system.NewRootProject(system.WithLogger(logger), system.WithDirectory(dir))
	if err := populateProject(root, m); err != nil {
		return nil, err
	}
	return root, nil
}

func populateProject(p *system.Project, m manifest) error {
	for _, name := range sortedKeys(m.Tasks) {
		decl := m.Tasks[name]
		task := newCommandTask(decl)
		if err := p.AddTask(name, task); err != nil {
			return err
		}
		for _, selector := range decl.DependsOn {
			task.DependsOnSelector(selector)
		}
		if decl.Group != "" {
			p.Group(decl.Group).Add(task)
		}
	}
	for _, name := range sortedKeys(m.Projects) {
		sub, err := p.Subproject(name)
		if err != nil {
			return err
		}
		if err := populateProject(sub, m.Projects[name]); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
