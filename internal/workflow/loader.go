package workflow

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultWorkflowDir is the conventional location for workflow files relative
// to the repository root.
const DefaultWorkflowDir = ".github/workflows"

// ParseWorkflowYAML decodes and validates one workflow document.
func ParseWorkflowYAML(data []byte) (Workflow, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Workflow{}, fmt.Errorf("workflow: document is empty")
	}
	var wf Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return Workflow{}, fmt.Errorf("workflow: decode: %w", err)
	}
	return wf.Normalized()
}

// LoadFile loads one workflow file from disk.
func LoadFile(path string) (Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Workflow{}, fmt.Errorf("workflow: read %s: %w", path, err)
	}
	var wf Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return Workflow{}, fmt.Errorf("workflow: %s: decode: %w", path, err)
	}
	wf.Path = filepath.ToSlash(path)
	normalized, err := wf.Normalized()
	if err != nil {
		return Workflow{}, err
	}
	return normalized, nil
}

// LoadDir loads every *.yml / *.yaml file in dir, sorted by name. A missing
// directory means "no workflows", matching a repository that simply has none.
func LoadDir(dir string) ([]Workflow, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("workflow: read %s: %w", dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if isYAMLFile(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	workflows := make([]Workflow, 0, len(names))
	for _, name := range names {
		wf, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, wf)
	}
	return workflows, nil
}

func isYAMLFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}
