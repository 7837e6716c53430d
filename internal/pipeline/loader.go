package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultPipelineFiles lists the conventional pipeline locations relative to
// the repository root, in lookup order.
var DefaultPipelineFiles = []string{"azure-pipelines.yml", "azure-pipelines.yaml"}

// ParsePipelineYAML decodes and validates one pipeline document.
func ParsePipelineYAML(data []byte) (Pipeline, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Pipeline{}, fmt.Errorf("pipeline: document is empty")
	}
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Pipeline{}, fmt.Errorf("pipeline: decode: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Pipeline{}, err
	}
	return p, nil
}

// LoadFile loads one pipeline file from disk.
func LoadFile(path string) (Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("pipeline: read %s: %w", path, err)
	}
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Pipeline{}, fmt.Errorf("pipeline: %s: decode: %w", path, err)
	}
	p.Path = filepath.ToSlash(path)
	if err := p.Validate(); err != nil {
		return Pipeline{}, err
	}
	return p, nil
}

// LoadDefault looks for a pipeline at the conventional locations under root.
// A repository without one returns no pipelines and no error.
func LoadDefault(root string) ([]Pipeline, error) {
	var pipelines []Pipeline
	for _, name := range DefaultPipelineFiles {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("pipeline: stat %s: %w", path, err)
		}
		p, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		pipelines = append(pipelines, p)
	}
	return pipelines, nil
}
