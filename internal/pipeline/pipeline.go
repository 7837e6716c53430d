// Package pipeline models Azure Pipelines YAML documents: CI/PR triggers,
// schedules, stages, jobs, and steps. Like the workflow package it validates
// structure only; execution belongs to the external platform.
package pipeline

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Pipeline is one parsed azure-pipelines.yml document.
type Pipeline struct {
	Name      string          `yaml:"name"`
	Trigger   *ResourceFilter `yaml:"trigger"`
	PR        *ResourceFilter `yaml:"pr"`
	Schedules []Schedule      `yaml:"schedules"`
	Pool      *Pool           `yaml:"pool"`
	Variables any             `yaml:"variables"`
	Stages    []Stage         `yaml:"stages"`
	Jobs      []Job           `yaml:"jobs"`
	Steps     []Step          `yaml:"steps"`

	// Path records the source file for diagnostics. Not part of the schema.
	Path string `yaml:"-"`
}

// ResourceFilter is the trigger/pr block. The platform accepts `none`, a bare
// branch list, or include/exclude maps for branches and paths.
type ResourceFilter struct {
	Disabled bool
	Branches IncludeExclude `yaml:"branches"`
	Paths    IncludeExclude `yaml:"paths"`
	Tags     IncludeExclude `yaml:"tags"`
	Batch    bool           `yaml:"batch"`
}

// IncludeExclude is the include/exclude list pair used by trigger filters.
type IncludeExclude struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// UnmarshalYAML accepts `trigger: none`, `trigger: [main]`, and the full
// mapping form.
func (f *ResourceFilter) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "none" {
			f.Disabled = true
			return nil
		}
		f.Branches.Include = []string{node.Value}
		return nil
	case yaml.SequenceNode:
		return node.Decode(&f.Branches.Include)
	case yaml.MappingNode:
		type plain ResourceFilter
		var p plain
		if err := node.Decode(&p); err != nil {
			return err
		}
		*f = ResourceFilter(p)
		return nil
	default:
		return fmt.Errorf("line %d: trigger must be none, a branch list, or a mapping", node.Line)
	}
}

// Schedule is one entry under schedules:.
type Schedule struct {
	Cron        string         `yaml:"cron"`
	DisplayName string         `yaml:"displayName"`
	Branches    IncludeExclude `yaml:"branches"`
	Always      bool           `yaml:"always"`
}

// Pool selects the agent pool, usually by hosted VM image.
type Pool struct {
	Name    string `yaml:"name"`
	VMImage string `yaml:"vmImage"`
}

// UnmarshalYAML accepts the scalar pool-name shorthand.
func (p *Pool) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		p.Name = node.Value
		return nil
	}
	type plain Pool
	var decoded plain
	if err := node.Decode(&decoded); err != nil {
		return err
	}
	*p = Pool(decoded)
	return nil
}

// Stage groups jobs behind a shared dependency boundary.
type Stage struct {
	Stage     string    `yaml:"stage"`
	DependsOn DependsOn `yaml:"dependsOn"`
	Condition string    `yaml:"condition"`
	Variables any       `yaml:"variables"`
	Jobs      []Job     `yaml:"jobs"`
	Pool      *Pool     `yaml:"pool"`
}

// Job is one jobs: entry.
type Job struct {
	Job              string    `yaml:"job"`
	DisplayName      string    `yaml:"displayName"`
	DependsOn        DependsOn `yaml:"dependsOn"`
	Condition        string    `yaml:"condition"`
	Pool             *Pool     `yaml:"pool"`
	Strategy         *Strategy `yaml:"strategy"`
	TimeoutInMinutes int       `yaml:"timeoutInMinutes"`
	Variables        any       `yaml:"variables"`
	Steps            []Step    `yaml:"steps"`
	Container        any       `yaml:"container"`
	Workspace        any       `yaml:"workspace"`
}

// Strategy carries the matrix fan-out: a map of leg name to variable map.
type Strategy struct {
	Matrix      map[string]map[string]any `yaml:"matrix"`
	MaxParallel int                       `yaml:"maxParallel"`
	Parallel    int                       `yaml:"parallel"`
}

// Step is one steps: entry: an inline script, a bash/pwsh shorthand, a task
// reference with inputs, or a template include.
type Step struct {
	Script           string         `yaml:"script"`
	Bash             string         `yaml:"bash"`
	Task             string         `yaml:"task"`
	Template         string         `yaml:"template"`
	Checkout         string         `yaml:"checkout"`
	DisplayName      string         `yaml:"displayName"`
	Name             string         `yaml:"name"`
	Condition        string         `yaml:"condition"`
	Inputs           map[string]any `yaml:"inputs"`
	Env              map[string]any `yaml:"env"`
	Parameters       map[string]any `yaml:"parameters"`
	ContinueOnError  bool           `yaml:"continueOnError"`
	TimeoutInMinutes int            `yaml:"timeoutInMinutes"`
}

// DependsOn accepts a scalar or list, like the workflow StringList.
type DependsOn []string

// UnmarshalYAML decodes both shapes.
func (d *DependsOn) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "" {
			*d = nil
			return nil
		}
		*d = DependsOn{node.Value}
		return nil
	case yaml.SequenceNode:
		var values []string
		if err := node.Decode(&values); err != nil {
			return err
		}
		*d = DependsOn(values)
		return nil
	default:
		return fmt.Errorf("line %d: dependsOn must be a string or a list", node.Line)
	}
}
