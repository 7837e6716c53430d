// Package workflow models GitHub Actions workflow documents: triggers, job
// matrices, and step lists. The package parses and validates the declarative
// YAML; it never executes anything the documents describe.
package workflow

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Workflow is one parsed workflow file.
type Workflow struct {
	Name        string         `yaml:"name"`
	RunName     string         `yaml:"run-name"`
	On          Triggers       `yaml:"on"`
	Permissions any            `yaml:"permissions"`
	Env         map[string]any `yaml:"env"`
	Defaults    map[string]any `yaml:"defaults"`
	Concurrency *Concurrency   `yaml:"concurrency"`
	Jobs        map[string]Job `yaml:"jobs"`

	// Path records the source file for diagnostics. Not part of the schema.
	Path string `yaml:"-"`
}

// Job is one entry under jobs:. A job either runs steps on a runner or calls
// a reusable workflow via uses.
type Job struct {
	Name            string         `yaml:"name"`
	RunsOn          StringList     `yaml:"runs-on"`
	Needs           StringList     `yaml:"needs"`
	If              string         `yaml:"if"`
	Steps           []Step         `yaml:"steps"`
	TimeoutMinutes  int            `yaml:"timeout-minutes"`
	Strategy        *Strategy      `yaml:"strategy"`
	Env             map[string]any `yaml:"env"`
	Defaults        map[string]any `yaml:"defaults"`
	Permissions     any            `yaml:"permissions"`
	Container       any            `yaml:"container"`
	Services        map[string]any `yaml:"services"`
	Concurrency     *Concurrency   `yaml:"concurrency"`
	ContinueOnError any            `yaml:"continue-on-error"`
	Outputs         map[string]any `yaml:"outputs"`

	// Reusable workflow call fields.
	Uses    string         `yaml:"uses"`
	With    map[string]any `yaml:"with"`
	Secrets any            `yaml:"secrets"`
}

// IsReusableCall reports whether the job delegates to a reusable workflow.
func (j Job) IsReusableCall() bool { return j.Uses != "" }

// Step is a single entry in a job's steps list: either an external action
// reference (uses) or an inline shell command (run).
type Step struct {
	ID               string         `yaml:"id"`
	Name             string         `yaml:"name"`
	If               string         `yaml:"if"`
	Uses             string         `yaml:"uses"`
	Run              string         `yaml:"run"`
	Shell            string         `yaml:"shell"`
	With             map[string]any `yaml:"with"`
	Env              map[string]any `yaml:"env"`
	WorkingDirectory string         `yaml:"working-directory"`
	TimeoutMinutes   int            `yaml:"timeout-minutes"`
	ContinueOnError  any            `yaml:"continue-on-error"`
}

// Strategy configures how a job's matrix fans out.
type Strategy struct {
	Matrix      *Matrix `yaml:"matrix"`
	FailFast    *bool   `yaml:"fail-fast"`
	MaxParallel int     `yaml:"max-parallel"`
}

// Concurrency is the platform-level run coalescing key: superseded runs in
// the same group may be cancelled. Accepts both the scalar shorthand and the
// full mapping form.
type Concurrency struct {
	Group            string `yaml:"group"`
	CancelInProgress Flag   `yaml:"cancel-in-progress"`
}

// UnmarshalYAML accepts `concurrency: my-group` and the mapping form.
func (c *Concurrency) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		c.Group = node.Value
		return nil
	case yaml.MappingNode:
		type plain Concurrency
		var p plain
		if err := node.Decode(&p); err != nil {
			return err
		}
		*c = Concurrency(p)
		return nil
	default:
		return fmt.Errorf("line %d: concurrency must be a string or a mapping", node.Line)
	}
}

// Flag is a boolean field that may also carry an ${{ }} expression.
type Flag struct {
	Bool       bool
	Expression string
}

// UnmarshalYAML decodes either a YAML boolean or an expression string.
func (f *Flag) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a boolean or expression", node.Line)
	}
	var b bool
	if err := node.Decode(&b); err == nil {
		f.Bool = b
		return nil
	}
	f.Expression = node.Value
	return nil
}

// StringList accepts a YAML scalar or sequence of scalars.
type StringList []string

// UnmarshalYAML decodes `needs: build` and `needs: [build, lint]` alike.
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = StringList{node.Value}
		return nil
	case yaml.SequenceNode:
		var values []string
		if err := node.Decode(&values); err != nil {
			return err
		}
		*l = StringList(values)
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
	}
}

// Contains reports whether the list holds value.
func (l StringList) Contains(value string) bool {
	for _, v := range l {
		if v == value {
			return true
		}
	}
	return false
}
