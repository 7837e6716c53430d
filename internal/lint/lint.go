// Package lint runs schema- and policy-level checks over a repository's CI
// configuration: workflow files, pipeline files, and the CODEOWNERS ruleset.
package lint

import (
	"fmt"
	"sort"
	"sync"

	"github.com/xjubep/ciguard/internal/owners"
	"github.com/xjubep/ciguard/internal/pipeline"
	"github.com/xjubep/ciguard/internal/repotree"
	"github.com/xjubep/ciguard/internal/workflow"
)

// Severity grades a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// rank orders severities for sorting and exit-code decisions.
func (s Severity) rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityError, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

// Finding is one reported problem. Line is 1-based and 0 when unknown.
type Finding struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line,omitempty"`
	Message  string   `json:"message"`
}

// Meta describes a rule to the registry and to reporting.
type Meta struct {
	ID          string
	Description string
	Severity    Severity
}

// Validate ensures the metadata is usable.
func (m Meta) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("lint: rule id is required")
	}
	if !m.Severity.Valid() {
		return fmt.Errorf("lint: rule %s: invalid severity %q", m.ID, m.Severity)
	}
	return nil
}

// Rule inspects a target and reports findings. Implementations must be safe
// for concurrent use; the engine runs rules in parallel.
type Rule interface {
	Meta() Meta
	Check(*Target) []Finding
}

// Target is everything a rule may inspect: the parsed documents plus the
// repository file tree. Fields may be nil/empty when the repository lacks the
// corresponding artifact.
type Target struct {
	Root       string
	Workflows  []workflow.Workflow
	Pipelines  []pipeline.Pipeline
	Owners     *owners.Ruleset
	OwnersPath string
	Tree       *repotree.Tree
}

type ruleFunc struct {
	meta  Meta
	check func(*Target) []Finding
}

func (r ruleFunc) Meta() Meta { return r.meta }

func (r ruleFunc) Check(t *Target) []Finding { return r.check(t) }

// New wraps a check function into a Rule.
func New(meta Meta, check func(*Target) []Finding) Rule {
	return ruleFunc{meta: meta, check: check}
}

// Registry maintains known rules keyed by ID.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: map[string]Rule{}}
}

// Register installs a rule. Returns an error if the ID already exists or the
// metadata is invalid.
func (r *Registry) Register(rule Rule) error {
	if rule == nil {
		return fmt.Errorf("lint: rule is required")
	}
	meta := rule.Meta()
	if err := meta.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rules[meta.ID]; exists {
		return fmt.Errorf("lint: rule %s already registered", meta.ID)
	}
	r.rules[meta.ID] = rule
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(rule Rule) {
	if err := r.Register(rule); err != nil {
		panic(err)
	}
}

// Get returns the rule with the given ID.
func (r *Registry) Get(id string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[id]
	return rule, ok
}

// IDs returns the registered rule IDs, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.rules))
	for id := range r.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Rules returns the registered rules in ID order.
func (r *Registry) Rules() []Rule {
	ids := r.IDs()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Rule, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.rules[id])
	}
	return out
}

var builtin = NewRegistry()

// Builtin returns the registry holding the built-in rules.
func Builtin() *Registry { return builtin }

// SortFindings orders findings by file, line, severity, then rule ID.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Severity != b.Severity {
			return a.Severity.rank() < b.Severity.rank()
		}
		return a.Rule < b.Rule
	})
}

// HasErrors reports whether any finding is error severity.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}
