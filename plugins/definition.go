package plugins

import (
	"fmt"
	"strings"

	"github.com/xjubep/ciguard/internal/lint"
)

// RuleDefinition describes a custom lint rule loaded from YAML.
//
// The struct mirrors the on-disk schema under .ciguard/rules/*.yaml and is
// intentionally narrow so the engine can validate plugin metadata before
// wiring it into the rule registry.
type RuleDefinition struct {
	ID          string   `json:"id" yaml:"id"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Severity    string   `json:"severity,omitempty" yaml:"severity,omitempty"`
	Target      string   `json:"target" yaml:"target"`
	Forbid      []string `json:"forbid,omitempty" yaml:"forbid,omitempty"`
	Require     []string `json:"require,omitempty" yaml:"require,omitempty"`
	Message     string   `json:"message,omitempty" yaml:"message,omitempty"`
}

// Target kinds a definition may inspect.
const (
	TargetStepRun        = "step-run"
	TargetStepUses       = "step-uses"
	TargetRunnerLabel    = "runner-label"
	TargetPipelineScript = "pipeline-script"
)

var knownTargets = map[string]struct{}{
	TargetStepRun:        {},
	TargetStepUses:       {},
	TargetRunnerLabel:    {},
	TargetPipelineScript: {},
}

// Normalized returns a trimmed, copy-on-write variant of the definition.
func (def RuleDefinition) Normalized() RuleDefinition {
	clone := RuleDefinition{
		ID:          strings.TrimSpace(def.ID),
		Description: strings.TrimSpace(def.Description),
		Severity:    strings.TrimSpace(strings.ToLower(def.Severity)),
		Target:      strings.TrimSpace(strings.ToLower(def.Target)),
		Message:     strings.TrimSpace(def.Message),
	}
	if clone.Severity == "" {
		clone.Severity = string(lint.SeverityWarning)
	}
	clone.Forbid = trimAll(def.Forbid)
	clone.Require = trimAll(def.Require)
	return clone
}

func trimAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Validate ensures the rule definition is well-formed before it is compiled.
func (def RuleDefinition) Validate() error {
	normalized := def.Normalized()
	if normalized.ID == "" {
		return fmt.Errorf("plugin: id is required")
	}
	if strings.ContainsAny(normalized.ID, " \t") {
		return fmt.Errorf("plugin %s: id must not contain whitespace", normalized.ID)
	}
	if !lint.Severity(normalized.Severity).Valid() {
		return fmt.Errorf("plugin %s: invalid severity %q", normalized.ID, normalized.Severity)
	}
	if normalized.Target == "" {
		return fmt.Errorf("plugin %s: target is required", normalized.ID)
	}
	if _, ok := knownTargets[normalized.Target]; !ok {
		return fmt.Errorf("plugin %s: unknown target %q", normalized.ID, normalized.Target)
	}
	if len(normalized.Forbid) == 0 && len(normalized.Require) == 0 {
		return fmt.Errorf("plugin %s: at least one forbid or require pattern is required", normalized.ID)
	}
	return nil
}
