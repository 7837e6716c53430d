package plugins

import (
	"fmt"
	"strings"

	"github.com/xjubep/ciguard/internal/lint"
	"github.com/xjubep/ciguard/internal/pipeline"
)

// candidate is one inspected value with enough context to report on.
type candidate struct {
	file  string
	where string
	value string
}

// Compile turns a validated definition into an executable lint rule.
//
// Forbid patterns fire a finding for every inspected value that contains the
// pattern. Require patterns fire one finding per file that has inspectable
// values but none containing the pattern.
func Compile(def RuleDefinition) (lint.Rule, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	normalized := def.Normalized()
	meta := lint.Meta{
		ID:          normalized.ID,
		Description: normalized.Description,
		Severity:    lint.Severity(normalized.Severity),
	}
	return lint.New(meta, func(target *lint.Target) []lint.Finding {
		return runDefinition(normalized, collect(normalized.Target, target))
	}), nil
}

func runDefinition(def RuleDefinition, candidates []candidate) []lint.Finding {
	var findings []lint.Finding
	for _, pattern := range def.Forbid {
		for _, c := range candidates {
			if !strings.Contains(c.value, pattern) {
				continue
			}
			findings = append(findings, lint.Finding{
				Rule:     def.ID,
				Severity: lint.Severity(def.Severity),
				File:     c.file,
				Message:  message(def, fmt.Sprintf("%s contains forbidden pattern %q", c.where, pattern)),
			})
		}
	}
	for _, pattern := range def.Require {
		byFile := map[string]bool{}
		for _, c := range candidates {
			if _, ok := byFile[c.file]; !ok {
				byFile[c.file] = false
			}
			if strings.Contains(c.value, pattern) {
				byFile[c.file] = true
			}
		}
		for file, satisfied := range byFile {
			if satisfied {
				continue
			}
			findings = append(findings, lint.Finding{
				Rule:     def.ID,
				Severity: lint.Severity(def.Severity),
				File:     file,
				Message:  message(def, fmt.Sprintf("no %s contains required pattern %q", def.Target, pattern)),
			})
		}
	}
	return findings
}

func message(def RuleDefinition, fallback string) string {
	if def.Message != "" {
		return def.Message
	}
	return fallback
}

func collect(kind string, target *lint.Target) []candidate {
	var out []candidate
	switch kind {
	case TargetStepRun:
		for _, wf := range target.Workflows {
			for _, key := range wf.JobKeys() {
				for i, step := range wf.Jobs[key].Steps {
					if step.Run == "" {
						continue
					}
					out = append(out, candidate{
						file:  wf.Path,
						where: fmt.Sprintf("job %s step[%d] run", key, i),
						value: step.Run,
					})
				}
			}
		}
	case TargetStepUses:
		for _, wf := range target.Workflows {
			for _, key := range wf.JobKeys() {
				for i, step := range wf.Jobs[key].Steps {
					if step.Uses == "" {
						continue
					}
					out = append(out, candidate{
						file:  wf.Path,
						where: fmt.Sprintf("job %s step[%d] uses", key, i),
						value: step.Uses,
					})
				}
			}
		}
	case TargetRunnerLabel:
		for _, wf := range target.Workflows {
			for _, key := range wf.JobKeys() {
				for _, label := range wf.Jobs[key].RunsOn {
					out = append(out, candidate{
						file:  wf.Path,
						where: fmt.Sprintf("job %s runs-on", key),
						value: label,
					})
				}
			}
		}
	case TargetPipelineScript:
		for _, p := range target.Pipelines {
			out = append(out, pipelineScripts(p.Path, p.Steps)...)
			for _, job := range p.Jobs {
				out = append(out, pipelineScripts(p.Path, job.Steps)...)
			}
			for _, stage := range p.Stages {
				for _, job := range stage.Jobs {
					out = append(out, pipelineScripts(p.Path, job.Steps)...)
				}
			}
		}
	}
	return out
}

func pipelineScripts(path string, steps []pipeline.Step) []candidate {
	var out []candidate
	for i, step := range steps {
		script := step.Script
		if script == "" {
			script = step.Bash
		}
		if script == "" {
			continue
		}
		out = append(out, candidate{
			file:  path,
			where: fmt.Sprintf("steps[%d] script", i),
			value: script,
		})
	}
	return out
}
