package lint

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/xjubep/ciguard/internal/owners"
	"github.com/xjubep/ciguard/internal/pipeline"
	"github.com/xjubep/ciguard/internal/repotree"
	"github.com/xjubep/ciguard/internal/workflow"
)

// ParseRuleID marks findings produced by document loading rather than by a
// registered rule.
const ParseRuleID = "parse/error"

// Options tunes an engine run.
type Options struct {
	// WorkflowDir overrides the workflow directory relative to the root.
	WorkflowDir string
	// PipelineFiles overrides the pipeline locations relative to the root.
	PipelineFiles []string
	// OwnersPath pins the CODEOWNERS location instead of probing the
	// supported ones.
	OwnersPath string
	// Enabled, when non-empty, restricts the run to these rule IDs.
	Enabled []string
	// Disabled removes rule IDs from the run.
	Disabled []string
	// SeverityOverrides remaps rule severities by ID.
	SeverityOverrides map[string]Severity
	// MaxParallel caps concurrent rule execution. Values <= 0 mean
	// one goroutine per rule.
	MaxParallel int
	// IgnoreDirs supplements the tree scan's ignored directories.
	IgnoreDirs []string
}

// Engine loads a repository's CI configuration and runs rules over it.
type Engine struct {
	registry *Registry
	opts     Options
}

// NewEngine builds an engine over a rule registry.
func NewEngine(registry *Registry, opts Options) (*Engine, error) {
	if registry == nil {
		return nil, fmt.Errorf("lint: engine requires a registry")
	}
	return &Engine{registry: registry, opts: opts}, nil
}

// Load gathers the repository's CI documents into a Target. Documents that
// fail to parse or validate become findings instead of aborting the load, so
// one broken file does not hide problems in the others.
func (e *Engine) Load(root string) (*Target, []Finding, error) {
	target := &Target{Root: root}
	var findings []Finding

	tree, err := repotree.Scan(root, e.opts.IgnoreDirs...)
	if err != nil {
		return nil, nil, err
	}
	target.Tree = tree

	workflowDir := e.opts.WorkflowDir
	if workflowDir == "" {
		workflowDir = workflow.DefaultWorkflowDir
	}
	findings = append(findings, e.loadWorkflows(target, filepath.Join(root, filepath.FromSlash(workflowDir)))...)

	pipelineFiles := e.opts.PipelineFiles
	if len(pipelineFiles) == 0 {
		pipelineFiles = pipeline.DefaultPipelineFiles
	}
	findings = append(findings, e.loadPipelines(target, root, pipelineFiles)...)

	findings = append(findings, e.loadOwners(target, root)...)
	return target, findings, nil
}

func (e *Engine) loadWorkflows(target *Target, dir string) []Finding {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return []Finding{parseFinding(dir, err)}
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		lower := strings.ToLower(entry.Name())
		if strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".yaml") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var findings []Finding
	for _, name := range names {
		path := filepath.Join(dir, name)
		wf, err := workflow.LoadFile(path)
		if err != nil {
			findings = append(findings, parseFinding(relTo(target.Root, path), err))
			continue
		}
		wf.Path = relTo(target.Root, path)
		target.Workflows = append(target.Workflows, wf)
	}
	return findings
}

func (e *Engine) loadPipelines(target *Target, root string, files []string) []Finding {
	var findings []Finding
	for _, name := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if _, err := os.Stat(path); err != nil {
			continue
		}
		p, err := pipeline.LoadFile(path)
		if err != nil {
			findings = append(findings, parseFinding(relTo(root, path), err))
			continue
		}
		p.Path = relTo(root, path)
		target.Pipelines = append(target.Pipelines, p)
	}
	return findings
}

func (e *Engine) loadOwners(target *Target, root string) []Finding {
	location := e.opts.OwnersPath
	if location == "" {
		found, err := owners.Locate(root)
		if err != nil {
			return nil // absence is a rule concern, not a load failure
		}
		location = found
	}
	path := filepath.Join(root, filepath.FromSlash(location))
	set, err := owners.LoadFile(path)
	if err != nil {
		return []Finding{parseFinding(location, err)}
	}
	set.Path = location
	target.Owners = &set
	target.OwnersPath = location
	return nil
}

// Run executes the selected rules against the target and returns sorted
// findings.
func (e *Engine) Run(target *Target) []Finding {
	rules := e.selectRules()

	limit := e.opts.MaxParallel
	if limit <= 0 || limit > len(rules) {
		limit = len(rules)
	}
	if limit == 0 {
		return nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		findings []Finding
	)
	sem := make(chan struct{}, limit)
	for _, rule := range rules {
		wg.Add(1)
		go func(rule Rule) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			got := rule.Check(target)
			if len(got) == 0 {
				return
			}
			mu.Lock()
			findings = append(findings, got...)
			mu.Unlock()
		}(rule)
	}
	wg.Wait()

	findings = e.applyOverrides(findings)
	SortFindings(findings)
	return findings
}

// Check is Load followed by Run, with load findings merged in.
func (e *Engine) Check(root string) ([]Finding, error) {
	target, loadFindings, err := e.Load(root)
	if err != nil {
		return nil, err
	}
	findings := append(loadFindings, e.Run(target)...)
	SortFindings(findings)
	return findings, nil
}

func (e *Engine) selectRules() []Rule {
	all := e.registry.Rules()
	if len(e.opts.Enabled) == 0 && len(e.opts.Disabled) == 0 {
		return all
	}
	enabled := map[string]struct{}{}
	for _, id := range e.opts.Enabled {
		enabled[id] = struct{}{}
	}
	disabled := map[string]struct{}{}
	for _, id := range e.opts.Disabled {
		disabled[id] = struct{}{}
	}
	var out []Rule
	for _, rule := range all {
		id := rule.Meta().ID
		if len(enabled) > 0 {
			if _, ok := enabled[id]; !ok {
				continue
			}
		}
		if _, ok := disabled[id]; ok {
			continue
		}
		out = append(out, rule)
	}
	return out
}

func (e *Engine) applyOverrides(findings []Finding) []Finding {
	if len(e.opts.SeverityOverrides) == 0 {
		return findings
	}
	for i := range findings {
		if sev, ok := e.opts.SeverityOverrides[findings[i].Rule]; ok && sev.Valid() {
			findings[i].Severity = sev
		}
	}
	return findings
}

func parseFinding(file string, err error) Finding {
	return Finding{
		Rule:     ParseRuleID,
		Severity: SeverityError,
		File:     filepath.ToSlash(file),
		Message:  err.Error(),
	}
}

func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
