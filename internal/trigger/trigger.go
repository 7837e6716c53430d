// Package trigger decides whether a workflow would fire for a given event,
// applying the platform's branch, tag, and path filter semantics. It is a
// simulation aid for configuration review, not an event router.
package trigger

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar"

	"github.com/xjubep/ciguard/internal/workflow"
)

// EventType names the simulated event.
type EventType string

const (
	EventPush        EventType = "push"
	EventPullRequest EventType = "pull_request"
)

// Event describes a hypothetical repository event. Branch carries the pushed
// branch for push events and the target branch for pull requests. Tag, when
// set on a push, takes precedence over Branch. Paths lists the changed files;
// an empty list skips path filtering.
type Event struct {
	Type   EventType
	Branch string
	Tag    string
	Paths  []string
}

// Decision reports whether one workflow fires for the event, and why.
type Decision struct {
	Workflow string
	Fires    bool
	Reason   string
}

// Evaluate decides whether wf would fire for the event.
func Evaluate(wf workflow.Workflow, ev Event) (Decision, error) {
	decision := Decision{Workflow: wf.Path}
	if decision.Workflow == "" {
		decision.Workflow = wf.Name
	}

	var filter *workflow.EventFilter
	switch ev.Type {
	case EventPush:
		filter = wf.On.Push
	case EventPullRequest:
		filter = wf.On.PullRequest
	default:
		return Decision{}, fmt.Errorf("trigger: unsupported event type %q", ev.Type)
	}
	if filter == nil {
		decision.Reason = fmt.Sprintf("no %s trigger", ev.Type)
		return decision, nil
	}

	refOK, reason, err := evaluateRef(filter, ev)
	if err != nil {
		return Decision{}, err
	}
	if !refOK {
		decision.Reason = reason
		return decision, nil
	}

	pathOK, pathReason, err := evaluatePaths(filter, ev.Paths)
	if err != nil {
		return Decision{}, err
	}
	if !pathOK {
		decision.Reason = pathReason
		return decision, nil
	}

	decision.Fires = true
	decision.Reason = strings.TrimSpace(reason + " " + pathReason)
	return decision, nil
}

// EvaluateAll runs Evaluate over a set of workflows.
func EvaluateAll(workflows []workflow.Workflow, ev Event) ([]Decision, error) {
	decisions := make([]Decision, 0, len(workflows))
	for _, wf := range workflows {
		d, err := Evaluate(wf, ev)
		if err != nil {
			return nil, fmt.Errorf("trigger: %s: %w", wf.Path, err)
		}
		decisions = append(decisions, d)
	}
	return decisions, nil
}

// evaluateRef applies branch/tag filters. Defining only branch filters opts
// the workflow out of tag pushes, and vice versa.
func evaluateRef(f *workflow.EventFilter, ev Event) (bool, string, error) {
	branchFiltered := len(f.Branches) > 0 || len(f.BranchesIgnore) > 0
	tagFiltered := len(f.Tags) > 0 || len(f.TagsIgnore) > 0

	if ev.Tag != "" {
		if tagFiltered {
			return matchRef("tag", ev.Tag, f.Tags, f.TagsIgnore)
		}
		if branchFiltered {
			return false, fmt.Sprintf("tag %s: only branch filters configured", ev.Tag), nil
		}
		return true, fmt.Sprintf("tag %s accepted", ev.Tag), nil
	}

	if branchFiltered {
		return matchRef("branch", ev.Branch, f.Branches, f.BranchesIgnore)
	}
	if tagFiltered {
		return false, fmt.Sprintf("branch %s: only tag filters configured", ev.Branch), nil
	}
	return true, fmt.Sprintf("branch %s accepted", ev.Branch), nil
}

func matchRef(kind, name string, include, ignore workflow.StringList) (bool, string, error) {
	if len(include) > 0 {
		ok, err := matchOrdered(include, name)
		if err != nil {
			return false, "", err
		}
		if !ok {
			return false, fmt.Sprintf("%s %s does not match %s filters %v", kind, name, kind, include), nil
		}
		return true, fmt.Sprintf("%s %s matched", kind, name), nil
	}
	ok, err := matchOrdered(ignore, name)
	if err != nil {
		return false, "", err
	}
	if ok {
		return false, fmt.Sprintf("%s %s is ignored", kind, name), nil
	}
	return true, fmt.Sprintf("%s %s not ignored", kind, name), nil
}

// evaluatePaths applies paths / paths-ignore to the changed file list. The
// workflow fires when at least one changed file survives the filter.
func evaluatePaths(f *workflow.EventFilter, changed []string) (bool, string, error) {
	if len(changed) == 0 || (len(f.Paths) == 0 && len(f.PathsIgnore) == 0) {
		return true, "", nil
	}

	if len(f.Paths) > 0 {
		for _, file := range changed {
			ok, err := matchOrdered(f.Paths, file)
			if err != nil {
				return false, "", err
			}
			if ok {
				return true, fmt.Sprintf("(path %s matched)", file), nil
			}
		}
		return false, "no changed path matches the paths filter", nil
	}

	for _, file := range changed {
		ok, err := matchOrdered(f.PathsIgnore, file)
		if err != nil {
			return false, "", err
		}
		if !ok {
			return true, fmt.Sprintf("(path %s not ignored)", file), nil
		}
	}
	return false, "every changed path is ignored", nil
}

// matchOrdered evaluates glob patterns in order; the last matching pattern
// decides, and a leading '!' negates. '*' stays within one path segment while
// '**' crosses segments.
func matchOrdered(patterns workflow.StringList, value string) (bool, error) {
	matched := false
	for _, pattern := range patterns {
		negate := strings.HasPrefix(pattern, "!")
		glob := strings.TrimPrefix(pattern, "!")
		ok, err := doublestar.Match(glob, value)
		if err != nil {
			return false, fmt.Errorf("trigger: pattern %q: %w", pattern, err)
		}
		if ok {
			matched = !negate
		}
	}
	return matched, nil
}
