package workflow

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Triggers is the decoded `on:` block. The platform accepts three shapes —
// a single event name, a list of event names, and a mapping of event name to
// filter configuration — and all three decode into this struct.
type Triggers struct {
	Push              *EventFilter
	PullRequest       *EventFilter
	PullRequestTarget *EventFilter
	Schedule          []ScheduleEntry
	WorkflowDispatch  map[string]any
	WorkflowCall      map[string]any

	// Other holds events we accept without modelling their configuration
	// (issue_comment, release, and so on).
	Other map[string]any
}

// EventFilter carries the branch/tag/path predicates for push and
// pull_request events. Include and ignore variants of the same axis are
// mutually exclusive on the platform.
type EventFilter struct {
	Branches       StringList `yaml:"branches"`
	BranchesIgnore StringList `yaml:"branches-ignore"`
	Tags           StringList `yaml:"tags"`
	TagsIgnore     StringList `yaml:"tags-ignore"`
	Paths          StringList `yaml:"paths"`
	PathsIgnore    StringList `yaml:"paths-ignore"`
	Types          StringList `yaml:"types"`
}

// ScheduleEntry is one cron entry under `on.schedule`.
type ScheduleEntry struct {
	Cron string `yaml:"cron"`
}

// UnmarshalYAML decodes the three accepted `on:` shapes.
func (t *Triggers) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return t.enable(node.Value, nil)
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		for _, name := range names {
			if err := t.enable(name, nil); err != nil {
				return err
			}
		}
		return nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			if err := t.enable(key, node.Content[i+1]); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("line %d: on must be a string, list, or mapping", node.Line)
	}
}

func (t *Triggers) enable(event string, value *yaml.Node) error {
	switch event {
	case "push":
		return decodeFilter(event, value, &t.Push)
	case "pull_request":
		return decodeFilter(event, value, &t.PullRequest)
	case "pull_request_target":
		return decodeFilter(event, value, &t.PullRequestTarget)
	case "schedule":
		if value == nil {
			return fmt.Errorf("schedule trigger requires a list of cron entries")
		}
		return value.Decode(&t.Schedule)
	case "workflow_dispatch":
		t.WorkflowDispatch = map[string]any{}
		if value != nil && value.Kind == yaml.MappingNode {
			return value.Decode(&t.WorkflowDispatch)
		}
		return nil
	case "workflow_call":
		t.WorkflowCall = map[string]any{}
		if value != nil && value.Kind == yaml.MappingNode {
			return value.Decode(&t.WorkflowCall)
		}
		return nil
	default:
		if t.Other == nil {
			t.Other = map[string]any{}
		}
		var cfg any
		if value != nil {
			if err := value.Decode(&cfg); err != nil {
				return fmt.Errorf("event %s: %w", event, err)
			}
		}
		t.Other[event] = cfg
		return nil
	}
}

func decodeFilter(event string, value *yaml.Node, target **EventFilter) error {
	filter := &EventFilter{}
	if value != nil && value.Kind == yaml.MappingNode {
		if err := value.Decode(filter); err != nil {
			return fmt.Errorf("event %s: %w", event, err)
		}
	}
	*target = filter
	return nil
}

// Empty reports whether no trigger of any kind is configured.
func (t Triggers) Empty() bool {
	return t.Push == nil && t.PullRequest == nil && t.PullRequestTarget == nil &&
		len(t.Schedule) == 0 && t.WorkflowDispatch == nil && t.WorkflowCall == nil &&
		len(t.Other) == 0
}

// Events lists the configured event names, sorted.
func (t Triggers) Events() []string {
	var events []string
	if t.Push != nil {
		events = append(events, "push")
	}
	if t.PullRequest != nil {
		events = append(events, "pull_request")
	}
	if t.PullRequestTarget != nil {
		events = append(events, "pull_request_target")
	}
	if len(t.Schedule) > 0 {
		events = append(events, "schedule")
	}
	if t.WorkflowDispatch != nil {
		events = append(events, "workflow_dispatch")
	}
	if t.WorkflowCall != nil {
		events = append(events, "workflow_call")
	}
	for name := range t.Other {
		events = append(events, name)
	}
	sort.Strings(events)
	return events
}

// validate checks the filter-exclusivity constraints the platform enforces.
func (f *EventFilter) validate(event string) error {
	if f == nil {
		return nil
	}
	if len(f.Branches) > 0 && len(f.BranchesIgnore) > 0 {
		return fmt.Errorf("event %s: branches and branches-ignore are mutually exclusive", event)
	}
	if len(f.Tags) > 0 && len(f.TagsIgnore) > 0 {
		return fmt.Errorf("event %s: tags and tags-ignore are mutually exclusive", event)
	}
	if len(f.Paths) > 0 && len(f.PathsIgnore) > 0 {
		return fmt.Errorf("event %s: paths and paths-ignore are mutually exclusive", event)
	}
	return nil
}
