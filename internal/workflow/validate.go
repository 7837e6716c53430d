package workflow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xjubep/ciguard/internal/schedule"
)

// Validate ensures the workflow is self-consistent: it has triggers and jobs,
// every needs edge resolves without cycles, every step carries exactly one of
// run/uses, filters respect the platform's exclusivity rules, and every cron
// expression parses.
func (wf Workflow) Validate() error {
	if wf.On.Empty() {
		return fmt.Errorf("workflow %s: at least one trigger is required", wf.describe())
	}
	if len(wf.Jobs) == 0 {
		return fmt.Errorf("workflow %s: at least one job is required", wf.describe())
	}

	for _, pair := range []struct {
		event  string
		filter *EventFilter
	}{
		{"push", wf.On.Push},
		{"pull_request", wf.On.PullRequest},
		{"pull_request_target", wf.On.PullRequestTarget},
	} {
		if err := pair.filter.validate(pair.event); err != nil {
			return fmt.Errorf("workflow %s: %w", wf.describe(), err)
		}
	}

	for i, entry := range wf.On.Schedule {
		if strings.TrimSpace(entry.Cron) == "" {
			return fmt.Errorf("workflow %s: schedule[%d]: cron is required", wf.describe(), i)
		}
		if _, err := schedule.Parse(entry.Cron); err != nil {
			return fmt.Errorf("workflow %s: schedule[%d]: %w", wf.describe(), i, err)
		}
	}

	for _, key := range wf.JobKeys() {
		if err := wf.Jobs[key].validate(key, wf.Jobs); err != nil {
			return fmt.Errorf("workflow %s: %w", wf.describe(), err)
		}
	}

	if err := wf.checkNeedsCycles(); err != nil {
		return fmt.Errorf("workflow %s: %w", wf.describe(), err)
	}
	return nil
}

func (j Job) validate(key string, jobs map[string]Job) error {
	if j.IsReusableCall() {
		if len(j.Steps) > 0 {
			return fmt.Errorf("job %s: uses and steps are mutually exclusive", key)
		}
	} else {
		if len(j.Steps) == 0 {
			return fmt.Errorf("job %s: steps are required", key)
		}
		if len(j.RunsOn) == 0 {
			return fmt.Errorf("job %s: runs-on is required", key)
		}
	}
	for _, dep := range j.Needs {
		if _, ok := jobs[dep]; !ok {
			return fmt.Errorf("job %s: needs references unknown job %s", key, dep)
		}
		if dep == key {
			return fmt.Errorf("job %s: needs references itself", key)
		}
	}
	if j.Strategy != nil && j.Strategy.Matrix != nil && j.Strategy.Matrix.Empty() {
		return fmt.Errorf("job %s: strategy matrix is empty", key)
	}
	for i, step := range j.Steps {
		if err := step.validate(); err != nil {
			return fmt.Errorf("job %s step[%d]: %w", key, i, err)
		}
	}
	return nil
}

func (s Step) validate() error {
	switch {
	case s.Uses == "" && s.Run == "":
		return fmt.Errorf("one of run or uses is required")
	case s.Uses != "" && s.Run != "":
		return fmt.Errorf("run and uses are mutually exclusive")
	case s.Run == "" && s.Shell != "":
		return fmt.Errorf("shell requires run")
	}
	return nil
}

// checkNeedsCycles walks the needs graph depth-first looking for cycles.
func (wf Workflow) checkNeedsCycles() error {
	const (
		unseen = iota
		visiting
		done
	)
	state := map[string]int{}
	var visit func(key string, trail []string) error
	visit = func(key string, trail []string) error {
		switch state[key] {
		case visiting:
			return fmt.Errorf("needs cycle: %s", strings.Join(append(trail, key), " -> "))
		case done:
			return nil
		}
		state[key] = visiting
		for _, dep := range wf.Jobs[key].Needs {
			if _, ok := wf.Jobs[dep]; !ok {
				continue // reported by job validation
			}
			if err := visit(dep, append(trail, key)); err != nil {
				return err
			}
		}
		state[key] = done
		return nil
	}
	for _, key := range wf.JobKeys() {
		if err := visit(key, nil); err != nil {
			return err
		}
	}
	return nil
}

// Normalized validates the workflow and returns a copy with display names
// defaulted from job keys.
func (wf Workflow) Normalized() (Workflow, error) {
	if err := wf.Validate(); err != nil {
		return Workflow{}, err
	}
	if len(wf.Jobs) > 0 {
		jobs := make(map[string]Job, len(wf.Jobs))
		for key, job := range wf.Jobs {
			if strings.TrimSpace(job.Name) == "" {
				job.Name = key
			}
			jobs[key] = job
		}
		wf.Jobs = jobs
	}
	return wf, nil
}

// JobKeys returns the job identifiers in sorted order.
func (wf Workflow) JobKeys() []string {
	keys := make([]string, 0, len(wf.Jobs))
	for key := range wf.Jobs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// describe names the workflow for error messages, preferring the source path.
func (wf Workflow) describe() string {
	if wf.Path != "" {
		return wf.Path
	}
	if wf.Name != "" {
		return wf.Name
	}
	return "(unnamed)"
}
