package pipeline

import (
	"fmt"
	"strings"

	"github.com/xjubep/ciguard/internal/schedule"
)

// Validate ensures the pipeline is self-consistent: it declares work in
// exactly one of stages/jobs/steps form, names are unique, dependsOn edges
// resolve without cycles, steps carry exactly one action, and schedule crons
// parse.
func (p Pipeline) Validate() error {
	declared := 0
	if len(p.Stages) > 0 {
		declared++
	}
	if len(p.Jobs) > 0 {
		declared++
	}
	if len(p.Steps) > 0 {
		declared++
	}
	if declared == 0 {
		return fmt.Errorf("pipeline %s: one of stages, jobs, or steps is required", p.describe())
	}
	if declared > 1 {
		return fmt.Errorf("pipeline %s: stages, jobs, and steps are mutually exclusive at the root", p.describe())
	}

	for i, sched := range p.Schedules {
		if strings.TrimSpace(sched.Cron) == "" {
			return fmt.Errorf("pipeline %s: schedules[%d]: cron is required", p.describe(), i)
		}
		if _, err := schedule.Parse(sched.Cron); err != nil {
			return fmt.Errorf("pipeline %s: schedules[%d]: %w", p.describe(), i, err)
		}
	}

	if len(p.Stages) > 0 {
		if err := validateStages(p.Stages); err != nil {
			return fmt.Errorf("pipeline %s: %w", p.describe(), err)
		}
	}
	if len(p.Jobs) > 0 {
		if err := validateJobs(p.Jobs); err != nil {
			return fmt.Errorf("pipeline %s: %w", p.describe(), err)
		}
	}
	for i, step := range p.Steps {
		if err := step.validate(); err != nil {
			return fmt.Errorf("pipeline %s: steps[%d]: %w", p.describe(), i, err)
		}
	}
	return nil
}

func validateStages(stages []Stage) error {
	names := map[string]struct{}{}
	for i, stage := range stages {
		if strings.TrimSpace(stage.Stage) == "" {
			return fmt.Errorf("stages[%d]: stage name is required", i)
		}
		if _, dup := names[stage.Stage]; dup {
			return fmt.Errorf("duplicate stage %s", stage.Stage)
		}
		names[stage.Stage] = struct{}{}
		if err := validateJobs(stage.Jobs); err != nil {
			return fmt.Errorf("stage %s: %w", stage.Stage, err)
		}
	}
	deps := map[string][]string{}
	for _, stage := range stages {
		for _, dep := range stage.DependsOn {
			if _, ok := names[dep]; !ok {
				return fmt.Errorf("stage %s: dependsOn references unknown stage %s", stage.Stage, dep)
			}
			deps[stage.Stage] = append(deps[stage.Stage], dep)
		}
	}
	return checkCycles("stage", deps)
}

func validateJobs(jobs []Job) error {
	names := map[string]struct{}{}
	for i, job := range jobs {
		if strings.TrimSpace(job.Job) == "" {
			return fmt.Errorf("jobs[%d]: job name is required", i)
		}
		if _, dup := names[job.Job]; dup {
			return fmt.Errorf("duplicate job %s", job.Job)
		}
		names[job.Job] = struct{}{}
		if len(job.Steps) == 0 {
			return fmt.Errorf("job %s: steps are required", job.Job)
		}
		for s, step := range job.Steps {
			if err := step.validate(); err != nil {
				return fmt.Errorf("job %s steps[%d]: %w", job.Job, s, err)
			}
		}
		if job.Strategy != nil && len(job.Strategy.Matrix) == 0 && job.Strategy.Parallel == 0 {
			return fmt.Errorf("job %s: strategy requires a matrix or parallel count", job.Job)
		}
	}
	deps := map[string][]string{}
	for _, job := range jobs {
		for _, dep := range job.DependsOn {
			if _, ok := names[dep]; !ok {
				return fmt.Errorf("job %s: dependsOn references unknown job %s", job.Job, dep)
			}
			deps[job.Job] = append(deps[job.Job], dep)
		}
	}
	return checkCycles("job", deps)
}

func (s Step) validate() error {
	actions := 0
	for _, field := range []string{s.Script, s.Bash, s.Task, s.Template, s.Checkout} {
		if strings.TrimSpace(field) != "" {
			actions++
		}
	}
	switch {
	case actions == 0:
		return fmt.Errorf("one of script, bash, task, template, or checkout is required")
	case actions > 1:
		return fmt.Errorf("script, bash, task, template, and checkout are mutually exclusive")
	}
	if len(s.Inputs) > 0 && s.Task == "" {
		return fmt.Errorf("inputs require a task")
	}
	return nil
}

func checkCycles(kind string, deps map[string][]string) error {
	const (
		unseen = iota
		visiting
		done
	)
	state := map[string]int{}
	var visit func(name string, trail []string) error
	visit = func(name string, trail []string) error {
		switch state[name] {
		case visiting:
			return fmt.Errorf("%s dependsOn cycle: %s", kind, strings.Join(append(trail, name), " -> "))
		case done:
			return nil
		}
		state[name] = visiting
		for _, dep := range deps[name] {
			if err := visit(dep, append(trail, name)); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}
	for name := range deps {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}

// describe names the pipeline for error messages.
func (p Pipeline) describe() string {
	if p.Path != "" {
		return p.Path
	}
	if p.Name != "" {
		return p.Name
	}
	return "(unnamed)"
}
