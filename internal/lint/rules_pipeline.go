package lint

import (
	"fmt"

	"github.com/xjubep/ciguard/internal/pipeline"
	"github.com/xjubep/ciguard/internal/schedule"
)

func init() {
	builtin.MustRegister(New(Meta{
		ID:          "pipeline/missing-pool",
		Description: "jobs need an agent pool, inherited or explicit",
		Severity:    SeverityWarning,
	}, checkPipelinePools))

	builtin.MustRegister(New(Meta{
		ID:          "pipeline/missing-timeout",
		Description: "jobs should bound their runtime with timeoutInMinutes",
		Severity:    SeverityWarning,
	}, checkPipelineTimeouts))

	builtin.MustRegister(New(Meta{
		ID:          "pipeline/schedule-too-frequent",
		Description: "schedules must respect the platform's 5 minute floor",
		Severity:    SeverityError,
	}, checkPipelineSchedules))
}

func checkPipelinePools(t *Target) []Finding {
	var findings []Finding
	for _, p := range t.Pipelines {
		if p.Pool != nil {
			continue
		}
		eachPipelineJob(p, func(stage string, job pipeline.Job) {
			if job.Pool != nil {
				return
			}
			findings = append(findings, Finding{
				Rule:     "pipeline/missing-pool",
				Severity: SeverityWarning,
				File:     p.Path,
				Message:  fmt.Sprintf("%s has no pool and the pipeline declares none", describeJob(stage, job)),
			})
		})
	}
	return findings
}

func checkPipelineTimeouts(t *Target) []Finding {
	var findings []Finding
	for _, p := range t.Pipelines {
		eachPipelineJob(p, func(stage string, job pipeline.Job) {
			if job.TimeoutInMinutes > 0 {
				return
			}
			findings = append(findings, Finding{
				Rule:     "pipeline/missing-timeout",
				Severity: SeverityWarning,
				File:     p.Path,
				Message:  fmt.Sprintf("%s has no timeoutInMinutes; the platform default is 60", describeJob(stage, job)),
			})
		})
	}
	return findings
}

func checkPipelineSchedules(t *Target) []Finding {
	var findings []Finding
	for _, p := range t.Pipelines {
		for i, sched := range p.Schedules {
			spec, err := schedule.Parse(sched.Cron)
			if err != nil {
				continue // already rejected by validation
			}
			if spec.TooFrequent() {
				findings = append(findings, Finding{
					Rule:     "pipeline/schedule-too-frequent",
					Severity: SeverityError,
					File:     p.Path,
					Message:  fmt.Sprintf("schedules[%d] %q fires more often than every %s", i, sched.Cron, schedule.MinInterval),
				})
			}
		}
	}
	return findings
}

func eachPipelineJob(p pipeline.Pipeline, visit func(stage string, job pipeline.Job)) {
	for _, job := range p.Jobs {
		visit("", job)
	}
	for _, stage := range p.Stages {
		for _, job := range stage.Jobs {
			visit(stage.Stage, job)
		}
	}
}

func describeJob(stage string, job pipeline.Job) string {
	if stage == "" {
		return fmt.Sprintf("job %s", job.Job)
	}
	return fmt.Sprintf("stage %s job %s", stage, job.Job)
}
