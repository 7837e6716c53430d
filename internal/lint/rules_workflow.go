package lint

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xjubep/ciguard/internal/schedule"
	"github.com/xjubep/ciguard/internal/workflow"
)

// deprecatedRunners lists hosted runner labels the platform has retired.
var deprecatedRunners = map[string]string{
	"ubuntu-16.04": "ubuntu-22.04",
	"ubuntu-18.04": "ubuntu-22.04",
	"macos-10.15":  "macos-13",
	"macos-11":     "macos-13",
	"windows-2016": "windows-2022",
	"windows-2019": "windows-2022",
}

func init() {
	builtin.MustRegister(New(Meta{
		ID:          "workflow/missing-name",
		Description: "workflow files should declare a display name",
		Severity:    SeverityInfo,
	}, checkWorkflowNames))

	builtin.MustRegister(New(Meta{
		ID:          "workflow/unpinned-action",
		Description: "action references should pin a ref with @",
		Severity:    SeverityWarning,
	}, checkUnpinnedActions))

	builtin.MustRegister(New(Meta{
		ID:          "workflow/mutable-action-ref",
		Description: "action references should not track a moving branch",
		Severity:    SeverityWarning,
	}, checkMutableActionRefs))

	builtin.MustRegister(New(Meta{
		ID:          "workflow/missing-timeout",
		Description: "jobs should bound their runtime with timeout-minutes",
		Severity:    SeverityWarning,
	}, checkJobTimeouts))

	builtin.MustRegister(New(Meta{
		ID:          "workflow/missing-concurrency",
		Description: "pull_request workflows should coalesce superseded runs",
		Severity:    SeverityWarning,
	}, checkPullRequestConcurrency))

	builtin.MustRegister(New(Meta{
		ID:          "workflow/schedule-too-frequent",
		Description: "schedules must respect the platform's 5 minute floor",
		Severity:    SeverityError,
	}, checkScheduleFrequency))

	builtin.MustRegister(New(Meta{
		ID:          "workflow/deprecated-runner",
		Description: "hosted runner label has been retired",
		Severity:    SeverityWarning,
	}, checkDeprecatedRunners))

	builtin.MustRegister(New(Meta{
		ID:          "workflow/unknown-function",
		Description: "if guards may only call the platform's expression functions",
		Severity:    SeverityWarning,
	}, checkGuardFunctions))
}

func checkWorkflowNames(t *Target) []Finding {
	var findings []Finding
	for _, wf := range t.Workflows {
		if strings.TrimSpace(wf.Name) == "" {
			findings = append(findings, Finding{
				Rule:     "workflow/missing-name",
				Severity: SeverityInfo,
				File:     wf.Path,
				Message:  "workflow has no name; runs will display the file path",
			})
		}
	}
	return findings
}

func checkUnpinnedActions(t *Target) []Finding {
	var findings []Finding
	for _, wf := range t.Workflows {
		eachStep(wf, func(jobKey string, idx int, step workflow.Step) {
			uses := step.Uses
			if uses == "" || strings.HasPrefix(uses, "./") || strings.HasPrefix(uses, "docker://") {
				return
			}
			if !strings.Contains(uses, "@") {
				findings = append(findings, Finding{
					Rule:     "workflow/unpinned-action",
					Severity: SeverityWarning,
					File:     wf.Path,
					Message:  fmt.Sprintf("job %s step[%d]: action %q has no pinned ref", jobKey, idx, uses),
				})
			}
		})
	}
	return findings
}

func checkMutableActionRefs(t *Target) []Finding {
	var findings []Finding
	for _, wf := range t.Workflows {
		eachStep(wf, func(jobKey string, idx int, step workflow.Step) {
			at := strings.LastIndex(step.Uses, "@")
			if at < 0 {
				return
			}
			ref := step.Uses[at+1:]
			if ref == "main" || ref == "master" || ref == "HEAD" {
				findings = append(findings, Finding{
					Rule:     "workflow/mutable-action-ref",
					Severity: SeverityWarning,
					File:     wf.Path,
					Message:  fmt.Sprintf("job %s step[%d]: action %q tracks branch %s", jobKey, idx, step.Uses, ref),
				})
			}
		})
	}
	return findings
}

func checkJobTimeouts(t *Target) []Finding {
	var findings []Finding
	for _, wf := range t.Workflows {
		for _, key := range wf.JobKeys() {
			job := wf.Jobs[key]
			if job.IsReusableCall() || job.TimeoutMinutes > 0 {
				continue
			}
			findings = append(findings, Finding{
				Rule:     "workflow/missing-timeout",
				Severity: SeverityWarning,
				File:     wf.Path,
				Message:  fmt.Sprintf("job %s has no timeout-minutes; the platform default is 360", key),
			})
		}
	}
	return findings
}

func checkPullRequestConcurrency(t *Target) []Finding {
	var findings []Finding
	for _, wf := range t.Workflows {
		if wf.On.PullRequest == nil || wf.Concurrency != nil {
			continue
		}
		findings = append(findings, Finding{
			Rule:     "workflow/missing-concurrency",
			Severity: SeverityWarning,
			File:     wf.Path,
			Message:  "pull_request workflow has no concurrency group; superseded runs will pile up",
		})
	}
	return findings
}

func checkScheduleFrequency(t *Target) []Finding {
	var findings []Finding
	for _, wf := range t.Workflows {
		for i, entry := range wf.On.Schedule {
			spec, err := schedule.Parse(entry.Cron)
			if err != nil {
				continue // already rejected by validation
			}
			if spec.TooFrequent() {
				findings = append(findings, Finding{
					Rule:     "workflow/schedule-too-frequent",
					Severity: SeverityError,
					File:     wf.Path,
					Message:  fmt.Sprintf("schedule[%d] %q fires more often than every %s", i, entry.Cron, schedule.MinInterval),
				})
			}
		}
	}
	return findings
}

func checkDeprecatedRunners(t *Target) []Finding {
	var findings []Finding
	for _, wf := range t.Workflows {
		for _, key := range wf.JobKeys() {
			for _, label := range wf.Jobs[key].RunsOn {
				replacement, deprecated := deprecatedRunners[label]
				if !deprecated {
					continue
				}
				findings = append(findings, Finding{
					Rule:     "workflow/deprecated-runner",
					Severity: SeverityWarning,
					File:     wf.Path,
					Message:  fmt.Sprintf("job %s runs on retired label %s; use %s", key, label, replacement),
				})
			}
		}
	}
	return findings
}

// knownExprFunctions lists the callable functions of the platform's
// expression language. Anything else in an if guard is a typo.
var knownExprFunctions = map[string]struct{}{
	"success": {}, "failure": {}, "cancelled": {}, "always": {},
	"contains": {}, "startswith": {}, "endswith": {}, "format": {},
	"join": {}, "tojson": {}, "fromjson": {}, "hashfiles": {},
}

var exprCallPattern = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

func checkGuardFunctions(t *Target) []Finding {
	var findings []Finding
	flag := func(file, where, guard string) {
		for _, match := range exprCallPattern.FindAllStringSubmatch(guard, -1) {
			name := match[1]
			if _, ok := knownExprFunctions[strings.ToLower(name)]; ok {
				continue
			}
			findings = append(findings, Finding{
				Rule:     "workflow/unknown-function",
				Severity: SeverityWarning,
				File:     file,
				Message:  fmt.Sprintf("%s calls unknown function %s()", where, name),
			})
		}
	}
	for _, wf := range t.Workflows {
		for _, key := range wf.JobKeys() {
			if guard := wf.Jobs[key].If; guard != "" {
				flag(wf.Path, fmt.Sprintf("job %s if guard", key), guard)
			}
		}
		eachStep(wf, func(jobKey string, idx int, step workflow.Step) {
			if step.If != "" {
				flag(wf.Path, fmt.Sprintf("job %s step[%d] if guard", jobKey, idx), step.If)
			}
		})
	}
	return findings
}

// eachStep visits every step of every job in key order.
func eachStep(wf workflow.Workflow, visit func(jobKey string, idx int, step workflow.Step)) {
	for _, key := range wf.JobKeys() {
		for i, step := range wf.Jobs[key].Steps {
			visit(key, i, step)
		}
	}
}
