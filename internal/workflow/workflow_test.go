package workflow

import (
	"strings"
	"testing"
)

func TestParseWorkflowScalarTrigger(t *testing.T) {
	const payload = `
name: Docs
on: push
jobs:
  build:
    runs-on: ubuntu-22.04
    steps:
      - run: make docs
`
	wf, err := ParseWorkflowYAML([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wf.On.Push == nil {
		t.Fatalf("push trigger should be enabled")
	}
	if got := wf.On.Events(); len(got) != 1 || got[0] != "push" {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestParseWorkflowListTrigger(t *testing.T) {
	const payload = `
on: [push, pull_request, workflow_dispatch]
jobs:
  test:
    runs-on: ubuntu-22.04
    steps:
      - uses: actions/checkout@v4
`
	wf, err := ParseWorkflowYAML([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wf.On.Push == nil || wf.On.PullRequest == nil || wf.On.WorkflowDispatch == nil {
		t.Fatalf("expected all three triggers, got %+v", wf.On)
	}
}

func TestParseWorkflowMapTriggerWithFilters(t *testing.T) {
	const payload = `
name: CI
on:
  push:
    branches: [master, "release/*"]
    paths: ["src/**", "requirements/*.txt"]
  pull_request:
    branches: [master]
  schedule:
    - cron: "0 4 * * *"
jobs:
  test:
    runs-on: ubuntu-22.04
    steps:
      - uses: actions/checkout@v4
      - run: pytest tests -v
`
	wf, err := ParseWorkflowYAML([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wf.On.Push.Branches) != 2 || wf.On.Push.Branches[1] != "release/*" {
		t.Fatalf("unexpected push branches: %v", wf.On.Push.Branches)
	}
	if len(wf.On.Push.Paths) != 2 {
		t.Fatalf("unexpected push paths: %v", wf.On.Push.Paths)
	}
	if len(wf.On.Schedule) != 1 || wf.On.Schedule[0].Cron != "0 4 * * *" {
		t.Fatalf("unexpected schedule: %v", wf.On.Schedule)
	}
}

func TestParseWorkflowScalarNeedsAndRunsOn(t *testing.T) {
	const payload = `
on: push
jobs:
  build:
    runs-on: ubuntu-22.04
    steps:
      - run: make build
  test:
    runs-on: [self-hosted, gpu]
    needs: build
    steps:
      - run: make test
`
	wf, err := ParseWorkflowYAML([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	test := wf.Jobs["test"]
	if len(test.Needs) != 1 || test.Needs[0] != "build" {
		t.Fatalf("scalar needs should decode to a one-element list: %v", test.Needs)
	}
	if len(test.RunsOn) != 2 {
		t.Fatalf("list runs-on should decode fully: %v", test.RunsOn)
	}
}

func TestParseConcurrencyForms(t *testing.T) {
	const scalar = `
on: push
concurrency: docs-build
jobs:
  a:
    runs-on: ubuntu-22.04
    steps: [{run: "true"}]
`
	wf, err := ParseWorkflowYAML([]byte(scalar))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wf.Concurrency == nil || wf.Concurrency.Group != "docs-build" {
		t.Fatalf("scalar concurrency not decoded: %+v", wf.Concurrency)
	}

	const mapping = `
on: push
concurrency:
  group: ci-${{ github.ref }}
  cancel-in-progress: true
jobs:
  a:
    runs-on: ubuntu-22.04
    steps: [{run: "true"}]
`
	wf, err = ParseWorkflowYAML([]byte(mapping))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wf.Concurrency.Group != "ci-${{ github.ref }}" || !wf.Concurrency.CancelInProgress.Bool {
		t.Fatalf("mapping concurrency not decoded: %+v", wf.Concurrency)
	}
}

func TestParseFlagExpression(t *testing.T) {
	const payload = `
on: push
concurrency:
  group: g
  cancel-in-progress: ${{ github.ref != 'refs/heads/master' }}
jobs:
  a:
    runs-on: ubuntu-22.04
    steps: [{run: "true"}]
`
	wf, err := ParseWorkflowYAML([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wf.Concurrency.CancelInProgress.Expression == "" {
		t.Fatalf("expected expression to be preserved: %+v", wf.Concurrency.CancelInProgress)
	}
}

func TestParseWorkflowRejectsEmptyDocument(t *testing.T) {
	if _, err := ParseWorkflowYAML([]byte("   \n")); err == nil {
		t.Fatalf("expected error for empty document")
	}
}

func TestNormalizedDefaultsJobNames(t *testing.T) {
	const payload = `
on: push
jobs:
  lint:
    runs-on: ubuntu-22.04
    steps: [{run: "make lint"}]
`
	wf, err := ParseWorkflowYAML([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wf.Jobs["lint"].Name != "lint" {
		t.Fatalf("expected job name defaulted to key, got %q", wf.Jobs["lint"].Name)
	}
}

func TestLoadDirMissingIsEmpty(t *testing.T) {
	workflows, err := LoadDir("does/not/exist")
	if err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
	if len(workflows) != 0 {
		t.Fatalf("expected no workflows, got %d", len(workflows))
	}
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		wantErr string
	}{
		{
			name:    "no triggers",
			payload: "name: x\njobs:\n  a:\n    runs-on: u\n    steps: [{run: x}]\n",
			wantErr: "at least one trigger",
		},
		{
			name:    "no jobs",
			payload: "on: push\njobs: {}\n",
			wantErr: "at least one job",
		},
		{
			name:    "unknown needs",
			payload: "on: push\njobs:\n  a:\n    runs-on: u\n    needs: ghost\n    steps: [{run: x}]\n",
			wantErr: "references unknown job",
		},
		{
			name:    "needs cycle",
			payload: "on: push\njobs:\n  a:\n    runs-on: u\n    needs: b\n    steps: [{run: x}]\n  b:\n    runs-on: u\n    needs: a\n    steps: [{run: x}]\n",
			wantErr: "needs cycle",
		},
		{
			name:    "step with run and uses",
			payload: "on: push\njobs:\n  a:\n    runs-on: u\n    steps:\n      - run: x\n        uses: actions/checkout@v4\n",
			wantErr: "mutually exclusive",
		},
		{
			name:    "step with neither",
			payload: "on: push\njobs:\n  a:\n    runs-on: u\n    steps:\n      - name: hollow\n",
			wantErr: "one of run or uses",
		},
		{
			name:    "missing runs-on",
			payload: "on: push\njobs:\n  a:\n    steps: [{run: x}]\n",
			wantErr: "runs-on is required",
		},
		{
			name:    "bad cron",
			payload: "on:\n  schedule:\n    - cron: \"99 99 * * *\"\njobs:\n  a:\n    runs-on: u\n    steps: [{run: x}]\n",
			wantErr: "schedule[0]",
		},
		{
			name:    "branches and branches-ignore",
			payload: "on:\n  push:\n    branches: [master]\n    branches-ignore: [dev]\njobs:\n  a:\n    runs-on: u\n    steps: [{run: x}]\n",
			wantErr: "mutually exclusive",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseWorkflowYAML([]byte(tc.payload))
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not contain %q", err.Error(), tc.wantErr)
			}
		})
	}
}

func TestReusableWorkflowJob(t *testing.T) {
	const payload = `
on: push
jobs:
  call-tests:
    uses: ./.github/workflows/tests.yml
    with:
      python-version: "3.10"
`
	wf, err := ParseWorkflowYAML([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !wf.Jobs["call-tests"].IsReusableCall() {
		t.Fatalf("expected reusable call job")
	}
}
