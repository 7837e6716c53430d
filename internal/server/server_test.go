package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/xjubep/ciguard/internal/lint"
	"github.com/xjubep/ciguard/internal/owners"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(lint.Builtin(), zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func do(t *testing.T, s *Server, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeValidate(t *testing.T, rec *httptest.ResponseRecorder) validateResponse {
	t.Helper()
	var resp validateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rec.Body.String())
	}
	return resp
}

func TestHealthz(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestListRules(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/v1/rules", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var resp struct {
		Rules []ruleInfo `json:"rules"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Rules) == 0 {
		t.Fatalf("expected registered rules in response")
	}
}

func TestValidateWorkflow(t *testing.T) {
	payload := `
name: CI
on:
  push:
    branches: [main]
jobs:
  test:
    runs-on: ubuntu-22.04
    timeout-minutes: 20
    steps:
      - uses: actions/checkout@v4
      - run: make test
`
	rec := do(t, newTestServer(t), http.MethodPost, "/v1/workflows/validate", "application/x-yaml", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeValidate(t, rec)
	if !resp.Valid {
		t.Fatalf("expected valid workflow, got findings %v", resp.Findings)
	}
}

func TestValidateWorkflowSurfacesFindings(t *testing.T) {
	payload := `
on: [push]
jobs:
  test:
    runs-on: ubuntu-18.04
    steps:
      - uses: actions/checkout
`
	rec := do(t, newTestServer(t), http.MethodPost, "/v1/workflows/validate", "application/x-yaml", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeValidate(t, rec)
	seen := map[string]bool{}
	for _, f := range resp.Findings {
		seen[f.Rule] = true
	}
	for _, want := range []string{"workflow/missing-name", "workflow/unpinned-action", "workflow/deprecated-runner"} {
		if !seen[want] {
			t.Errorf("expected %s finding, got %v", want, resp.Findings)
		}
	}
}

func TestValidateWorkflowRejectsBrokenYAML(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodPost, "/v1/workflows/validate", "application/x-yaml", "on: [push]\njobs: {\n")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeValidate(t, rec)
	if resp.Valid || len(resp.Findings) != 1 {
		t.Fatalf("expected one parse finding, got %+v", resp)
	}
}

func TestValidateWorkflowRejectsEmptyBody(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodPost, "/v1/workflows/validate", "application/x-yaml", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}

func TestValidatePipeline(t *testing.T) {
	payload := `
trigger:
  branches:
    include: [main]
pool:
  vmImage: ubuntu-22.04
jobs:
  - job: build
    timeoutInMinutes: 30
    steps:
      - script: make build
`
	rec := do(t, newTestServer(t), http.MethodPost, "/v1/pipelines/validate", "application/x-yaml", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeValidate(t, rec)
	if !resp.Valid {
		t.Fatalf("expected valid pipeline, got findings %v", resp.Findings)
	}
}

func TestValidateOwners(t *testing.T) {
	body := map[string]any{
		"content": "* @org/core\ndocs/missing/ @org/docs\n",
		"paths":   []string{"README.md", "src/main.go"},
	}
	payload, _ := json.Marshal(body)
	rec := do(t, newTestServer(t), http.MethodPost, "/v1/owners/validate", "application/json", string(payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeValidate(t, rec)
	if resp.Valid {
		t.Fatalf("expected unmatched pattern to invalidate the document")
	}
	var seen bool
	for _, f := range resp.Findings {
		if f.Rule == "owners/unmatched-pattern" {
			seen = true
		}
	}
	if !seen {
		t.Fatalf("expected owners/unmatched-pattern, got %v", resp.Findings)
	}
}

func TestRunScopesRulesByKind(t *testing.T) {
	s := newTestServer(t)
	set := owners.Parse([]byte("docs/\n"))
	target := &lint.Target{Owners: &set, OwnersPath: "CODEOWNERS"}

	findings, err := s.run(target, "workflow/")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(findings) != 0 {
		t.Fatalf("workflow scope should skip owners rules, got %v", findings)
	}

	findings, err = s.run(target, "owners/")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	var seen bool
	for _, f := range findings {
		if f.Rule == "owners/no-owners" {
			seen = true
		}
	}
	if !seen {
		t.Fatalf("expected owners/no-owners under owners scope, got %v", findings)
	}
}

func TestValidateOwnersRequiresContent(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodPost, "/v1/owners/validate", "application/json", `{"paths":["a"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}
