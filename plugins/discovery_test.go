package plugins

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xjubep/ciguard/internal/lint"
)

func TestRegisterCustomRules(t *testing.T) {
	dir := t.TempDir()
	payload := "id: custom/no-sudo\ntarget: step-run\nforbid: [sudo]\n"
	if err := os.WriteFile(filepath.Join(dir, "no-sudo.yaml"), []byte(payload), 0o644); err != nil {
		t.Fatalf("write rule: %v", err)
	}

	reg := lint.NewRegistry()
	if err := RegisterCustomRules(reg, dir); err != nil {
		t.Fatalf("RegisterCustomRules failed: %v", err)
	}
	rule, ok := reg.Get("custom/no-sudo")
	if !ok {
		t.Fatalf("rule not registered; have %v", reg.IDs())
	}
	if rule.Meta().Severity != lint.SeverityWarning {
		t.Fatalf("expected default warning severity, got %s", rule.Meta().Severity)
	}
}

func TestRegisterCustomRulesRejectsDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	payload := "id: custom/dup\ntarget: step-run\nforbid: [sudo]\n"
	for _, name := range []string{"a.yaml", "b.yaml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(payload), 0o644); err != nil {
			t.Fatalf("write rule: %v", err)
		}
	}
	err := RegisterCustomRules(lint.NewRegistry(), dir)
	if err == nil || !strings.Contains(err.Error(), "duplicate rule id") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestRegisterCustomRulesMissingDirIsNoop(t *testing.T) {
	if err := RegisterCustomRules(lint.NewRegistry(), filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Fatalf("missing dir should be a no-op: %v", err)
	}
}
