package plugins

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseDefinitionYAML(t *testing.T) {
	payload := []byte(`
id: custom/pinned-checkout
description: checkout must be pinned to a tag
severity: error
target: step-uses
require:
  - "actions/checkout@v"
`)
	def, err := ParseDefinitionYAML(payload)
	if err != nil {
		t.Fatalf("ParseDefinitionYAML failed: %v", err)
	}
	if def.ID != "custom/pinned-checkout" || def.Target != TargetStepUses {
		t.Fatalf("unexpected definition: %+v", def)
	}
	if len(def.Require) != 1 || def.Require[0] != "actions/checkout@v" {
		t.Fatalf("unexpected require patterns: %v", def.Require)
	}
}

func TestParseDefinitionYAMLRejectsEmptyPayload(t *testing.T) {
	_, err := ParseDefinitionYAML([]byte("   \n"))
	if err == nil || !strings.Contains(err.Error(), "payload is empty") {
		t.Fatalf("expected empty payload error, got %v", err)
	}
}

func TestParseDefinitionYAMLRejectsInvalidDefinition(t *testing.T) {
	_, err := ParseDefinitionYAML([]byte("id: custom/x\ntarget: step-run\n"))
	if err == nil || !strings.Contains(err.Error(), "forbid or require") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadDefinitionDirMissingIsEmpty(t *testing.T) {
	defs, err := LoadDefinitionDir(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
	if defs != nil {
		t.Fatalf("expected no definitions, got %v", defs)
	}
}

func TestLoadDefinitionDirSortsByPath(t *testing.T) {
	dir := t.TempDir()
	write := func(name, id string) {
		payload := "id: " + id + "\ntarget: step-run\nforbid: [sudo]\n"
		if err := os.WriteFile(filepath.Join(dir, name), []byte(payload), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("b.yaml", "custom/b")
	write("a.yaml", "custom/a")

	defs, err := LoadDefinitionDir(dir)
	if err != nil {
		t.Fatalf("LoadDefinitionDir failed: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
	if defs[0].Definition.ID != "custom/a" || defs[1].Definition.ID != "custom/b" {
		t.Fatalf("definitions not sorted by path: %+v", defs)
	}
}
