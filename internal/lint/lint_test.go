package lint

import (
	"strings"
	"testing"
)

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	rule := New(Meta{ID: "x/a", Description: "a", Severity: SeverityInfo}, func(*Target) []Finding { return nil })
	if err := reg.Register(rule); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := reg.Register(rule); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestRegistryRejectsInvalidMeta(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register(New(Meta{ID: "", Severity: SeverityInfo}, func(*Target) []Finding { return nil }))
	if err == nil || !strings.Contains(err.Error(), "id is required") {
		t.Fatalf("expected id error, got %v", err)
	}
	err = reg.Register(New(Meta{ID: "x/b", Severity: "fatal"}, func(*Target) []Finding { return nil }))
	if err == nil || !strings.Contains(err.Error(), "invalid severity") {
		t.Fatalf("expected severity error, got %v", err)
	}
}

func TestRegistryIDsSorted(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []string{"z/last", "a/first", "m/middle"} {
		reg.MustRegister(New(Meta{ID: id, Severity: SeverityInfo}, func(*Target) []Finding { return nil }))
	}
	ids := reg.IDs()
	if ids[0] != "a/first" || ids[2] != "z/last" {
		t.Fatalf("IDs not sorted: %v", ids)
	}
}

func TestBuiltinRegistryIsPopulated(t *testing.T) {
	ids := Builtin().IDs()
	if len(ids) == 0 {
		t.Fatalf("builtin registry is empty")
	}
	for _, want := range []string{"workflow/unpinned-action", "owners/unmatched-pattern", "pipeline/missing-pool"} {
		if _, ok := Builtin().Get(want); !ok {
			t.Errorf("builtin rule %s missing", want)
		}
	}
}

func TestSortFindings(t *testing.T) {
	findings := []Finding{
		{Rule: "b", Severity: SeverityInfo, File: "a.yml", Line: 2},
		{Rule: "a", Severity: SeverityError, File: "a.yml", Line: 2},
		{Rule: "c", Severity: SeverityWarning, File: "a.yml", Line: 1},
		{Rule: "d", Severity: SeverityError, File: "b.yml"},
	}
	SortFindings(findings)
	if findings[0].Rule != "c" {
		t.Fatalf("expected line 1 first, got %+v", findings[0])
	}
	if findings[1].Rule != "a" || findings[2].Rule != "b" {
		t.Fatalf("expected severity ordering within a line, got %+v", findings)
	}
	if findings[3].File != "b.yml" {
		t.Fatalf("expected file ordering last, got %+v", findings[3])
	}
}

func TestHasErrors(t *testing.T) {
	if HasErrors([]Finding{{Severity: SeverityWarning}}) {
		t.Fatalf("warnings are not errors")
	}
	if !HasErrors([]Finding{{Severity: SeverityWarning}, {Severity: SeverityError}}) {
		t.Fatalf("expected error detection")
	}
}
