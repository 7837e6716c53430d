package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/xjubep/ciguard/internal/lint"
)

func sampleFindings() []lint.Finding {
	return []lint.Finding{
		{Rule: "workflow/schedule-too-frequent", Severity: lint.SeverityError, File: ".github/workflows/nightly.yml", Message: "fires too often"},
		{Rule: "workflow/missing-timeout", Severity: lint.SeverityWarning, File: ".github/workflows/ci.yml", Message: "no timeout"},
		{Rule: "owners/missing-catch-all", Severity: lint.SeverityInfo, File: "CODEOWNERS", Message: "no catch-all"},
	}
}

func keyMsg(key string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

func TestNewAppShowsAllFindings(t *testing.T) {
	app := NewApp("/repo", sampleFindings(), nil)
	if got := len(app.findingList.Items()); got != 3 {
		t.Fatalf("expected 3 items, got %d", got)
	}
}

func TestSeverityFilterToggles(t *testing.T) {
	app := NewApp("/repo", sampleFindings(), nil)

	model, _ := app.Update(keyMsg("e"))
	app = model.(*App)
	if got := len(app.findingList.Items()); got != 1 {
		t.Fatalf("expected 1 error item, got %d", got)
	}

	model, _ = app.Update(keyMsg("e"))
	app = model.(*App)
	if got := len(app.findingList.Items()); got != 3 {
		t.Fatalf("expected toggle back to all, got %d", got)
	}

	model, _ = app.Update(keyMsg("w"))
	app = model.(*App)
	model, _ = app.Update(keyMsg("a"))
	app = model.(*App)
	if got := len(app.findingList.Items()); got != 3 {
		t.Fatalf("expected 'a' to clear filter, got %d", got)
	}
}

func TestRefreshReplacesFindings(t *testing.T) {
	app := NewApp("/repo", sampleFindings(), func() ([]lint.Finding, error) {
		return []lint.Finding{{Rule: "parse/error", Severity: lint.SeverityError, Message: "boom"}}, nil
	})

	model, cmd := app.Update(keyMsg("r"))
	app = model.(*App)
	if cmd == nil {
		t.Fatalf("expected a refresh command")
	}
	model, _ = app.Update(cmd())
	app = model.(*App)
	if got := len(app.findingList.Items()); got != 1 {
		t.Fatalf("expected refreshed items, got %d", got)
	}
}

func TestRefreshErrorIsDisplayed(t *testing.T) {
	app := NewApp("/repo", nil, func() ([]lint.Finding, error) {
		return nil, errors.New("scan failed")
	})
	model, cmd := app.Update(keyMsg("r"))
	app = model.(*App)
	model, _ = app.Update(cmd())
	app = model.(*App)
	if !strings.Contains(app.View(), "scan failed") {
		t.Fatalf("expected error in view")
	}
}

func TestViewContainsRootAndHelp(t *testing.T) {
	app := NewApp("/repo", sampleFindings(), nil)
	model, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	app = model.(*App)
	view := app.View()
	if !strings.Contains(view, "/repo") {
		t.Fatalf("expected repository root in view")
	}
	if !strings.Contains(view, "q quit") {
		t.Fatalf("expected help line in view")
	}
}
