// internal/tui/app.go
//
// Interactive findings browser. It uses bubbletea, which follows The Elm
// Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The flow is: User Input -> Message -> Update -> New Model -> View -> Screen

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xjubep/ciguard/internal/lint"
)

// Checker re-runs the lint engine when the user presses "r".
type Checker func() ([]lint.Finding, error)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	detailStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// findingItem implements list.Item for one finding.
type findingItem struct {
	finding lint.Finding
}

func (i findingItem) Title() string {
	return fmt.Sprintf("%s %s", severityBadge(i.finding.Severity), i.finding.Rule)
}

func (i findingItem) Description() string {
	location := i.finding.File
	if location == "" {
		location = "(repository)"
	}
	if i.finding.Line > 0 {
		location = fmt.Sprintf("%s:%d", location, i.finding.Line)
	}
	return location
}

func (i findingItem) FilterValue() string {
	return i.finding.Rule + " " + i.finding.File
}

func severityBadge(severity lint.Severity) string {
	switch severity {
	case lint.SeverityError:
		return errorStyle.Render("ERR ")
	case lint.SeverityWarning:
		return warningStyle.Render("WARN")
	default:
		return infoStyle.Render("INFO")
	}
}

// App is the findings browser model.
type App struct {
	root     string
	checker  Checker
	findings []lint.Finding
	filter   lint.Severity // empty means all

	findingList list.Model
	statusMsg   string
	err         error

	width  int
	height int
}

// NewApp builds the browser around an initial set of findings. checker may be
// nil, in which case refresh is disabled.
func NewApp(root string, findings []lint.Finding, checker Checker) *App {
	delegate := list.NewDefaultDelegate()
	l := list.New(nil, delegate, 0, 0)
	l.Title = "ciguard findings"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	app := &App{
		root:        root,
		checker:     checker,
		findings:    findings,
		findingList: l,
	}
	app.applyFilter()
	return app
}

type refreshMsg struct {
	findings []lint.Finding
	err      error
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update handles messages and returns the new model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.findingList.SetSize(msg.Width, msg.Height-6)
		return a, nil

	case refreshMsg:
		a.err = msg.err
		if msg.err == nil {
			a.findings = msg.findings
			a.statusMsg = fmt.Sprintf("rescanned: %d findings", len(msg.findings))
			a.applyFilter()
		}
		return a, nil

	case tea.KeyMsg:
		// Don't intercept keys while the user is typing a filter query.
		if a.findingList.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "e":
			a.toggleSeverity(lint.SeverityError)
			return a, nil
		case "w":
			a.toggleSeverity(lint.SeverityWarning)
			return a, nil
		case "i":
			a.toggleSeverity(lint.SeverityInfo)
			return a, nil
		case "a":
			a.filter = ""
			a.applyFilter()
			return a, nil
		case "r":
			if a.checker == nil {
				a.statusMsg = "refresh unavailable"
				return a, nil
			}
			a.statusMsg = "rescanning..."
			checker := a.checker
			return a, func() tea.Msg {
				findings, err := checker()
				return refreshMsg{findings: findings, err: err}
			}
		}
	}

	var cmd tea.Cmd
	a.findingList, cmd = a.findingList.Update(msg)
	return a, cmd
}

// View renders the current state.
func (a *App) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ciguard"))
	b.WriteString(dimStyle.Render("  " + a.root))
	b.WriteString("\n")
	b.WriteString(a.findingList.View())
	b.WriteString("\n")
	if selected, ok := a.selectedFinding(); ok {
		b.WriteString(detailStyle.Render(selected.Message))
		b.WriteString("\n")
	}
	b.WriteString(a.statusLine())
	return b.String()
}

func (a *App) statusLine() string {
	if a.err != nil {
		return errorStyle.Render("error: " + a.err.Error())
	}
	scope := "all"
	if a.filter != "" {
		scope = string(a.filter)
	}
	counts := fmt.Sprintf("%d/%d findings [%s]", len(a.visibleFindings()), len(a.findings), scope)
	help := "e/w/i filter · a all · r rescan · / search · q quit"
	if a.statusMsg != "" {
		counts = a.statusMsg + " · " + counts
	}
	return dimStyle.Render(counts + " · " + help)
}

func (a *App) toggleSeverity(severity lint.Severity) {
	if a.filter == severity {
		a.filter = ""
	} else {
		a.filter = severity
	}
	a.applyFilter()
}

func (a *App) visibleFindings() []lint.Finding {
	if a.filter == "" {
		return a.findings
	}
	var out []lint.Finding
	for _, f := range a.findings {
		if f.Severity == a.filter {
			out = append(out, f)
		}
	}
	return out
}

func (a *App) applyFilter() {
	visible := a.visibleFindings()
	items := make([]list.Item, len(visible))
	for i, f := range visible {
		items[i] = findingItem{finding: f}
	}
	a.findingList.SetItems(items)
}

func (a *App) selectedFinding() (lint.Finding, bool) {
	item, ok := a.findingList.SelectedItem().(findingItem)
	if !ok {
		return lint.Finding{}, false
	}
	return item.finding, true
}
