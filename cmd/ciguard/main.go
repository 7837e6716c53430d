// cmd/ciguard/main.go
//
// Entry point for the ciguard CLI. Subcommands:
//
//	check    - lint a repository's CI configuration
//	owners   - resolve CODEOWNERS ownership for paths
//	triggers - simulate an event against the workflow triggers
//	matrix   - expand a job's build matrix
//	rules    - list registered rules
//	init     - scaffold .ciguard/ in a repository
//	browse   - interactive findings browser

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/xjubep/ciguard/internal/config"
	"github.com/xjubep/ciguard/internal/lint"
	"github.com/xjubep/ciguard/internal/observability"
	"github.com/xjubep/ciguard/internal/owners"
	"github.com/xjubep/ciguard/internal/trigger"
	"github.com/xjubep/ciguard/internal/tui"
	"github.com/xjubep/ciguard/internal/workflow"
	"github.com/xjubep/ciguard/plugins"
)

const usage = `usage: ciguard <command> [flags]

commands:
  check     lint a repository's CI configuration
  owners    resolve CODEOWNERS ownership for paths
  triggers  simulate an event against the workflow triggers
  matrix    expand a job's build matrix
  rules     list registered rules
  init      scaffold .ciguard/ in a repository
  browse    interactive findings browser
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	switch os.Args[1] {
	case "check":
		runCheck(os.Args[2:])
	case "owners":
		runOwners(os.Args[2:])
	case "triggers":
		runTriggers(os.Args[2:])
	case "matrix":
		runMatrix(os.Args[2:])
	case "rules":
		runRules(os.Args[2:])
	case "init":
		runInit(os.Args[2:])
	case "browse":
		runBrowse(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// setup loads configuration and builds the rule registry, including any
// custom rules found under .ciguard/rules.
func setup(repo string, noCustom bool) (*config.Config, *lint.Registry) {
	cfg, err := config.New(repo)
	if err != nil {
		die("load config: %v", err)
	}
	observability.InitLogger("ciguard", cfg.Env.Debug)

	registry := lint.Builtin()
	if !noCustom {
		if err := plugins.RegisterCustomRules(registry, cfg.RulesDir()); err != nil {
			die("load custom rules: %v", err)
		}
	}
	return cfg, registry
}

func runCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	repo := fs.String("repo", ".", "repository to check")
	format := fs.String("format", "text", "output format: text or json")
	noCustom := fs.Bool("no-custom", false, "skip custom rules under .ciguard/rules")
	fs.Parse(args)

	cfg, registry := setup(*repo, *noCustom)
	engine, err := lint.NewEngine(registry, cfg.LintOptions())
	if err != nil {
		die("build engine: %v", err)
	}
	findings, err := engine.Check(cfg.RepoDir)
	if err != nil {
		die("check: %v", err)
	}

	switch *format {
	case "json":
		printJSON(map[string]any{
			"valid":    !lint.HasErrors(findings),
			"findings": findings,
		})
	case "text":
		printFindings(findings)
	default:
		die("unknown format %q", *format)
	}
	if lint.HasErrors(findings) {
		os.Exit(1)
	}
}

func printFindings(findings []lint.Finding) {
	if len(findings) == 0 {
		fmt.Println("no findings")
		return
	}
	for _, f := range findings {
		location := f.File
		if location == "" {
			location = "(repository)"
		}
		if f.Line > 0 {
			location = fmt.Sprintf("%s:%d", location, f.Line)
		}
		fmt.Printf("%-7s %-32s %s  %s\n", f.Severity, f.Rule, location, f.Message)
	}
	fmt.Printf("%d finding(s)\n", len(findings))
}

func runOwners(args []string) {
	fs := flag.NewFlagSet("owners", flag.ExitOnError)
	repo := fs.String("repo", ".", "repository to inspect")
	fs.Parse(args)
	paths := fs.Args()
	if len(paths) == 0 {
		die("owners: at least one path argument is required")
	}

	cfg, _ := setup(*repo, true)
	location := cfg.Project.OwnersPath
	if location == "" {
		found, err := owners.Locate(cfg.RepoDir)
		if err != nil {
			die("owners: %v", err)
		}
		location = found
	}
	set, err := owners.LoadFile(joinRepo(cfg.RepoDir, location))
	if err != nil {
		die("owners: %v", err)
	}

	for _, path := range paths {
		res, err := set.OwnersFor(path)
		if err != nil {
			die("owners: %s: %v", path, err)
		}
		if !res.Owned() {
			fmt.Printf("%s  (unowned)\n", path)
			continue
		}
		names := make([]string, len(res.Owners))
		for i, owner := range res.Owners {
			names[i] = owner.String()
		}
		fmt.Printf("%s  %s  (line %d: %s)\n", path, strings.Join(names, " "), res.Rule.Line, res.Rule.Pattern)
	}
}

func runTriggers(args []string) {
	fs := flag.NewFlagSet("triggers", flag.ExitOnError)
	repo := fs.String("repo", ".", "repository to inspect")
	event := fs.String("event", "push", "event type: push or pull_request")
	branch := fs.String("branch", "", "branch name (target branch for pull_request)")
	tag := fs.String("tag", "", "tag name for push events")
	paths := fs.String("paths", "", "comma-separated changed paths")
	fs.Parse(args)

	cfg, _ := setup(*repo, true)
	dir := cfg.Project.WorkflowDir
	if dir == "" {
		dir = workflow.DefaultWorkflowDir
	}
	workflows, err := workflow.LoadDir(joinRepo(cfg.RepoDir, dir))
	if err != nil {
		die("triggers: %v", err)
	}
	if len(workflows) == 0 {
		die("triggers: no workflows under %s", dir)
	}

	ev := trigger.Event{
		Type:   trigger.EventType(*event),
		Branch: *branch,
		Tag:    *tag,
	}
	if *paths != "" {
		ev.Paths = strings.Split(*paths, ",")
	}
	decisions, err := trigger.EvaluateAll(workflows, ev)
	if err != nil {
		die("triggers: %v", err)
	}
	for _, d := range decisions {
		verdict := "skips"
		if d.Fires {
			verdict = "fires"
		}
		fmt.Printf("%-40s %-6s %s\n", d.Workflow, verdict, d.Reason)
	}
}

func runMatrix(args []string) {
	fs := flag.NewFlagSet("matrix", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 2 {
		die("usage: ciguard matrix <workflow-file> <job-key>")
	}
	file, jobKey := fs.Arg(0), fs.Arg(1)

	wf, err := workflow.LoadFile(file)
	if err != nil {
		die("matrix: %v", err)
	}
	job, ok := wf.Jobs[jobKey]
	if !ok {
		die("matrix: job %q not found; have %v", jobKey, wf.JobKeys())
	}
	if job.Strategy == nil || job.Strategy.Matrix.Empty() {
		die("matrix: job %q declares no matrix", jobKey)
	}
	combos := job.Strategy.Matrix.Expand()
	for _, combo := range combos {
		fmt.Println(combo.Key())
	}
	fmt.Printf("%d combination(s)\n", len(combos))
}

func runRules(args []string) {
	fs := flag.NewFlagSet("rules", flag.ExitOnError)
	repo := fs.String("repo", ".", "repository whose custom rules to include")
	noCustom := fs.Bool("no-custom", false, "skip custom rules under .ciguard/rules")
	fs.Parse(args)

	_, registry := setup(*repo, *noCustom)
	for _, rule := range registry.Rules() {
		meta := rule.Meta()
		fmt.Printf("%-7s %-36s %s\n", meta.Severity, meta.ID, meta.Description)
	}
}

func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	repo := fs.String("repo", ".", "repository to scaffold")
	fs.Parse(args)
	if err := config.Init(*repo); err != nil {
		die("init: %v", err)
	}
	fmt.Printf("initialized %s/%s\n", *repo, config.CiguardDir)
}

func runBrowse(args []string) {
	fs := flag.NewFlagSet("browse", flag.ExitOnError)
	repo := fs.String("repo", ".", "repository to browse")
	noCustom := fs.Bool("no-custom", false, "skip custom rules under .ciguard/rules")
	fs.Parse(args)

	cfg, registry := setup(*repo, *noCustom)
	engine, err := lint.NewEngine(registry, cfg.LintOptions())
	if err != nil {
		die("build engine: %v", err)
	}
	check := func() ([]lint.Finding, error) {
		return engine.Check(cfg.RepoDir)
	}
	findings, err := check()
	if err != nil {
		die("browse: %v", err)
	}

	p := tea.NewProgram(
		tui.NewApp(cfg.RepoDir, findings, check),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		die("browse: %v", err)
	}
}

func printJSON(payload any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		die("encode output: %v", err)
	}
}

func joinRepo(repo, rel string) string {
	return filepath.Join(repo, filepath.FromSlash(rel))
}
