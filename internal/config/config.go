// internal/config/config.go
//
// This package handles configuration and the .ciguard directory structure.
// Every repository checked with ciguard may carry a .ciguard/ folder in its
// root; a missing folder means defaults.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/xjubep/ciguard/internal/lint"
)

// CiguardDir is the name of the per-repository configuration directory.
const CiguardDir = ".ciguard"

const defaultProjectConfigYAML = `# ciguard repository configuration
version: 1

# Where CI documents live, relative to the repository root.
# workflow_dir: .github/workflows
# pipeline_files: [azure-pipelines.yml]
# owners_path: .github/CODEOWNERS

rules:
  # enabled: [workflow/unpinned-action]
  disabled: []
  # severity:
  #   workflow/missing-timeout: error
`

// RulesConfig tunes which rules run and how loudly they report.
type RulesConfig struct {
	Enabled  []string          `yaml:"enabled,omitempty"`
	Disabled []string          `yaml:"disabled,omitempty"`
	Severity map[string]string `yaml:"severity,omitempty"`
}

// ProjectConfig models .ciguard/config.yaml.
type ProjectConfig struct {
	Version       int         `yaml:"version"`
	WorkflowDir   string      `yaml:"workflow_dir,omitempty"`
	PipelineFiles []string    `yaml:"pipeline_files,omitempty"`
	OwnersPath    string      `yaml:"owners_path,omitempty"`
	RulesDir      string      `yaml:"rules_dir,omitempty"`
	IgnoreDirs    []string    `yaml:"ignore_dirs,omitempty"`
	Rules         RulesConfig `yaml:"rules,omitempty"`
	MaxParallel   int         `yaml:"max_parallel,omitempty"`
}

// EnvOverrides captures process-environment settings that take precedence
// over the on-disk config.
type EnvOverrides struct {
	Repo       string `env:"CIGUARD_REPO"`
	ConfigPath string `env:"CIGUARD_CONFIG"`
	Debug      bool   `env:"CIGUARD_DEBUG"`
	ListenAddr string `env:"CIGUARD_LISTEN_ADDR" envDefault:":8880"`
}

// Config holds the runtime configuration for a ciguard run.
type Config struct {
	// RepoDir is the repository being checked.
	RepoDir string

	// CiguardProjectDir is RepoDir/.ciguard.
	CiguardProjectDir string

	Project ProjectConfig
	Env     EnvOverrides
}

// New loads configuration for the given repository directory. Environment
// variables are read first; CIGUARD_REPO overrides repoDir when set and
// CIGUARD_CONFIG points at an alternate config file.
func New(repoDir string) (*Config, error) {
	overrides, err := env.ParseAs[EnvOverrides]()
	if err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	if overrides.Repo != "" {
		repoDir = overrides.Repo
	}
	if repoDir == "" {
		repoDir = "."
	}

	cfg := &Config{
		RepoDir:           repoDir,
		CiguardProjectDir: filepath.Join(repoDir, CiguardDir),
		Project:           defaultProjectConfig(),
		Env:               overrides,
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProjectConfigPath returns the on-disk location for the config file.
func (c *Config) ProjectConfigPath() string {
	if c.Env.ConfigPath != "" {
		return c.Env.ConfigPath
	}
	return filepath.Join(c.CiguardProjectDir, "config.yaml")
}

// RulesDir returns the directory holding custom rule definitions.
func (c *Config) RulesDir() string {
	if c.Project.RulesDir != "" {
		return filepath.Join(c.RepoDir, filepath.FromSlash(c.Project.RulesDir))
	}
	return filepath.Join(c.CiguardProjectDir, "rules")
}

// LintOptions converts the loaded configuration into engine options.
func (c *Config) LintOptions() lint.Options {
	overrides := make(map[string]lint.Severity, len(c.Project.Rules.Severity))
	for id, sev := range c.Project.Rules.Severity {
		overrides[id] = lint.Severity(sev)
	}
	return lint.Options{
		WorkflowDir:       c.Project.WorkflowDir,
		PipelineFiles:     c.Project.PipelineFiles,
		OwnersPath:        c.Project.OwnersPath,
		Enabled:           c.Project.Rules.Enabled,
		Disabled:          c.Project.Rules.Disabled,
		SeverityOverrides: overrides,
		MaxParallel:       c.Project.MaxParallel,
		IgnoreDirs:        c.Project.IgnoreDirs,
	}
}

// Init creates the .ciguard directory structure in the given repository and
// writes a commented starter config if none exists.
//
// Structure created:
// .ciguard/
// ├── config.yaml  <- Engine configuration
// └── rules/       <- Custom rule definitions (*.yaml, *.go)
func Init(repoDir string) error {
	dir := filepath.Join(repoDir, CiguardDir)
	if err := os.MkdirAll(filepath.Join(dir, "rules"), 0o755); err != nil {
		return err
	}
	return ensureProjectConfig(filepath.Join(dir, "config.yaml"))
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && c.Env.ConfigPath == "" {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{Version: 1}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
}

func (pc *ProjectConfig) normalize() {
	pc.WorkflowDir = strings.TrimSpace(pc.WorkflowDir)
	pc.OwnersPath = strings.TrimSpace(pc.OwnersPath)
	pc.RulesDir = strings.TrimSpace(pc.RulesDir)
	pc.PipelineFiles = trimList(pc.PipelineFiles)
	pc.IgnoreDirs = trimList(pc.IgnoreDirs)
	pc.Rules.Enabled = trimList(pc.Rules.Enabled)
	pc.Rules.Disabled = trimList(pc.Rules.Disabled)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if strings.HasSuffix(pc.OwnersPath, "/") {
		return fmt.Errorf("owners_path %q must name a file", pc.OwnersPath)
	}
	for id, sev := range pc.Rules.Severity {
		if !lint.Severity(strings.TrimSpace(sev)).Valid() {
			return fmt.Errorf("rules.severity[%s]: invalid severity %q", id, sev)
		}
	}
	if pc.MaxParallel < 0 {
		return fmt.Errorf("max_parallel must be >= 0")
	}
	return nil
}

func trimList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}
