package plugins

import (
	"fmt"

	"github.com/xjubep/ciguard/internal/lint"
)

// RegisterCustomRules discovers YAML and Go rule definitions under dir,
// compiles them, and registers the results.
func RegisterCustomRules(reg *lint.Registry, dir string) error {
	if reg == nil || dir == "" {
		return nil
	}
	defs, err := loadAllDefinitionFiles(dir)
	if err != nil {
		return err
	}
	if len(defs) == 0 {
		return nil
	}
	seen := make(map[string]string)
	for _, file := range defs {
		def := file.Definition
		if existing, ok := seen[def.ID]; ok {
			return fmt.Errorf("plugin: duplicate rule id %s (%s and %s)", def.ID, existing, file.Path)
		}
		seen[def.ID] = file.Path
		rule, err := Compile(def)
		if err != nil {
			return fmt.Errorf("plugin: compile %s from %s: %w", def.ID, file.Path, err)
		}
		if err := reg.Register(rule); err != nil {
			return fmt.Errorf("plugin: register %s from %s: %w", def.ID, file.Path, err)
		}
	}
	return nil
}

func loadAllDefinitionFiles(dir string) ([]DefinitionFile, error) {
	yamlDefs, err := LoadDefinitionDir(dir)
	if err != nil {
		return nil, err
	}
	goDefs, err := LoadGoDefinitionDir(dir)
	if err != nil {
		return nil, err
	}
	return append(yamlDefs, goDefs...), nil
}
