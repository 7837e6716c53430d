// Package repotree indexes the files of a repository working tree so glob
// patterns from CI configuration can be cross-checked against real paths.
package repotree

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// Tree is an immutable, sorted index of relative file paths under a root.
type Tree struct {
	root  string
	files []string
	dirs  map[string]struct{}
}

// DefaultIgnoreDirs lists directories that never participate in CI path
// matching.
var DefaultIgnoreDirs = []string{".git"}

// Scan walks root and builds a Tree. ignoreDirs entries are matched against
// directory base names; DefaultIgnoreDirs is always applied.
func Scan(root string, ignoreDirs ...string) (*Tree, error) {
	ignored := map[string]struct{}{}
	for _, dir := range DefaultIgnoreDirs {
		ignored[dir] = struct{}{}
	}
	for _, dir := range ignoreDirs {
		trimmed := strings.TrimSpace(dir)
		if trimmed != "" {
			ignored[trimmed] = struct{}{}
		}
	}

	tree := &Tree{root: root, dirs: map[string]struct{}{}}
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if entry.IsDir() {
			if _, skip := ignored[entry.Name()]; skip {
				return filepath.SkipDir
			}
			tree.dirs[rel] = struct{}{}
			return nil
		}
		tree.files = append(tree.files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("repotree: scan %s: %w", root, err)
	}
	sort.Strings(tree.files)
	return tree, nil
}

// FromPaths builds a Tree from an explicit path list. Paths are normalized to
// forward slashes; parent directories are derived automatically. Used by tests
// and by the validation server, which receives path lists instead of a
// working tree.
func FromPaths(paths []string) *Tree {
	tree := &Tree{dirs: map[string]struct{}{}}
	seen := map[string]struct{}{}
	for _, p := range paths {
		rel := filepath.ToSlash(strings.TrimPrefix(strings.TrimSpace(p), "./"))
		if rel == "" {
			continue
		}
		if _, dup := seen[rel]; dup {
			continue
		}
		seen[rel] = struct{}{}
		tree.files = append(tree.files, rel)
		for dir := filepath.ToSlash(filepath.Dir(rel)); dir != "." && dir != "/"; dir = filepath.ToSlash(filepath.Dir(dir)) {
			tree.dirs[dir] = struct{}{}
		}
	}
	sort.Strings(tree.files)
	return tree
}

// Root returns the scanned root directory ("" for FromPaths trees).
func (t *Tree) Root() string { return t.root }

// Files returns the sorted relative file paths.
func (t *Tree) Files() []string {
	out := make([]string, len(t.files))
	copy(out, t.files)
	return out
}

// Len reports how many files are indexed.
func (t *Tree) Len() int { return len(t.files) }

// HasDir reports whether the relative directory path exists in the tree.
func (t *Tree) HasDir(rel string) bool {
	rel = strings.Trim(filepath.ToSlash(rel), "/")
	_, ok := t.dirs[rel]
	return ok
}

// MatchGlob reports whether any indexed file matches the doublestar pattern.
func (t *Tree) MatchGlob(pattern string) (bool, error) {
	for _, file := range t.files {
		ok, err := doublestar.Match(pattern, file)
		if err != nil {
			return false, fmt.Errorf("repotree: bad pattern %q: %w", pattern, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
