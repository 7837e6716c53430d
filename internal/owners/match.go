package owners

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// Matches reports whether the rule's pattern covers the relative file path.
// Semantics follow the platform's gitignore-derived rules: a pattern with no
// slash (other than a trailing one) floats to any depth, a pattern containing
// a slash is anchored to the repository root, and a pattern matching a
// directory covers everything beneath it.
func (r Rule) Matches(path string) (bool, error) {
	path = strings.TrimPrefix(strings.TrimSpace(path), "/")
	for _, candidate := range r.expand() {
		ok, err := doublestar.Match(candidate, path)
		if err != nil {
			return false, fmt.Errorf("owners: pattern %q: %w", r.Pattern, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// expand translates the CODEOWNERS pattern into the doublestar globs to try.
func (r Rule) expand() []string {
	p := r.Pattern
	dirOnly := strings.HasSuffix(p, "/")
	p = strings.TrimSuffix(p, "/")
	anchored := strings.HasPrefix(p, "/") || strings.Contains(p, "/")
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return nil
	}

	candidates := []string{p + "/**"}
	if !dirOnly {
		candidates = append(candidates, p)
	}
	if !anchored {
		floating := []string{"**/" + p + "/**"}
		if !dirOnly {
			floating = append(floating, "**/"+p)
		}
		candidates = append(candidates, floating...)
	}
	return candidates
}

// Resolution names the rule that decided ownership for a path.
type Resolution struct {
	Path   string
	Rule   *Rule
	Owners []Owner
}

// Owned reports whether any rule matched the path.
func (res Resolution) Owned() bool { return res.Rule != nil }

// OwnersFor resolves ownership for a path. The last matching rule wins; a
// matching rule with zero owners clears ownership.
func (set Ruleset) OwnersFor(path string) (Resolution, error) {
	res := Resolution{Path: path}
	for i := range set.Rules {
		ok, err := set.Rules[i].Matches(path)
		if err != nil {
			return Resolution{}, err
		}
		if ok {
			res.Rule = &set.Rules[i]
		}
	}
	if res.Rule != nil {
		res.Owners = res.Rule.Owners
	}
	return res, nil
}
