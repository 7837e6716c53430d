package owners

import (
	"github.com/xjubep/ciguard/internal/repotree"
)

// VerifyResult reports how a ruleset lines up against a real repository tree.
type VerifyResult struct {
	// Unmatched holds rules whose pattern matched no file in the tree.
	Unmatched []Rule
	// Shadowed holds earlier rules fully overridden by a later rule with an
	// identical pattern.
	Shadowed []Rule
	// BadPatterns maps rule patterns to the glob error they produced.
	BadPatterns map[string]error
}

// Clean reports whether verification found nothing to complain about.
func (v VerifyResult) Clean() bool {
	return len(v.Unmatched) == 0 && len(v.Shadowed) == 0 && len(v.BadPatterns) == 0
}

// Verify cross-checks every rule pattern against the repository tree: each
// glob should match at least one real path, and no rule should be made
// unreachable by a later duplicate.
func Verify(set Ruleset, tree *repotree.Tree) VerifyResult {
	result := VerifyResult{BadPatterns: map[string]error{}}

	lastIndex := map[string]int{}
	for i, rule := range set.Rules {
		lastIndex[rule.Pattern] = i
	}
	for i, rule := range set.Rules {
		if lastIndex[rule.Pattern] != i {
			result.Shadowed = append(result.Shadowed, rule)
		}
	}

	for _, rule := range set.Rules {
		matched := false
		for _, file := range tree.Files() {
			ok, err := rule.Matches(file)
			if err != nil {
				result.BadPatterns[rule.Pattern] = err
				matched = true // do not double-report a bad pattern as unmatched
				break
			}
			if ok {
				matched = true
				break
			}
		}
		if !matched {
			result.Unmatched = append(result.Unmatched, rule)
		}
	}
	return result
}
