package lint

import (
	"fmt"
	"strings"

	"github.com/xjubep/ciguard/internal/owners"
)

func init() {
	builtin.MustRegister(New(Meta{
		ID:          "owners/missing-file",
		Description: "the repository should carry a CODEOWNERS file",
		Severity:    SeverityInfo,
	}, checkOwnersPresent))

	builtin.MustRegister(New(Meta{
		ID:          "owners/unmatched-pattern",
		Description: "every ownership glob must match at least one real path",
		Severity:    SeverityError,
	}, checkOwnersPatterns))

	builtin.MustRegister(New(Meta{
		ID:          "owners/shadowed-rule",
		Description: "duplicate patterns make earlier rules unreachable",
		Severity:    SeverityWarning,
	}, checkOwnersShadowing))

	builtin.MustRegister(New(Meta{
		ID:          "owners/no-owners",
		Description: "a rule without owners clears ownership for its paths",
		Severity:    SeverityWarning,
	}, checkOwnersEmptyRules))

	builtin.MustRegister(New(Meta{
		ID:          "owners/malformed-owner",
		Description: "owner tokens without an @ are silently ignored",
		Severity:    SeverityWarning,
	}, checkOwnersMalformed))

	builtin.MustRegister(New(Meta{
		ID:          "owners/missing-catch-all",
		Description: "a catch-all rule guarantees every change has a reviewer",
		Severity:    SeverityInfo,
	}, checkOwnersCatchAll))
}

func checkOwnersPresent(t *Target) []Finding {
	if t.Owners != nil {
		return nil
	}
	return []Finding{{
		Rule:     "owners/missing-file",
		Severity: SeverityInfo,
		Message:  fmt.Sprintf("no CODEOWNERS file at any supported location %v", owners.SupportedLocations),
	}}
}

func checkOwnersPatterns(t *Target) []Finding {
	if t.Owners == nil || t.Tree == nil {
		return nil
	}
	result := owners.Verify(*t.Owners, t.Tree)
	var findings []Finding
	for _, rule := range result.Unmatched {
		findings = append(findings, Finding{
			Rule:     "owners/unmatched-pattern",
			Severity: SeverityError,
			File:     t.OwnersPath,
			Line:     rule.Line,
			Message:  fmt.Sprintf("pattern %q matches no file in the repository", rule.Pattern),
		})
	}
	for pattern, err := range result.BadPatterns {
		findings = append(findings, Finding{
			Rule:     "owners/unmatched-pattern",
			Severity: SeverityError,
			File:     t.OwnersPath,
			Message:  fmt.Sprintf("pattern %q is not a valid glob: %v", pattern, err),
		})
	}
	return findings
}

func checkOwnersShadowing(t *Target) []Finding {
	if t.Owners == nil || t.Tree == nil {
		return nil
	}
	result := owners.Verify(*t.Owners, t.Tree)
	var findings []Finding
	for _, rule := range result.Shadowed {
		findings = append(findings, Finding{
			Rule:     "owners/shadowed-rule",
			Severity: SeverityWarning,
			File:     t.OwnersPath,
			Line:     rule.Line,
			Message:  fmt.Sprintf("pattern %q is repeated later; this rule never applies", rule.Pattern),
		})
	}
	return findings
}

func checkOwnersEmptyRules(t *Target) []Finding {
	if t.Owners == nil {
		return nil
	}
	var findings []Finding
	for _, rule := range t.Owners.Rules {
		if len(rule.Owners) == 0 && len(rule.Malformed) == 0 {
			findings = append(findings, Finding{
				Rule:     "owners/no-owners",
				Severity: SeverityWarning,
				File:     t.OwnersPath,
				Line:     rule.Line,
				Message:  fmt.Sprintf("pattern %q has no owners and clears ownership", rule.Pattern),
			})
		}
	}
	return findings
}

func checkOwnersMalformed(t *Target) []Finding {
	if t.Owners == nil {
		return nil
	}
	var findings []Finding
	for _, rule := range t.Owners.Rules {
		for _, token := range rule.Malformed {
			findings = append(findings, Finding{
				Rule:     "owners/malformed-owner",
				Severity: SeverityWarning,
				File:     t.OwnersPath,
				Line:     rule.Line,
				Message:  fmt.Sprintf("owner token %q on pattern %q will be ignored by the platform", token, rule.Pattern),
			})
		}
	}
	return findings
}

func checkOwnersCatchAll(t *Target) []Finding {
	if t.Owners == nil {
		return nil
	}
	for _, rule := range t.Owners.Rules {
		pattern := strings.TrimSpace(rule.Pattern)
		if pattern == "*" || pattern == "**" || pattern == "/**" {
			return nil
		}
	}
	return []Finding{{
		Rule:     "owners/missing-catch-all",
		Severity: SeverityInfo,
		File:     t.OwnersPath,
		Message:  "no catch-all rule; some changes may have no required reviewer",
	}}
}
