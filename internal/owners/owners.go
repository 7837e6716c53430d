// Package owners parses CODEOWNERS files and resolves which reviewers own a
// given repository path. Rules follow gitignore-style glob semantics and later
// rules override earlier ones for overlapping paths.
package owners

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SupportedLocations lists the CODEOWNERS paths the hosting platform reads, in
// lookup order.
var SupportedLocations = []string{"CODEOWNERS", ".github/CODEOWNERS", "docs/CODEOWNERS"}

// OwnerKind classifies an owner identifier.
type OwnerKind string

const (
	OwnerUser  OwnerKind = "user"
	OwnerTeam  OwnerKind = "team"
	OwnerEmail OwnerKind = "email"
)

// Owner is a single reviewer identifier attached to a rule.
type Owner struct {
	Kind       OwnerKind
	Identifier string
}

func (o Owner) String() string { return o.Identifier }

// Rule pairs one file-path pattern with its ordered owners. Malformed records
// owner tokens the platform would silently ignore (no '@' anywhere).
type Rule struct {
	Pattern   string
	Owners    []Owner
	Malformed []string
	Line      int
}

// Ruleset is a parsed CODEOWNERS file. Rules keep file order; resolution is
// last-match-wins.
type Ruleset struct {
	Path  string
	Rules []Rule
}

// Locate finds the CODEOWNERS file under root at one of the supported
// locations.
func Locate(root string) (string, error) {
	for _, location := range SupportedLocations {
		path := filepath.Join(root, filepath.FromSlash(location))
		stat, err := os.Stat(path)
		if err != nil || stat.IsDir() {
			continue
		}
		return location, nil
	}
	return "", fmt.Errorf("owners: no CODEOWNERS file at any supported location %v", SupportedLocations)
}

// LoadFile reads and parses a CODEOWNERS file from disk.
func LoadFile(path string) (Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Ruleset{}, fmt.Errorf("owners: read %s: %w", path, err)
	}
	set := Parse(data)
	set.Path = filepath.ToSlash(path)
	return set, nil
}

// Parse decodes CODEOWNERS content. Parsing never fails: unparseable owner
// tokens are preserved on the rule as Malformed so lint rules can report them.
func Parse(data []byte) Ruleset {
	var set Ruleset
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	for i, line := range lines {
		rule, ok := parseLine(line)
		if !ok {
			continue
		}
		rule.Line = i + 1
		set.Rules = append(set.Rules, rule)
	}
	return set
}

// parseLine splits one CODEOWNERS line into a pattern and its owner tokens.
// Spaces inside the pattern may be escaped with a backslash; everything after
// an unescaped '#' is a comment.
func parseLine(line string) (Rule, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Rule{}, false
	}

	fields := splitEscaped(line)
	if len(fields) == 0 {
		return Rule{}, false
	}

	rule := Rule{Pattern: fields[0]}
	for _, token := range fields[1:] {
		if strings.HasPrefix(token, "#") {
			break
		}
		rule.Owners, rule.Malformed = appendOwner(rule.Owners, rule.Malformed, token)
	}
	return rule, true
}

func appendOwner(owned []Owner, malformed []string, token string) ([]Owner, []string) {
	switch {
	case strings.HasPrefix(token, "@"):
		kind := OwnerUser
		if strings.Contains(token, "/") {
			kind = OwnerTeam
		}
		return append(owned, Owner{Kind: kind, Identifier: token}), malformed
	case strings.Contains(token, "@"):
		return append(owned, Owner{Kind: OwnerEmail, Identifier: token}), malformed
	default:
		return owned, append(malformed, token)
	}
}

// splitEscaped splits on whitespace while honoring backslash-escaped spaces in
// the first field.
func splitEscaped(line string) []string {
	var fields []string
	var current strings.Builder
	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ' ' || r == '\t':
			if current.Len() > 0 {
				fields = append(fields, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		fields = append(fields, current.String())
	}
	return fields
}
