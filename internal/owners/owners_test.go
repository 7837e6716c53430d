package owners

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleCodeowners = `# Root fallback
*       @lightning/core

# Docs
/docs/  @edenlightning @lightning/docs
*.md    docs@example.com

# Callbacks, escaped space in pattern
/src/callbacks/early\ stopping/  @tchaton

# Owner tokens without an @ are ignored by the platform
/legacy/ nobody
`

func TestParseRules(t *testing.T) {
	set := Parse([]byte(sampleCodeowners))
	if len(set.Rules) != 5 {
		t.Fatalf("expected 5 rules, got %d", len(set.Rules))
	}

	root := set.Rules[0]
	if root.Pattern != "*" {
		t.Fatalf("unexpected first pattern %q", root.Pattern)
	}
	if len(root.Owners) != 1 || root.Owners[0].Kind != OwnerTeam {
		t.Fatalf("expected a single team owner, got %+v", root.Owners)
	}

	docs := set.Rules[1]
	if len(docs.Owners) != 2 || docs.Owners[0].Kind != OwnerUser || docs.Owners[1].Kind != OwnerTeam {
		t.Fatalf("unexpected docs owners: %+v", docs.Owners)
	}

	md := set.Rules[2]
	if len(md.Owners) != 1 || md.Owners[0].Kind != OwnerEmail {
		t.Fatalf("expected email owner for *.md, got %+v", md.Owners)
	}

	escaped := set.Rules[3]
	if escaped.Pattern != "/src/callbacks/early stopping/" {
		t.Fatalf("escaped space not preserved: %q", escaped.Pattern)
	}

	legacy := set.Rules[4]
	if len(legacy.Owners) != 0 || len(legacy.Malformed) != 1 || legacy.Malformed[0] != "nobody" {
		t.Fatalf("expected malformed token recorded, got %+v", legacy)
	}
	if legacy.Line != 12 {
		t.Fatalf("expected line 12, got %d", legacy.Line)
	}
}

func TestParseHandlesCRLFAndInlineComments(t *testing.T) {
	set := Parse([]byte("/src/ @alice # trailing comment\r\n\r\n# pure comment\r\n"))
	if len(set.Rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(set.Rules))
	}
	rule := set.Rules[0]
	if len(rule.Owners) != 1 || rule.Owners[0].Identifier != "@alice" {
		t.Fatalf("inline comment leaked into owners: %+v", rule.Owners)
	}
}

func TestLocate(t *testing.T) {
	root := t.TempDir()
	if _, err := Locate(root); err == nil {
		t.Fatalf("expected error when no CODEOWNERS exists")
	}
	if err := os.MkdirAll(filepath.Join(root, ".github"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ".github", "CODEOWNERS"), []byte("* @core\n"), 0644); err != nil {
		t.Fatal(err)
	}
	location, err := Locate(root)
	if err != nil {
		t.Fatalf("Locate returned error: %v", err)
	}
	if location != ".github/CODEOWNERS" {
		t.Fatalf("unexpected location %q", location)
	}
}
