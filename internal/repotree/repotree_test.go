package repotree

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestScanSkipsGitDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/train.py")
	writeFile(t, root, ".git/config")
	writeFile(t, root, ".github/workflows/ci.yml")

	tree, err := Scan(root)
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	files := tree.Files()
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %v", files)
	}
	if files[0] != ".github/workflows/ci.yml" || files[1] != "src/train.py" {
		t.Fatalf("unexpected file list: %v", files)
	}
	if !tree.HasDir("src") {
		t.Fatalf("expected src to be indexed as a directory")
	}
	if tree.HasDir(".git") {
		t.Fatalf(".git should have been skipped")
	}
}

func TestScanHonorsExtraIgnoreDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/index.md")
	writeFile(t, root, "node_modules/pkg/index.js")

	tree, err := Scan(root, "node_modules")
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if tree.Len() != 1 {
		t.Fatalf("expected 1 file, got %v", tree.Files())
	}
}

func TestFromPathsNormalizes(t *testing.T) {
	tree := FromPaths([]string{"./docs/source/conf.py", "docs/source/conf.py", " "})
	if tree.Len() != 1 {
		t.Fatalf("expected deduplicated single file, got %v", tree.Files())
	}
	if !tree.HasDir("docs/source") || !tree.HasDir("docs") {
		t.Fatalf("expected derived parent directories")
	}
}

func TestMatchGlob(t *testing.T) {
	tree := FromPaths([]string{"src/lightning/trainer.py", "tests/test_trainer.py"})
	cases := []struct {
		pattern string
		want    bool
	}{
		{"src/**/*.py", true},
		{"**/test_*.py", true},
		{"docs/**", false},
	}
	for _, tc := range cases {
		got, err := tree.MatchGlob(tc.pattern)
		if err != nil {
			t.Fatalf("MatchGlob(%q) error: %v", tc.pattern, err)
		}
		if got != tc.want {
			t.Fatalf("MatchGlob(%q) = %v, want %v", tc.pattern, got, tc.want)
		}
	}
	if _, err := tree.MatchGlob("[bad"); err == nil {
		t.Fatalf("expected error for malformed pattern")
	}
}
