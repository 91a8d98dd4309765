package runner

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mark3labs/latch/internal/config"
)

// newFilterTree lays out a small mixed-language tree without git.
func newFilterTree(t *testing.T) (string, []string) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"app.py":        "import os\n",
		"notes.txt":     "hello\n",
		"vendor/lib.py": "import sys\n",
		"logo.png":      "\x89PNG\r\n",
	}
	var names []string
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		names = append(names, name)
	}
	return root, names
}

func hookFiles(t *testing.T, cls *classifier, h config.Hook) []string {
	t.Helper()
	got, err := cls.ForHook(h)
	if err != nil {
		t.Fatalf("ForHook: %v", err)
	}
	return got
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			return false
		}
	}
	return true
}

func TestClassifier_TypeFilters(t *testing.T) {
	root, files := newFilterTree(t)
	cls, err := newClassifier(root, &config.Config{}, files)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		hook config.Hook
		want []string
	}{
		{
			name: "types python",
			hook: config.Hook{ID: "h", Types: []string{"python"}},
			want: []string{"app.py", "vendor/lib.py"},
		},
		{
			name: "types python with exclude",
			hook: config.Hook{ID: "h", Types: []string{"python"}, Exclude: `^vendor/`},
			want: []string{"app.py"},
		},
		{
			name: "files pattern",
			hook: config.Hook{ID: "h", Files: `\.txt$`},
			want: []string{"notes.txt"},
		},
		{
			name: "types_or",
			hook: config.Hook{ID: "h", TypesOr: []string{"python", "image"}},
			want: []string{"app.py", "vendor/lib.py", "logo.png"},
		},
		{
			name: "exclude_types binary",
			hook: config.Hook{ID: "h", ExcludeTypes: []string{"binary"}},
			want: []string{"app.py", "vendor/lib.py", "notes.txt"},
		},
		{
			name: "all types must match",
			hook: config.Hook{ID: "h", Types: []string{"python", "executable"}},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := hookFiles(t, cls, tt.hook)
			if !sameSet(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifier_GlobalFilters(t *testing.T) {
	root, files := newFilterTree(t)

	cls, err := newClassifier(root, &config.Config{Exclude: `^vendor/`}, files)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range cls.Files() {
		if f == "vendor/lib.py" {
			t.Error("global exclude should remove vendor files")
		}
	}

	cls, err = newClassifier(root, &config.Config{Files: `\.py$`}, files)
	if err != nil {
		t.Fatal(err)
	}
	if !sameSet(cls.Files(), []string{"app.py", "vendor/lib.py"}) {
		t.Errorf("global files filter gave %v", cls.Files())
	}
}

func TestClassifier_DropsMissingAndDuplicates(t *testing.T) {
	root, files := newFilterTree(t)
	files = append(files, "ghost.py", "app.py")

	cls, err := newClassifier(root, &config.Config{}, files)
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for _, f := range cls.Files() {
		if f == "ghost.py" {
			t.Error("missing files must be dropped")
		}
		if f == "app.py" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("app.py listed %d times, want 1", count)
	}
}

func TestClassifier_BadPattern(t *testing.T) {
	root, files := newFilterTree(t)
	cls, err := newClassifier(root, &config.Config{}, files)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cls.ForHook(config.Hook{ID: "h", Files: `(unclosed`}); err == nil {
		t.Error("invalid hook pattern should error")
	}
	if _, err := newClassifier(root, &config.Config{Exclude: `(unclosed`}, files); err == nil {
		t.Error("invalid top-level pattern should error")
	}
}

func TestClassifier_PatternsAreUnanchored(t *testing.T) {
	root, files := newFilterTree(t)
	cls, err := newClassifier(root, &config.Config{}, files)
	if err != nil {
		t.Fatal(err)
	}
	// `lib` must match anywhere in the path, not only at the start.
	got := hookFiles(t, cls, config.Hook{ID: "h", Files: `lib`})
	if !reflect.DeepEqual(got, []string{"vendor/lib.py"}) {
		t.Errorf("unanchored match gave %v", got)
	}
}
