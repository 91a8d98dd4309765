package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

// initTestRepo creates a git repository with one committed file and
// returns its path.
func initTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	mustGit(t, dir, "init")
	mustGit(t, dir, "config", "user.email", "test@test.com")
	mustGit(t, dir, "config", "user.name", "Test")
	writeTestFile(t, dir, "README.md", "# test\n")
	mustGit(t, dir, "add", "README.md")
	mustGit(t, dir, "commit", "-m", "initial")
	return dir
}

func mustGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := runGit(dir, args...)
	if err != nil {
		t.Fatalf("git %v failed: %v", args, err)
	}
	return out
}

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestRoot(t *testing.T) {
	requireGit(t)
	dir := initTestRepo(t)

	sub := filepath.Join(dir, "pkg", "deep")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	root, err := Root(sub)
	if err != nil {
		t.Fatalf("Root failed: %v", err)
	}
	// Resolve symlinks before comparing; macOS tempdirs live behind /var.
	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(root)
	if got != want {
		t.Errorf("Root = %q, want %q", got, want)
	}
}

func TestGitDir(t *testing.T) {
	requireGit(t)
	dir := initTestRepo(t)

	gitDir, err := GitDir(dir)
	if err != nil {
		t.Fatalf("GitDir failed: %v", err)
	}
	if filepath.Base(gitDir) != ".git" {
		t.Errorf("GitDir = %q, want a .git directory", gitDir)
	}
	if !filepath.IsAbs(gitDir) {
		t.Errorf("GitDir = %q, want absolute path", gitDir)
	}
}

func TestHooksDir(t *testing.T) {
	requireGit(t)
	dir := initTestRepo(t)

	t.Run("default", func(t *testing.T) {
		hooks, err := HooksDir(dir)
		if err != nil {
			t.Fatalf("HooksDir failed: %v", err)
		}
		if filepath.Base(hooks) != "hooks" {
			t.Errorf("HooksDir = %q, want path ending in hooks", hooks)
		}
	})

	t.Run("core.hooksPath", func(t *testing.T) {
		custom := filepath.Join(dir, "custom-hooks")
		mustGit(t, dir, "config", "core.hooksPath", custom)
		defer mustGit(t, dir, "config", "--unset", "core.hooksPath")

		hooks, err := HooksDir(dir)
		if err != nil {
			t.Fatalf("HooksDir failed: %v", err)
		}
		if hooks != custom {
			t.Errorf("HooksDir = %q, want %q", hooks, custom)
		}
	})
}

func TestStagedFiles(t *testing.T) {
	requireGit(t)
	dir := initTestRepo(t)

	t.Run("nothing staged", func(t *testing.T) {
		files, err := StagedFiles(dir)
		if err != nil {
			t.Fatalf("StagedFiles failed: %v", err)
		}
		if len(files) != 0 {
			t.Errorf("expected no staged files, got %v", files)
		}
	})

	t.Run("staged additions and modifications", func(t *testing.T) {
		writeTestFile(t, dir, "new.py", "x = 1\n")
		writeTestFile(t, dir, "README.md", "# changed\n")
		mustGit(t, dir, "add", "new.py", "README.md")

		files, err := StagedFiles(dir)
		if err != nil {
			t.Fatalf("StagedFiles failed: %v", err)
		}
		if len(files) != 2 {
			t.Fatalf("expected 2 staged files, got %v", files)
		}
		mustGit(t, dir, "commit", "-m", "second")
	})

	t.Run("staged deletions excluded", func(t *testing.T) {
		mustGit(t, dir, "rm", "new.py")
		files, err := StagedFiles(dir)
		if err != nil {
			t.Fatalf("StagedFiles failed: %v", err)
		}
		for _, f := range files {
			if f == "new.py" {
				t.Error("deleted file should not be listed")
			}
		}
	})
}

func TestAllFiles(t *testing.T) {
	requireGit(t)
	dir := initTestRepo(t)

	writeTestFile(t, dir, "src/app.go", "package app\n")
	mustGit(t, dir, "add", "src/app.go")
	mustGit(t, dir, "commit", "-m", "add app")

	files, err := AllFiles(dir)
	if err != nil {
		t.Fatalf("AllFiles failed: %v", err)
	}
	want := map[string]bool{"README.md": true, "src/app.go": true}
	if len(files) != len(want) {
		t.Fatalf("AllFiles = %v, want %d entries", files, len(want))
	}
	for _, f := range files {
		if !want[f] {
			t.Errorf("unexpected file %q", f)
		}
	}
}

func TestChangedFiles(t *testing.T) {
	requireGit(t)
	dir := initTestRepo(t)

	first := mustGit(t, dir, "rev-parse", "HEAD")
	writeTestFile(t, dir, "a.txt", "a\n")
	mustGit(t, dir, "add", "a.txt")
	mustGit(t, dir, "commit", "-m", "add a")

	files, err := ChangedFiles(dir, first, "HEAD")
	if err != nil {
		t.Fatalf("ChangedFiles failed: %v", err)
	}
	if len(files) != 1 || files[0] != "a.txt" {
		t.Errorf("ChangedFiles = %v, want [a.txt]", files)
	}
}

func TestIntentToAddFiles(t *testing.T) {
	requireGit(t)
	dir := initTestRepo(t)

	t.Run("none", func(t *testing.T) {
		files, err := IntentToAddFiles(dir)
		if err != nil {
			t.Fatalf("IntentToAddFiles failed: %v", err)
		}
		if len(files) != 0 {
			t.Errorf("expected none, got %v", files)
		}
	})

	t.Run("registered", func(t *testing.T) {
		writeTestFile(t, dir, "sketch.txt", "wip\n")
		mustGit(t, dir, "add", "--intent-to-add", "sketch.txt")

		files, err := IntentToAddFiles(dir)
		if err != nil {
			t.Fatalf("IntentToAddFiles failed: %v", err)
		}
		if len(files) != 1 || files[0] != "sketch.txt" {
			t.Errorf("IntentToAddFiles = %v, want [sketch.txt]", files)
		}
	})
}

func TestHasUnmergedFiles(t *testing.T) {
	requireGit(t)
	dir := initTestRepo(t)

	unmerged, err := HasUnmergedFiles(dir)
	if err != nil {
		t.Fatalf("HasUnmergedFiles failed: %v", err)
	}
	if unmerged {
		t.Error("fresh repo should have no unmerged files")
	}
}

func TestInMergeConflict(t *testing.T) {
	requireGit(t)
	dir := initTestRepo(t)

	if InMergeConflict(dir) {
		t.Error("fresh repo should not be mid-merge")
	}

	// Simulate a merge in progress by planting the state files.
	gitDir, err := GitDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	writeTestFile(t, gitDir, "MERGE_HEAD", "0000000000000000000000000000000000000000\n")
	writeTestFile(t, gitDir, "MERGE_MSG", "Merge branch 'feature'\n")

	if !InMergeConflict(dir) {
		t.Error("expected merge conflict state to be detected")
	}
}

func TestConflictedFiles(t *testing.T) {
	requireGit(t)
	dir := initTestRepo(t)

	// Both branches edit the same line, then the merge is resolved by
	// hand. The resolved file must still be reported.
	mustGit(t, dir, "checkout", "-b", "feature")
	writeTestFile(t, dir, "README.md", "# feature\n")
	mustGit(t, dir, "commit", "-a", "-m", "feature edit")
	mustGit(t, dir, "checkout", "-")
	writeTestFile(t, dir, "README.md", "# mainline\n")
	mustGit(t, dir, "commit", "-a", "-m", "mainline edit")

	if _, err := runGit(dir, "merge", "feature"); err == nil {
		t.Fatal("expected the merge to conflict")
	}
	writeTestFile(t, dir, "README.md", "# resolved\n")
	mustGit(t, dir, "add", "README.md")

	files, err := ConflictedFiles(dir)
	if err != nil {
		t.Fatalf("ConflictedFiles failed: %v", err)
	}
	found := false
	for _, f := range files {
		if f == "README.md" {
			found = true
		}
	}
	if !found {
		t.Errorf("ConflictedFiles = %v, want README.md listed", files)
	}
}

func TestIsInRepo(t *testing.T) {
	requireGit(t)

	if !IsInRepo(initTestRepo(t)) {
		t.Error("expected repo dir to be inside a work tree")
	}
	if IsInRepo(t.TempDir()) {
		t.Error("expected plain temp dir to be outside any work tree")
	}
}

func TestZsplit(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a\x00", 1},
		{"a\x00b\x00", 2},
		{"a\x00b", 2},
	}
	for _, tt := range tests {
		if got := zsplit(tt.in); len(got) != tt.want {
			t.Errorf("zsplit(%q) = %v, want %d entries", tt.in, got, tt.want)
		}
	}
}
