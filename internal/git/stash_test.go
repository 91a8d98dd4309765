package git

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readTestFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

func TestWorkingTreeKeeper_CleanTree(t *testing.T) {
	requireGit(t)
	dir := initTestRepo(t)

	keeper := NewWorkingTreeKeeper(dir, filepath.Join(t.TempDir(), "patches"))
	if err := keeper.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if keeper.PatchPath() != "" {
		t.Errorf("clean tree should produce no patch, got %q", keeper.PatchPath())
	}
	if err := keeper.Restore(); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
}

func TestWorkingTreeKeeper_StashAndRestore(t *testing.T) {
	requireGit(t)
	dir := initTestRepo(t)

	// Stage one version, then modify the working copy on top of it.
	writeTestFile(t, dir, "README.md", "# staged version\n")
	mustGit(t, dir, "add", "README.md")
	writeTestFile(t, dir, "README.md", "# staged version\nunstaged line\n")

	keeper := NewWorkingTreeKeeper(dir, filepath.Join(t.TempDir(), "patches"))
	if err := keeper.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The working tree must now match the index.
	if got := readTestFile(t, dir, "README.md"); got != "# staged version\n" {
		t.Errorf("after Save, README.md = %q, want staged content only", got)
	}
	if keeper.PatchPath() == "" {
		t.Fatal("expected a patch to be saved")
	}
	if _, err := os.Stat(keeper.PatchPath()); err != nil {
		t.Fatalf("patch file missing: %v", err)
	}

	if err := keeper.Restore(); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if got := readTestFile(t, dir, "README.md"); !strings.Contains(got, "unstaged line") {
		t.Errorf("after Restore, README.md = %q, want unstaged line back", got)
	}
}

func TestWorkingTreeKeeper_ConflictingFix(t *testing.T) {
	requireGit(t)
	dir := initTestRepo(t)

	writeTestFile(t, dir, "README.md", "# staged version\n")
	mustGit(t, dir, "add", "README.md")
	writeTestFile(t, dir, "README.md", "# staged version\nunstaged line\n")

	keeper := NewWorkingTreeKeeper(dir, filepath.Join(t.TempDir(), "patches"))
	if err := keeper.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Simulate a fixer rewriting the file so the patch no longer applies.
	writeTestFile(t, dir, "README.md", "completely different\n")

	if err := keeper.Restore(); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	// The fixer's change is rolled back in favor of the user's edit.
	got := readTestFile(t, dir, "README.md")
	if !strings.Contains(got, "unstaged line") {
		t.Errorf("after Restore, README.md = %q, want user's unstaged line", got)
	}
	if strings.Contains(got, "completely different") {
		t.Errorf("after Restore, README.md = %q, conflicting fix should be rolled back", got)
	}
}

func TestWorkingTreeKeeper_IntentToAdd(t *testing.T) {
	requireGit(t)
	dir := initTestRepo(t)

	writeTestFile(t, dir, "sketch.txt", "wip\n")
	mustGit(t, dir, "add", "--intent-to-add", "sketch.txt")

	keeper := NewWorkingTreeKeeper(dir, filepath.Join(t.TempDir(), "patches"))
	if err := keeper.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := keeper.Restore(); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	files, err := IntentToAddFiles(dir)
	if err != nil {
		t.Fatalf("IntentToAddFiles failed: %v", err)
	}
	if len(files) != 1 || files[0] != "sketch.txt" {
		t.Errorf("intent-to-add entry not restored, got %v", files)
	}
}
