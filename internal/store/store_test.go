package store

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

// newSourceRepo builds a local git repository that can serve as a clone
// target, returning its path and HEAD revision.
func newSourceRepo(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) string {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
		return strings.TrimSpace(string(out))
	}
	run("init")
	run("config", "user.email", "test@test.com")
	run("config", "user.name", "Test")
	if err := os.WriteFile(filepath.Join(dir, "hooks.txt"), []byte("v1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	run("add", "hooks.txt")
	run("commit", "-m", "initial")
	return dir, run("rev-parse", "HEAD")
}

func TestNew(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	if _, err := os.Stat(filepath.Join(dir, "db.db")); err != nil {
		t.Errorf("database not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "README")); err != nil {
		t.Errorf("README not created: %v", err)
	}
	if s.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", s.Dir(), dir)
	}
	if !strings.HasPrefix(s.PatchDir(), dir) {
		t.Errorf("PatchDir() = %q, want path under cache dir", s.PatchDir())
	}
}

func TestNew_Reopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_ = s.Close()

	// Reopening must not fail on the existing schema.
	s2, err := New(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	_ = s2.Close()
}

func TestEnsureRepo(t *testing.T) {
	requireGit(t)
	src, rev := newSourceRepo(t)

	s, err := New(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	dir, err := s.EnsureRepo(ctx, src, rev)
	if err != nil {
		t.Fatalf("EnsureRepo failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "hooks.txt"))
	if err != nil {
		t.Fatalf("clone missing tracked file: %v", err)
	}
	if string(data) != "v1\n" {
		t.Errorf("clone content = %q, want v1", data)
	}

	// Second call must reuse the checkout instead of cloning again.
	sentinel := filepath.Join(dir, "sentinel")
	if err := os.WriteFile(sentinel, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	dir2, err := s.EnsureRepo(ctx, src, rev)
	if err != nil {
		t.Fatalf("second EnsureRepo failed: %v", err)
	}
	if dir2 != dir {
		t.Errorf("second EnsureRepo = %q, want cached %q", dir2, dir)
	}
	if _, err := os.Stat(sentinel); err != nil {
		t.Error("cached checkout was re-cloned")
	}
}

func TestEnsureRepo_MissingDirRecovers(t *testing.T) {
	requireGit(t)
	src, rev := newSourceRepo(t)

	s, err := New(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	dir, err := s.EnsureRepo(ctx, src, rev)
	if err != nil {
		t.Fatalf("EnsureRepo failed: %v", err)
	}

	// Delete the checkout behind the store's back; the stale row must be
	// replaced by a fresh clone.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	dir2, err := s.EnsureRepo(ctx, src, rev)
	if err != nil {
		t.Fatalf("EnsureRepo after removal failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir2, "hooks.txt")); err != nil {
		t.Errorf("recovered clone missing file: %v", err)
	}
}

func TestEnsureRepo_BadRev(t *testing.T) {
	requireGit(t)
	src, _ := newSourceRepo(t)

	s, err := New(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	if _, err := s.EnsureRepo(context.Background(), src, "no-such-rev"); err == nil {
		t.Error("EnsureRepo should fail for unknown revision")
	}
}

func TestListAndRemove(t *testing.T) {
	requireGit(t)
	src, rev := newSourceRepo(t)

	s, err := New(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	dir, err := s.EnsureRepo(ctx, src, rev)
	if err != nil {
		t.Fatalf("EnsureRepo failed: %v", err)
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("List = %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Repo != src || e.Ref != rev || e.Path != dir {
		t.Errorf("List entry = %+v, want repo/ref/path to match", e)
	}
	if e.CreatedAt.IsZero() || e.LastUsed.IsZero() {
		t.Error("List entry timestamps should be set")
	}

	if err := s.Remove(ctx, src, rev); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("Remove should delete the checkout directory")
	}
	entries, err = s.List(ctx)
	if err != nil {
		t.Fatalf("List after Remove failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("List after Remove = %d entries, want 0", len(entries))
	}

	// Removing an unknown repo is not an error.
	if err := s.Remove(ctx, "https://example.com/none", "v1"); err != nil {
		t.Errorf("Remove of unknown repo failed: %v", err)
	}
}

func TestConfigTracking(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	if err := s.MarkConfigUsed(ctx, "proj/.latch.hooks.yml"); err != nil {
		t.Fatalf("MarkConfigUsed failed: %v", err)
	}
	// Marking twice must not duplicate.
	if err := s.MarkConfigUsed(ctx, "proj/.latch.hooks.yml"); err != nil {
		t.Fatalf("second MarkConfigUsed failed: %v", err)
	}

	paths, err := s.ListConfigs(ctx)
	if err != nil {
		t.Fatalf("ListConfigs failed: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("ListConfigs = %v, want 1 entry", paths)
	}
	if !filepath.IsAbs(paths[0]) {
		t.Errorf("config path %q should be stored absolute", paths[0])
	}

	if err := s.DeleteConfig(ctx, "proj/.latch.hooks.yml"); err != nil {
		t.Fatalf("DeleteConfig failed: %v", err)
	}
	paths, err = s.ListConfigs(ctx)
	if err != nil {
		t.Fatalf("ListConfigs after delete failed: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("ListConfigs after delete = %v, want empty", paths)
	}
}

func TestWipe(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_ = s.Close()

	if err := Wipe(dir); err != nil {
		t.Fatalf("Wipe failed: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("Wipe should remove the cache directory")
	}
}

func TestCloneDirName(t *testing.T) {
	a := cloneDirName("https://github.com/pre-commit/pre-commit-hooks", "v4.1.0")
	b := cloneDirName("https://github.com/pre-commit/pre-commit-hooks", "v4.2.0")
	c := cloneDirName("https://example.com/other/pre-commit-hooks", "v4.1.0")

	if a == b {
		t.Error("different revs should map to different directories")
	}
	if a == c {
		t.Error("different repos should map to different directories")
	}
	if !strings.HasPrefix(a, "pre-commit-hooks-") {
		t.Errorf("dir name %q should start with repo slug", a)
	}
	// Stable across calls.
	if a != cloneDirName("https://github.com/pre-commit/pre-commit-hooks", "v4.1.0") {
		t.Error("dir name should be deterministic")
	}
}
