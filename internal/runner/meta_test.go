package runner

import (
	"strings"
	"testing"
)

func TestMetaIdentity(t *testing.T) {
	code, out, err := metaIdentity([]string{"a.py", "b.py"})
	if err != nil {
		t.Fatal(err)
	}
	if code != 0 {
		t.Errorf("exit = %d, want 0", code)
	}
	if string(out) != "a.py\nb.py\n" {
		t.Errorf("output = %q", out)
	}
}

func TestMetaCheckHooksApply(t *testing.T) {
	root := initRepo(t)
	stageFile(t, root, "app.txt", "x\n")

	t.Run("dead hook reported", func(t *testing.T) {
		stageFile(t, root, "cfg.yml", `repos:
  - repo: local
    hooks:
      - id: py-only
        name: py-only
        entry: "true"
        language: system
        files: \.py$
`)
		gitRun(t, root, "commit", "-m", "files")

		code, out, err := metaCheckHooksApply(root, []string{root + "/cfg.yml"})
		if err != nil {
			t.Fatal(err)
		}
		if code != 1 {
			t.Errorf("exit = %d, want 1", code)
		}
		if !strings.Contains(string(out), "py-only does not apply") {
			t.Errorf("output = %q, want dead hook named", out)
		}
	})

	t.Run("applying hook passes", func(t *testing.T) {
		stageFile(t, root, "cfg2.yml", `repos:
  - repo: local
    hooks:
      - id: txt-hook
        name: txt-hook
        entry: "true"
        language: system
        files: \.txt$
`)
		gitRun(t, root, "commit", "-m", "more files")

		code, out, err := metaCheckHooksApply(root, []string{root + "/cfg2.yml"})
		if err != nil {
			t.Fatal(err)
		}
		if code != 0 {
			t.Errorf("exit = %d, want 0 (output: %s)", code, out)
		}
	})

	t.Run("always_run exempt", func(t *testing.T) {
		stageFile(t, root, "cfg3.yml", `repos:
  - repo: local
    hooks:
      - id: always
        name: always
        entry: "true"
        language: system
        files: \.nomatch$
        always_run: true
`)
		gitRun(t, root, "commit", "-m", "always config")

		code, _, err := metaCheckHooksApply(root, []string{root + "/cfg3.yml"})
		if err != nil {
			t.Fatal(err)
		}
		if code != 0 {
			t.Errorf("exit = %d, want 0 for always_run hook", code)
		}
	})
}

func TestMetaCheckUselessExcludes(t *testing.T) {
	root := initRepo(t)
	stageFile(t, root, "app.py", "x = 1\n")
	gitRun(t, root, "commit", "-m", "app")

	t.Run("useless hook exclude reported", func(t *testing.T) {
		stageFile(t, root, "cfg.yml", `repos:
  - repo: local
    hooks:
      - id: lint
        name: lint
        entry: "true"
        language: system
        exclude: ^nonexistent/
`)
		gitRun(t, root, "commit", "-m", "cfg")

		code, out, err := metaCheckUselessExcludes(root, []string{root + "/cfg.yml"})
		if err != nil {
			t.Fatal(err)
		}
		if code != 1 {
			t.Errorf("exit = %d, want 1", code)
		}
		if !strings.Contains(string(out), "lint") {
			t.Errorf("output = %q, want hook named", out)
		}
	})

	t.Run("useful exclude passes", func(t *testing.T) {
		stageFile(t, root, "cfg2.yml", `repos:
  - repo: local
    hooks:
      - id: lint
        name: lint
        entry: "true"
        language: system
        exclude: ^app\.py$
`)
		gitRun(t, root, "commit", "-m", "cfg2")

		code, out, err := metaCheckUselessExcludes(root, []string{root + "/cfg2.yml"})
		if err != nil {
			t.Fatal(err)
		}
		if code != 0 {
			t.Errorf("exit = %d, want 0 (output: %s)", code, out)
		}
	})

	t.Run("useless global exclude reported", func(t *testing.T) {
		stageFile(t, root, "cfg3.yml", `exclude: ^missing-dir/
repos:
  - repo: local
    hooks:
      - id: lint
        name: lint
        entry: "true"
        language: system
`)
		gitRun(t, root, "commit", "-m", "cfg3")

		code, out, err := metaCheckUselessExcludes(root, []string{root + "/cfg3.yml"})
		if err != nil {
			t.Fatal(err)
		}
		if code != 1 {
			t.Errorf("exit = %d, want 1", code)
		}
		if !strings.Contains(string(out), "global exclude") {
			t.Errorf("output = %q, want global exclude message", out)
		}
	})

	t.Run("empty sentinel accepted", func(t *testing.T) {
		stageFile(t, root, "cfg4.yml", `repos:
  - repo: local
    hooks:
      - id: lint
        name: lint
        entry: "true"
        language: system
        exclude: ^$
`)
		gitRun(t, root, "commit", "-m", "cfg4")

		code, _, err := metaCheckUselessExcludes(root, []string{root + "/cfg4.yml"})
		if err != nil {
			t.Fatal(err)
		}
		if code != 0 {
			t.Errorf("exit = %d, want 0 for ^$ sentinel", code)
		}
	})
}
