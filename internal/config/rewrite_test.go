package config

import (
	"strings"
	"testing"
)

func TestSetRepoRev(t *testing.T) {
	doc := `# project pipeline
repos:
  # formatting
  - repo: https://github.com/psf/black
    rev: 22.3.0
    hooks:
      - id: black
  - repo: https://github.com/pycqa/flake8
    rev: 4.0.1 # pinned for CI parity
    hooks:
      - id: flake8
`

	out, changed, err := SetRepoRev([]byte(doc), "https://github.com/psf/black", "24.1.0")
	if err != nil {
		t.Fatalf("SetRepoRev failed: %v", err)
	}
	if !changed {
		t.Fatal("expected a change")
	}

	text := string(out)
	if !strings.Contains(text, "rev: 24.1.0") {
		t.Errorf("expected new rev in output:\n%s", text)
	}
	if strings.Contains(text, "rev: 22.3.0") {
		t.Errorf("old rev should be gone:\n%s", text)
	}
	if !strings.Contains(text, "rev: 4.0.1") {
		t.Errorf("other group's rev must be untouched:\n%s", text)
	}
	if !strings.Contains(text, "# project pipeline") || !strings.Contains(text, "# formatting") {
		t.Errorf("comments must survive the rewrite:\n%s", text)
	}
	if !strings.Contains(text, "# pinned for CI parity") {
		t.Errorf("inline comments must survive:\n%s", text)
	}

	// Output still parses and validates structurally.
	cfg, err := Parse(out)
	if err != nil {
		t.Fatalf("rewritten document no longer parses: %v", err)
	}
	if cfg.Repos[0].Rev != "24.1.0" {
		t.Errorf("expected parsed rev 24.1.0, got %s", cfg.Repos[0].Rev)
	}
}

func TestSetRepoRev_NoMatch(t *testing.T) {
	doc := `repos:
  - repo: https://github.com/psf/black
    rev: 22.3.0
    hooks:
      - id: black
`
	out, changed, err := SetRepoRev([]byte(doc), "https://github.com/other/repo", "v1")
	if err != nil {
		t.Fatalf("SetRepoRev failed: %v", err)
	}
	if changed {
		t.Error("expected no change for unmatched url")
	}
	if string(out) != doc {
		t.Error("document should be returned unmodified")
	}
}

func TestSetRepoRev_SameRev(t *testing.T) {
	doc := `repos:
  - repo: https://github.com/psf/black
    rev: 22.3.0
    hooks:
      - id: black
`
	_, changed, err := SetRepoRev([]byte(doc), "https://github.com/psf/black", "22.3.0")
	if err != nil {
		t.Fatalf("SetRepoRev failed: %v", err)
	}
	if changed {
		t.Error("identical rev should not count as a change")
	}
}

func TestSetRepoRev_Errors(t *testing.T) {
	t.Run("unparsable", func(t *testing.T) {
		if _, _, err := SetRepoRev([]byte("\t:bad"), "x", "y"); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("no repos key", func(t *testing.T) {
		if _, _, err := SetRepoRev([]byte("other: true\n"), "x", "y"); err == nil {
			t.Error("expected missing-repos error")
		}
	})

	t.Run("matched group without rev", func(t *testing.T) {
		doc := `repos:
  - repo: https://github.com/psf/black
    hooks:
      - id: black
`
		if _, _, err := SetRepoRev([]byte(doc), "https://github.com/psf/black", "v1"); err == nil {
			t.Error("expected error for group without rev")
		}
	})
}
