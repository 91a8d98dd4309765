package template

// DefaultStarter is the document `latch init` writes when no template
// is named. It pins the upstream pre-commit-hooks collection, which
// covers the checks almost every repository wants.
const DefaultStarter = `# Hook pipeline for this repository.
# Run 'latch install' to wire it into git, 'latch run --all-files' to try it.
repos:
  - repo: https://github.com/pre-commit/pre-commit-hooks
    rev: v4.4.0
    hooks:
      - id: trailing-whitespace
      - id: end-of-file-fixer
      - id: check-yaml
      - id: check-added-large-files
`
