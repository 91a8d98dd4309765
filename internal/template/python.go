package template

// PythonStarter is the `latch init --template python` document:
// whitespace and syntax checks plus the usual formatter and linter
// trio, each group pinned to a known-good revision.
const PythonStarter = `# Hook pipeline for a Python project.
# Run 'latch install' to wire it into git, 'latch run --all-files' to try it.
default_stages: [pre-commit]

repos:
  - repo: https://github.com/pre-commit/pre-commit-hooks
    rev: v4.4.0
    hooks:
      - id: trailing-whitespace
      - id: end-of-file-fixer
      - id: check-yaml
      - id: check-added-large-files
  - repo: https://github.com/psf/black
    rev: 22.3.0
    hooks:
      - id: black
  - repo: https://github.com/PyCQA/isort
    rev: 5.10.1
    hooks:
      - id: isort
        args: [--profile=black]
  - repo: https://github.com/PyCQA/flake8
    rev: 4.0.1
    hooks:
      - id: flake8
        args: [--max-line-length=100]
`
