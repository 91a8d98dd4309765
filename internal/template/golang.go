package template

// GoStarter is the `latch init --template go` document. Go projects
// lean on toolchain binaries already on PATH, so every hook is a local
// system hook rather than a pinned remote group.
const GoStarter = `# Hook pipeline for a Go project.
# Run 'latch install' to wire it into git, 'latch run --all-files' to try it.
repos:
  - repo: local
    hooks:
      - id: gofmt
        name: gofmt
        entry: gofmt -l -w
        language: system
        types: [go]
      - id: go-vet
        name: go vet
        entry: go vet ./...
        language: system
        types: [go]
        pass_filenames: false
      - id: go-mod-tidy
        name: go mod tidy
        entry: go mod tidy
        language: system
        files: go\.(mod|sum)$
        pass_filenames: false
`
