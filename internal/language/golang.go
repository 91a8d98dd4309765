package language

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// golangLang builds hook binaries with go install, pointing GOBIN at
// the environment so nothing touches the user's GOPATH.
type golangLang struct{}

func (golangLang) Name() string   { return Golang }
func (golangLang) NeedsEnv() bool { return true }

func (golangLang) Install(ctx context.Context, repoDir, envDir, _ string, deps []string) error {
	binDir := filepath.Join(envDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return err
	}
	env := []string{"GOBIN=" + binDir, "GOFLAGS=-mod=mod"}

	if _, err := os.Stat(filepath.Join(repoDir, "go.mod")); err == nil {
		if err := runCmd(ctx, repoDir, env, "go", "install", "./..."); err != nil {
			return err
		}
	}

	for _, dep := range deps {
		if !strings.Contains(dep, "@") {
			dep += "@latest"
		}
		if err := runCmd(ctx, repoDir, env, "go", "install", dep); err != nil {
			return err
		}
	}
	return nil
}

func (golangLang) PathPrefix(_, envDir string) []string {
	return []string{filepath.Join(envDir, "bin")}
}
