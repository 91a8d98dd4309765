package language

import (
	"context"
	"os"
	"path/filepath"
)

// nodeLang installs the hook repository and extra dependencies under a
// dedicated npm prefix so hook binaries land in node_modules/.bin.
type nodeLang struct{}

func (nodeLang) Name() string   { return Node }
func (nodeLang) NeedsEnv() bool { return true }

func (nodeLang) Install(ctx context.Context, repoDir, envDir, _ string, deps []string) error {
	targets := make([]string, 0, len(deps)+1)
	if _, err := os.Stat(filepath.Join(repoDir, "package.json")); err == nil {
		targets = append(targets, repoDir)
	}
	targets = append(targets, deps...)
	if len(targets) == 0 {
		return nil
	}

	args := append([]string{"install", "--prefix", envDir, "--no-audit", "--no-fund"}, targets...)
	return runCmd(ctx, repoDir, nil, "npm", args...)
}

func (nodeLang) PathPrefix(_, envDir string) []string {
	return []string{
		filepath.Join(envDir, "node_modules", ".bin"),
		filepath.Join(envDir, "bin"),
	}
}
