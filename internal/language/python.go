package language

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// pythonLang builds a venv inside the hook repository and pip-installs
// the repository (when it is a python package) plus any additional
// dependencies into it.
type pythonLang struct{}

func (pythonLang) Name() string   { return Python }
func (pythonLang) NeedsEnv() bool { return true }

func (pythonLang) Install(ctx context.Context, repoDir, envDir, version string, deps []string) error {
	if err := runCmd(ctx, repoDir, nil, pythonBinary(version), "-m", "venv", envDir); err != nil {
		return err
	}

	targets := make([]string, 0, len(deps)+1)
	if isPythonPackage(repoDir) {
		targets = append(targets, ".")
	}
	targets = append(targets, deps...)
	if len(targets) == 0 {
		return nil
	}

	args := append([]string{"-m", "pip", "install", "--quiet"}, targets...)
	return runCmd(ctx, repoDir, nil, filepath.Join(envDir, "bin", "python"), args...)
}

func (pythonLang) PathPrefix(_, envDir string) []string {
	return []string{filepath.Join(envDir, "bin")}
}

// pythonBinary maps a language_version to the interpreter to build the
// venv with: "3.12" becomes python3.12, a full name passes through.
func pythonBinary(version string) string {
	switch {
	case version == "" || version == DefaultVersion:
		return "python3"
	case strings.HasPrefix(version, "python"):
		return version
	default:
		return "python" + version
	}
}

func isPythonPackage(repoDir string) bool {
	for _, name := range []string{"pyproject.toml", "setup.py", "setup.cfg"} {
		if _, err := os.Stat(filepath.Join(repoDir, name)); err == nil {
			return true
		}
	}
	return false
}
