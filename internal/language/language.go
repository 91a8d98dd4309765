// Package language builds and locates the tool environments hooks run
// in. Each supported language knows how to install a cloned hook
// repository plus its additional dependencies into an isolated
// environment directory, and which directories to prepend to PATH so
// the hook entry resolves.
package language

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mark3labs/latch/internal/logger"
)

// Supported language names.
const (
	Python = "python"
	Node   = "node"
	Golang = "golang"
	System = "system"
	Script = "script"
	Fail   = "fail"
	Meta   = "meta"
)

// DefaultVersion is the version marker used when a hook does not pin
// language_version.
const DefaultVersion = "default"

// receiptName marks a healthy, fully installed environment. A missing
// or mismatched receipt triggers a rebuild.
const receiptName = ".latch-env.json"

// Language installs and locates one execution environment kind.
type Language interface {
	// Name returns the language identifier used in pipeline documents.
	Name() string

	// NeedsEnv reports whether the language builds an environment
	// directory at all. system, script, fail and meta do not.
	NeedsEnv() bool

	// Install builds the environment in envDir for the repository at
	// repoDir. deps are additional_dependencies from the document.
	Install(ctx context.Context, repoDir, envDir, version string, deps []string) error

	// PathPrefix returns directories to prepend to PATH when running a
	// hook from this environment.
	PathPrefix(repoDir, envDir string) []string
}

var registry = map[string]Language{
	Python: pythonLang{},
	Node:   nodeLang{},
	Golang: golangLang{},
	System: simpleLang{name: System},
	Script: simpleLang{name: Script},
	Fail:   simpleLang{name: Fail},
	Meta:   simpleLang{name: Meta},
}

// Get returns the Language for name.
func Get(name string) (Language, bool) {
	l, ok := registry[name]
	return l, ok
}

// Known reports whether name is a supported language.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

// Names returns the supported language names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type receipt struct {
	Language string `json:"language"`
	Version  string `json:"version"`
	DepsHash string `json:"deps_hash"`
}

// EnvDir returns the environment directory for a language/version pair
// inside a cloned hook repository.
func EnvDir(repoDir, langName, version string) string {
	if version == "" {
		version = DefaultVersion
	}
	return filepath.Join(repoDir, fmt.Sprintf("%senv-%s", langName, version))
}

// EnsureEnv installs the environment if it is missing or its receipt
// no longer matches the requested version and dependencies. It returns
// the environment directory (empty for languages without one).
func EnsureEnv(ctx context.Context, lang Language, repoDir, version string, deps []string) (string, error) {
	if !lang.NeedsEnv() {
		return "", nil
	}
	if version == "" {
		version = DefaultVersion
	}

	envDir := EnvDir(repoDir, lang.Name(), version)
	want := receipt{Language: lang.Name(), Version: version, DepsHash: hashDeps(deps)}

	if have, err := readReceipt(envDir); err == nil && have == want {
		return envDir, nil
	}

	logger.Info("Building %s environment for %s", lang.Name(), repoDir)

	// A stale or half-built env is rebuilt from scratch.
	if err := os.RemoveAll(envDir); err != nil {
		return "", fmt.Errorf("failed to clear stale environment: %w", err)
	}
	if err := os.MkdirAll(envDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create environment directory: %w", err)
	}
	if err := lang.Install(ctx, repoDir, envDir, version, deps); err != nil {
		return "", fmt.Errorf("failed to install %s environment: %w", lang.Name(), err)
	}
	if err := writeReceipt(envDir, want); err != nil {
		return "", fmt.Errorf("failed to record environment receipt: %w", err)
	}
	return envDir, nil
}

func hashDeps(deps []string) string {
	sorted := append([]string(nil), deps...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\x00")))
	return hex.EncodeToString(sum[:])
}

func readReceipt(envDir string) (receipt, error) {
	var r receipt
	data, err := os.ReadFile(filepath.Join(envDir, receiptName))
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, err
	}
	return r, nil
}

func writeReceipt(envDir string, r receipt) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(envDir, receiptName), data, 0o644)
}

// runCmd executes an install step with combined output capture; the
// output tail is folded into the error for diagnosis.
func runCmd(ctx context.Context, dir string, env []string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w\n%s", name, strings.Join(args, " "), err, tail(out.String(), 4096))
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

// simpleLang covers the languages that need no environment: system
// runs entries from PATH, script runs files from the hook repo, fail
// always fails with its entry as the message, and meta hooks run
// inside latch itself.
type simpleLang struct {
	name string
}

func (s simpleLang) Name() string   { return s.name }
func (s simpleLang) NeedsEnv() bool { return false }

func (s simpleLang) PathPrefix(_, _ string) []string { return nil }

func (s simpleLang) Install(context.Context, string, string, string, []string) error {
	return nil
}
