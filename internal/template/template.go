// Package template carries the starter pipeline documents written by
// `latch init` and the shim script `latch install` places under
// .git/hooks.
package template

import (
	"fmt"
	"sort"
	"strings"
)

// Variables holds the data injected into shim script placeholders.
type Variables struct {
	Binary   string // Absolute path to the latch binary at install time
	HookType string // Git hook the shim is installed as, e.g. pre-commit
}

// Render replaces {{variable}} placeholders with actual values.
// Supports the following variables:
// - {{binary}} - Absolute path to the latch binary
// - {{hook_type}} - Git hook name the shim handles
func Render(template string, vars Variables) string {
	result := template

	replacements := map[string]string{
		"{{binary}}":    vars.Binary,
		"{{hook_type}}": vars.HookType,
	}

	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	return result
}

// starters maps template names accepted by `latch init --template` to
// their document content.
var starters = map[string]string{
	"default": DefaultStarter,
	"python":  PythonStarter,
	"go":      GoStarter,
}

// Starter returns the starter pipeline document registered under name.
func Starter(name string) (string, error) {
	s, ok := starters[name]
	if !ok {
		return "", fmt.Errorf("unknown template %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return s, nil
}

// Names returns the available starter template names, sorted.
func Names() []string {
	names := make([]string, 0, len(starters))
	for name := range starters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
