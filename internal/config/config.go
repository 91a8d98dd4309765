// Package config defines the hook pipeline document: the ordered list
// of hook groups, each pinning a source repository to a revision and
// carrying an ordered list of hooks. It owns parsing, schema
// validation, manifest resolution and rev rewriting.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the canonical pipeline document name.
const ConfigFileName = ".latch.hooks.yml"

// Repo locator sentinels for groups that do not reference a remote
// repository.
const (
	LocalRepo = "local"
	MetaRepo  = "meta"
)

// altConfigFileNames are accepted when the canonical file is absent,
// in lookup order. The pre-commit name keeps existing projects working
// unchanged.
var altConfigFileNames = []string{
	".latch.hooks.yaml",
	".pre-commit-config.yaml",
	".pre-commit-config.yml",
}

// ErrNotFound indicates no pipeline document exists in the directory.
var ErrNotFound = errors.New("no hook configuration found")

// Config is the root of the pipeline document.
type Config struct {
	Repos          []Repo   `yaml:"repos" validate:"required,min=1,dive"`
	FailFast       bool     `yaml:"fail_fast"`
	Files          string   `yaml:"files" validate:"omitempty,regexp"`
	Exclude        string   `yaml:"exclude" validate:"omitempty,regexp"`
	DefaultStages  []string `yaml:"default_stages" validate:"omitempty,min=1,dive,stage"`
	MinimumVersion string   `yaml:"minimum_latch_version" validate:"omitempty,version"`
}

// Repo is one hook group: a source locator, a pinned revision and the
// hooks taken from it. Order within the document is execution order.
type Repo struct {
	Repo  string `yaml:"repo" validate:"required"`
	Rev   string `yaml:"rev"`
	Hooks []Hook `yaml:"hooks" validate:"required,min=1,dive"`
}

// IsLocal reports whether the group runs commands from the project
// itself rather than a cloned repository.
func (r Repo) IsLocal() bool { return r.Repo == LocalRepo }

// IsMeta reports whether the group uses the built-in self-check hooks.
func (r Repo) IsMeta() bool { return r.Repo == MetaRepo }

// IsRemote reports whether the group references a clonable repository.
func (r Repo) IsRemote() bool { return !r.IsLocal() && !r.IsMeta() }

// Hook is a single configured hook. For remote groups most fields
// default from the repository manifest; local hooks must spell out
// name, entry and language themselves.
type Hook struct {
	ID                     string   `yaml:"id" validate:"required"`
	Name                   string   `yaml:"name"`
	Entry                  string   `yaml:"entry"`
	Language               string   `yaml:"language" validate:"omitempty,language"`
	Args                   []string `yaml:"args"`
	Files                  string   `yaml:"files" validate:"omitempty,regexp"`
	Exclude                string   `yaml:"exclude" validate:"omitempty,regexp"`
	Types                  []string `yaml:"types" validate:"omitempty,dive,typetag"`
	TypesOr                []string `yaml:"types_or" validate:"omitempty,dive,typetag"`
	ExcludeTypes           []string `yaml:"exclude_types" validate:"omitempty,dive,typetag"`
	AdditionalDependencies []string `yaml:"additional_dependencies"`
	LanguageVersion        string   `yaml:"language_version"`
	AlwaysRun              bool     `yaml:"always_run"`
	PassFilenames          *bool    `yaml:"pass_filenames"`
	RequireSerial          bool     `yaml:"require_serial"`
	Verbose                bool     `yaml:"verbose"`
	FailFast               bool     `yaml:"fail_fast"`
	Stages                 []string `yaml:"stages" validate:"omitempty,min=1,dive,stage"`
	Description            string   `yaml:"-"`
}

// PassesFilenames reports whether candidate filenames are appended to
// the hook command. Defaults to true when the document says nothing.
func (h Hook) PassesFilenames() bool {
	return h.PassFilenames == nil || *h.PassFilenames
}

// DisplayName returns the name to show for this hook, falling back to
// the id.
func (h Hook) DisplayName() string {
	if h.Name != "" {
		return h.Name
	}
	return h.ID
}

// Find locates the pipeline document in dir, trying the canonical name
// first and the accepted alternates after it.
func Find(dir string) (string, error) {
	candidates := append([]string{ConfigFileName}, altConfigFileNames...)
	for _, name := range candidates {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w in %s: expected %s (run 'latch init' to create one)", ErrNotFound, dir, ConfigFileName)
}

// Load reads and strictly decodes the document at path. Unknown keys
// are errors so typos surface instead of being silently dropped.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read hook configuration: %w", err)
	}
	return Parse(data)
}

// Parse decodes a pipeline document from raw YAML.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse hook configuration: %w", err)
	}
	return &cfg, nil
}

// AllHooks iterates groups in order, yielding each hook with its group.
func (c *Config) AllHooks() []ConfiguredHook {
	var out []ConfiguredHook
	for i := range c.Repos {
		for j := range c.Repos[i].Hooks {
			out = append(out, ConfiguredHook{Repo: &c.Repos[i], Hook: &c.Repos[i].Hooks[j]})
		}
	}
	return out
}

// ConfiguredHook pairs a hook with the group it came from.
type ConfiguredHook struct {
	Repo *Repo
	Hook *Hook
}
