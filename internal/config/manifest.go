package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest file names looked up inside a cloned hook repository, in
// order. The pre-commit name makes the existing hook ecosystem usable
// as-is.
var manifestFileNames = []string{
	".latch-hooks.yml",
	".latch-hooks.yaml",
	".pre-commit-hooks.yaml",
	".pre-commit-hooks.yml",
}

// ManifestHook describes one hook a repository offers: what to run and
// the default filters. A pipeline document overrides these per use.
type ManifestHook struct {
	ID                     string   `yaml:"id"`
	Name                   string   `yaml:"name"`
	Entry                  string   `yaml:"entry"`
	Language               string   `yaml:"language"`
	Files                  string   `yaml:"files"`
	Exclude                string   `yaml:"exclude"`
	Types                  []string `yaml:"types"`
	TypesOr                []string `yaml:"types_or"`
	ExcludeTypes           []string `yaml:"exclude_types"`
	Args                   []string `yaml:"args"`
	AdditionalDependencies []string `yaml:"additional_dependencies"`
	LanguageVersion        string   `yaml:"language_version"`
	AlwaysRun              bool     `yaml:"always_run"`
	PassFilenames          *bool    `yaml:"pass_filenames"`
	RequireSerial          bool     `yaml:"require_serial"`
	Verbose                bool     `yaml:"verbose"`
	FailFast               bool     `yaml:"fail_fast"`
	Stages                 []string `yaml:"stages"`
	Description            string   `yaml:"description"`
	MinimumVersion         string   `yaml:"minimum_latch_version"`
}

// LoadManifest reads the hook manifest of a cloned repository.
func LoadManifest(repoDir string) ([]ManifestHook, error) {
	for _, name := range manifestFileNames {
		path := filepath.Join(repoDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read hook manifest: %w", err)
		}
		return parseManifest(data, path)
	}
	return nil, fmt.Errorf("repository at %s has no hook manifest (expected %s)", repoDir, manifestFileNames[0])
}

func parseManifest(data []byte, path string) ([]ManifestHook, error) {
	var hooks []ManifestHook
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&hooks); err != nil {
		return nil, fmt.Errorf("failed to parse hook manifest %s: %w", path, err)
	}
	for i, h := range hooks {
		if h.ID == "" || h.Entry == "" || h.Language == "" {
			return nil, fmt.Errorf("hook manifest %s entry %d: id, entry and language are required", path, i)
		}
	}
	return hooks, nil
}

// FindManifestHook returns the manifest entry with the given id.
func FindManifestHook(hooks []ManifestHook, id string) (ManifestHook, bool) {
	for _, h := range hooks {
		if h.ID == id {
			return h, true
		}
	}
	return ManifestHook{}, false
}

// MergeManifest resolves the effective hook: manifest defaults overlaid
// with whatever the pipeline document sets explicitly.
func MergeManifest(mh ManifestHook, h Hook) Hook {
	out := Hook{
		ID:                     mh.ID,
		Name:                   mh.Name,
		Entry:                  mh.Entry,
		Language:               mh.Language,
		Args:                   mh.Args,
		Files:                  mh.Files,
		Exclude:                mh.Exclude,
		Types:                  mh.Types,
		TypesOr:                mh.TypesOr,
		ExcludeTypes:           mh.ExcludeTypes,
		AdditionalDependencies: mh.AdditionalDependencies,
		LanguageVersion:        mh.LanguageVersion,
		AlwaysRun:              mh.AlwaysRun,
		PassFilenames:          mh.PassFilenames,
		RequireSerial:          mh.RequireSerial,
		Verbose:                mh.Verbose,
		FailFast:               mh.FailFast,
		Stages:                 mh.Stages,
		Description:            mh.Description,
	}

	if h.Name != "" {
		out.Name = h.Name
	}
	if h.Entry != "" {
		out.Entry = h.Entry
	}
	if h.Language != "" {
		out.Language = h.Language
	}
	if h.Args != nil {
		out.Args = h.Args
	}
	if h.Files != "" {
		out.Files = h.Files
	}
	if h.Exclude != "" {
		out.Exclude = h.Exclude
	}
	if h.Types != nil {
		out.Types = h.Types
	}
	if h.TypesOr != nil {
		out.TypesOr = h.TypesOr
	}
	if h.ExcludeTypes != nil {
		out.ExcludeTypes = h.ExcludeTypes
	}
	if h.AdditionalDependencies != nil {
		out.AdditionalDependencies = h.AdditionalDependencies
	}
	if h.LanguageVersion != "" {
		out.LanguageVersion = h.LanguageVersion
	}
	if h.AlwaysRun {
		out.AlwaysRun = true
	}
	if h.PassFilenames != nil {
		out.PassFilenames = h.PassFilenames
	}
	if h.RequireSerial {
		out.RequireSerial = true
	}
	if h.Verbose {
		out.Verbose = true
	}
	if h.FailFast {
		out.FailFast = true
	}
	if h.Stages != nil {
		out.Stages = h.Stages
	}
	return out
}

// Built-in meta hooks: self-checks for the pipeline document itself.
const (
	MetaCheckHooksApply      = "check-hooks-apply"
	MetaCheckUselessExcludes = "check-useless-excludes"
	MetaIdentity             = "identity"
)

var metaHookIDs = map[string]struct{}{
	MetaCheckHooksApply:      {},
	MetaCheckUselessExcludes: {},
	MetaIdentity:             {},
}

// metaFilesPattern limits the check hooks to pipeline documents.
const metaFilesPattern = `^(\.latch\.hooks\.yml|\.pre-commit-config\.ya?ml)$`

// MetaHooks returns the manifest of the built-in meta repository.
func MetaHooks() []ManifestHook {
	return []ManifestHook{
		{
			ID:          MetaCheckHooksApply,
			Name:        "Check hooks apply to the repository",
			Entry:       MetaCheckHooksApply,
			Files:       metaFilesPattern,
			Language:    "meta",
			Description: "Fails if a configured hook matches no files in the repository.",
		},
		{
			ID:          MetaCheckUselessExcludes,
			Name:        "Check for useless excludes",
			Entry:       MetaCheckUselessExcludes,
			Files:       metaFilesPattern,
			Language:    "meta",
			Description: "Fails if an exclude pattern never excludes anything.",
		},
		{
			ID:          MetaIdentity,
			Name:        "identity",
			Entry:       MetaIdentity,
			Language:    "meta",
			Verbose:     true,
			Description: "Prints the filenames it receives; useful for debugging filters.",
		},
	}
}
