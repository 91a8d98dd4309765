package runner

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/mark3labs/latch/internal/config"
	"github.com/mark3labs/latch/internal/git"
)

// Meta hooks run inside the latch process itself; they lint the pipeline
// document rather than the repository's files.

func runMetaHook(id, root string, files []string) (int, []byte, error) {
	switch id {
	case config.MetaIdentity:
		return metaIdentity(files)
	case config.MetaCheckHooksApply:
		return metaCheckHooksApply(root, files)
	case config.MetaCheckUselessExcludes:
		return metaCheckUselessExcludes(root, files)
	default:
		return -1, nil, fmt.Errorf("unknown meta hook %q", id)
	}
}

// metaIdentity prints its arguments and passes. Useful for checking what
// a filter selects.
func metaIdentity(files []string) (int, []byte, error) {
	var buf bytes.Buffer
	for _, f := range files {
		fmt.Fprintln(&buf, f)
	}
	return 0, buf.Bytes(), nil
}

// metaCheckHooksApply fails when a configured hook matches no files in
// the repository, which usually means dead configuration.
func metaCheckHooksApply(root string, configFiles []string) (int, []byte, error) {
	var buf bytes.Buffer
	code := 0
	for _, path := range configFiles {
		cfg, err := config.Load(path)
		if err != nil {
			return -1, nil, err
		}
		all, err := git.AllFiles(root)
		if err != nil {
			return -1, nil, err
		}
		cls, err := newClassifier(root, cfg, all)
		if err != nil {
			return -1, nil, err
		}
		for _, ch := range cfg.AllHooks() {
			if ch.Hook.AlwaysRun {
				continue
			}
			matched, err := cls.ForHook(*ch.Hook)
			if err != nil {
				return -1, nil, err
			}
			if len(matched) == 0 {
				fmt.Fprintf(&buf, "%s does not apply to this repository\n", ch.Hook.ID)
				code = 1
			}
		}
	}
	return code, buf.Bytes(), nil
}

// metaCheckUselessExcludes fails when an exclude pattern matches nothing
// the corresponding include would select.
func metaCheckUselessExcludes(root string, configFiles []string) (int, []byte, error) {
	var buf bytes.Buffer
	code := 0
	for _, path := range configFiles {
		cfg, err := config.Load(path)
		if err != nil {
			return -1, nil, err
		}
		all, err := git.AllFiles(root)
		if err != nil {
			return -1, nil, err
		}

		if cfg.Exclude != "" && !excludeMatchesAny(all, "", cfg.Exclude) {
			fmt.Fprintf(&buf, "The global exclude pattern %q does not match any files\n", cfg.Exclude)
			code = 1
		}

		cls, err := newClassifier(root, cfg, all)
		if err != nil {
			return -1, nil, err
		}
		for _, ch := range cfg.AllHooks() {
			h := ch.Hook
			if h.Exclude == "" {
				continue
			}
			// Check the exclude against files selected by type filters
			// alone, so it is judged on what it could actually remove.
			typeOnly := *h
			typeOnly.Files = ""
			typeOnly.Exclude = ""
			candidates, err := cls.ForHook(typeOnly)
			if err != nil {
				return -1, nil, err
			}
			if !excludeMatchesAny(candidates, h.Files, h.Exclude) {
				fmt.Fprintf(&buf, "The exclude pattern %q for %s does not match any files\n", h.Exclude, h.ID)
				code = 1
			}
		}
	}
	return code, buf.Bytes(), nil
}

// excludeMatchesAny reports whether exclude removes at least one file
// that include selects. The sentinel ^$ exclude is always considered
// useful.
func excludeMatchesAny(files []string, include, exclude string) bool {
	if exclude == "^$" {
		return true
	}
	includeRe, err := compilePattern(include)
	if err != nil {
		return true
	}
	excludeRe, err := regexp.Compile(exclude)
	if err != nil {
		return true
	}
	for _, f := range files {
		if includeRe != nil && !includeRe.MatchString(f) {
			continue
		}
		if excludeRe.MatchString(f) {
			return true
		}
	}
	return false
}
