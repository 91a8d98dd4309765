package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/mark3labs/latch/internal/config"
	"github.com/mark3labs/latch/internal/identify"
)

// classifier matches repository paths against hook file filters. Tags are
// computed once per path and shared across every hook in the run.
type classifier struct {
	root  string
	files []string
	tags  map[string]map[string]bool
}

// newClassifier applies the top-level files/exclude filters and drops
// paths that no longer exist on disk (staged deletions, renames).
func newClassifier(root string, cfg *config.Config, files []string) (*classifier, error) {
	include, err := compilePattern(cfg.Files)
	if err != nil {
		return nil, fmt.Errorf("top-level files pattern: %w", err)
	}
	exclude, err := compilePattern(cfg.Exclude)
	if err != nil {
		return nil, fmt.Errorf("top-level exclude pattern: %w", err)
	}

	c := &classifier{
		root: root,
		tags: make(map[string]map[string]bool),
	}
	seen := make(map[string]bool)
	for _, f := range files {
		if seen[f] {
			continue
		}
		seen[f] = true
		if include != nil && !include.MatchString(f) {
			continue
		}
		if exclude != nil && exclude.MatchString(f) {
			continue
		}
		if _, err := os.Lstat(filepath.Join(root, f)); err != nil {
			continue
		}
		c.files = append(c.files, f)
	}
	return c, nil
}

// Files returns the paths that survived the top-level filters.
func (c *classifier) Files() []string {
	return c.files
}

// ForHook returns the paths hook should run on.
func (c *classifier) ForHook(h config.Hook) ([]string, error) {
	f, err := newHookFilter(h)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, path := range c.files {
		if f.matches(path, c.tagsFor(path)) {
			out = append(out, path)
		}
	}
	return out, nil
}

func (c *classifier) tagsFor(path string) map[string]bool {
	if tags, ok := c.tags[path]; ok {
		return tags
	}
	tags, err := identify.Tags(filepath.Join(c.root, path))
	if err != nil {
		// An earlier hook may have deleted or renamed the path; name
		// tags keep files/types filters working for later hooks.
		tags = identify.TagsFromName(path)
	}
	set := make(map[string]bool, len(tags))
	for _, tag := range tags {
		set[tag] = true
	}
	c.tags[path] = set
	return set
}

// hookFilter holds one hook's compiled file predicates.
type hookFilter struct {
	files        *regexp.Regexp
	exclude      *regexp.Regexp
	types        []string
	typesOr      []string
	excludeTypes []string
}

func newHookFilter(h config.Hook) (*hookFilter, error) {
	files, err := compilePattern(h.Files)
	if err != nil {
		return nil, fmt.Errorf("hook %s files pattern: %w", h.ID, err)
	}
	exclude, err := compilePattern(h.Exclude)
	if err != nil {
		return nil, fmt.Errorf("hook %s exclude pattern: %w", h.ID, err)
	}
	types := h.Types
	if len(types) == 0 {
		types = []string{identify.TagFile}
	}
	return &hookFilter{
		files:        files,
		exclude:      exclude,
		types:        types,
		typesOr:      h.TypesOr,
		excludeTypes: h.ExcludeTypes,
	}, nil
}

// matches applies patterns unanchored, so `\.py$` and `^vendor/` both
// work the way authors expect.
func (f *hookFilter) matches(path string, tags map[string]bool) bool {
	if f.files != nil && !f.files.MatchString(path) {
		return false
	}
	if f.exclude != nil && f.exclude.MatchString(path) {
		return false
	}
	for _, t := range f.types {
		if !tags[t] {
			return false
		}
	}
	if len(f.typesOr) > 0 {
		any := false
		for _, t := range f.typesOr {
			if tags[t] {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	for _, t := range f.excludeTypes {
		if tags[t] {
			return false
		}
	}
	return true
}

// compilePattern compiles a filter regex; the empty pattern means
// "match everything" and compiles to nil.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile(pattern)
}
