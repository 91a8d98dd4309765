package watch

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// ignoreSet matches repository-relative paths against .gitignore-style
// patterns: globs (*.log), directory-only (build/), root-anchored
// (/dist), double-star (**/foo, foo/**), negation (!keep.log) and
// comments.
type ignoreSet struct {
	rules []rule
}

type rule struct {
	pattern  string // cleaned pattern, no leading / or trailing /
	negate   bool   // ! prefix un-ignores a previously matched path
	dirOnly  bool   // trailing / matches directories only
	anchored bool   // contains / so the full path is matched, not the basename
}

// loadIgnores reads .gitignore and .git/info/exclude under root and
// appends extra as directory-only patterns. Missing files contribute
// nothing.
func loadIgnores(root string, extra []string) *ignoreSet {
	set := &ignoreSet{}
	set.loadFile(filepath.Join(root, ".gitignore"))
	set.loadFile(filepath.Join(root, ".git", "info", "exclude"))
	for _, dir := range extra {
		set.add(strings.TrimSuffix(dir, "/") + "/")
	}
	return set
}

func (s *ignoreSet) loadFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s.add(sc.Text())
	}
}

func (s *ignoreSet) add(line string) {
	if r, ok := parseRule(line); ok {
		s.rules = append(s.rules, r)
	}
}

// Ignored reports whether relPath should be excluded. Rules run in
// order and the last match wins; a path under an ignored directory is
// itself ignored.
func (s *ignoreSet) Ignored(relPath string, isDir bool) bool {
	if len(s.rules) == 0 {
		return false
	}

	parts := strings.Split(relPath, "/")
	for i := 1; i < len(parts); i++ {
		if s.match(strings.Join(parts[:i], "/"), true) {
			return true
		}
	}
	return s.match(relPath, isDir)
}

func (s *ignoreSet) match(relPath string, isDir bool) bool {
	ignored := false
	for _, r := range s.rules {
		if r.dirOnly && !isDir {
			continue
		}
		if r.matches(relPath) {
			ignored = !r.negate
		}
	}
	return ignored
}

func parseRule(line string) (rule, bool) {
	line = strings.TrimRight(line, " \t")
	if line == "" || strings.HasPrefix(line, "#") {
		return rule{}, false
	}

	var r rule
	if strings.HasPrefix(line, "!") {
		r.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimRight(line, "/")
	}
	switch {
	case strings.HasPrefix(line, "/"):
		r.anchored = true
		line = line[1:]
	case strings.Contains(line, "/") && !strings.HasPrefix(line, "**/"):
		r.anchored = true
	}

	if line == "" {
		return rule{}, false
	}
	r.pattern = line
	return r, true
}

func (r rule) matches(relPath string) bool {
	p := r.pattern

	// Leading **/ matches at any depth.
	if strings.HasPrefix(p, "**/") {
		return matchAtAnyDepth(p[3:], relPath)
	}

	// Trailing /** matches everything under the prefix.
	if strings.HasSuffix(p, "/**") {
		prefix := p[:len(p)-3]
		return relPath == prefix || strings.HasPrefix(relPath, prefix+"/")
	}

	// prefix/**/suffix
	if i := strings.Index(p, "/**/"); i >= 0 {
		prefix, suffix := p[:i], p[i+4:]
		if relPath != prefix && !strings.HasPrefix(relPath, prefix+"/") {
			return false
		}
		return matchAtAnyDepth(suffix, strings.TrimPrefix(relPath, prefix+"/"))
	}

	if r.anchored {
		return matchGlob(p, relPath)
	}
	return matchGlob(p, filepath.Base(relPath))
}

// matchAtAnyDepth tries pattern against relPath and every suffix that
// starts after a path separator.
func matchAtAnyDepth(pattern, relPath string) bool {
	if matchGlob(pattern, relPath) {
		return true
	}
	for i := 0; i < len(relPath); i++ {
		if relPath[i] == '/' && matchGlob(pattern, relPath[i+1:]) {
			return true
		}
	}
	return false
}

// matchGlob wraps filepath.Match, treating malformed patterns as
// non-matching.
func matchGlob(pattern, name string) bool {
	ok, _ := filepath.Match(pattern, name)
	return ok
}
