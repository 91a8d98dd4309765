// Package identify classifies files into type tags (python, yaml,
// shell, text, binary, executable, ...) used by hook file filters.
// Classification looks at the file name first, then the shebang line
// for extensionless executables, then sniffs content to decide between
// text and binary.
package identify

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Base tags assigned from file metadata.
const (
	TagFile          = "file"
	TagDirectory     = "directory"
	TagSymlink       = "symlink"
	TagExecutable    = "executable"
	TagNonExecutable = "non-executable"
	TagText          = "text"
	TagBinary        = "binary"
)

// extensionTags maps a lowercase extension (without dot) to its tags.
// Every entry implies either text or binary.
var extensionTags = map[string][]string{
	"bash":     {TagText, "shell", "bash"},
	"c":        {TagText, "c"},
	"cc":       {TagText, "c++"},
	"cfg":      {TagText, "ini"},
	"cpp":      {TagText, "c++"},
	"cs":       {TagText, "c#"},
	"css":      {TagText, "css"},
	"csv":      {TagText, "csv"},
	"go":       {TagText, "go"},
	"gif":      {TagBinary, "image", "gif"},
	"h":        {TagText, "c", "header"},
	"hpp":      {TagText, "c++", "header"},
	"html":     {TagText, "html"},
	"ini":      {TagText, "ini"},
	"ipynb":    {TagText, "jupyter", "json"},
	"java":     {TagText, "java"},
	"jpeg":     {TagBinary, "image", "jpeg"},
	"jpg":      {TagBinary, "image", "jpeg"},
	"js":       {TagText, "javascript"},
	"json":     {TagText, "json"},
	"jsx":      {TagText, "javascript", "jsx"},
	"lua":      {TagText, "lua"},
	"md":       {TagText, "markdown"},
	"mod":      {TagText, "go-mod"},
	"pdf":      {TagBinary, "pdf"},
	"php":      {TagText, "php"},
	"png":      {TagBinary, "image", "png"},
	"proto":    {TagText, "protobuf"},
	"py":       {TagText, "python"},
	"pyi":      {TagText, "python", "pyi"},
	"rb":       {TagText, "ruby"},
	"rs":       {TagText, "rust"},
	"scss":     {TagText, "scss"},
	"sh":       {TagText, "shell"},
	"sql":      {TagText, "sql"},
	"svg":      {TagText, "image", "svg"},
	"tf":       {TagText, "terraform"},
	"toml":     {TagText, "toml"},
	"ts":       {TagText, "ts"},
	"tsx":      {TagText, "ts", "tsx"},
	"txt":      {TagText, "plain-text"},
	"xml":      {TagText, "xml"},
	"yaml":     {TagText, "yaml"},
	"yml":      {TagText, "yaml"},
	"zip":      {TagBinary, "zip"},
	"gz":       {TagBinary, "gzip"},
	"tar":      {TagBinary, "tar"},
	"whl":      {TagBinary, "wheel", "zip"},
	"zsh":      {TagText, "shell", "zsh"},
	"markdown": {TagText, "markdown"},
}

// nameTags maps exact (base) file names to tags.
var nameTags = map[string][]string{
	"Dockerfile":     {TagText, "dockerfile"},
	"Containerfile":  {TagText, "dockerfile"},
	"Makefile":       {TagText, "makefile"},
	"makefile":       {TagText, "makefile"},
	"GNUmakefile":    {TagText, "makefile"},
	"Gemfile":        {TagText, "ruby"},
	"Rakefile":       {TagText, "ruby"},
	"go.mod":         {TagText, "go-mod"},
	"go.sum":         {TagText, "go-sum"},
	".gitignore":     {TagText, "gitignore"},
	".gitattributes": {TagText, "gitattributes"},
}

// interpreterTags maps a shebang interpreter base name to tags.
var interpreterTags = map[string][]string{
	"bash":    {"shell", "bash"},
	"dash":    {"shell", "dash"},
	"node":    {"javascript"},
	"nodejs":  {"javascript"},
	"perl":    {"perl"},
	"python":  {"python"},
	"python2": {"python", "python2"},
	"python3": {"python", "python3"},
	"ruby":    {"ruby"},
	"sh":      {"shell"},
	"zsh":     {"shell", "zsh"},
}

// allTags is the set of every tag this package can emit, for schema
// validation of types/types_or/exclude_types lists.
var allTags = buildTagSet()

func buildTagSet() map[string]struct{} {
	set := map[string]struct{}{
		TagFile: {}, TagDirectory: {}, TagSymlink: {},
		TagExecutable: {}, TagNonExecutable: {},
		TagText: {}, TagBinary: {},
	}
	for _, tags := range extensionTags {
		for _, t := range tags {
			set[t] = struct{}{}
		}
	}
	for _, tags := range nameTags {
		for _, t := range tags {
			set[t] = struct{}{}
		}
	}
	for _, tags := range interpreterTags {
		for _, t := range tags {
			set[t] = struct{}{}
		}
	}
	return set
}

// KnownTag reports whether tag is one this package can produce.
func KnownTag(tag string) bool {
	_, ok := allTags[tag]
	return ok
}

// Tags classifies the file at path. The returned slice is sorted and
// always contains either "text" or "binary" for regular files.
func Tags(path string) ([]string, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}

	if info.Mode()&os.ModeSymlink != 0 {
		return []string{TagSymlink}, nil
	}
	if info.IsDir() {
		return []string{TagDirectory}, nil
	}

	set := map[string]struct{}{TagFile: {}}

	executable := info.Mode()&0111 != 0
	if executable {
		set[TagExecutable] = struct{}{}
	} else {
		set[TagNonExecutable] = struct{}{}
	}

	named := tagsFromName(filepath.Base(path))
	for _, t := range named {
		set[t] = struct{}{}
	}

	// Extensionless executables are classified by their shebang.
	if len(named) == 0 && executable {
		for _, t := range tagsFromShebang(path) {
			set[t] = struct{}{}
		}
	}

	if _, hasText := set[TagText]; !hasText {
		if _, hasBinary := set[TagBinary]; !hasBinary {
			if isText(path) {
				set[TagText] = struct{}{}
			} else {
				set[TagBinary] = struct{}{}
			}
		}
	}

	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags, nil
}

// TagsFromName classifies by file name alone, without touching the
// filesystem. Used when the file may not exist locally (deleted paths
// in a ref range).
func TagsFromName(name string) []string {
	set := map[string]struct{}{TagFile: {}}
	for _, t := range tagsFromName(filepath.Base(name)) {
		set[t] = struct{}{}
	}
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

func tagsFromName(base string) []string {
	if tags, ok := nameTags[base]; ok {
		return tags
	}

	// Only the last extension counts: foo.tar.gz matches "gz".
	ext := strings.ToLower(filepath.Ext(base))
	if ext != "" {
		if tags, ok := extensionTags[strings.TrimPrefix(ext, ".")]; ok {
			return tags
		}
	}
	return nil
}

// tagsFromShebang reads the first line and resolves the interpreter.
func tagsFromShebang(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	buf := make([]byte, 256)
	n, _ := f.Read(buf)
	line := buf[:n]
	if !bytes.HasPrefix(line, []byte("#!")) {
		return nil
	}
	if idx := bytes.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}

	fields := strings.Fields(string(line[2:]))
	if len(fields) == 0 {
		return nil
	}
	interp := filepath.Base(fields[0])
	if interp == "env" && len(fields) > 1 {
		interp = filepath.Base(fields[1])
	}
	// python3.12 -> python3 -> python lookups
	for {
		if tags, ok := interpreterTags[interp]; ok {
			return append([]string{TagText}, tags...)
		}
		trimmed := strings.TrimRightFunc(interp, func(r rune) bool {
			return r == '.' || (r >= '0' && r <= '9')
		})
		if trimmed == interp {
			return []string{TagText}
		}
		interp = trimmed
	}
}

// isText sniffs up to 1KiB; a NUL byte means binary.
func isText(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 1024)
	n, _ := f.Read(buf)
	return !bytes.ContainsRune(buf[:n], 0)
}
