package output

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"charm.land/lipgloss/v2"
	chroma "github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/aymanbagabas/go-udiff"
)

var (
	styleDiffFile = lipgloss.NewStyle().Foreground(lipgloss.Color("#cdd6f4")).Bold(true)
	styleDiffHunk = lipgloss.NewStyle().Foreground(lipgloss.Color("#89dceb"))
	styleDiffAdd  = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
	styleDiffDel  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
)

// FileDiff holds one file's content on both sides of a hook run: the
// staged version the hook received and what is on disk afterwards.
type FileDiff struct {
	Path   string
	Before string
	After  string
}

// PrintDiff writes a unified diff per changed file. Added and removed
// lines keep syntax highlighting for the file's language; the color
// writer strips it all when color is off.
func (p *Printer) PrintDiff(files []FileDiff) {
	for _, f := range files {
		patch := udiff.Unified("a/"+f.Path, "b/"+f.Path, f.Before, f.After)
		if patch == "" {
			continue
		}
		p.writePatch(f.Path, patch)
	}
}

func (p *Printer) writePatch(path, patch string) {
	hl := newHighlighter(path)

	for _, line := range strings.Split(strings.TrimSuffix(patch, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			fmt.Fprintln(p.w, styleDiffFile.Render(line))
		case strings.HasPrefix(line, "@@"):
			fmt.Fprintln(p.w, styleDiffHunk.Render(line))
		case strings.HasPrefix(line, "+"):
			fmt.Fprintln(p.w, styleDiffAdd.Render("+")+hl.line(line[1:]))
		case strings.HasPrefix(line, "-"):
			fmt.Fprintln(p.w, styleDiffDel.Render("-")+hl.line(line[1:]))
		default:
			fmt.Fprintln(p.w, line)
		}
	}
	fmt.Fprintln(p.w)
}

// highlighter applies per-language syntax colors to diff content lines.
// Missing lexers or formatter errors degrade to plain text.
type highlighter struct {
	lexer     chroma.Lexer
	formatter chroma.Formatter
	style     *chroma.Style
}

func newHighlighter(path string) *highlighter {
	lexer := lexers.Match(filepath.Base(path))
	if lexer == nil {
		lexer = lexers.Fallback
	}

	formatter := formatters.Get("terminal16m")
	if formatter == nil {
		formatter = formatters.Get("terminal256")
	}

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}

	return &highlighter{lexer: lexer, formatter: formatter, style: style}
}

func (h *highlighter) line(src string) string {
	if h.formatter == nil || src == "" {
		return src
	}

	iterator, err := h.lexer.Tokenise(nil, src)
	if err != nil {
		return src
	}

	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, h.style, iterator); err != nil {
		return src
	}
	return strings.TrimRight(buf.String(), "\n")
}
