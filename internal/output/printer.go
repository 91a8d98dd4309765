// Package output renders run results for plain terminals: dot-leader
// status lines, failure detail blocks, unified diffs, and markdown. The
// live TUI owns the screen when enabled; everything here writes a
// scrollback-friendly stream instead.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/colorprofile"
	"github.com/mark3labs/latch/internal/config"
	"github.com/mark3labs/latch/internal/runner"
)

const (
	minCols        = 80
	noFilesPostfix = "(no files to check)"

	statusPassed  = "Passed"
	statusFailed  = "Failed"
	statusSkipped = "Skipped"
	statusErrored = "Errored"
)

var (
	stylePassed  = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
	styleFailed  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	styleSkipped = lipgloss.NewStyle().Foreground(lipgloss.Color("#94e2d5"))
	styleSubtle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c7086"))
)

// Printer writes one dot-leader line per hook, a detail block for
// failures, and a closing summary. It implements runner.Reporter.
type Printer struct {
	w       *colorprofile.Writer
	cols    int
	verbose bool
	started bool
}

// NewPrinter wraps dst in a color-downgrading writer. color is one of
// auto, always, never; auto detects from the environment, including
// NO_COLOR.
func NewPrinter(dst io.Writer, color string, verbose bool) *Printer {
	w := colorprofile.NewWriter(dst, os.Environ())
	switch color {
	case "always":
		w.Profile = colorprofile.TrueColor
	case "never":
		w.Profile = colorprofile.NoTTY
	}
	return &Printer{w: w, cols: minCols, verbose: verbose}
}

// StartRun sizes the dot leader so every status column lines up: wide
// enough for the longest hook name followed by the longest possible
// tail, never narrower than 80.
func (p *Printer) StartRun(hooks []config.Hook, files int) {
	longest := 0
	for _, h := range hooks {
		if n := len(h.DisplayName()); n > longest {
			longest = n
		}
	}
	cols := longest + 3 + len(noFilesPostfix) + 1 + len(statusSkipped)
	if cols < minCols {
		cols = minCols
	}
	p.cols = cols
}

// StartHook prints the hook name and dot leader before the hook runs,
// so slow hooks show what is in flight. The status lands on the same
// line in FinishHook.
func (p *Printer) StartHook(h config.Hook, files int) {
	name := h.DisplayName()
	fmt.Fprint(p.w, name+p.dots(len(name)+len(statusPassed)))
	p.started = true
}

// FinishHook completes the status line and, for failures or verbose
// hooks, prints the detail block with exit code and captured output.
func (p *Printer) FinishHook(hr runner.HookResult) {
	text, style := statusFor(hr.Status)

	if p.started {
		fmt.Fprintln(p.w, style.Render(text))
		p.started = false
	} else {
		postfix := ""
		if hr.NoFiles {
			postfix = noFilesPostfix
		}
		name := displayName(hr)
		dots := p.dots(len(name) + len(postfix) + len(text))
		fmt.Fprintln(p.w, name+dots+postfix+style.Render(text))
	}

	if !p.wantsDetail(hr) {
		return
	}
	p.detailBlock(hr)
}

// Details prints the detail blocks for hooks that warrant one, without
// the status lines. The live view calls this after it closes so failure
// output lands in scrollback.
func (p *Printer) Details(res *runner.Result) {
	for _, hr := range res.Hooks {
		if p.wantsDetail(hr) {
			p.detailBlock(hr)
		}
	}
}

func (p *Printer) wantsDetail(hr runner.HookResult) bool {
	if !hr.Failed() && !hr.Verbose && !p.verbose {
		return false
	}
	return hr.Status != runner.StatusSkipped && !hr.NoFiles
}

func (p *Printer) detailBlock(hr runner.HookResult) {
	p.subtle("- hook id: %s", hr.ID)
	if hr.Verbose || p.verbose {
		p.subtle("- duration: %s", hr.Duration.Round(time.Millisecond))
	}
	if hr.ExitCode != 0 {
		p.subtle("- exit code: %d", hr.ExitCode)
	}
	if hr.Status == runner.StatusModified {
		p.subtle("- files were modified by this hook")
	}
	if out := strings.TrimSpace(hr.Output); out != "" {
		fmt.Fprintln(p.w)
		fmt.Fprintln(p.w, out)
		fmt.Fprintln(p.w)
	}
}

// Summary prints the aggregate line. Clean runs stay quiet unless
// verbose is on.
func (p *Printer) Summary(res *runner.Result) {
	failed := 0
	for _, h := range res.Hooks {
		if h.Failed() {
			failed++
		}
	}
	switch {
	case failed > 0:
		fmt.Fprintln(p.w, styleFailed.Render(
			fmt.Sprintf("%d of %d hooks failed", failed, len(res.Hooks))))
	case p.verbose:
		fmt.Fprintln(p.w, styleSubtle.Render(
			fmt.Sprintf("%d hooks passed in %s", len(res.Hooks), res.Duration.Round(time.Millisecond))))
	}
}

// Error prints a run-machinery failure, the kind that aborts a run
// before hooks finish.
func (p *Printer) Error(err error) {
	fmt.Fprintln(p.w, styleFailed.Render("error: ")+err.Error())
}

func (p *Printer) dots(occupied int) string {
	n := p.cols - occupied - 1
	if n < 0 {
		n = 0
	}
	return strings.Repeat(".", n)
}

func (p *Printer) subtle(format string, args ...interface{}) {
	fmt.Fprintln(p.w, styleSubtle.Render(fmt.Sprintf(format, args...)))
}

func statusFor(s runner.Status) (string, lipgloss.Style) {
	switch s {
	case runner.StatusPassed:
		return statusPassed, stylePassed
	case runner.StatusSkipped:
		return statusSkipped, styleSkipped
	case runner.StatusErrored:
		return statusErrored, styleFailed
	default:
		// Modified reads as Failed; the detail block explains why.
		return statusFailed, styleFailed
	}
}

func displayName(hr runner.HookResult) string {
	if hr.Name != "" {
		return hr.Name
	}
	return hr.ID
}
