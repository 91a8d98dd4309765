package tui

import (
	tea "charm.land/bubbletea/v2"
	"github.com/mark3labs/latch/internal/config"
	"github.com/mark3labs/latch/internal/runner"
)

// Reporter forwards runner callbacks into the program as messages. The
// runner calls it from its own goroutine; tea.Program.Send is safe for
// that.
type Reporter struct {
	prog *tea.Program
}

// NewReporter wraps a running program.
func NewReporter(p *tea.Program) Reporter {
	return Reporter{prog: p}
}

// StartRun announces the selected hooks.
func (r Reporter) StartRun(hooks []config.Hook, files int) {
	r.prog.Send(RunStartedMsg{Hooks: hooks, Files: files})
}

// StartHook marks a hook as executing.
func (r Reporter) StartHook(h config.Hook, files int) {
	r.prog.Send(HookStartedMsg{ID: h.ID, Files: files})
}

// FinishHook records a hook outcome.
func (r Reporter) FinishHook(hr runner.HookResult) {
	r.prog.Send(HookFinishedMsg{Result: hr})
}

var _ runner.Reporter = Reporter{}
