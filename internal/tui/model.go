// Package tui renders a live view of a hook run: one row per selected
// hook, a spinner while a hook executes, and its status once finished.
// Headless environments (no TTY, --no-tui) use the output printer
// instead; failure details are printed after the view closes either
// way.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/mark3labs/latch/internal/config"
	"github.com/mark3labs/latch/internal/runner"
)

// RunStartedMsg announces the selected hooks once environments are
// ready.
type RunStartedMsg struct {
	Hooks []config.Hook
	Files int
}

// HookStartedMsg marks a hook as executing.
type HookStartedMsg struct {
	ID    string
	Files int
}

// HookFinishedMsg carries one hook outcome.
type HookFinishedMsg struct {
	Result runner.HookResult
}

// RunDoneMsg ends the view with the aggregate result.
type RunDoneMsg struct {
	Result *runner.Result
	Err    error
}

type tickMsg time.Time

type row struct {
	hook    config.Hook
	files   int
	running bool
	done    bool
	result  runner.HookResult
}

// Model is the Bubbletea model for a single run. The same hook id may
// appear several times in a pipeline, so rows are matched in document
// order rather than by id lookup.
type Model struct {
	repo   string
	stage  string
	cancel context.CancelFunc

	files int
	rows  []row

	spin       spinner.Model
	start      time.Time
	elapsed    time.Duration
	width      int
	cancelling bool

	result *runner.Result
	err    error
}

// New builds the run view. cancel is invoked when the user aborts;
// the view itself stays open until RunDoneMsg arrives so the working
// tree restore is visible.
func New(repo, stage string, cancel context.CancelFunc) *Model {
	return &Model{
		repo:   filepath.Base(repo),
		stage:  stage,
		cancel: cancel,
		spin: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(colorPrimary)),
		),
		start: time.Now(),
	}
}

// Result returns the aggregate outcome once the program has quit.
func (m *Model) Result() (*runner.Result, error) {
	return m.result, m.err
}

// Init starts the spinner and the elapsed ticker.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.tick())
}

// Update handles messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if m.done() {
				return m, tea.Quit
			}
			if !m.cancelling {
				m.cancelling = true
				if m.cancel != nil {
					m.cancel()
				}
			}
		}
		return m, nil

	case RunStartedMsg:
		m.files = msg.Files
		m.rows = make([]row, len(msg.Hooks))
		for i, h := range msg.Hooks {
			m.rows[i] = row{hook: h}
		}
		return m, nil

	case HookStartedMsg:
		if i := m.findRow(msg.ID, func(r row) bool { return !r.done && !r.running }); i >= 0 {
			m.rows[i].running = true
			m.rows[i].files = msg.Files
		}
		return m, nil

	case HookFinishedMsg:
		if i := m.findRow(msg.Result.ID, func(r row) bool { return !r.done }); i >= 0 {
			m.rows[i].running = false
			m.rows[i].done = true
			m.rows[i].result = msg.Result
		}
		return m, nil

	case RunDoneMsg:
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		if m.done() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tickMsg:
		m.elapsed = time.Since(m.start)
		if m.done() {
			return m, nil
		}
		return m, m.tick()
	}

	return m, nil
}

// View renders inline rather than in the alt screen, so finished runs
// stay in scrollback.
func (m *Model) View() tea.View {
	var view tea.View
	view.Content = lipgloss.NewLayer(m.render())
	return view
}

func (m *Model) render() string {
	var b strings.Builder

	sep := styleMuted.Render(" | ")
	header := styleTitle.Render("latch") + sep + styleInfo.Render(m.repo) + sep + styleInfo.Render(m.stage)
	if m.files > 0 {
		header += sep + styleInfo.Render(fmt.Sprintf("%d files", m.files))
	}
	b.WriteString(header + "\n")

	if len(m.rows) == 0 {
		b.WriteString("  " + m.spin.View() + " " + styleMuted.Render("preparing environments") + "\n")
	}
	for _, r := range m.rows {
		b.WriteString(m.renderRow(r) + "\n")
	}

	b.WriteString(m.renderFooter())
	return b.String()
}

func (m *Model) renderRow(r row) string {
	name := truncate(r.hook.DisplayName(), m.nameWidth())
	switch {
	case r.done:
		icon, style := statusIcon(r.result.Status)
		line := "  " + style.Render(icon) + " " + styleInfo.Render(name)
		if r.result.Status != runner.StatusSkipped {
			line += " " + styleMuted.Render(r.result.Duration.Round(time.Millisecond).String())
		}
		return line
	case r.running:
		return "  " + m.spin.View() + " " + styleRunning.Render(name)
	default:
		return "  " + styleMuted.Render("• "+name)
	}
}

func (m *Model) renderFooter() string {
	elapsed := m.elapsed.Round(100 * time.Millisecond)
	if m.cancelling {
		return styleMuted.Render(fmt.Sprintf("%s | cancelling, restoring working tree", elapsed))
	}
	return styleMuted.Render(fmt.Sprintf("%s | q cancels", elapsed))
}

func (m *Model) done() bool {
	return m.result != nil || m.err != nil
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) findRow(id string, ok func(row) bool) int {
	for i, r := range m.rows {
		if r.hook.ID == id && ok(r) {
			return i
		}
	}
	return -1
}

// nameWidth leaves room for the icon column and a duration tail.
func (m *Model) nameWidth() int {
	if m.width == 0 {
		return 60
	}
	w := m.width - 16
	if w < 20 {
		w = 20
	}
	return w
}

func statusIcon(s runner.Status) (string, lipgloss.Style) {
	switch s {
	case runner.StatusPassed:
		return "✓", stylePassed
	case runner.StatusSkipped:
		return "-", styleSkipped
	default:
		return "✗", styleFailed
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return "..."
	}
	return string(runes[:max-3]) + "..."
}

var _ tea.Model = (*Model)(nil)
