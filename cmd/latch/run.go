package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/colorprofile"
	"github.com/spf13/cobra"

	"github.com/mark3labs/latch/internal/config"
	"github.com/mark3labs/latch/internal/events"
	"github.com/mark3labs/latch/internal/git"
	"github.com/mark3labs/latch/internal/output"
	"github.com/mark3labs/latch/internal/runner"
	"github.com/mark3labs/latch/internal/store"
	"github.com/mark3labs/latch/internal/tui"
)

var runFlags struct {
	allFiles bool
	files    []string
	fromRef  string
	toRef    string
	stage    string
	jobs     int
	failFast bool
	showDiff bool
	noStash  bool
	noTUI    bool
	config   string
}

var runCmd = &cobra.Command{
	Use:   "run [HOOK]",
	Short: "Run configured hooks against the staged files",
	Long: `Run the hooks of the pipeline document against a file set.

Without flags the staged files are checked, the way an installed
pre-commit hook would check them; unstaged changes are put aside while
hooks run and restored afterwards. A hook id narrows the run to that
hook alone.

Exit status is 0 when every hook passed, 1 when any hook failed or
modified files, and 3 on usage or configuration errors.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVarP(&runFlags.allFiles, "all-files", "a", false, "Check every tracked file instead of the staged set")
	runCmd.Flags().StringArrayVar(&runFlags.files, "files", nil, "Check exactly these files")
	runCmd.Flags().StringVar(&runFlags.fromRef, "from-ref", "", "Check files changed since this rev (needs --to-ref)")
	runCmd.Flags().StringVar(&runFlags.toRef, "to-ref", "", "Upper rev for --from-ref")
	runCmd.Flags().StringVar(&runFlags.stage, "hook-stage", config.StagePreCommit, "Stage whose hooks run")
	runCmd.Flags().IntVarP(&runFlags.jobs, "jobs", "j", 0, "Concurrent batches per hook, 0 = one per CPU")
	runCmd.Flags().BoolVar(&runFlags.failFast, "fail-fast", false, "Stop after the first failing hook")
	runCmd.Flags().BoolVar(&runFlags.showDiff, "show-diff-on-failure", false, "Print what hooks changed when the run fails")
	runCmd.Flags().BoolVar(&runFlags.noStash, "no-stash", false, "Leave unstaged changes in place while hooks run")
	runCmd.Flags().BoolVar(&runFlags.noTUI, "no-tui", false, "Plain line output even on a terminal")
	runCmd.Flags().StringVarP(&runFlags.config, "config", "c", "", "Pipeline document to use instead of the discovered one")
}

func runRun(cmd *cobra.Command, args []string) error {
	if !config.KnownStage(runFlags.stage) {
		return fmt.Errorf("unknown stage %q (one of %v)", runFlags.stage, config.Stages)
	}
	if (runFlags.fromRef == "") != (runFlags.toRef == "") {
		return fmt.Errorf("--from-ref and --to-ref go together")
	}

	ws, err := openWorkspace(runFlags.config)
	if err != nil {
		return err
	}
	if runFlags.failFast {
		ws.config.FailFast = true
	}

	opts := runner.Options{
		Stage:    runFlags.stage,
		AllFiles: runFlags.allFiles,
		Files:    runFlags.files,
		FromRef:  runFlags.fromRef,
		ToRef:    runFlags.toRef,
		NoStash:  runFlags.noStash,
	}
	if len(args) == 1 {
		opts.HookID = args[0]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := ws.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	j := ws.openJournal(ctx)
	if j != nil {
		defer func() { _ = j.Close() }()
	}

	useTUI := !runFlags.noTUI && ws.settings.TUI &&
		colorprofile.Detect(os.Stdout, os.Environ()) != colorprofile.NoTTY
	return executeRun(ctx, ws, st, j, opts, runFlags.jobs, useTUI, runFlags.showDiff)
}

// executeRun drives one run to completion and translates the result
// into the process exit status. Hook failures set exitStatus and return
// nil; only run machinery errors surface as command errors. j may be
// nil when the journal could not start.
func executeRun(ctx context.Context, ws *workspace, st *store.Store, j *events.Journal, opts runner.Options, jobs int, useTUI, showDiff bool) error {
	if jobs == 0 {
		jobs = ws.settings.Jobs
	}
	r := &runner.Runner{
		Root:       ws.root,
		ConfigPath: ws.configPath,
		Config:     ws.config,
		Store:      st,
		Jobs:       jobs,
	}
	if j != nil {
		r.Events = j
	}

	p := output.NewPrinter(os.Stdout, ws.settings.Color, rootVerbose)

	var res *runner.Result
	var err error
	if useTUI {
		res, err = runWithTUI(ctx, ws, r, opts)
	} else {
		r.Reporter = p
		res, err = r.Run(ctx, opts)
	}

	switch {
	case errors.Is(err, context.Canceled):
		p.Error(fmt.Errorf("interrupted, working tree restored"))
		exitStatus = 130
		return nil
	case err != nil:
		return err
	}

	if useTUI {
		p.Details(res)
	}
	p.Summary(res)

	if res.Failed() {
		if showDiff {
			printFailureDiff(p, ws.root)
		}
		exitStatus = 1
	}
	return nil
}

// runWithTUI shows the live view while the runner works in the
// background. The view renders inline, so the finished run stays in
// scrollback; failure details are printed after it closes.
func runWithTUI(ctx context.Context, ws *workspace, r *runner.Runner, opts runner.Options) (*runner.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := tui.New(ws.root, opts.Stage, cancel)
	prog := tea.NewProgram(m)
	r.Reporter = tui.NewReporter(prog)

	go func() {
		res, err := r.Run(ctx, opts)
		prog.Send(tui.RunDoneMsg{Result: res, Err: err})
	}()

	if _, err := prog.Run(); err != nil {
		return nil, fmt.Errorf("render live view: %w", err)
	}
	return m.Result()
}

// printFailureDiff shows what hooks edited: the index still holds the
// content hooks received, the worktree holds their output.
func printFailureDiff(p *output.Printer, root string) {
	paths, err := git.ModifiedFiles(root)
	if err != nil || len(paths) == 0 {
		return
	}
	diffs := make([]output.FileDiff, 0, len(paths))
	for _, rel := range paths {
		before, _ := git.ShowIndex(root, rel)
		after, _ := os.ReadFile(filepath.Join(root, rel))
		diffs = append(diffs, output.FileDiff{Path: rel, Before: string(before), After: string(after)})
	}
	p.PrintDiff(diffs)
}
