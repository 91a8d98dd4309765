// Package runner executes a repository's configured hooks against a set
// of files: it discovers the file set from git, stages the working tree,
// prepares hook environments, fans file batches out to checker
// processes, and aggregates their exit codes into a single pass/fail
// result.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mark3labs/latch/internal/config"
	ierr "github.com/mark3labs/latch/internal/errors"
	"github.com/mark3labs/latch/internal/git"
	"github.com/mark3labs/latch/internal/language"
	"github.com/mark3labs/latch/internal/logger"
	"github.com/mark3labs/latch/internal/store"
)

// Status is the outcome of one hook.
type Status string

const (
	StatusPassed   Status = "Passed"
	StatusFailed   Status = "Failed"
	StatusSkipped  Status = "Skipped"
	StatusModified Status = "Modified"
	StatusErrored  Status = "Errored"
)

// HookResult is the recorded outcome of a single hook invocation.
type HookResult struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	ExitCode int           `json:"exit_code"`
	Files    int           `json:"files"`
	NoFiles  bool          `json:"no_files,omitempty"`
	Verbose  bool          `json:"verbose,omitempty"`
	Output   string        `json:"output,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Failed reports whether this hook's outcome fails the run. A hook that
// modified files fails even with exit code zero: the index no longer
// matches what the user reviewed.
func (h HookResult) Failed() bool {
	switch h.Status {
	case StatusFailed, StatusModified, StatusErrored:
		return true
	}
	return false
}

// Result aggregates one full run.
type Result struct {
	RunID    string        `json:"run_id"`
	Stage    string        `json:"stage"`
	Branch   string        `json:"branch,omitempty"`
	Hash     string        `json:"hash,omitempty"`
	Files    int           `json:"files"`
	Hooks    []HookResult  `json:"hooks"`
	Duration time.Duration `json:"duration"`
}

// Failed reports whether any hook failed the run.
func (r *Result) Failed() bool {
	for _, h := range r.Hooks {
		if h.Failed() {
			return true
		}
	}
	return false
}

// Reporter receives hook lifecycle notifications for display. StartRun
// announces the selected hooks before any of them execute; StartHook
// fires only for hooks that actually run, so skipped hooks see a single
// FinishHook call.
type Reporter interface {
	StartRun(hooks []config.Hook, files int)
	StartHook(h config.Hook, files int)
	FinishHook(hr HookResult)
}

// EventSink receives run events for journaling.
type EventSink interface {
	RunStarted(ctx context.Context, res *Result)
	HookFinished(ctx context.Context, runID string, hr HookResult)
	RunFinished(ctx context.Context, res *Result)
}

// Options select what a run operates on.
type Options struct {
	Stage         string
	HookID        string
	AllFiles      bool
	Files         []string
	FromRef       string
	ToRef         string
	CommitMsgFile string
	NoStash       bool
}

// Runner drives hook runs for one repository.
type Runner struct {
	Root       string
	ConfigPath string
	Config     *config.Config
	Store      *store.Store
	Jobs       int
	Reporter   Reporter
	Events     EventSink
}

type preparedHook struct {
	hook    config.Hook
	lang    language.Language
	repoDir string
	envDir  string
}

// Run executes every hook configured for the stage in document order and
// returns the aggregated result. The returned error covers run machinery
// (clone failures, git state); hook failures are reported in the Result.
func (r *Runner) Run(ctx context.Context, opts Options) (res *Result, err error) {
	start := time.Now()
	stage := opts.Stage
	if stage == "" {
		stage = config.StagePreCommit
	}

	var hooks []config.ConfiguredHook
	for _, ch := range r.Config.AllHooks() {
		if !r.Config.RunsAtStage(*ch.Hook, stage) {
			continue
		}
		if opts.HookID != "" && ch.Hook.ID != opts.HookID {
			continue
		}
		hooks = append(hooks, ch)
	}
	if opts.HookID != "" && len(hooks) == 0 {
		return nil, fmt.Errorf("no hook with id %q in stage %q", opts.HookID, stage)
	}

	stash := !opts.AllFiles && len(opts.Files) == 0 && opts.FromRef == "" && !opts.NoStash
	if stash {
		if err := r.checkStashable(); err != nil {
			return nil, err
		}
	}

	files, err := r.discoverFiles(stage, opts)
	if err != nil {
		return nil, fmt.Errorf("determine file set: %w", err)
	}
	cls, err := newClassifier(r.Root, r.Config, files)
	if err != nil {
		return nil, err
	}

	prepared, err := r.prepare(ctx, hooks)
	if err != nil {
		return nil, err
	}

	if stash {
		keeper := git.NewWorkingTreeKeeper(r.Root, r.Store.PatchDir())
		if err := keeper.Save(); err != nil {
			return nil, fmt.Errorf("stash unstaged changes: %w", err)
		}
		defer func() {
			if rerr := keeper.Restore(); rerr != nil {
				logger.Error("Failed to restore working tree: %v", rerr)
				merr := &ierr.MultiError{}
				merr.Append(err)
				merr.Append(rerr)
				err = merr.ErrorOrNil()
			}
		}()
	}

	jobs := r.Jobs
	if jobs < 1 {
		jobs = runtime.NumCPU()
	}
	skip := skipSet()
	runID := uuid.NewString()

	res = &Result{RunID: runID, Stage: stage, Files: len(cls.Files())}
	if info, _ := git.GetInfo(r.Root); info != nil {
		res.Branch = info.Branch
		res.Hash = info.Hash
	}
	if r.Reporter != nil {
		selected := make([]config.Hook, len(prepared))
		for i, ph := range prepared {
			selected[i] = ph.hook
		}
		r.Reporter.StartRun(selected, res.Files)
	}
	if r.Events != nil {
		r.Events.RunStarted(ctx, res)
	}

	for _, ph := range prepared {
		hookStart := time.Now()
		// Meta and fail hooks execute in-process; a panic there is
		// contained to the hook it came from so the stash restore and
		// the remaining hooks still happen.
		var hr HookResult
		perr := ierr.Recover(func() error {
			hr = r.runHook(ctx, ph, cls, jobs, skip, runID)
			return nil
		})
		if perr != nil {
			var pe *ierr.PanicError
			if errors.As(perr, &pe) {
				logger.Error("Hook %s panicked: %v\n%s", ph.hook.ID, pe.Value, pe.StackTrace)
			}
			hr = HookResult{
				ID:     ph.hook.ID,
				Name:   ph.hook.DisplayName(),
				Status: StatusErrored,
				Output: perr.Error(),
			}
		}
		hr.Duration = time.Since(hookStart)
		if r.Reporter != nil {
			r.Reporter.FinishHook(hr)
		}
		if r.Events != nil {
			r.Events.HookFinished(ctx, runID, hr)
		}
		res.Hooks = append(res.Hooks, hr)
		if hr.Failed() && (r.Config.FailFast || ph.hook.FailFast) {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	res.Duration = time.Since(start)
	if r.Events != nil {
		r.Events.RunFinished(ctx, res)
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	return res, nil
}

// checkStashable rejects repository states the stash dance cannot
// handle safely.
func (r *Runner) checkStashable() error {
	unmerged, err := git.HasUnmergedFiles(r.Root)
	if err != nil {
		return err
	}
	if unmerged {
		return fmt.Errorf("unmerged files, resolve the conflict before running hooks")
	}
	if r.ConfigPath != "" {
		unstaged, err := git.HasUnstagedChanges(r.Root, r.ConfigPath)
		if err != nil {
			return err
		}
		if unstaged {
			return fmt.Errorf("hook configuration is unstaged, `git add %s` to fix", r.ConfigPath)
		}
	}
	return nil
}

func (r *Runner) discoverFiles(stage string, opts Options) ([]string, error) {
	switch {
	case len(opts.Files) > 0:
		return normalizeFiles(r.Root, opts.Files)
	case opts.AllFiles:
		return git.AllFiles(r.Root)
	case opts.FromRef != "" && opts.ToRef != "":
		return git.ChangedFiles(r.Root, opts.FromRef, opts.ToRef)
	}
	switch stage {
	case config.StageCommitMsg, config.StagePrepareCommitMsg:
		if opts.CommitMsgFile != "" {
			return normalizeFiles(r.Root, []string{opts.CommitMsgFile})
		}
	}
	// A merge commit with resolved conflicts has no staged diff for
	// files taken whole from one side; the merge metadata names them.
	if git.InMergeConflict(r.Root) {
		logger.Info("Mid-merge, checking conflicted files only")
		return git.ConflictedFiles(r.Root)
	}
	return git.StagedFiles(r.Root)
}

// InstallEnvironments clones every referenced repository and builds
// every environment the configuration needs without running a hook, so
// the first commit after install does not pay the setup cost.
func (r *Runner) InstallEnvironments(ctx context.Context) error {
	_, err := r.prepare(ctx, r.Config.AllHooks())
	return err
}

// prepare resolves every hook against its repository: remote hooks are
// cloned and merged with their manifest entry, meta hooks get the
// built-in manifest, and environments are installed where the language
// needs one.
func (r *Runner) prepare(ctx context.Context, hooks []config.ConfiguredHook) ([]preparedHook, error) {
	type repoKey struct{ repo, rev string }
	clones := make(map[repoKey]string)
	manifests := make(map[repoKey][]config.ManifestHook)

	prepared := make([]preparedHook, 0, len(hooks))
	for _, ch := range hooks {
		h := *ch.Hook
		var repoDir string

		switch {
		case ch.Repo.IsRemote():
			key := repoKey{ch.Repo.Repo, ch.Repo.Rev}
			dir, ok := clones[key]
			if !ok {
				var err error
				dir, err = r.Store.EnsureRepo(ctx, ch.Repo.Repo, ch.Repo.Rev)
				if err != nil {
					return nil, err
				}
				mhs, err := config.LoadManifest(dir)
				if err != nil {
					return nil, fmt.Errorf("repository %s: %w", ch.Repo.Repo, err)
				}
				clones[key] = dir
				manifests[key] = mhs
			}
			repoDir = dir
			mh, ok := config.FindManifestHook(manifests[key], h.ID)
			if !ok {
				return nil, fmt.Errorf("hook %q is not present in repository %s", h.ID, ch.Repo.Repo)
			}
			h = config.MergeManifest(mh, h)
		case ch.Repo.IsMeta():
			mh, ok := config.FindManifestHook(config.MetaHooks(), h.ID)
			if !ok {
				return nil, fmt.Errorf("unknown meta hook %q", h.ID)
			}
			h = config.MergeManifest(mh, h)
		}

		lang, ok := language.Get(h.Language)
		if !ok {
			return nil, fmt.Errorf("unknown language %q for hook %s", h.Language, h.ID)
		}

		// Local hooks with dependencies get an environment under the
		// cache; they have no cloned repository to host one.
		if repoDir == "" && lang.NeedsEnv() {
			repoDir = filepath.Join(r.Store.Dir(), "local")
			if err := os.MkdirAll(repoDir, 0o755); err != nil {
				return nil, fmt.Errorf("create local env dir: %w", err)
			}
		}
		envDir, err := language.EnsureEnv(ctx, lang, repoDir, h.LanguageVersion, h.AdditionalDependencies)
		if err != nil {
			return nil, fmt.Errorf("hook %s: %w", h.ID, err)
		}

		prepared = append(prepared, preparedHook{hook: h, lang: lang, repoDir: repoDir, envDir: envDir})
	}
	return prepared, nil
}

func (r *Runner) runHook(ctx context.Context, ph preparedHook, cls *classifier, jobs int, skip map[string]bool, runID string) HookResult {
	h := ph.hook
	hr := HookResult{ID: h.ID, Name: h.DisplayName(), Verbose: h.Verbose}

	if skip[h.ID] {
		hr.Status = StatusSkipped
		return hr
	}

	files, err := cls.ForHook(h)
	if err != nil {
		hr.Status = StatusErrored
		hr.Output = err.Error()
		return hr
	}
	hr.Files = len(files)
	if len(files) == 0 && !h.AlwaysRun {
		hr.Status = StatusSkipped
		hr.NoFiles = true
		return hr
	}
	if r.Reporter != nil {
		r.Reporter.StartHook(h, len(files))
	}

	diffBefore, err := git.Diff(r.Root)
	if err != nil {
		hr.Status = StatusErrored
		hr.Output = err.Error()
		return hr
	}

	exit, out, runErr := r.execute(ctx, ph, files, jobs, runID)
	hr.ExitCode = exit
	hr.Output = string(out)

	diffAfter, err := git.Diff(r.Root)
	if err != nil {
		hr.Status = StatusErrored
		hr.Output = err.Error()
		return hr
	}
	modified := !bytes.Equal(diffBefore, diffAfter)

	switch {
	case runErr != nil:
		hr.Status = StatusErrored
		hr.Output = strings.TrimSpace(hr.Output + "\n" + runErr.Error())
	case exit != 0:
		hr.Status = StatusFailed
	case modified:
		hr.Status = StatusModified
	default:
		hr.Status = StatusPassed
	}
	return hr
}

// execute runs the hook command, fanning file batches out across
// workers. The exit code is the maximum across batches; outputs are
// concatenated in batch order.
func (r *Runner) execute(ctx context.Context, ph preparedHook, files []string, jobs int, runID string) (int, []byte, error) {
	h := ph.hook

	switch ph.lang.Name() {
	case language.Fail:
		var buf bytes.Buffer
		buf.WriteString(h.Entry)
		buf.WriteString("\n\n")
		for _, f := range files {
			buf.WriteString(f)
			buf.WriteByte('\n')
		}
		return 1, buf.Bytes(), nil
	case language.Meta:
		return runMetaHook(h.ID, r.Root, files)
	}

	argv, err := shlex.Split(h.Entry)
	if err != nil {
		return -1, nil, fmt.Errorf("parse entry %q: %w", h.Entry, err)
	}
	if len(argv) == 0 {
		return -1, nil, fmt.Errorf("hook %s has an empty entry", h.ID)
	}
	if ph.lang.Name() == language.Script && ph.repoDir != "" {
		argv[0] = filepath.Join(ph.repoDir, argv[0])
	}
	argv = append(argv, h.Args...)

	env := withPathPrefix(os.Environ(), ph.lang.PathPrefix(ph.repoDir, ph.envDir))
	env = append(env,
		"LATCH=1",
		"LATCH_HOOK_ID="+h.ID,
		"LATCH_RUN_ID="+runID,
	)

	if !h.PassesFilenames() || len(files) == 0 {
		return runCommand(ctx, argv, r.Root, env)
	}

	concurrency := jobs
	if h.RequireSerial {
		concurrency = 1
	}
	baseLen := 0
	for _, a := range argv {
		baseLen += len(a) + 1
	}
	batches := partitionFiles(files, baseLen, concurrency, defaultArgBudget)

	outs := make([][]byte, len(batches))
	codes := make([]int, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			cmdline := make([]string, 0, len(argv)+len(batch))
			cmdline = append(cmdline, argv...)
			cmdline = append(cmdline, batch...)
			code, out, err := runCommand(gctx, cmdline, r.Root, env)
			outs[i] = out
			if err != nil {
				return err
			}
			codes[i] = code
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return -1, bytes.Join(outs, nil), err
	}

	exit := 0
	for _, c := range codes {
		if c > exit {
			exit = c
		}
	}
	return exit, bytes.Join(outs, nil), nil
}

// skipSet parses the SKIP environment variable, a comma-separated list
// of hook ids to skip for this run.
func skipSet() map[string]bool {
	skip := make(map[string]bool)
	for _, id := range strings.Split(os.Getenv("SKIP"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			skip[id] = true
		}
	}
	return skip
}

// normalizeFiles rewrites explicit file arguments relative to the
// repository root, the form every other discovery mode produces.
func normalizeFiles(root string, files []string) ([]string, error) {
	out := make([]string, 0, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, fmt.Errorf("file %s is outside the repository", f)
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out, nil
}
