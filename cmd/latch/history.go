package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mark3labs/latch/internal/events"
	"github.com/mark3labs/latch/internal/git"
	"github.com/mark3labs/latch/internal/settings"
)

var historyFlags struct {
	limit int
}

var historyCmd = &cobra.Command{
	Use:   "history [RUN]",
	Short: "Show past runs recorded in the journal",
	Long: `History replays the run journal for this repository: when each run
happened, what triggered it and how it went. A run id (or unique
prefix) shows that run hook by hook.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyFlags.limit, "limit", "n", 10, "Runs to show, newest first (0 = all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	s, err := settings.Load()
	if err != nil {
		return err
	}
	configureLogger(s)

	root, err := git.Root(".")
	if err != nil {
		return fmt.Errorf("not inside a git repository (%w)", err)
	}

	ctx := cmd.Context()
	j, err := events.Open(ctx, events.DirFor(s.CacheDir, root))
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	if len(args) == 1 {
		return showRun(ctx, j, args[0])
	}

	runs, err := j.LoadRuns(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded yet")
		return nil
	}

	slices.Reverse(runs)
	if historyFlags.limit > 0 && len(runs) > historyFlags.limit {
		runs = runs[:historyFlags.limit]
	}

	stW, brW := len("STAGE"), len("BRANCH")
	for _, r := range runs {
		stW = max(stW, len(r.Stage))
		brW = max(brW, len(runBranch(r)))
	}
	fmt.Printf("%-8s  %-19s  %-*s  %-*s  %5s  %5s  %-11s  %s\n",
		"RUN", "STARTED", stW, "STAGE", brW, "BRANCH", "FILES", "HOOKS", "RESULT", "DURATION")
	for _, r := range runs {
		fmt.Printf("%-8s  %-19s  %-*s  %-*s  %5d  %5d  %-11s  %s\n",
			shortID(r.RunID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			stW, r.Stage, brW, runBranch(r), r.Files, len(r.Hooks),
			runOutcome(r), runDuration(r))
	}
	return nil
}

func showRun(ctx context.Context, j *events.Journal, id string) error {
	r, err := findRun(ctx, j, id)
	if err != nil {
		return err
	}

	fmt.Printf("run %s\n", r.RunID)
	where := ""
	if r.Branch != "" {
		where = fmt.Sprintf(" on %s@%s", r.Branch, r.Hash)
	}
	fmt.Printf("started %s%s, stage %s, %d files, %s in %s\n\n",
		r.StartedAt.Local().Format("2006-01-02 15:04:05"),
		where, r.Stage, r.Files, runOutcome(r), runDuration(r))

	nameW := 0
	for _, hr := range r.Hooks {
		nameW = max(nameW, len(hr.Name))
	}
	for _, hr := range r.Hooks {
		fmt.Printf("  %-*s  %-8s  %s\n", nameW, hr.Name, string(hr.Status),
			hr.Duration.Round(time.Millisecond))
	}
	return nil
}

// findRun accepts the full run id or a unique prefix. Full ids load by
// a filtered replay; prefixes scan the whole journal.
func findRun(ctx context.Context, j *events.Journal, id string) (*events.Run, error) {
	if len(id) == 36 {
		return j.LoadRun(ctx, id)
	}

	runs, err := j.LoadRuns(ctx)
	if err != nil {
		return nil, err
	}
	var matches []*events.Run
	for _, r := range runs {
		if strings.HasPrefix(r.RunID, id) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("run %s: %w", id, events.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("run id %q is ambiguous (%d matches)", id, len(matches))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// runBranch labels where a run happened; entries written before branch
// capture show a dash.
func runBranch(r *events.Run) string {
	if r.Branch == "" {
		return "-"
	}
	return r.Branch
}

func runOutcome(r *events.Run) string {
	switch {
	case !r.Complete:
		return "interrupted"
	case r.Failed:
		return "failed"
	default:
		return "passed"
	}
}

func runDuration(r *events.Run) string {
	if !r.Complete {
		return "-"
	}
	return r.Duration.Round(10 * time.Millisecond).String()
}
