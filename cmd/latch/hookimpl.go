package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mark3labs/latch/internal/config"
	"github.com/mark3labs/latch/internal/git"
	"github.com/mark3labs/latch/internal/runner"
)

var hookImplFlags struct {
	hookType string
	hookDir  string
}

// hookImplCmd is what installed shims exec. It is hidden because users
// never call it directly; git does, through the script in .git/hooks.
var hookImplCmd = &cobra.Command{
	Use:    "hook-impl --hook-type=TYPE --hook-dir=DIR -- [ARG ...]",
	Short:  "Entry point for installed hook shims",
	Hidden: true,
	Args:   cobra.ArbitraryArgs,
	RunE:   runHookImpl,
}

func init() {
	hookImplCmd.Flags().StringVar(&hookImplFlags.hookType, "hook-type", "", "Stage the shim was installed for")
	hookImplCmd.Flags().StringVar(&hookImplFlags.hookDir, "hook-dir", "", "Directory the shim lives in")
	_ = hookImplCmd.MarkFlagRequired("hook-type")
}

func runHookImpl(cmd *cobra.Command, args []string) error {
	stage := hookImplFlags.hookType
	if !config.KnownStage(stage) {
		return fmt.Errorf("unknown hook type %q", stage)
	}

	// Restoring the working tree checks out index content, which fires
	// the post-checkout hook again; the keeper marks those invocations.
	if stage == config.StagePostCheckout && os.Getenv(git.SkipPostCheckoutEnv) != "" {
		return nil
	}

	opts := runner.Options{Stage: stage}
	switch stage {
	case config.StageCommitMsg, config.StagePrepareCommitMsg:
		if len(args) == 0 {
			return fmt.Errorf("%s invoked without a message file", stage)
		}
		opts.CommitMsgFile = args[0]
	case config.StagePrePush:
		from, to, all, ok := prePushRange(os.Stdin)
		if !ok {
			return nil // nothing pushed
		}
		opts.FromRef, opts.ToRef, opts.AllFiles = from, to, all
	}

	ws, err := openWorkspace("")
	if err != nil {
		return err
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

	// Plain output: git owns the terminal during a commit.
	return executeRun(ctx, ws, st, j, opts, 0, false, false)
}

// prePushRange maps the ref lines git feeds a pre-push hook onto a rev
// range: "<local ref> <local sha> <remote ref> <remote sha>" per line.
// Deleted refs carry nothing to check; a ref the remote has never seen
// has no rev to diff against, so everything is checked.
func prePushRange(r io.Reader) (from, to string, allFiles, ok bool) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		parts := strings.Fields(sc.Text())
		if len(parts) != 4 {
			continue
		}
		localSHA, remoteSHA := parts[1], parts[3]
		if isZeroSHA(localSHA) {
			continue
		}
		if isZeroSHA(remoteSHA) {
			return "", "", true, true
		}
		return remoteSHA, localSHA, false, true
	}
	return "", "", false, false
}

func isZeroSHA(s string) bool {
	return strings.Trim(s, "0") == ""
}
