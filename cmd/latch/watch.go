package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mark3labs/latch/internal/config"
	"github.com/mark3labs/latch/internal/output"
	"github.com/mark3labs/latch/internal/runner"
	"github.com/mark3labs/latch/internal/watch"
)

var watchFlags struct {
	stage  string
	jobs   int
	config string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run hooks whenever files change",
	Long: `Watch keeps an eye on the working tree and runs the pipeline
against each batch of changed files as you save them. Ignored paths
(.gitignore, .git) never trigger a run. Edits made while a run is in
flight fold into the next batch.

The working tree is checked as it is on disk; nothing is stashed.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchFlags.stage, "hook-stage", config.StagePreCommit, "Stage whose hooks run")
	watchCmd.Flags().IntVarP(&watchFlags.jobs, "jobs", "j", 0, "Concurrent batches per hook, 0 = one per CPU")
	watchCmd.Flags().StringVarP(&watchFlags.config, "config", "c", "", "Pipeline document to use instead of the discovered one")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if !config.KnownStage(watchFlags.stage) {
		return fmt.Errorf("unknown stage %q (one of %v)", watchFlags.stage, config.Stages)
	}

	ws, err := openWorkspace(watchFlags.config)
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

	// Runs rewrite the index, so .git must never feed back into a batch.
	w, err := watch.New(ws.root, []string{".git"})
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	p := output.NewPrinter(os.Stdout, ws.settings.Color, rootVerbose)
	fmt.Printf("watching %s (ctrl-c stops)\n", ws.root)

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case files := <-w.Batches():
			opts := runner.Options{Stage: watchFlags.stage, Files: files, NoStash: true}
			exitStatus = 0
			if err := executeRun(ctx, ws, st, j, opts, watchFlags.jobs, false, false); err != nil {
				p.Error(err)
			}
			fmt.Println()
		}
	}
}
