package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/mark3labs/latch/internal/logger"
	"github.com/spf13/cobra"
)

// Version set via ldflags during build
var version = "dev"

// exitStatus carries the run outcome to main. A failing hook is not a
// command error: the summary has already been printed, so RunE returns
// nil and records the exit code here instead of triggering the styled
// error banner.
var exitStatus int

func main() {
	// Ensure logger is closed on exit
	defer func() { _ = logger.Close() }()

	if err := fang.Execute(context.Background(), rootCmd, fang.WithVersion(version)); err != nil {
		logger.Error("Command execution failed: %v", err)
		os.Exit(3)
	}
	os.Exit(exitStatus)
}

var rootCmd = &cobra.Command{
	Use:   "latch",
	Short: "Fast multi-language git hook runner",
}

// rootVerbose doubles as debug logging and hook output verbosity.
var rootVerbose bool

func init() {
	rootCmd.Long = `latch runs the checks a repository declares in ` + "`.latch.hooks.yml`" + `:
formatters, linters and sanity checks, pulled from hook repositories
pinned to exact revisions and executed against the files a commit
actually touches.

Install it once with "latch install" and every commit is checked
automatically; run "latch run --all-files" whenever the whole tree
needs a pass.`

	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Show passing hook output and enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(hookImplCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(gcCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(mcpCmd)
}
