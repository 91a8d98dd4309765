package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"

	"github.com/mark3labs/latch/internal/git"
	"github.com/mark3labs/latch/internal/settings"
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the pipeline document in your editor",
	Long: `Edit opens the pipeline document in $EDITOR and validates it when
the editor closes, so schema mistakes surface now rather than on the
next commit.`,
	RunE: runEdit,
}

func runEdit(cmd *cobra.Command, args []string) error {
	s, err := settings.Load()
	if err != nil {
		return err
	}
	configureLogger(s)

	root, err := git.Root(".")
	if err != nil {
		return fmt.Errorf("not inside a git repository (%w)", err)
	}
	path, err := resolveConfigPath("", s, root)
	if err != nil {
		return fmt.Errorf(`%w (run "latch init" to start one)`, err)
	}

	ec, err := editor.Command("latch", path)
	if err != nil {
		return err
	}
	ec.Stdin, ec.Stdout, ec.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := ec.Run(); err != nil {
		return fmt.Errorf("editor: %w", err)
	}

	if !reportValidity(path) {
		exitStatus = 1
	}
	return nil
}
