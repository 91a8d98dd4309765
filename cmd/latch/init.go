package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/latch/internal/config"
	"github.com/mark3labs/latch/internal/git"
	"github.com/mark3labs/latch/internal/settings"
	"github.com/mark3labs/latch/internal/template"
)

var initFlags struct {
	template string
	settings bool
	global   bool
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter pipeline document",
	Long: `Init writes a ` + config.ConfigFileName + ` to start from. The default
starter covers whitespace and sanity checks for any repository; the
language starters add the common formatters and linters for that
ecosystem.

With --settings it writes a latch.yml holding the default runner
preferences instead, so there is a file to tweak.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initFlags.template, "template", "t", "default",
		fmt.Sprintf("Starter to write (%s)", strings.Join(template.Names(), ", ")))
	initCmd.Flags().BoolVar(&initFlags.settings, "settings", false,
		"Write a latch.yml with the default runner preferences instead of a pipeline document")
	initCmd.Flags().BoolVar(&initFlags.global, "global", false,
		"With --settings, write to the user-level file instead of the repository")
}

func runInit(cmd *cobra.Command, args []string) error {
	if initFlags.global && !initFlags.settings {
		return fmt.Errorf("--global only applies to --settings")
	}
	if initFlags.settings {
		return initSettings(initFlags.global)
	}

	dir := "."
	if root, err := git.Root("."); err == nil {
		dir = root
	}

	if existing, err := config.Find(dir); err == nil {
		return fmt.Errorf("%s already exists, not overwriting", displayPath(existing))
	}

	doc, err := template.Starter(initFlags.template)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, config.ConfigFileName)
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", displayPath(path))
	fmt.Println(`Run "latch install" to check every commit.`)
	return nil
}

// initSettings snapshots the effective preferences, which are pure
// defaults plus environment overrides since no file exists yet.
func initSettings(global bool) error {
	if settings.Exists() {
		return fmt.Errorf("a settings file already exists, not overwriting")
	}

	s, err := settings.Load()
	if err != nil {
		return err
	}

	write, path := settings.WriteProject, settings.ProjectPath()
	if global {
		write, path = settings.WriteGlobal, settings.GlobalPath()
	}
	if err := write(s); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", displayPath(path))
	return nil
}
