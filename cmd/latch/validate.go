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
)

var validateFlags struct {
	config string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the pipeline document against the schema",
	Long: `Validate parses the pipeline document and checks every rule the
runner would enforce: unknown keys, missing ids, bad regular
expressions, unknown languages and stages, remote groups without a
pinned rev. Findings go to stdout; the exit status is 1 when the
document has problems and 0 when it is clean.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateFlags.config, "config", "c", "", "Pipeline document to check instead of the discovered one")
}

func runValidate(cmd *cobra.Command, args []string) error {
	s, err := settings.Load()
	if err != nil {
		return err
	}
	configureLogger(s)

	path, err := findValidatePath(s)
	if err != nil {
		return err
	}
	if !reportValidity(path) {
		exitStatus = 1
	}
	return nil
}

// reportValidity loads and checks one document and prints the outcome.
// It reports whether the document passed every check.
func reportValidity(path string) bool {
	name := displayPath(path)

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Printf("%s is not valid:\n%v\n", name, err)
		return false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("%s is not valid:\n%v\n", name, err)
		return false
	}
	if err := cfg.CheckMinimumVersion(version); err != nil {
		fmt.Printf("%s is not valid:\n%v\n", name, err)
		return false
	}

	fmt.Printf("%s is valid: %d repos, %d hooks\n", name, len(cfg.Repos), len(cfg.AllHooks()))
	return true
}

// findValidatePath resolves the document to check. Unlike the run
// commands this works outside a git repository too, as long as the
// path is explicit or the document sits in the current directory.
func findValidatePath(s *settings.Settings) (string, error) {
	path := validateFlags.config
	if path == "" {
		path = s.HooksConfig
	}
	if path != "" {
		return filepath.Abs(path)
	}
	dir := "."
	if root, err := git.Root("."); err == nil {
		dir = root
	}
	return config.Find(dir)
}

func displayPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
