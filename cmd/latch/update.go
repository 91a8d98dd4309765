package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/latch/internal/config"
	"github.com/mark3labs/latch/internal/output"
)

var updateFlags struct {
	dryRun bool
	config string
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Bump every remote group to its newest version tag",
	Long: `Update asks each remote repository for its tags, picks the highest
version-ordered one and rewrites the group's rev in place. Comments
and formatting of the document survive the rewrite. Tags that do not
look like versions (v1.2.3, 22.3.0, ...) are ignored.`,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVar(&updateFlags.dryRun, "dry-run", false, "Show the rewrite as a diff without writing it")
	updateCmd.Flags().StringVarP(&updateFlags.config, "config", "c", "", "Pipeline document to update instead of the discovered one")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(updateFlags.config)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(ws.configPath)
	if err != nil {
		return err
	}

	updated := data
	changes := 0
	for _, repo := range ws.config.Repos {
		if !repo.IsRemote() {
			continue
		}
		latest, err := latestTag(cmd.Context(), repo.Repo)
		if err != nil {
			fmt.Printf("%s: %v\n", repo.Repo, err)
			exitStatus = 1
			continue
		}
		if latest == repo.Rev {
			fmt.Printf("%s: already at %s\n", repo.Repo, repo.Rev)
			continue
		}
		next, changed, err := config.SetRepoRev(updated, repo.Repo, latest)
		if err != nil {
			return err
		}
		if changed {
			fmt.Printf("%s: %s -> %s\n", repo.Repo, repo.Rev, latest)
			updated = next
			changes++
		}
	}
	if changes == 0 {
		return nil
	}

	if updateFlags.dryRun {
		p := output.NewPrinter(os.Stdout, ws.settings.Color, false)
		p.PrintDiff([]output.FileDiff{{
			Path:   displayPath(ws.configPath),
			Before: string(data),
			After:  string(updated),
		}})
		return nil
	}

	mode := os.FileMode(0o644)
	if fi, err := os.Stat(ws.configPath); err == nil {
		mode = fi.Mode()
	}
	return os.WriteFile(ws.configPath, updated, mode)
}

// latestTag returns the highest version-ordered tag of a remote
// repository. GIT_TERMINAL_PROMPT=0 keeps a private remote from
// hanging the command on a credentials prompt.
func latestTag(ctx context.Context, url string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "ls-remote", "--tags", "--refs", url)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("list tags: %w", err)
	}
	best := bestTag(string(out))
	if best == "" {
		return "", fmt.Errorf("no version tags")
	}
	return best, nil
}

// bestTag picks the highest version-looking tag out of ls-remote
// output, one "<sha>\trefs/tags/<tag>" per line.
func bestTag(lsRemote string) string {
	best := ""
	var bestV []int
	for _, line := range strings.Split(lsRemote, "\n") {
		_, ref, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		tag := strings.TrimPrefix(strings.TrimSpace(ref), "refs/tags/")
		v, ok := tagVersion(tag)
		if !ok {
			continue
		}
		if best == "" || versionLess(bestV, v) {
			best, bestV = tag, v
		}
	}
	return best
}

func tagVersion(tag string) ([]int, bool) {
	parts := strings.Split(strings.TrimPrefix(tag, "v"), ".")
	v := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, false
		}
		v = append(v, n)
	}
	return v, true
}

func versionLess(a, b []int) bool {
	for i := 0; i < len(a) || i < len(b); i++ {
		av, bv := 0, 0
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			return av < bv
		}
	}
	return false
}
