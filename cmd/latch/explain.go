package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/latch/internal/config"
	"github.com/mark3labs/latch/internal/output"
)

var explainFlags struct {
	config string
}

var explainCmd = &cobra.Command{
	Use:   "explain HOOK",
	Short: "Show what a configured hook does",
	Long: `Explain resolves a hook the way a run would: for remote groups the
repository is cloned and the hook's manifest entry merged in, so the
description, entry and file filters shown are the effective ones.`,
	Args: cobra.ExactArgs(1),
	RunE: runExplain,
}

func init() {
	explainCmd.Flags().StringVarP(&explainFlags.config, "config", "c", "", "Pipeline document to read instead of the discovered one")
}

func runExplain(cmd *cobra.Command, args []string) error {
	id := args[0]
	ws, err := openWorkspace(explainFlags.config)
	if err != nil {
		return err
	}

	var found *config.ConfiguredHook
	for _, ch := range ws.config.AllHooks() {
		if ch.Hook.ID == id {
			found = &ch
			break
		}
	}
	if found == nil {
		return fmt.Errorf("no hook %q in %s", id, displayPath(ws.configPath))
	}

	h := *found.Hook
	switch {
	case found.Repo.IsRemote():
		ctx := cmd.Context()
		st, err := ws.openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		dir, err := st.EnsureRepo(ctx, found.Repo.Repo, found.Repo.Rev)
		if err != nil {
			return err
		}
		mhs, err := config.LoadManifest(dir)
		if err != nil {
			return fmt.Errorf("repository %s: %w", found.Repo.Repo, err)
		}
		mh, ok := config.FindManifestHook(mhs, id)
		if !ok {
			return fmt.Errorf("hook %q is not present in repository %s", id, found.Repo.Repo)
		}
		h = config.MergeManifest(mh, h)
	case found.Repo.IsMeta():
		mh, ok := config.FindManifestHook(config.MetaHooks(), id)
		if !ok {
			return fmt.Errorf("unknown meta hook %q", id)
		}
		h = config.MergeManifest(mh, h)
	}

	fmt.Print(output.RenderMarkdown(explainDoc(ws.config, *found.Repo, h), 80))
	return nil
}

func explainDoc(cfg *config.Config, repo config.Repo, h config.Hook) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", h.DisplayName())
	fmt.Fprintf(&b, "From %s\n\n", sourceFor(repo.Repo, repo.Rev))
	if h.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", h.Description)
	}

	fmt.Fprintf(&b, "- entry: `%s`\n", h.Entry)
	fmt.Fprintf(&b, "- language: %s\n", orDash(h.Language))
	fmt.Fprintf(&b, "- stages: %s\n", strings.Join(cfg.EffectiveStages(h), ", "))
	if h.Files != "" {
		fmt.Fprintf(&b, "- files: `%s`\n", h.Files)
	}
	if h.Exclude != "" {
		fmt.Fprintf(&b, "- exclude: `%s`\n", h.Exclude)
	}
	if len(h.Types) > 0 {
		fmt.Fprintf(&b, "- types: %s\n", strings.Join(h.Types, ", "))
	}
	if len(h.TypesOr) > 0 {
		fmt.Fprintf(&b, "- types (any of): %s\n", strings.Join(h.TypesOr, ", "))
	}
	if len(h.Args) > 0 {
		fmt.Fprintf(&b, "- args: `%s`\n", strings.Join(h.Args, " "))
	}
	if h.AlwaysRun {
		b.WriteString("- runs even when no files match\n")
	}
	return b.String()
}
