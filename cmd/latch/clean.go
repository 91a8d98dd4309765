package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mark3labs/latch/internal/config"
	"github.com/mark3labs/latch/internal/git"
	"github.com/mark3labs/latch/internal/settings"
	"github.com/mark3labs/latch/internal/store"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the cache entirely",
	Long: `Clean deletes the cache directory: every cloned hook repository,
every built environment, the run journal and the bookkeeping database.
Everything is rebuilt on demand by the next run.`,
	RunE: runClean,
}

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Drop cached repositories nothing references anymore",
	Long: `Gc walks every pipeline document latch has seen, collects the
(repo, rev) pairs they still pin and removes cached checkouts none of
them references. Rev bumps leave the old checkout behind; gc is how it
goes away. Documents that no longer exist on disk are forgotten.`,
	RunE: runGC,
}

func runClean(cmd *cobra.Command, args []string) error {
	s, err := settings.Load()
	if err != nil {
		return err
	}
	configureLogger(s)

	if err := store.Wipe(s.CacheDir); err != nil {
		return err
	}
	fmt.Printf("removed %s\n", s.CacheDir)
	return nil
}

func runGC(cmd *cobra.Command, args []string) error {
	s, err := settings.Load()
	if err != nil {
		return err
	}
	configureLogger(s)

	ctx := cmd.Context()
	st, err := store.New(s.CacheDir)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	// The current repository's document may not be registered yet.
	if root, err := git.Root("."); err == nil {
		if path, err := config.Find(root); err == nil {
			_ = st.MarkConfigUsed(ctx, path)
		}
	}

	referenced, err := referencedRevs(ctx, st)
	if err != nil {
		return err
	}
	entries, err := st.List(ctx)
	if err != nil {
		return err
	}

	removed := 0
	for _, e := range entries {
		if _, ok := referenced[[2]string{e.Repo, e.Ref}]; ok {
			continue
		}
		if err := st.Remove(ctx, e.Repo, e.Ref); err != nil {
			return err
		}
		removed++
	}
	fmt.Printf("%d repository checkouts removed\n", removed)
	return nil
}

// referencedRevs loads every registered pipeline document and collects
// the (repo, rev) pairs still in use. Documents that are gone or no
// longer parse stop counting and are dropped from the registry.
func referencedRevs(ctx context.Context, st *store.Store) (map[[2]string]struct{}, error) {
	paths, err := st.ListConfigs(ctx)
	if err != nil {
		return nil, err
	}

	refs := make(map[[2]string]struct{})
	for _, path := range paths {
		cfg, err := config.Load(path)
		if err != nil {
			_ = st.DeleteConfig(ctx, path)
			continue
		}
		for _, repo := range cfg.Repos {
			if repo.IsRemote() {
				refs[[2]string{repo.Repo, repo.Rev}] = struct{}{}
			}
		}
	}
	return refs, nil
}
