package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/latch/internal/config"
	"github.com/mark3labs/latch/internal/events"
	"github.com/mark3labs/latch/internal/git"
	"github.com/mark3labs/latch/internal/logger"
	"github.com/mark3labs/latch/internal/settings"
	"github.com/mark3labs/latch/internal/store"
)

// workspace gathers what a repository-scoped command needs: loaded
// preferences, the repository root and the resolved pipeline document.
type workspace struct {
	settings   *settings.Settings
	root       string
	configPath string
	config     *config.Config
}

// openWorkspace locates the repository and its pipeline document and
// configures the logger from preferences. configFlag overrides
// discovery when the user passed --config; the settings-level
// hooks_config is tried next.
func openWorkspace(configFlag string) (*workspace, error) {
	s, err := settings.Load()
	if err != nil {
		return nil, err
	}
	configureLogger(s)

	root, err := git.Root(".")
	if err != nil {
		return nil, fmt.Errorf("not inside a git repository (%w)", err)
	}

	path, err := resolveConfigPath(configFlag, s, root)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.CheckMinimumVersion(version); err != nil {
		return nil, err
	}

	return &workspace{settings: s, root: root, configPath: path, config: cfg}, nil
}

func resolveConfigPath(flag string, s *settings.Settings, root string) (string, error) {
	path := flag
	if path == "" {
		path = s.HooksConfig
	}
	if path == "" {
		return config.Find(root)
	}
	return filepath.Abs(path)
}

// openStore opens the cache and registers the pipeline document so gc
// can tell which cached repositories are still referenced.
func (w *workspace) openStore(ctx context.Context) (*store.Store, error) {
	st, err := store.New(w.settings.CacheDir)
	if err != nil {
		return nil, err
	}
	if err := st.MarkConfigUsed(ctx, w.configPath); err != nil {
		logger.Warn("Failed to register pipeline document for gc: %v", err)
	}
	return st, nil
}

// openJournal opens the run journal. Journaling is best effort; when
// the journal cannot start the run proceeds and only history is lost.
func (w *workspace) openJournal(ctx context.Context) *events.Journal {
	j, err := events.Open(ctx, events.DirFor(w.settings.CacheDir, w.root))
	if err != nil {
		logger.Warn("Run journal unavailable: %v", err)
		return nil
	}
	return j
}

func configureLogger(s *settings.Settings) {
	level := s.LogLevel
	if rootVerbose {
		level = "debug"
	}
	logger.Configure(level, s.LogFile)
}
