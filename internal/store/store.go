// Package store manages the latch cache directory: cloned hook
// repositories, their installed environments, and stash patches. Clone
// state is tracked in a SQLite database so repeated runs reuse existing
// checkouts.
package store

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/gosimple/slug"
	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)

	"github.com/mark3labs/latch/internal/logger"
)

const dbName = "db.db"

const readmeText = `This directory is maintained by latch.
Learn more: https://github.com/mark3labs/latch
`

// Entry describes one cached repository checkout.
type Entry struct {
	Repo      string
	Ref       string
	Path      string
	CreatedAt time.Time
	LastUsed  time.Time
}

// Store is a handle on the cache directory and its database.
type Store struct {
	dir  string
	db   *sql.DB
	lock *flock.Flock
}

// New opens the cache at dir, creating the directory, marker files, and
// database schema on first use.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	readme := filepath.Join(dir, "README")
	if _, err := os.Stat(readme); os.IsNotExist(err) {
		if err := os.WriteFile(readme, []byte(readmeText), 0o644); err != nil {
			return nil, fmt.Errorf("write cache readme: %w", err)
		}
	}

	// busy_timeout avoids "database locked" errors when runs overlap
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL",
		filepath.Join(dir, dbName))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{
		dir:  dir,
		db:   db,
		lock: flock.New(filepath.Join(dir, ".lock")),
	}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the cache directory path.
func (s *Store) Dir() string {
	return s.dir
}

// PatchDir returns the directory where working tree patches are kept.
func (s *Store) PatchDir() string {
	return filepath.Join(s.dir, "patches")
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS repos (
		repo TEXT NOT NULL,
		ref TEXT NOT NULL,
		path TEXT NOT NULL,
		created_at TEXT NOT NULL,
		last_used TEXT NOT NULL,
		PRIMARY KEY (repo, ref)
	);

	CREATE TABLE IF NOT EXISTS configs (
		path TEXT NOT NULL,
		PRIMARY KEY (path)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// EnsureRepo returns the checkout directory for repo at rev, cloning it
// on first use. Concurrent latch processes serialize on the cache lock.
func (s *Store) EnsureRepo(ctx context.Context, repo, rev string) (string, error) {
	locked, err := s.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return "", fmt.Errorf("acquire cache lock: %w", err)
	}
	if !locked {
		return "", fmt.Errorf("acquire cache lock: not acquired")
	}
	defer func() { _ = s.lock.Unlock() }()

	var existing string
	err = s.db.QueryRowContext(ctx,
		`SELECT path FROM repos WHERE repo = ? AND ref = ?`, repo, rev).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		// fall through to clone
	case err != nil:
		return "", fmt.Errorf("query repo cache: %w", err)
	default:
		if _, statErr := os.Stat(existing); statErr == nil {
			if err := s.markUsed(ctx, repo, rev); err != nil {
				return "", err
			}
			return existing, nil
		}
		// Row without a directory: a wipe or crash left it behind.
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM repos WHERE repo = ? AND ref = ?`, repo, rev); err != nil {
			return "", fmt.Errorf("drop stale cache row: %w", err)
		}
	}

	dest := filepath.Join(s.dir, "repos", cloneDirName(repo, rev))
	logger.Info("Initializing environment for %s", repo)
	if err := cloneRepo(ctx, repo, rev, dest); err != nil {
		return "", err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO repos (repo, ref, path, created_at, last_used) VALUES (?, ?, ?, ?, ?)`,
		repo, rev, dest, now, now); err != nil {
		return "", fmt.Errorf("record clone: %w", err)
	}
	return dest, nil
}

func (s *Store) markUsed(ctx context.Context, repo, rev string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx,
		`UPDATE repos SET last_used = ? WHERE repo = ? AND ref = ?`, now, repo, rev); err != nil {
		return fmt.Errorf("mark repo used: %w", err)
	}
	return nil
}

// List returns every cached checkout, oldest last use first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT repo, ref, path, created_at, last_used FROM repos ORDER BY last_used`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created, used string
		if err := rows.Scan(&e.Repo, &e.Ref, &e.Path, &created, &used); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, created)
		e.LastUsed, _ = time.Parse(time.RFC3339, used)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Remove deletes a cached checkout and its database row.
func (s *Store) Remove(ctx context.Context, repo, ref string) error {
	var dir string
	err := s.db.QueryRowContext(ctx,
		`SELECT path FROM repos WHERE repo = ? AND ref = ?`, repo, ref).Scan(&dir)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove checkout: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM repos WHERE repo = ? AND ref = ?`, repo, ref)
	return err
}

// MarkConfigUsed remembers a pipeline document path so gc can tell which
// cached repositories are still referenced.
func (s *Store) MarkConfigUsed(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO configs (path) VALUES (?)`, abs)
	return err
}

// ListConfigs returns every pipeline document path seen by MarkConfigUsed.
func (s *Store) ListConfigs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM configs ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// DeleteConfig forgets a pipeline document path.
func (s *Store) DeleteConfig(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM configs WHERE path = ?`, abs)
	return err
}

// Wipe removes the entire cache directory.
func Wipe(dir string) error {
	return os.RemoveAll(dir)
}

// cloneDirName builds a stable, readable directory name for a checkout.
// The slug keeps cache listings scannable; the hash disambiguates repos
// that share a basename.
func cloneDirName(repo, rev string) string {
	base := strings.TrimSuffix(path.Base(strings.TrimSuffix(repo, "/")), ".git")
	sum := sha1.Sum([]byte(repo + "@" + rev))
	return fmt.Sprintf("%s-%x", slug.Make(base), sum[:5])
}

// cloneRepo checks out repo at rev into dest. The clone lands in a
// scratch directory first so a crash never leaves a half-finished
// checkout at the final path.
func cloneRepo(ctx context.Context, repo, rev, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create repos dir: %w", err)
	}
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("clear previous checkout: %w", err)
	}

	scratch := dest + ".tmp"
	if err := os.RemoveAll(scratch); err != nil {
		return fmt.Errorf("clear scratch dir: %w", err)
	}

	steps := [][]string{
		{"clone", "--no-checkout", "--quiet", repo, scratch},
		{"-C", scratch, "checkout", "--quiet", rev},
		{"-C", scratch, "submodule", "update", "--init", "--recursive", "--quiet"},
	}
	for _, args := range steps {
		if err := runGit(ctx, args); err != nil {
			_ = os.RemoveAll(scratch)
			return fmt.Errorf("clone %s@%s: %w", repo, rev, err)
		}
	}

	if err := os.Rename(scratch, dest); err != nil {
		_ = os.RemoveAll(scratch)
		return fmt.Errorf("finalize checkout: %w", err)
	}
	return nil
}

func runGit(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	// Never hang on credential prompts inside a hook run.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("git %s: %s", strings.Join(args, " "), msg)
	}
	return nil
}
