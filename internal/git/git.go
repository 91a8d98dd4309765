// Package git wraps the git plumbing commands latch relies on: repository
// discovery, staged-file listing, and working tree state queries. All
// functions shell out to the git binary found on PATH.
package git

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Info holds a snapshot of repository state for display purposes.
type Info struct {
	Branch string
	Hash   string
	Dirty  bool
	Ahead  int
	Behind int
}

// runGit executes a git command in dir and returns trimmed stdout.
// Stderr is folded into the error on failure.
func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// IsInRepo reports whether dir is inside a git working tree.
func IsInRepo(dir string) bool {
	out, err := runGit(dir, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// Root returns the top-level directory of the working tree containing dir.
func Root(dir string) (string, error) {
	out, err := runGit(dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return filepath.Clean(out), nil
}

// GitDir returns the absolute path of the repository's .git directory.
func GitDir(dir string) (string, error) {
	out, err := runGit(dir, "rev-parse", "--git-dir")
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(out) {
		out = filepath.Join(dir, out)
	}
	return filepath.Clean(out), nil
}

// HooksDir returns the directory git will search for hook scripts.
// rev-parse --git-path resolves core.hooksPath when set.
func HooksDir(dir string) (string, error) {
	out, err := runGit(dir, "rev-parse", "--git-path", "hooks")
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(out) {
		out = filepath.Join(dir, out)
	}
	return filepath.Clean(out), nil
}

// StagedFiles lists paths staged for the next commit, relative to the
// repository root. Deleted files are excluded since checkers cannot read
// them.
func StagedFiles(dir string) ([]string, error) {
	out, err := runGit(dir, "diff", "--staged", "--name-only", "-z",
		"--no-ext-diff", "--diff-filter=ACMRTUXB")
	if err != nil {
		return nil, err
	}
	return zsplit(out), nil
}

// AllFiles lists every path tracked by git, relative to the repository root.
func AllFiles(dir string) ([]string, error) {
	out, err := runGit(dir, "ls-files", "-z")
	if err != nil {
		return nil, err
	}
	return zsplit(out), nil
}

// ChangedFiles lists paths that differ between two refs, using the
// merge-base of from and to as the comparison point.
func ChangedFiles(dir, from, to string) ([]string, error) {
	out, err := runGit(dir, "diff", "--name-only", "-z", "--no-ext-diff",
		"--diff-filter=ACMRTUXB", from+"..."+to)
	if err != nil {
		return nil, err
	}
	return zsplit(out), nil
}

// HasUnmergedFiles reports whether the index contains unmerged entries.
func HasUnmergedFiles(dir string) (bool, error) {
	out, err := runGit(dir, "ls-files", "--unmerged", "-z")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// InMergeConflict reports whether the repository is mid-merge.
func InMergeConflict(dir string) bool {
	gitDir, err := GitDir(dir)
	if err != nil {
		return false
	}
	if _, err := os.Stat(filepath.Join(gitDir, "MERGE_HEAD")); err != nil {
		return false
	}
	if _, err := os.Stat(filepath.Join(gitDir, "MERGE_MSG")); err != nil {
		return false
	}
	return true
}

// ConflictedFiles lists the paths involved in the merge being
// committed: the entries git recorded in MERGE_MSG plus whatever the
// index changes against either parent. The message matters because a
// conflict resolved by taking one side whole leaves no index diff.
func ConflictedFiles(dir string) ([]string, error) {
	gitDir, err := GitDir(dir)
	if err != nil {
		return nil, err
	}
	msg, err := os.ReadFile(filepath.Join(gitDir, "MERGE_MSG"))
	if err != nil {
		return nil, fmt.Errorf("read merge message: %w", err)
	}

	seen := make(map[string]bool)
	var files []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			files = append(files, name)
		}
	}

	// Conflicted paths are the tab-indented lines, commented out or not.
	for _, line := range strings.Split(string(msg), "\n") {
		if strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "#\t") {
			add(strings.TrimSpace(strings.TrimPrefix(line, "#")))
		}
	}

	tree, err := runGit(dir, "write-tree")
	if err != nil {
		return nil, err
	}
	out, err := runGit(dir, "diff", "--name-only", "--no-ext-diff", "-z",
		tree, "HEAD", "MERGE_HEAD")
	if err != nil {
		return nil, err
	}
	for _, name := range zsplit(out) {
		add(name)
	}
	return files, nil
}

// IntentToAddFiles lists paths registered with git add --intent-to-add but
// not yet staged.
func IntentToAddFiles(dir string) ([]string, error) {
	out, err := runGit(dir, "status", "--ignore-submodules", "--porcelain", "-z")
	if err != nil {
		return nil, err
	}
	var files []string
	parts := zsplit(out)
	for i := 0; i < len(parts); i++ {
		line := parts[i]
		if len(line) < 4 {
			continue
		}
		status, name := line[:2], line[3:]
		// Renames and copies carry the original path as an extra record.
		if status[0] == 'R' || status[0] == 'C' {
			i++
		}
		if status[1] == 'A' {
			files = append(files, name)
		}
	}
	return files, nil
}

// GetInfo returns branch, short hash, and sync state for the repository
// containing dir. Returns nil without error when dir is not a git
// repository.
func GetInfo(dir string) (*Info, error) {
	if !IsInRepo(dir) {
		return nil, nil
	}

	branch, err := runGit(dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("resolve branch: %w", err)
	}

	hash, err := runGit(dir, "rev-parse", "--short=7", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("resolve hash: %w", err)
	}

	status, err := runGit(dir, "status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("check status: %w", err)
	}

	info := &Info{
		Branch: branch,
		Hash:   hash,
		Dirty:  status != "",
	}

	// No upstream is normal for fresh branches; leave counts at zero.
	if counts, err := runGit(dir, "rev-list", "--left-right", "--count", "@{upstream}...HEAD"); err == nil {
		fields := strings.Fields(counts)
		if len(fields) == 2 {
			info.Behind, _ = strconv.Atoi(fields[0])
			info.Ahead, _ = strconv.Atoi(fields[1])
		}
	}

	return info, nil
}

// HasUnstagedChanges reports whether path differs between the working
// tree and the index.
func HasUnstagedChanges(dir, path string) (bool, error) {
	_, code, err := gitCapture(dir, nil, "diff", "--quiet", "--no-ext-diff", "--", path)
	if err != nil {
		return false, err
	}
	return code == 1, nil
}

// Diff returns the raw working tree diff. Runs capture it before and
// after each hook; a byte difference means the hook modified files.
func Diff(dir string) ([]byte, error) {
	out, _, err := gitCapture(dir, nil, "diff", "--no-ext-diff",
		"--no-textconv", "--ignore-submodules")
	return out, err
}

// ModifiedFiles lists tracked files whose working tree content differs
// from the index.
func ModifiedFiles(dir string) ([]string, error) {
	out, err := runGit(dir, "diff", "--name-only", "-z", "--no-ext-diff",
		"--ignore-submodules")
	if err != nil {
		return nil, err
	}
	return zsplit(out), nil
}

// ShowIndex returns the staged content of path, the side a hook saw
// before it rewrote the working tree.
func ShowIndex(dir, path string) ([]byte, error) {
	out, _, err := gitCapture(dir, nil, "show", ":"+path)
	return out, err
}

// zsplit splits NUL-delimited git output into its records.
func zsplit(s string) []string {
	s = strings.TrimSuffix(s, "\x00")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\x00")
}
