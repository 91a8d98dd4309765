package git

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	ierr "github.com/mark3labs/latch/internal/errors"
	"github.com/mark3labs/latch/internal/logger"
)

// SkipPostCheckoutEnv is set while latch itself runs git checkout so an
// installed post-checkout hook does not trigger recursively.
const SkipPostCheckoutEnv = "LATCH_SKIP_POST_CHECKOUT"

// WorkingTreeKeeper stashes unstaged modifications before hooks run and
// restores them afterwards, so checkers only ever see the staged content.
// The unstaged diff is saved as a binary patch under patchDir and kept
// there after restore for recovery.
type WorkingTreeKeeper struct {
	root     string
	patchDir string

	stashed   bool
	patchPath string
	itaFiles  []string
}

// NewWorkingTreeKeeper returns a keeper for the working tree rooted at
// root. Patches are written under patchDir.
func NewWorkingTreeKeeper(root, patchDir string) *WorkingTreeKeeper {
	return &WorkingTreeKeeper{root: root, patchDir: patchDir}
}

// PatchPath returns the location of the saved patch, or "" when Save found
// nothing to stash.
func (k *WorkingTreeKeeper) PatchPath() string {
	if !k.stashed {
		return ""
	}
	return k.patchPath
}

// Save records intent-to-add entries, writes the unstaged diff to a patch
// file, and resets the working tree to the index state. A clean tree is
// not an error; Restore becomes a no-op.
func (k *WorkingTreeKeeper) Save() error {
	ita, err := IntentToAddFiles(k.root)
	if err != nil {
		return fmt.Errorf("list intent-to-add files: %w", err)
	}
	if len(ita) > 0 {
		args := append([]string{"rm", "--cached", "--"}, ita...)
		if _, err := runGit(k.root, args...); err != nil {
			return fmt.Errorf("clear intent-to-add entries: %w", err)
		}
		k.itaFiles = ita
	}

	tree, err := runGit(k.root, "write-tree")
	if err != nil {
		return fmt.Errorf("write tree: %w", err)
	}

	diff, code, err := gitCapture(k.root, nil, "diff-index", "--ignore-submodules",
		"--binary", "--exit-code", "--no-color", "--no-ext-diff", tree, "--")
	if err != nil {
		return fmt.Errorf("diff working tree: %w", err)
	}
	// Exit 1 with empty output happens on line-ending-only differences.
	if code == 0 || len(bytes.TrimSpace(diff)) == 0 {
		return nil
	}

	if err := os.MkdirAll(k.patchDir, 0o755); err != nil {
		return fmt.Errorf("create patch dir: %w", err)
	}
	name := fmt.Sprintf("patch%d-%d", time.Now().Unix(), os.Getpid())
	k.patchPath = filepath.Join(k.patchDir, name)
	if err := os.WriteFile(k.patchPath, diff, 0o600); err != nil {
		return fmt.Errorf("save patch: %w", err)
	}

	if err := k.checkoutIndex(); err != nil {
		return fmt.Errorf("reset working tree: %w", err)
	}
	k.stashed = true
	logger.Debug("WorkingTreeKeeper: stashed unstaged changes to %s", k.patchPath)
	return nil
}

// Restore re-applies the saved patch and re-registers intent-to-add
// entries. Both steps run even if the other fails; a patch that could
// not be applied stays on disk for manual recovery.
func (k *WorkingTreeKeeper) Restore() error {
	var errs ierr.MultiError
	if k.stashed {
		if err := k.restorePatch(); err != nil {
			errs.Append(err)
		} else {
			logger.Info("Restored changes from %s", k.patchPath)
		}
		k.stashed = false
	}

	if len(k.itaFiles) > 0 {
		args := append([]string{"add", "--intent-to-add", "--"}, k.itaFiles...)
		if _, err := runGit(k.root, args...); err != nil {
			errs.Append(fmt.Errorf("restore intent-to-add entries: %w", err))
		}
		k.itaFiles = nil
	}
	return errs.ErrorOrNil()
}

// restorePatch re-applies the saved patch. If it conflicts with
// modifications hooks made, those modifications are rolled back and the
// patch applied again.
func (k *WorkingTreeKeeper) restorePatch() error {
	if err := k.applyPatch(); err == nil {
		return nil
	}
	logger.Warn("Stashed changes conflict with hook fixes, rolling back fixes")
	if err := k.checkoutIndex(); err != nil {
		return fmt.Errorf("roll back hook fixes: %w", err)
	}
	if err := k.applyPatch(); err != nil {
		return fmt.Errorf("restore stashed changes (patch kept at %s): %w", k.patchPath, err)
	}
	return nil
}

func (k *WorkingTreeKeeper) applyPatch() error {
	_, err := runGit(k.root, "apply", "--whitespace=nowarn", k.patchPath)
	return err
}

func (k *WorkingTreeKeeper) checkoutIndex() error {
	_, code, err := gitCapture(k.root, []string{SkipPostCheckoutEnv + "=1"},
		"-c", "submodule.recurse=0", "checkout", "--", ".")
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("git checkout exited %d", code)
	}
	return nil
}

// gitCapture runs git with optional extra environment and returns raw
// stdout plus the exit code. Exit code 1 is not an error; diff-style
// commands use it to signal differences.
func gitCapture(dir string, extraEnv []string, args ...string) ([]byte, int, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code == 1 {
			return stdout.Bytes(), 1, nil
		}
		return nil, code, fmt.Errorf("git %s: %s", strings.Join(args, " "), bytes.TrimSpace(stderr.Bytes()))
	}
	return nil, -1, err
}
