package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mark3labs/latch/internal/config"
	"github.com/mark3labs/latch/internal/git"
	"github.com/mark3labs/latch/internal/runner"
	"github.com/mark3labs/latch/internal/template"
)

var installFlags struct {
	hookTypes    []string
	force        bool
	installHooks bool
}

var uninstallFlags struct {
	hookTypes []string
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install hook shims into the repository's hooks directory",
	Long: `Install writes a small shim script per hook type into .git/hooks
(or wherever core.hooksPath points). The shim hands the invocation to
"latch hook-impl" with the stage it was installed for.

A hook script latch did not write is left alone unless --force, which
moves it to <name>.legacy; the shim keeps running it before the
configured hooks.`,
	RunE: runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove latch hook shims",
	Long: `Uninstall removes the shim scripts install wrote. A <name>.legacy
hook preserved during install is moved back in place. Hook scripts
latch does not manage are not touched.`,
	RunE: runUninstall,
}

func init() {
	installCmd.Flags().StringSliceVarP(&installFlags.hookTypes, "hook-type", "t", []string{config.StagePreCommit}, "Hook types to install shims for")
	installCmd.Flags().BoolVarP(&installFlags.force, "force", "f", false, "Move an existing foreign hook to <name>.legacy and chain it")
	installCmd.Flags().BoolVar(&installFlags.installHooks, "install-hooks", false, "Clone hook repositories and build environments now")

	uninstallCmd.Flags().StringSliceVarP(&uninstallFlags.hookTypes, "hook-type", "t", nil, "Hook types to uninstall (default: every installed shim)")
}

func runInstall(cmd *cobra.Command, args []string) error {
	root, err := git.Root(".")
	if err != nil {
		return fmt.Errorf("not inside a git repository (%w)", err)
	}
	hooksDir, err := git.HooksDir(root)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		return fmt.Errorf("create hooks directory: %w", err)
	}
	binary, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate own binary: %w", err)
	}

	for _, t := range installFlags.hookTypes {
		if err := checkInstallable(t); err != nil {
			return err
		}
	}
	for _, t := range installFlags.hookTypes {
		preserved, err := installShim(hooksDir, t, binary, installFlags.force)
		if err != nil {
			return err
		}
		fmt.Printf("latch installed at %s\n", filepath.Join(hooksDir, t))
		if preserved {
			fmt.Printf("existing hook preserved at %s.legacy and will keep running\n", filepath.Join(hooksDir, t))
		}
	}

	if installFlags.installHooks {
		return installEnvironments(cmd.Context())
	}
	return nil
}

// installShim writes the shim for one hook type. It reports whether a
// foreign hook was moved aside to <name>.legacy.
func installShim(hooksDir, hookType, binary string, force bool) (bool, error) {
	path := filepath.Join(hooksDir, hookType)
	preserved := false

	existing, err := os.ReadFile(path)
	switch {
	case err == nil && !strings.Contains(string(existing), template.ShimMarker):
		if !force {
			return false, fmt.Errorf("%s exists and is not managed by latch; --force preserves it as %s.legacy and chains it", path, hookType)
		}
		if err := os.Rename(path, path+".legacy"); err != nil {
			return false, fmt.Errorf("preserve existing hook: %w", err)
		}
		preserved = true
	case err != nil && !os.IsNotExist(err):
		return false, err
	}

	script := template.Render(template.HookScript, template.Variables{Binary: binary, HookType: hookType})
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		return false, fmt.Errorf("write hook shim: %w", err)
	}
	return preserved, nil
}

func checkInstallable(hookType string) error {
	if !config.KnownStage(hookType) || hookType == config.StageManual {
		return fmt.Errorf("cannot install %q (one of %v)", hookType, config.InstallableStages)
	}
	return nil
}

// installEnvironments clones and builds everything the configuration
// needs so the first commit does not pay the setup cost.
func installEnvironments(parent context.Context) error {
	ws, err := openWorkspace("")
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := ws.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	r := &runner.Runner{Root: ws.root, ConfigPath: ws.configPath, Config: ws.config, Store: st}
	if err := r.InstallEnvironments(ctx); err != nil {
		return err
	}
	fmt.Println("hook environments ready")
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	root, err := git.Root(".")
	if err != nil {
		return fmt.Errorf("not inside a git repository (%w)", err)
	}
	hooksDir, err := git.HooksDir(root)
	if err != nil {
		return err
	}

	types := uninstallFlags.hookTypes
	for _, t := range types {
		if err := checkInstallable(t); err != nil {
			return err
		}
	}
	if len(types) == 0 {
		types = config.InstallableStages
	}

	for _, t := range types {
		path := filepath.Join(hooksDir, t)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}
		if !strings.Contains(string(data), template.ShimMarker) {
			continue // not ours
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		msg := fmt.Sprintf("%s uninstalled", t)
		if _, err := os.Stat(path + ".legacy"); err == nil {
			if err := os.Rename(path+".legacy", path); err != nil {
				return fmt.Errorf("restore previous hook: %w", err)
			}
			msg += ", previous hook restored"
		}
		fmt.Println(msg)
	}
	return nil
}
