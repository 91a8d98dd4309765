package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mark3labs/latch/internal/logger"
	"github.com/mark3labs/latch/internal/procgroup"
)

// killGrace is how long a hook's process group gets between SIGTERM and
// SIGKILL when a run is interrupted.
const killGrace = 2 * time.Second

// runCommand executes argv in dir with the given environment and returns
// the exit code plus combined stdout/stderr. A non-zero exit is not an
// error; errors mean the process could not run at all or the context was
// canceled.
func runCommand(ctx context.Context, argv []string, dir string, env []string) (int, []byte, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = env

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	procgroup.Set(cmd)

	logger.Debug("Executing: %s", strings.Join(argv, " "))
	if err := cmd.Start(); err != nil {
		return -1, nil, err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err == nil {
			return 0, buf.Bytes(), nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), buf.Bytes(), nil
		}
		return -1, buf.Bytes(), err
	case <-ctx.Done():
		if err := procgroup.KillGroup(cmd.Process.Pid, killGrace); err != nil {
			logger.Warn("Failed to kill process group %d: %v", cmd.Process.Pid, err)
		}
		<-done
		return -1, buf.Bytes(), ctx.Err()
	}
}

// withPathPrefix returns env with dirs prepended to its PATH entry.
func withPathPrefix(env []string, dirs []string) []string {
	if len(dirs) == 0 {
		return env
	}
	sep := string(os.PathListSeparator)
	out := make([]string, 0, len(env)+1)
	found := false
	for _, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			out = append(out, "PATH="+strings.Join(dirs, sep)+sep+kv[len("PATH="):])
			found = true
			continue
		}
		out = append(out, kv)
	}
	if !found {
		out = append(out, "PATH="+strings.Join(dirs, sep))
	}
	return out
}
