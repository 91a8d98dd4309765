// Package procgroup spawns hook processes in their own process group so
// a timeout or interrupt tears down the whole tree, not just the direct
// child. Checkers routinely fork (npm wrappers, shell entries), and an
// orphaned grandchild would keep writing to the working tree after latch
// has moved on.
package procgroup

import (
	"os/exec"
	"time"
)

// Set configures cmd to start as a process group leader. Must be called
// before cmd.Start for KillGroup to reach the full tree.
func Set(cmd *exec.Cmd) {
	set(cmd)
}

// KillGroup terminates the process group led by pid: SIGTERM first, then
// SIGKILL for anything still alive after the grace period. The caller
// keeps ownership of cmd.Wait; KillGroup only signals.
func KillGroup(pid int, grace time.Duration) error {
	return killGroup(pid, grace)
}
