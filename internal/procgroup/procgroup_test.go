package procgroup

import (
	"os/exec"
	"runtime"
	"testing"
	"time"
)

func TestKillGroup(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("process groups not supported on windows")
	}

	// A shell that spawns a child; killing the group must take down both.
	cmd := exec.Command("sh", "-c", "sleep 30 & wait")
	Set(cmd)
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	// Give the shell a moment to fork its child.
	time.Sleep(100 * time.Millisecond)

	if err := KillGroup(cmd.Process.Pid, 500*time.Millisecond); err != nil {
		t.Fatalf("KillGroup: %v", err)
	}

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected non-nil error from killed process")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("process group not terminated")
	}
}

func TestKillGroup_InvalidPid(t *testing.T) {
	if err := KillGroup(0, time.Millisecond); err != nil {
		t.Errorf("KillGroup(0) = %v, want nil", err)
	}
	if err := KillGroup(-1, time.Millisecond); err != nil {
		t.Errorf("KillGroup(-1) = %v, want nil", err)
	}
}

func TestKillGroup_AlreadyExited(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("process groups not supported on windows")
	}

	cmd := exec.Command("true")
	Set(cmd)
	if err := cmd.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	if err := KillGroup(cmd.Process.Pid, 100*time.Millisecond); err != nil {
		t.Errorf("KillGroup on exited process = %v, want nil", err)
	}
}
