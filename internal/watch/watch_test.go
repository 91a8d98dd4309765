package watch

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func startWatcher(t *testing.T, dir string, exclude []string) *Watcher {
	t.Helper()
	w, err := New(dir, exclude)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { w.Stop() })
	return w
}

func waitBatch(t *testing.T, w *Watcher) []string {
	t.Helper()
	select {
	case batch := <-w.Batches():
		return batch
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a change batch")
		return nil
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcherEmitsDebouncedBatch(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, []string{".git"})

	writeFile(t, dir, "a.go", "package a")
	writeFile(t, dir, "b.go", "package b")

	batch := waitBatch(t, w)
	if !slices.Contains(batch, "a.go") || !slices.Contains(batch, "b.go") {
		t.Errorf("batch = %v, want both a.go and b.go", batch)
	}
	if !slices.IsSorted(batch) {
		t.Errorf("batch not sorted: %v", batch)
	}
}

func TestWatcherIgnoresFilteredPaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "*.log\n")
	gitDir := filepath.Join(dir, ".git")
	if err := os.MkdirAll(gitDir, 0o755); err != nil {
		t.Fatal(err)
	}

	w := startWatcher(t, dir, []string{".git"})

	if err := os.WriteFile(filepath.Join(gitDir, "HEAD"), []byte("ref: refs/heads/main"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "debug.log", "noise")
	writeFile(t, dir, "main.go", "package main")

	batch := waitBatch(t, w)
	for _, p := range batch {
		if filepath.Ext(p) == ".log" {
			t.Errorf("gitignored file in batch: %s", p)
		}
		if p == ".git" || filepath.Dir(p) == ".git" {
			t.Errorf("excluded .git path in batch: %s", p)
		}
	}
	if !slices.Contains(batch, "main.go") {
		t.Errorf("batch = %v, want main.go", batch)
	}
}

func TestWatcherPicksUpNewDirectories(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, nil)

	subDir := filepath.Join(dir, "internal")
	if err := os.MkdirAll(subDir, 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the event loop time to register the new directory.
	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(subDir, "handler.go"), []byte("package internal"), 0o644); err != nil {
		t.Fatal(err)
	}

	batch := waitBatch(t, w)
	if !slices.Contains(batch, "internal/handler.go") {
		t.Errorf("batch = %v, want internal/handler.go", batch)
	}
}

func TestWatcherCoalescesWhileConsumerBusy(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, nil)

	writeFile(t, dir, "one.txt", "1")
	// Let the first batch land in the buffer, then change more without
	// draining it.
	time.Sleep(600 * time.Millisecond)
	writeFile(t, dir, "two.txt", "2")
	time.Sleep(600 * time.Millisecond)

	first := waitBatch(t, w)
	if !slices.Contains(first, "one.txt") {
		t.Errorf("first batch = %v, want one.txt", first)
	}

	second := waitBatch(t, w)
	if !slices.Contains(second, "two.txt") {
		t.Errorf("second batch = %v, want two.txt", second)
	}
}
