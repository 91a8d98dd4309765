// Package watch re-runs the hook pipeline when files under the
// repository change. Raw fsnotify events are filtered through
// .gitignore and folded into debounced batches of changed paths, so
// editor noise in ignored trees never triggers a run.
package watch

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mark3labs/latch/internal/logger"
)

// debounceInterval is how long the tree must stay quiet before a batch
// of changed paths is emitted. Editors that write-then-rename settle
// well inside this window.
const debounceInterval = 300 * time.Millisecond

// Watcher turns filesystem events into sorted batches of changed
// repository-relative paths.
type Watcher struct {
	fs      *fsnotify.Watcher
	root    string
	ignore  *ignoreSet
	batches chan []string

	mu      sync.Mutex
	pending map[string]struct{}

	done    chan struct{}
	stopped chan struct{}
}

// New creates a watcher rooted at the repository top level. exclude
// lists directory names that never trigger runs regardless of
// .gitignore, such as .git and the latch cache.
func New(root string, exclude []string) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fs:      fs,
		root:    root,
		ignore:  loadIgnores(root, exclude),
		batches: make(chan []string, 1),
		pending: make(map[string]struct{}),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}, nil
}

// Start walks the tree, registers watches for every non-ignored
// directory and begins emitting batches.
func (w *Watcher) Start() error {
	if err := w.addRecursive(w.root); err != nil {
		w.fs.Close()
		return err
	}
	go w.loop()
	logger.Info("watching %s (%d ignore rules)", w.root, len(w.ignore.rules))
	return nil
}

// Batches delivers sorted changed-path sets, one per quiet period. When
// the consumer is still busy as the next batch falls due, the change
// sets coalesce.
func (w *Watcher) Batches() <-chan []string { return w.batches }

// Stop shuts the event loop down and releases the watches.
func (w *Watcher) Stop() error {
	close(w.done)
	<-w.stopped
	return w.fs.Close()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(w.root, path)
		if relErr == nil && rel != "." && w.ignore.Ignored(filepath.ToSlash(rel), true) {
			return filepath.SkipDir
		}

		if err := w.fs.Add(path); err != nil {
			logger.Warn("watch %s: %v", path, err)
			if strings.Contains(err.Error(), "no space left on device") ||
				strings.Contains(err.Error(), "too many open files") {
				logger.Error("inotify watch limit reached; raise fs.inotify.max_user_watches")
				return filepath.SkipDir
			}
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer close(w.stopped)

	debounce := time.NewTimer(debounceInterval)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.track(ev) {
				debounce.Reset(debounceInterval)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logger.Warn("watch: %v", err)

		case <-debounce.C:
			w.flush(debounce)
		}
	}
}

// track records a relevant event and reports whether the debounce timer
// should be re-armed.
func (w *Watcher) track(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return false
	}

	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)

	isDir := false
	if info, statErr := os.Stat(ev.Name); statErr == nil {
		isDir = info.IsDir()
	}
	if w.ignore.Ignored(rel, isDir) {
		return false
	}

	// New directories join the watch set but are not changes themselves.
	if ev.Has(fsnotify.Create) && isDir {
		if err := w.addRecursive(ev.Name); err != nil {
			logger.Warn("watch new dir %s: %v", ev.Name, err)
		}
		return false
	}

	w.mu.Lock()
	w.pending[rel] = struct{}{}
	w.mu.Unlock()
	return true
}

// flush emits the pending set. When the previous batch has not been
// drained yet the paths fold back into pending and the timer re-arms.
func (w *Watcher) flush(debounce *time.Timer) {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := make([]string, 0, len(w.pending))
	for p := range w.pending {
		batch = append(batch, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	sort.Strings(batch)
	select {
	case w.batches <- batch:
	default:
		w.mu.Lock()
		for _, p := range batch {
			w.pending[p] = struct{}{}
		}
		w.mu.Unlock()
		debounce.Reset(debounceInterval)
	}
}
