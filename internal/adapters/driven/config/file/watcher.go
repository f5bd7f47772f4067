package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/workorder-assistant/internal/logger"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher calls onChange after a watched file is written, created or renamed.
// Files are watched through their parent directory because editors often
// replace a file instead of writing it in place. A watched directory reports
// changes to any file inside it.
type Watcher struct {
	fsw      *fsnotify.Watcher
	targets  map[string]bool
	onChange func(path string)
	debounce time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatcher creates a watcher for the given files or directories.
func NewWatcher(onChange func(path string), paths ...string) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("watcher: no paths given")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		targets:  make(map[string]bool, len(paths)),
		onChange: onChange,
		debounce: defaultDebounce,
		timers:   make(map[string]*time.Timer),
	}

	for _, p := range paths {
		p = filepath.Clean(p)
		dir := p
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			dir = filepath.Dir(p)
			w.targets[p] = true
		} else {
			w.targets[p+string(filepath.Separator)] = true
		}
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watcher: watch %s: %w", dir, err)
		}
	}

	return w, nil
}

// Run processes file events until ctx is cancelled, then releases the watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer w.close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if path, ok := w.match(filepath.Clean(event.Name)); ok {
				w.schedule(path)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Error(err, "watcher error")
		}
	}
}

// match maps an event path to the watched target it belongs to.
func (w *Watcher) match(name string) (string, bool) {
	if w.targets[name] {
		return name, true
	}
	dir := filepath.Dir(name) + string(filepath.Separator)
	if w.targets[dir] {
		return filepath.Dir(name), true
	}
	return "", false
}

// schedule coalesces bursts of events for one target into a single callback.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		logger.Info("Reloading %s", path)
		w.onChange(path)
	})
}

func (w *Watcher) close() {
	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.mu.Unlock()
	_ = w.fsw.Close()
}
