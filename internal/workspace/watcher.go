package workspace

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must be quiet before its change is
// reported.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports workspace file changes, debounced per path so editor save
// bursts collapse into one notification.
type Watcher struct {
	ws       *Workspace
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func(paths []string)

	mu      sync.Mutex
	pending map[string]time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWatcher creates a watcher over the workspace. onChange receives
// root-relative paths of settled changes; it runs on the watcher goroutine.
func NewWatcher(ws *Workspace, debounce time.Duration, onChange func(paths []string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		ws:       ws,
		watcher:  fsw,
		debounce: debounce,
		onChange: onChange,
		pending:  make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch registers the workspace tree and starts the event loops.
func (w *Watcher) Watch() error {
	if err := w.addRecursive(w.ws.Root()); err != nil {
		return err
	}
	go w.processEvents()
	go w.flushLoop()
	return nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if ignoredDirs[info.Name()] {
			return filepath.SkipDir
		}
		// Individual add failures are non-fatal; the rest of the tree is
		// still watched.
		_ = w.watcher.Add(path)
		return nil
	})
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.mark(event.Name)
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addRecursive(event.Name)
				}
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// mark records a path as dirty if it's a file kind the workspace tracks.
func (w *Watcher) mark(path string) {
	if _, ok := extLanguages[filepath.Ext(path)]; !ok {
		return
	}
	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flushLoop() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if settled := w.takeSettled(time.Now()); len(settled) > 0 {
				for _, p := range settled {
					_ = w.ws.Refresh(p)
				}
				if w.onChange != nil {
					w.onChange(settled)
				}
			}
		}
	}
}

// takeSettled drains paths that have been quiet for the debounce window and
// returns them root-relative.
func (w *Watcher) takeSettled(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var settled []string
	for path, changed := range w.pending {
		if now.Sub(changed) < w.debounce {
			continue
		}
		delete(w.pending, path)
		rel, err := filepath.Rel(w.ws.Root(), path)
		if err != nil {
			continue
		}
		settled = append(settled, filepath.ToSlash(rel))
	}
	return settled
}
