package corpus

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	gitignore "github.com/sabhiram/go-gitignore"
)

// DefaultDebounce batches bursts of file events before notifying.
const DefaultDebounce = 500 * time.Millisecond

// ChangeCallback receives the batch of paths (relative to the watched
// root) that changed since the previous callback.
type ChangeCallback func(paths []string)

// Watcher reports corpus changes so callers can re-ingest. Events inside
// the debounce window are coalesced; ignored paths never surface.
type Watcher struct {
	root     string
	matcher  *gitignore.GitIgnore
	debounce time.Duration
	callback ChangeCallback
	fsw      *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]struct{}

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWatcher prepares a watcher over root using the same ignore rules as
// Discover. Call Start to begin receiving events.
func NewWatcher(root string, opts Options, cb ChangeCallback) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root:     absRoot,
		matcher:  buildIgnoreMatcher(absRoot, opts.IgnorePatterns),
		debounce: DefaultDebounce,
		callback: cb,
		fsw:      fsw,
		pending:  make(map[string]struct{}),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start registers the directory tree and launches event processing. It
// returns once registration is complete.
func (w *Watcher) Start(ctx context.Context) error {
	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.root, p)
		if err == nil && rel != "." && w.matcher.MatchesPath(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
	if err != nil {
		_ = w.fsw.Close()
		return err
	}

	go w.run(ctx)
	return nil
}

// Stop halts event processing and releases the underlying watcher.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	<-w.doneCh
	return w.fsw.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("corpus watcher: %v", err)

		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if w.matcher.MatchesPath(rel) {
		return
	}

	// New directories must be registered to see their files.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.fsw.Add(event.Name)
			return
		}
	}

	w.mu.Lock()
	w.pending[rel] = struct{}{}
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	if w.callback != nil {
		w.callback(paths)
	}
}
