package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-outline/pkg/tree"
)

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration

	// Skip excludes directories from watching. The default skips
	// version control directories.
	Skip func(dir string) bool

	Logger *logrus.Entry
}

// Watcher watches a directory tree and reports the directories whose
// entries changed, once per debounce window.
type Watcher struct {
	root      string
	fsw       *fsnotify.Watcher
	debouncer *Debouncer
	skip      func(string) bool
	onChange  func(dir string)
	log       *logrus.Entry

	mu      sync.Mutex
	pending map[string]struct{}
	flush   chan struct{}
}

func skipVCS(dir string) bool {
	switch filepath.Base(dir) {
	case ".git", ".hg", ".svn":
		return true
	}
	return false
}

// New creates a watcher over root and every directory below it. onChange
// is called from Run for each changed directory.
func New(root string, onChange func(dir string), opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		root:      filepath.Clean(root),
		fsw:       fsw,
		debouncer: NewDebouncer(opts.Debounce),
		skip:      opts.Skip,
		onChange:  onChange,
		log:       opts.Logger,
		pending:   make(map[string]struct{}),
		flush:     make(chan struct{}, 1),
	}
	if w.skip == nil {
		w.skip = skipVCS
	}
	if w.log == nil {
		w.log = tree.DiscardLogger()
	}

	if err := w.addTree(w.root); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("add directories to watcher: %w", err)
	}
	return w, nil
}

// addTree recursively adds dir and its subdirectories.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil // skip unreadable entries
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.skip(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Run processes events until ctx is done. It closes the watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	defer w.debouncer.Cancel()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("watcher error")

		case <-w.flush:
			for _, dir := range w.takePending() {
				w.onChange(dir)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}
	dir := filepath.Dir(event.Name)
	if w.skip(event.Name) || w.skipped(dir) {
		return
	}

	if event.Has(fsnotify.Create) {
		// New directories are not covered by existing watches.
		if err := w.addTree(event.Name); err != nil {
			w.log.WithError(err).WithField("path", event.Name).Debug("not watching new entry")
		}
	}

	w.log.WithFields(logrus.Fields{
		"op":   event.Op.String(),
		"path": event.Name,
	}).Debug("file event")

	w.mu.Lock()
	w.pending[dir] = struct{}{}
	w.mu.Unlock()

	w.debouncer.Trigger(func() {
		select {
		case w.flush <- struct{}{}:
		default:
		}
	})
}

// skipped reports whether dir lies below a skipped directory.
func (w *Watcher) skipped(dir string) bool {
	for d := dir; d != w.root && strings.HasPrefix(d, w.root); d = filepath.Dir(d) {
		if w.skip(d) {
			return true
		}
	}
	return false
}

func (w *Watcher) takePending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	dirs := make([]string, 0, len(w.pending))
	for dir := range w.pending {
		dirs = append(dirs, dir)
	}
	clear(w.pending)
	slices.Sort(dirs)
	return dirs
}
