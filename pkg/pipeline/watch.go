package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/fsnotify.v1"
)

// DefaultDebounce is how long a file must stay quiet before it is reported.
const DefaultDebounce = 500 * time.Millisecond

// XMLWatcher reports law XML files under a directory tree that are created
// or rewritten. Bursts of events on one file are coalesced.
type XMLWatcher struct {
	dir      string
	debounce time.Duration
	logger   *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]time.Time
}

// NewXMLWatcher creates a watcher over dir. A zero debounce uses
// DefaultDebounce.
func NewXMLWatcher(dir string, debounce time.Duration, logger *slog.Logger) *XMLWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &XMLWatcher{
		dir:      dir,
		debounce: debounce,
		logger:   logger,
		pending:  make(map[string]time.Time),
	}
}

// Run watches until ctx is done, calling onChange with the settled paths,
// relative to the directory and sorted. An error from onChange stops the
// watch.
func (w *XMLWatcher) Run(ctx context.Context, onChange func(ctx context.Context, files []string) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()
	if err := w.addTree(watcher, w.dir, false); err != nil {
		return err
	}

	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(watcher, event.Name, true); err != nil {
						w.logger.Warn("xml watcher error", slog.String("error", err.Error()))
					}
					continue
				}
			}
			if !strings.HasSuffix(event.Name, ".xml") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.touch(event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("xml watcher error", slog.String("error", err.Error()))

		case now := <-ticker.C:
			files := w.settled(now)
			if len(files) == 0 {
				continue
			}
			w.logger.Info("xml files changed", slog.Int("files", len(files)))
			if err := onChange(ctx, files); err != nil {
				return err
			}
		}
	}
}

// addTree watches root and every directory below it. fsnotify does not
// recurse. For a directory created while running, XML files already written
// into it before the watch was added are marked pending.
func (w *XMLWatcher) addTree(watcher *fsnotify.Watcher, root string, created bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("watching directory %s: %w", path, err)
			}
			return nil
		}
		if created && strings.HasSuffix(path, ".xml") {
			w.touch(path)
		}
		return nil
	})
}

func (w *XMLWatcher) touch(path string) {
	w.pendingMu.Lock()
	w.pending[path] = time.Now()
	w.pendingMu.Unlock()
}

// settled removes and returns the pending files that have been quiet for
// the debounce interval.
func (w *XMLWatcher) settled(now time.Time) []string {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	var files []string
	for path, at := range w.pending {
		if now.Sub(at) < w.debounce {
			continue
		}
		delete(w.pending, path)
		rel, err := filepath.Rel(w.dir, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		files = append(files, filepath.ToSlash(rel))
	}
	sort.Strings(files)
	return files
}
