// Package watch reruns a release when project sources change.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lngkit/sparkrelease/pkg/logger"
)

// DefaultSettlingDelay is used when New is given a non-positive delay.
const DefaultSettlingDelay = 300 * time.Millisecond

// TriggerFunc is called once per settled batch of changes.
type TriggerFunc func(ctx context.Context, changed []string)

// Watcher batches filesystem events under a set of roots
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   logger.Logger
	settling time.Duration

	mu       sync.RWMutex
	roots    map[string]bool
	files    map[string]bool
	excluded []string
	ignore   *IgnoreMatcher
}

// New creates a watcher that waits for settling without new events before
// triggering.
func New(log logger.Logger, settling time.Duration) (*Watcher, error) {
	if log == nil {
		log = logger.Discard()
	}
	if settling <= 0 {
		settling = DefaultSettlingDelay
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher:  fw,
		logger:   log,
		settling: settling,
		roots:    make(map[string]bool),
		files:    make(map[string]bool),
	}, nil
}

// Close stops the underlying watcher
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Exclude ignores events at or below each of dirs.
func (w *Watcher) Exclude(dirs ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, d := range dirs {
		w.excluded = append(w.excluded, filepath.Clean(d))
	}
}

// Ignore drops events for files matching any of patterns.
func (w *Watcher) Ignore(patterns ...string) error {
	m, err := NewIgnoreMatcher(patterns)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.ignore = m
	w.mu.Unlock()
	return nil
}

// Add watches each path. Directories are watched recursively, files through
// their parent directory. Paths that do not exist are skipped.
func (w *Watcher) Add(paths ...string) error {
	for _, p := range paths {
		p = filepath.Clean(p)
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			w.logger.Debug("Watch path does not exist, skipping", logger.WithField("path", p))
			continue
		}
		if err != nil {
			return err
		}

		if !info.IsDir() {
			if err := w.watcher.Add(filepath.Dir(p)); err != nil {
				return fmt.Errorf("failed to watch %s: %w", p, err)
			}
			w.mu.Lock()
			w.files[p] = true
			w.mu.Unlock()
			continue
		}

		if err := w.addDirectory(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		w.mu.Lock()
		w.roots[p] = true
		w.mu.Unlock()
	}
	return nil
}

// addDirectory adds dir and every subdirectory
func (w *Watcher) addDirectory(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.isExcluded(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn(fmt.Sprintf("Failed to watch directory %s: %v", path, err))
			return nil
		}
		w.logger.Debug(fmt.Sprintf("Watching directory: %s", path))
		return nil
	})
}

// Watched returns every directory registered with fsnotify.
func (w *Watcher) Watched() []string {
	list := w.watcher.WatchList()
	sort.Strings(list)
	return list
}

// Run delivers settled batches to trigger until ctx is canceled. Trigger runs
// on the event loop, so changes made while it runs form the next batch.
func (w *Watcher) Run(ctx context.Context, trigger TriggerFunc) error {
	pending := make(map[string]bool)
	timer := time.NewTimer(w.settling)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event.Name) {
				continue
			}

			// New directories must be watched to see their contents.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addDirectory(event.Name); err != nil {
						w.logger.Warn(fmt.Sprintf("Failed to watch directory %s: %v", event.Name, err))
					}
				}
			}

			pending[event.Name] = true
			timer.Reset(w.settling)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			pending = make(map[string]bool)

			w.logger.Info("Change detected", logger.WithField("files", len(changed)))
			trigger(ctx, changed)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error(fmt.Sprintf("Watcher error: %v", err))
		}
	}
}

// relevant reports whether path is a watched file or below a watched root.
func (w *Watcher) relevant(path string) bool {
	if w.isExcluded(path) {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.ignore != nil && w.ignore.Match(path) {
		return false
	}
	if w.files[path] {
		return true
	}
	for root := range w.roots {
		if within(root, path) {
			return true
		}
	}
	return false
}

func (w *Watcher) isExcluded(path string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, dir := range w.excluded {
		if within(dir, path) {
			return true
		}
	}
	switch filepath.Base(path) {
	case ".git", "node_modules":
		return true
	}
	return false
}

func within(root, path string) bool {
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}
