package watch

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// SourceExt is the extension of watched files
const SourceExt = ".java"

// ChangeEvent represents a single filesystem change to a Java source file.
type ChangeEvent struct {
	Path string
	Op   fsnotify.Op
}

// Removed reports whether the file is gone
func (ev ChangeEvent) Removed() bool {
	return ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0
}

// Watcher watches a workspace for .java file changes and emits debounced batches.
type Watcher struct {
	rootPath string
	debounce time.Duration
	skipDir  func(rel string) bool
	logger   *zap.Logger
	fsw      *fsnotify.Watcher
}

// NewWatcher creates a Watcher that recursively watches rootPath for .java
// file changes. Hidden directories and build output are skipped, as is any
// directory skipDir rejects.
func NewWatcher(rootPath string, debounce time.Duration, skipDir func(rel string) bool, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		rootPath: rootPath,
		debounce: debounce,
		skipDir:  skipDir,
		logger:   logger,
		fsw:      fsw,
	}

	if err := w.addDirs(); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return w, nil
}

// addDirs walks rootPath and adds every directory that may hold sources.
func (w *Watcher) addDirs() error {
	return filepath.WalkDir(w.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.rootPath && w.skip(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) skip(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || name == "build" || name == "target" || name == "out" {
		return true
	}
	if w.skipDir == nil {
		return false
	}
	rel, err := filepath.Rel(w.rootPath, path)
	if err != nil {
		return false
	}
	return w.skipDir(filepath.ToSlash(rel))
}

// Run is the main event loop. It reads fsnotify events, filters for .java
// files, debounces rapid edits, and sends batched ChangeEvents to out sorted
// by path. It blocks until ctx is cancelled or the fsnotify channels close.
func (w *Watcher) Run(ctx context.Context, out chan<- []ChangeEvent) error {
	pending := make(map[string]fsnotify.Op)
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.accept(ev) {
				pending[ev.Name] |= ev.Op
				timer.Reset(w.debounce)
			}
			if ev.Op&fsnotify.Create != 0 && !w.skip(ev.Name) {
				w.maybeAddDir(ev.Name)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("fsnotify error", zap.Error(err))

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := make([]ChangeEvent, 0, len(pending))
			for p, op := range pending {
				batch = append(batch, ChangeEvent{Path: p, Op: op})
			}
			sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
			pending = make(map[string]fsnotify.Op)

			select {
			case out <- batch:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Close shuts down the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) accept(ev fsnotify.Event) bool {
	if !strings.HasSuffix(ev.Name, SourceExt) {
		return false
	}
	return ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}

// maybeAddDir adds path to the watch set if it is a directory.
func (w *Watcher) maybeAddDir(path string) {
	if err := w.fsw.Add(path); err != nil {
		w.logger.Debug("could not add to watch", zap.String("path", path), zap.Error(err))
	}
}
