package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamaar/constprop/internal/config"
	"github.com/mamaar/constprop/pkg/inspection"
	"github.com/mamaar/constprop/pkg/refactor"
	"github.com/mamaar/constprop/pkg/watch"
)

// State holds what the MCP tool handlers share: a loaded workspace, its
// engine and inspector, and an optional watcher that re-parses files
// changed on disk.
type State struct {
	mu        sync.RWMutex
	engine    *refactor.DefaultEngine
	inspector *inspection.Inspector
	root      string
	watch     bool
	cancel    context.CancelFunc // stops the watcher goroutines
	watcher   *watch.Watcher
	logger    *zap.Logger
}

// NewState creates tool state. With watch set, every loaded workspace is
// kept in sync with the filesystem.
func NewState(watchFiles bool, logger *zap.Logger) *State {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &State{watch: watchFiles, logger: logger}
}

// LoadWorkspace loads (or reloads) the workspace at path with the
// configuration found under it.
func (s *State) LoadWorkspace(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	cfg, err := config.LoadConfigFromDir(abs)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ec, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	ec.AllowBreaking = false

	engine := refactor.CreateEngineWithConfig(ec, s.logger.Named("engine"))
	ws, err := engine.LoadWorkspace(abs)
	if err != nil {
		return fmt.Errorf("load workspace: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.engine = engine
	s.inspector = inspection.NewInspector(cfg.AutoSettings(), cfg.NamingPolicy(), s.logger.Named("inspection"))
	s.root = abs
	s.logger.Info("workspace loaded", zap.String("root", abs), zap.String("stats", ws.Stats()))

	if !s.watch {
		return nil
	}
	w, err := watch.NewWatcher(abs, 200*time.Millisecond, ec.Filter.SkipDir, s.logger.Named("watch"))
	if err != nil {
		s.logger.Warn("watcher unavailable, workspace will not auto-update", zap.Error(err))
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.watcher, s.cancel = w, cancel

	ch := make(chan []watch.ChangeEvent, 4)
	go func() {
		if err := w.Run(ctx, ch); err != nil && ctx.Err() == nil {
			s.logger.Error("watcher error", zap.Error(err))
		}
	}()
	go watch.NewUpdater(engine, nil, s.logger.Named("watch")).Run(ctx, ch)
	return nil
}

// Engine returns the engine and inspector of the loaded workspace
func (s *State) Engine() (*refactor.DefaultEngine, *inspection.Inspector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.engine == nil {
		return nil, nil, fmt.Errorf("no workspace loaded, call load_workspace first")
	}
	return s.engine, s.inspector, nil
}

// Resolve makes a tool path absolute against the workspace root
func (s *State) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filepath.Join(s.root, path)
}

// Rel makes a path relative to the workspace root for output
func (s *State) Rel(path string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rel, err := filepath.Rel(s.root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

// Close stops the watcher and releases resources.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *State) stopLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.watcher != nil {
		_ = s.watcher.Close()
		s.watcher = nil
	}
}
