package watch

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Refresher re-parses changed files. The constprop engine implements it.
type Refresher interface {
	Refresh(paths ...string) error
}

// WorkspaceUpdater feeds change batches into a Refresher so that literals
// held by front ends go stale when their file changes.
type WorkspaceUpdater struct {
	target   Refresher
	onChange func(paths []string)
	logger   *zap.Logger
}

// NewUpdater creates a WorkspaceUpdater. onChange, if set, is called after
// each refreshed batch, for example to republish diagnostics.
func NewUpdater(target Refresher, onChange func(paths []string), logger *zap.Logger) *WorkspaceUpdater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkspaceUpdater{target: target, onChange: onChange, logger: logger}
}

// HandleChanges processes a batch of file-change events.
func (u *WorkspaceUpdater) HandleChanges(events []ChangeEvent) {
	if len(events) == 0 {
		return
	}
	start := time.Now()

	paths := make([]string, 0, len(events))
	removed := 0
	for _, ev := range events {
		paths = append(paths, ev.Path)
		if ev.Removed() {
			removed++
		}
	}

	if err := u.target.Refresh(paths...); err != nil {
		u.logger.Warn("refresh failed", zap.Error(err))
	}
	if u.onChange != nil {
		u.onChange(paths)
	}

	u.logger.Info("batch complete",
		zap.Int("files", len(paths)),
		zap.Int("removed", removed),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
	)
}

// Run consumes batches from in until ctx is cancelled or in is closed.
func (u *WorkspaceUpdater) Run(ctx context.Context, in <-chan []ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-in:
			if !ok {
				return
			}
			u.HandleChanges(batch)
		}
	}
}
