package refactor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mamaar/constprop/pkg/analysis"
	"github.com/mamaar/constprop/pkg/types"
)

// RefactorEngine is the entry point used by the CLI, LSP and MCP servers
type RefactorEngine interface {
	// Workspace management
	LoadWorkspace(path string) (*types.Workspace, error)
	Workspace() *types.Workspace
	Refresh(paths ...string) error

	// Queries
	LiteralAt(path string, line, column int) (*types.Literal, error)
	SuggestName(lit *types.Literal) string
	MarkerName(pkg string) string

	// Refactoring
	Propagate(ctx context.Context, cmd types.PropagationCommand) (*types.CommitResult, error)
	Undo(ctx context.Context) (*types.CommitResult, error)
	History() ([]*JournalEntry, error)
}

// DefaultEngine implements RefactorEngine over a parsed workspace. One
// mutex guards the workspace: queries share it, edits hold it exclusively.
type DefaultEngine struct {
	mu         sync.RWMutex
	ws         *types.Workspace
	parser     *analysis.JavaParser
	validator  *Validator
	serializer *Serializer
	journal    *Journal
	config     *EngineConfig
	logger     *zap.Logger
}

// EngineConfig contains configuration options for the refactoring engine
type EngineConfig struct {
	AllowBreaking bool
	Journal       bool // record transactions for undo
	Naming        NamingPolicy
	Filter        *analysis.PathFilter
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() *EngineConfig {
	return &EngineConfig{
		AllowBreaking: false,
		Journal:       true,
		Naming:        DefaultNamingPolicy(),
	}
}

func CreateEngine(logger *zap.Logger) *DefaultEngine {
	return CreateEngineWithConfig(DefaultConfig(), logger)
}

func CreateEngineWithConfig(config *EngineConfig, logger *zap.Logger) *DefaultEngine {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	parser := analysis.NewParser(logger.Named("parser"))
	parser.SetFilter(config.Filter)
	return &DefaultEngine{
		parser:     parser,
		validator:  NewValidator(logger),
		serializer: NewSerializer(logger),
		config:     config,
		logger:     logger,
	}
}

// LoadWorkspace loads and parses a complete workspace
func (e *DefaultEngine) LoadWorkspace(path string) (*types.Workspace, error) {
	ws, err := e.parser.ParseWorkspace(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workspace: %w", err)
	}
	e.mu.Lock()
	e.ws = ws
	e.journal = NewJournal(ws.RootPath)
	e.mu.Unlock()
	return ws, nil
}

// Workspace returns the loaded workspace, nil before LoadWorkspace
func (e *DefaultEngine) Workspace() *types.Workspace {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ws
}

// View runs fn with the workspace held under the read lock. fn must not
// call back into the engine.
func (e *DefaultEngine) View(fn func(ws *types.Workspace)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn(e.ws)
}

// Refresh re-parses changed or removed files. Literals read from the old
// versions become stale.
func (e *DefaultEngine) Refresh(paths ...string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refresh(paths)
}

func (e *DefaultEngine) refresh(paths []string) error {
	if e.ws == nil {
		return errNotLoaded
	}
	var errs []error
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := e.parser.Reparse(e.ws, abs); err != nil {
			e.logger.Warn("reparse failed", zap.String("file", abs), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var errNotLoaded = &types.RefactorError{Type: types.InvalidOperation, Message: "workspace not loaded"}

// LiteralAt returns the literal at a 1-based line and column
func (e *DefaultEngine) LiteralAt(path string, line, column int) (*types.Literal, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.ws == nil {
		return nil, errNotLoaded
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	f, ok := e.ws.LookupFile(abs)
	if !ok {
		return nil, &types.RefactorError{
			Type:    types.SymbolNotFound,
			Message: "file is not part of the workspace",
			File:    abs,
		}
	}
	lit, ok := f.LiteralAt(line, column)
	if !ok {
		return nil, &types.RefactorError{
			Type:    types.SymbolNotFound,
			Message: "no literal at position",
			File:    abs,
			Line:    line,
			Column:  column,
		}
	}
	return lit, nil
}

// SuggestName derives the default constant name. A nil or stale literal
// gets the default field name.
func (e *DefaultEngine) SuggestName(lit *types.Literal) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if lit == nil || (e.ws != nil && e.ws.IsStale(lit)) {
		return e.config.Naming.Derive(nil)
	}
	return e.config.Naming.Derive(lit)
}

// MarkerName returns the interface that holds package-wide constants
func (e *DefaultEngine) MarkerName(pkg string) string {
	return NewWriter(nil).MarkerName(pkg)
}

// Propagate runs one invocation. A stale literal aborts without error and
// a literal without a package or class yields an empty result. With
// cmd.Preview the plan is rendered but nothing is written.
func (e *DefaultEngine) Propagate(ctx context.Context, cmd types.PropagationCommand) (*types.CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return &types.CommitResult{Status: types.Cancelled}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ws == nil {
		return nil, errNotLoaded
	}

	op := &PropagateOperation{Command: cmd, Naming: e.config.Naming}
	if err := op.Validate(e.ws); err != nil {
		return e.settle(err, "propagate operation validation failed")
	}
	plan, err := op.Execute(e.ws)
	if err != nil {
		return e.settle(err, "failed to generate propagation plan")
	}

	res := op.Result
	result := &types.CommitResult{
		Field:     res.FieldName,
		Container: res.Container,
		Reused:    res.Reused,
		Sites:     len(res.Sites),
		Plan:      plan,
	}
	if len(res.Sites) == 0 {
		result.Status = types.Empty
		return result, nil
	}

	if err := e.validator.ValidatePlanWithConfig(plan, e.config); err != nil {
		return nil, planError(err)
	}

	edits, err := e.serializer.Stage(plan.Changes)
	if err != nil {
		return e.settle(err, "failed to stage changes")
	}

	if cmd.Preview {
		result.Status = types.Previewed
		result.Preview, err = e.preview(op, edits)
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		result.Status = types.Cancelled
		return result, nil
	}

	if err := e.serializer.Commit(edits); err != nil {
		return nil, fmt.Errorf("failed to apply changes: %w", err)
	}
	result.Status = types.Committed
	result.AffectedFiles = plan.AffectedFiles

	if e.config.Journal {
		entry, err := e.journal.Record(TransactionName, res.FieldName, res.Container, edits)
		if err != nil {
			e.logger.Warn("journal write failed", zap.Error(err))
		} else {
			result.Transaction = entry.ID
		}
	}

	if err := e.refresh(plan.AffectedFiles); err != nil {
		e.logger.Warn("refresh after commit failed", zap.Error(err))
	}

	e.logger.Info("constant propagated",
		zap.String("field", res.FieldName),
		zap.String("container", res.Container),
		zap.Int("sites", len(res.Sites)),
		zap.Bool("reused", res.Reused),
		zap.String("transaction", result.Transaction))
	return result, nil
}

// settle maps errors that end an invocation quietly to a status
func (e *DefaultEngine) settle(err error, msg string) (*types.CommitResult, error) {
	switch {
	case types.IsStale(err):
		e.logger.Debug("aborting on stale element", zap.Error(err))
		return &types.CommitResult{Status: types.Aborted}, nil
	case types.IsKind(err, types.NoRoot):
		e.logger.Debug("no root for scope", zap.Error(err))
		return &types.CommitResult{Status: types.Empty}, nil
	}
	return nil, fmt.Errorf("%s: %w", msg, err)
}

// planError turns a name clash into a NameConflict error
func planError(err error) error {
	var verr *types.ValidationError
	if errors.As(err, &verr) {
		for _, issue := range verr.Issues {
			if issue.Type == types.IssueNameConflict {
				return &types.RefactorError{
					Type:    types.NameConflict,
					Message: issue.Description,
					File:    issue.File,
					Line:    issue.Line,
					Cause:   err,
				}
			}
		}
	}
	return fmt.Errorf("plan validation failed: %w", err)
}

// preview renders the usage listing followed by a unified diff
func (e *DefaultEngine) preview(op *PropagateOperation, edits []FileEdit) (string, error) {
	res := op.Result
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d occurrence(s) of %s in %s %s\n",
		TransactionName, len(res.Sites), op.Command.Literal.Text, op.Command.Scope.Label(), res.Container)
	for _, site := range res.Sites {
		fmt.Fprintf(&b, "  %s:%d:%d\t%s\n", e.relPath(site.File), site.Line, site.Column, siteLine(e.ws, site))
	}
	if res.Field != nil {
		fmt.Fprintf(&b, "New field: %s\n", res.Field.Declaration())
	} else {
		fmt.Fprintf(&b, "Reusing field: %s\n", res.FieldName)
	}
	for _, issue := range res.Plan.Impact.PotentialIssues {
		fmt.Fprintf(&b, "%s: %s\n", issue.Severity, issue.Description)
	}
	b.WriteString("\n")
	diff, err := e.serializer.Diff(edits, e.ws.RootPath)
	if err != nil {
		return "", err
	}
	b.WriteString(diff)
	return b.String(), nil
}

func (e *DefaultEngine) relPath(path string) string {
	if rel, err := filepath.Rel(e.ws.RootPath, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

// siteLine returns the trimmed source line holding a literal
func siteLine(ws *types.Workspace, lit *types.Literal) string {
	f, ok := ws.LookupFile(lit.File)
	if !ok {
		return lit.Text
	}
	src := f.Content
	start := lit.Start
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	return strings.TrimSpace(string(src[start:lineEnd(src, lit.Start)]))
}

// Undo restores the files of the newest journaled transaction. Files
// changed since that transaction abort the undo.
func (e *DefaultEngine) Undo(ctx context.Context) (*types.CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return &types.CommitResult{Status: types.Cancelled}, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ws == nil {
		return nil, errNotLoaded
	}

	entry, err := e.journal.Last()
	if err != nil {
		return nil, fmt.Errorf("reading undo history: %w", err)
	}
	if entry == nil {
		return &types.CommitResult{Status: types.Empty}, nil
	}

	var paths []string
	for _, edit := range entry.Files {
		current, err := os.ReadFile(edit.Path)
		if err != nil || string(current) != edit.After {
			e.logger.Info("undo aborted, file changed since transaction",
				zap.String("file", edit.Path), zap.String("transaction", entry.ID))
			return &types.CommitResult{Status: types.Aborted, Transaction: entry.ID}, nil
		}
		paths = append(paths, edit.Path)
	}

	if err := e.serializer.Revert(entry.Files); err != nil {
		return nil, fmt.Errorf("failed to undo %s: %w", entry.ID, err)
	}
	if err := e.journal.Remove(entry); err != nil {
		return nil, err
	}
	if err := e.refresh(paths); err != nil {
		e.logger.Warn("refresh after undo failed", zap.Error(err))
	}

	e.logger.Info("transaction undone", zap.String("transaction", entry.ID))
	return &types.CommitResult{
		Status:        types.Committed,
		Transaction:   entry.ID,
		Field:         entry.Field,
		Container:     entry.Container,
		AffectedFiles: paths,
	}, nil
}

// History lists journaled transactions, oldest first
func (e *DefaultEngine) History() ([]*JournalEntry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.journal == nil {
		return nil, errNotLoaded
	}
	return e.journal.List()
}
