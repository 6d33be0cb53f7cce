package lsp

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamaar/constprop/pkg/inspection"
	"github.com/mamaar/constprop/pkg/types"
)

func (s *Server) handleTextDocumentDidOpen(ctx context.Context, message *Message) (*Message, error) {
	var params DidOpenTextDocumentParams
	if err := json.Unmarshal(message.Params, &params); err != nil {
		return nil, err
	}
	path := uriToPath(params.TextDocument.URI)

	s.mu.Lock()
	s.docs[path] = &document{version: params.TextDocument.Version}
	s.mu.Unlock()

	s.publishDiagnostics(path)
	s.startAuto(ctx, path)
	return nil, nil
}

func (s *Server) handleTextDocumentDidChange(message *Message) (*Message, error) {
	var params DidChangeTextDocumentParams
	if err := json.Unmarshal(message.Params, &params); err != nil {
		return nil, err
	}
	path := uriToPath(params.TextDocument.URI)

	s.mu.Lock()
	if doc, ok := s.docs[path]; ok {
		doc.version = params.TextDocument.Version
		doc.dirty = true
	}
	s.mu.Unlock()
	return nil, nil
}

// handleTextDocumentDidSave re-parses the saved file. Literals taken from
// the previous version become stale.
func (s *Server) handleTextDocumentDidSave(ctx context.Context, message *Message) (*Message, error) {
	var params DidSaveTextDocumentParams
	if err := json.Unmarshal(message.Params, &params); err != nil {
		return nil, err
	}
	path := uriToPath(params.TextDocument.URI)

	s.mu.Lock()
	if doc, ok := s.docs[path]; ok {
		doc.dirty = false
	}
	s.mu.Unlock()

	engine, _, ok := s.ready()
	if !ok {
		return nil, nil
	}
	if err := engine.Refresh(path); err != nil {
		s.logger.Warn("refresh failed", zap.String("file", path), zap.Error(err))
	}
	s.publishDiagnostics(path)
	s.startAuto(ctx, path)
	return nil, nil
}

func (s *Server) handleTextDocumentDidClose(message *Message) (*Message, error) {
	var params DidCloseTextDocumentParams
	if err := json.Unmarshal(message.Params, &params); err != nil {
		return nil, err
	}
	path := uriToPath(params.TextDocument.URI)

	s.mu.Lock()
	delete(s.docs, path)
	s.mu.Unlock()
	return nil, s.notify("textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []Diagnostic{},
	})
}

func (s *Server) isOpen(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[path]
	return ok
}

func (s *Server) isDirty(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[path]
	return ok && doc.dirty
}

// publishDiagnostics reports every qualifying literal of a file
func (s *Server) publishDiagnostics(path string) {
	engine, inspector, ok := s.ready()
	if !ok {
		return
	}
	diags := []Diagnostic{}
	engine.View(func(ws *types.Workspace) {
		f, ok := ws.LookupFile(path)
		if !ok {
			return
		}
		for _, finding := range inspector.InspectFile(f, nil) {
			diags = append(diags, diagnosticFor(f, finding))
		}
	})
	err := s.notify("textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         pathToURI(path),
		Diagnostics: diags,
	})
	if err != nil {
		s.logger.Warn("failed to publish diagnostics", zap.String("file", path), zap.Error(err))
	}
}

func (s *Server) handleTextDocumentCodeAction(message *Message) (*Message, error) {
	var params CodeActionParams
	if err := json.Unmarshal(message.Params, &params); err != nil {
		return s.errorResponse(message.ID, CodeInvalidParams, "Invalid params", err.Error())
	}
	actions := []CodeAction{}
	if !wantsKind(params.Context.Only, KindExtractConstant) {
		return s.successResponse(message.ID, actions)
	}

	path := uriToPath(params.TextDocument.URI)
	engine, inspector, ok := s.ready()
	if !ok || s.isDirty(path) {
		return s.successResponse(message.ID, actions)
	}

	lit, pos, err := s.literalAt(path, params.Range.Start)
	if err != nil {
		s.logger.Debug("no literal for code action", zap.String("file", path), zap.Error(err))
		return s.successResponse(message.ID, actions)
	}
	fix := inspection.QuickFix{
		Literal: lit,
		Name:    engine.SuggestName(lit),
		Scope:   inspector.Settings().Scope,
	}
	qualifies, _ := inspector.Qualifies(lit)
	actions = extractActions(params.TextDocument.URI, pos, fix, matchingDiagnostics(params.Context.Diagnostics, pos), qualifies)
	return s.successResponse(message.ID, actions)
}

// literalAt resolves an LSP position to the literal it falls in and the
// position of that literal's first character
func (s *Server) literalAt(path string, p Position) (*types.Literal, Position, error) {
	engine, _, ok := s.ready()
	if !ok {
		return nil, Position{}, &types.RefactorError{Type: types.InvalidOperation, Message: "workspace not loaded"}
	}
	var (
		lit   *types.Literal
		start Position
		err   error
	)
	engine.View(func(ws *types.Workspace) {
		f, found := ws.LookupFile(path)
		if !found {
			err = &types.RefactorError{Type: types.SymbolNotFound, Message: "file is not part of the workspace", File: path}
			return
		}
		l, found := f.LiteralAtOffset(positionToOffset(f.Content, p))
		if !found {
			err = &types.RefactorError{Type: types.SymbolNotFound, Message: "no literal at position", File: path, Line: p.Line + 1, Column: p.Character + 1}
			return
		}
		lit = l
		start = offsetToPosition(f.Content, l.Start)
	})
	return lit, start, err
}

// CommandArgs is the single argument of constprop commands
type CommandArgs struct {
	URI      string   `json:"uri"`
	Position Position `json:"position"`
	Scope    string   `json:"scope,omitempty"`
	Name     string   `json:"name,omitempty"`
}

// CommandResult is returned from workspace/executeCommand
type CommandResult struct {
	Status      string   `json:"status"`
	Field       string   `json:"field,omitempty"`
	Container   string   `json:"container,omitempty"`
	Sites       int      `json:"sites"`
	Transaction string   `json:"transaction,omitempty"`
	Files       []string `json:"files,omitempty"`
}

func (s *Server) handleExecuteCommand(ctx context.Context, message *Message) (*Message, error) {
	var params ExecuteCommandParams
	if err := json.Unmarshal(message.Params, &params); err != nil || len(params.Arguments) == 0 {
		return s.errorResponse(message.ID, CodeInvalidParams, "Invalid params", nil)
	}
	var args CommandArgs
	if err := json.Unmarshal(params.Arguments[0], &args); err != nil {
		return s.errorResponse(message.ID, CodeInvalidParams, "Invalid command arguments", err.Error())
	}

	engine, inspector, ok := s.ready()
	if !ok {
		return s.errorResponse(message.ID, CodeRequestFailed, "workspace not loaded", nil)
	}
	lit, _, err := s.literalAt(uriToPath(args.URI), args.Position)
	if err != nil {
		return s.failed(message.ID, err)
	}
	scope := inspector.Settings().Scope
	if args.Scope != "" {
		if scope, err = types.ParseScopeKind(args.Scope); err != nil {
			return s.failed(message.ID, err)
		}
	}
	name := args.Name
	if name == "" {
		name = engine.SuggestName(lit)
	}
	fix := inspection.QuickFix{Literal: lit, Name: name, Scope: scope}

	var res *types.CommitResult
	switch params.Command {
	case CommandPropagate:
		res, err = s.Propagate(ctx, fix.Command())
	case CommandIntroduce:
		res, err = inspection.RunDialog(ctx, &messagePrompter{s: s}, s, fix)
	default:
		return s.errorResponse(message.ID, CodeInvalidParams, "unknown command: "+params.Command, nil)
	}
	if err != nil {
		return s.failed(message.ID, err)
	}
	s.report(res)
	return s.successResponse(message.ID, commandResult(res))
}

func (s *Server) failed(id interface{}, err error) (*Message, error) {
	if nerr := s.notify("window/showMessage", ShowMessageParams{Type: MessageError, Message: err.Error()}); nerr != nil {
		s.logger.Warn("failed to show message", zap.Error(nerr))
	}
	return s.errorResponse(id, CodeRequestFailed, err.Error(), nil)
}

func commandResult(res *types.CommitResult) CommandResult {
	return CommandResult{
		Status:      res.Status.String(),
		Field:       res.Field,
		Container:   res.Container,
		Sites:       res.Sites,
		Transaction: res.Transaction,
		Files:       res.AffectedFiles,
	}
}

// report tells the user how an invocation ended and refreshes diagnostics
// of the open documents it touched
func (s *Server) report(res *types.CommitResult) {
	var msg ShowMessageParams
	switch res.Status {
	case types.Committed:
		msg = ShowMessageParams{Type: MessageInfo, Message: fmt.Sprintf("Introduced %s in %s, replaced %d occurrence(s)", res.Field, res.Container, res.Sites)}
		if res.Reused {
			msg.Message = fmt.Sprintf("Reused %s in %s, replaced %d occurrence(s)", res.Field, res.Container, res.Sites)
		}
	case types.Aborted:
		msg = ShowMessageParams{Type: MessageWarning, Message: "The source changed while the refactoring was prepared"}
	case types.Empty:
		msg = ShowMessageParams{Type: MessageInfo, Message: "Nothing to do"}
	default:
		return
	}
	if err := s.notify("window/showMessage", msg); err != nil {
		s.logger.Warn("failed to show message", zap.Error(err))
	}
	for _, f := range res.AffectedFiles {
		if s.isOpen(f) {
			s.publishDiagnostics(f)
		}
	}
}

// Propagate runs one invocation. When the client applies workspace edits
// the plan is sent as workspace/applyEdit and the client owns the write;
// otherwise the engine commits it to disk and journals it.
func (s *Server) Propagate(ctx context.Context, cmd types.PropagationCommand) (*types.CommitResult, error) {
	engine, _, ok := s.ready()
	if !ok {
		return nil, &types.RefactorError{Type: types.InvalidOperation, Message: "workspace not loaded"}
	}
	s.mu.RLock()
	applyEdit, createFiles := s.applyEdit, s.createFiles
	s.mu.RUnlock()
	if cmd.Preview || !applyEdit {
		return engine.Propagate(ctx, cmd)
	}

	planned := cmd
	planned.Preview = true
	res, err := engine.Propagate(ctx, planned)
	if err != nil || res.Status != types.Previewed {
		return res, err
	}
	edit, err := s.workspaceEdit(res.Plan)
	if err != nil {
		return nil, err
	}
	if len(edit.DocumentChanges) > 0 && !createFiles {
		return engine.Propagate(ctx, cmd)
	}

	var applied ApplyWorkspaceEditResult
	label := "Introduce constant " + res.Field
	if err := s.call(ctx, "workspace/applyEdit", ApplyWorkspaceEditParams{Label: label, Edit: *edit}, &applied); err != nil {
		return nil, fmt.Errorf("workspace/applyEdit: %w", err)
	}
	res.Preview = ""
	if !applied.Applied {
		s.logger.Info("client rejected edit", zap.String("reason", applied.FailureReason))
		res.Status = types.Aborted
		return res, nil
	}
	res.Status = types.Committed
	res.AffectedFiles = res.Plan.AffectedFiles
	return res, nil
}

// startAuto runs the auto-mode fixes found in a file in the background
func (s *Server) startAuto(ctx context.Context, path string) {
	_, inspector, ok := s.ready()
	if !ok {
		return
	}
	if st := inspector.Settings(); !st.Enabled && !st.Fix {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runAuto(ctx, path)
	}()
}

// runAuto applies or prompts the automatic findings of a file one at a
// time, inspecting again after each invocation since commits re-parse it.
func (s *Server) runAuto(ctx context.Context, path string) {
	engine, inspector, _ := s.ready()
	tried := make(map[string]bool)
	for ctx.Err() == nil {
		var next *inspection.Finding
		engine.View(func(ws *types.Workspace) {
			f, ok := ws.LookupFile(path)
			if !ok {
				return
			}
			for _, finding := range inspector.InspectFile(f, s.session) {
				if finding.Mode != inspection.Offer && !tried[finding.Text] {
					next = finding
					return
				}
			}
		})
		if next == nil {
			return
		}
		tried[next.Text] = true

		var (
			res *types.CommitResult
			err error
		)
		if next.Mode == inspection.AutoApply {
			res, err = s.Propagate(ctx, next.Fix.Command())
		} else {
			res, err = inspection.RunDialog(ctx, &messagePrompter{s: s}, s, next.Fix)
		}
		s.session.Done(next.Class)
		if err != nil {
			s.logger.Warn("auto fix failed", zap.String("file", path), zap.String("literal", next.Text), zap.Error(err))
			continue
		}
		s.report(res)
		if res.Status == types.Committed && s.applyEditEnabled() {
			// the client has not saved the edit yet, so the next
			// inspection would still see the old text
			return
		}
	}
}

func (s *Server) applyEditEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.applyEdit
}
