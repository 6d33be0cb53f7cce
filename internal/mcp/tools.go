package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mamaar/constprop/pkg/inspection"
	"github.com/mamaar/constprop/pkg/types"
)

// --- load_workspace ---

func registerWorkspaceTools(s *server.MCPServer, state *State) {
	tool := mcp.NewTool("load_workspace",
		mcp.WithDescription("Parse the Java sources under a directory. Other tools work on the last loaded workspace."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Workspace root directory")),
	)
	s.AddTool(tool, loadWorkspaceHandler(state))
}

func loadWorkspaceHandler(state *State) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := req.RequireString("path")
		if err != nil {
			return errResult(err), nil
		}
		if err := state.LoadWorkspace(path); err != nil {
			return errResult(err), nil
		}
		engine, _, err := state.Engine()
		if err != nil {
			return errResult(err), nil
		}
		var stats string
		engine.View(func(ws *types.Workspace) { stats = ws.Stats() })
		return textResult(map[string]string{"root": state.Resolve("."), "stats": stats}), nil
	}
}

// Finding is one qualifying literal in scan_literals output
type Finding struct {
	File          string `json:"file"`
	Line          int    `json:"line"`
	Column        int    `json:"column"`
	Literal       string `json:"literal"`
	Class         string `json:"class"`
	SuggestedName string `json:"suggested_name"`
}

// LiteralInfo is the output of suggest_constant_name
type LiteralInfo struct {
	Literal       string `json:"literal"`
	Type          string `json:"type"`
	Class         string `json:"class"`
	Package       string `json:"package"`
	Method        string `json:"method,omitempty"`
	SuggestedName string `json:"suggested_name"`
	Qualifies     bool   `json:"qualifies"`
	Reason        string `json:"reason,omitempty"`
	MarkerName    string `json:"marker_interface,omitempty"`
}

func positionArgs(req mcp.CallToolRequest) (string, int, int, error) {
	file, err := req.RequireString("file")
	if err != nil {
		return "", 0, 0, err
	}
	line, err := req.RequireInt("line")
	if err != nil {
		return "", 0, 0, err
	}
	col, err := req.RequireInt("column")
	if err != nil {
		return "", 0, 0, err
	}
	if line < 1 || col < 1 {
		return "", 0, 0, fmt.Errorf("line and column are 1-based")
	}
	return file, line, col, nil
}

func withPosition() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("file", mcp.Required(), mcp.Description("Java source file, absolute or relative to the workspace root")),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("1-based line of the literal")),
		mcp.WithNumber("column", mcp.Required(), mcp.Description("1-based column inside the literal")),
	}
}

// --- scan_literals / suggest_constant_name ---

func registerLiteralTools(s *server.MCPServer, state *State) {
	scan := mcp.NewTool("scan_literals",
		mcp.WithDescription("List the literal expressions worth extracting into a constant, with a suggested name for each."),
		mcp.WithString("path", mcp.Description("Only report files under this file or directory")),
	)
	s.AddTool(scan, scanLiteralsHandler(state))

	suggest := mcp.NewTool("suggest_constant_name",
		append([]mcp.ToolOption{
			mcp.WithDescription("Describe the literal at a position and derive the default constant name for it."),
		}, withPosition()...)...,
	)
	s.AddTool(suggest, suggestNameHandler(state))
}

func scanLiteralsHandler(state *State) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		engine, inspector, err := state.Engine()
		if err != nil {
			return errResult(err), nil
		}
		prefix := ""
		if p := req.GetString("path", ""); p != "" {
			prefix = state.Resolve(p)
		}

		var findings []*inspection.Finding
		engine.View(func(ws *types.Workspace) { findings = inspector.InspectWorkspace(ws, nil) })
		out := make([]Finding, 0, len(findings))
		for _, f := range findings {
			if prefix != "" && f.File != prefix && !strings.HasPrefix(f.File, prefix+string(filepath.Separator)) {
				continue
			}
			out = append(out, Finding{
				File:          state.Rel(f.File),
				Line:          f.Line,
				Column:        f.Column,
				Literal:       f.Text,
				Class:         f.Class,
				SuggestedName: f.Fix.Name,
			})
		}
		return textResult(out), nil
	}
}

func suggestNameHandler(state *State) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		engine, inspector, err := state.Engine()
		if err != nil {
			return errResult(err), nil
		}
		file, line, col, err := positionArgs(req)
		if err != nil {
			return errResult(err), nil
		}
		lit, err := engine.LiteralAt(state.Resolve(file), line, col)
		if err != nil {
			return errResult(err), nil
		}
		ok, reason := inspector.Qualifies(lit)
		info := LiteralInfo{
			Literal:       lit.Text,
			Type:          lit.Type,
			Class:         lit.Class,
			Package:       lit.Package,
			Method:        lit.Method,
			SuggestedName: engine.SuggestName(lit),
			Qualifies:     ok,
			Reason:        reason,
		}
		if lit.Package != "" {
			info.MarkerName = engine.MarkerName(lit.Package)
		}
		return textResult(info), nil
	}
}

// --- propagate_constant / undo_propagation ---

func registerPropagateTools(s *server.MCPServer, state *State) {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Introduce a constant for the literal at a position and replace every equivalent literal in the chosen scope with a reference to it. " +
			"class: the enclosing top-level class; hierarchy: the topmost writable superclass and all its subclasses; package: the package and its subpackages, through a <Pkg>ConstantsIF interface."),
	}
	opts = append(opts, withPosition()...)
	opts = append(opts,
		mcp.WithString("scope", mcp.Description("Replacement scope"), mcp.Enum("class", "hierarchy", "package"), mcp.DefaultString("class")),
		mcp.WithString("name", mcp.Description("Constant name, derived from the literal when empty")),
		mcp.WithBoolean("preview", mcp.Description("Return the listing and diff without writing files")),
	)
	s.AddTool(mcp.NewTool("propagate_constant", opts...), propagateHandler(state))

	undo := mcp.NewTool("undo_propagation",
		mcp.WithDescription("Restore the files of the last journaled propagation. Refuses when any of them changed since."),
	)
	s.AddTool(undo, undoHandler(state))
}

func propagateHandler(state *State) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		engine, _, err := state.Engine()
		if err != nil {
			return errResult(err), nil
		}
		file, line, col, err := positionArgs(req)
		if err != nil {
			return errResult(err), nil
		}
		scope, err := types.ParseScopeKind(req.GetString("scope", "class"))
		if err != nil {
			return errResult(err), nil
		}
		lit, err := engine.LiteralAt(state.Resolve(file), line, col)
		if err != nil {
			return errResult(err), nil
		}
		name := req.GetString("name", "")
		if name == "" {
			name = engine.SuggestName(lit)
		}

		cmd := inspection.QuickFix{Literal: lit, Name: name, Scope: scope}.Command()
		cmd.Preview = req.GetBool("preview", false)
		res, err := engine.Propagate(ctx, cmd)
		if err != nil {
			return errResult(err), nil
		}
		return textResult(newPropagationResult(state, res)), nil
	}
}

func undoHandler(state *State) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		engine, _, err := state.Engine()
		if err != nil {
			return errResult(err), nil
		}
		res, err := engine.Undo(ctx)
		if err != nil {
			return errResult(err), nil
		}
		return textResult(newPropagationResult(state, res)), nil
	}
}
