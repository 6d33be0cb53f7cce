package lsp

import (
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mamaar/constprop/pkg/inspection"
	"github.com/mamaar/constprop/pkg/types"
)

// DiagnosticCode identifies constprop diagnostics in codeAction requests
const DiagnosticCode = "unassigned-literal"

// extractActions offers one propagation per scope plus the dialog
func extractActions(uri string, pos Position, fix inspection.QuickFix, diags []Diagnostic, qualifies bool) []CodeAction {
	d := inspection.NewDialog(fix)
	actions := make([]CodeAction, 0, len(d.Options)+1)
	for _, opt := range d.Options {
		title := fmt.Sprintf("Introduce constant %s in %s", fix.Name, opt.Label)
		actions = append(actions, CodeAction{
			Title:       title,
			Kind:        KindExtractConstant,
			Diagnostics: diags,
			IsPreferred: qualifies && opt.Scope == fix.Scope,
			Command: &Command{
				Title:   title,
				Command: CommandPropagate,
				Arguments: []interface{}{CommandArgs{
					URI:      uri,
					Position: pos,
					Scope:    opt.Scope.String(),
					Name:     fix.Name,
				}},
			},
		})
	}
	actions = append(actions, CodeAction{
		Title: "Introduce constant...",
		Kind:  KindExtractConstant,
		Command: &Command{
			Title:     "Introduce constant...",
			Command:   CommandIntroduce,
			Arguments: []interface{}{CommandArgs{URI: uri, Position: pos, Scope: fix.Scope.String(), Name: fix.Name}},
		},
	})
	return actions
}

// wantsKind applies the codeAction "only" filter, where a kind covers its
// dotted sub-kinds
func wantsKind(only []string, kind string) bool {
	if len(only) == 0 {
		return true
	}
	for _, k := range only {
		if k == kind || strings.HasPrefix(kind, k+".") {
			return true
		}
	}
	return false
}

func matchingDiagnostics(diags []Diagnostic, pos Position) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		if d.Code == DiagnosticCode && d.Range.Start == pos {
			out = append(out, d)
		}
	}
	return out
}

func diagnosticFor(f *types.File, finding *inspection.Finding) Diagnostic {
	lit := finding.Fix.Literal
	return Diagnostic{
		Range: Range{
			Start: offsetToPosition(f.Content, lit.Start),
			End:   offsetToPosition(f.Content, lit.End),
		},
		Severity: SeverityInformation,
		Code:     DiagnosticCode,
		Source:   "constprop",
		Message:  finding.Message,
		Data:     &DiagnosticData{Name: finding.Fix.Name},
	}
}

// workspaceEdit converts a plan to LSP edits. Plans that create a file
// need documentChanges with a create operation ahead of the text edits.
func (s *Server) workspaceEdit(plan *types.RefactoringPlan) (*WorkspaceEdit, error) {
	engine, _, _ := s.ready()
	edits := make(map[string][]TextEdit)
	var creates []string
	var err error

	engine.View(func(ws *types.Workspace) {
		for _, ch := range plan.Changes {
			uri := pathToURI(ch.File)
			if ch.Create {
				creates = append(creates, uri)
				edits[uri] = append(edits[uri], TextEdit{NewText: ch.NewText})
				continue
			}
			f, ok := ws.LookupFile(ch.File)
			if !ok {
				err = &types.RefactorError{Type: types.StaleElement, Message: "file left the workspace", File: ch.File}
				return
			}
			edits[uri] = append(edits[uri], TextEdit{
				Range: Range{
					Start: offsetToPosition(f.Content, ch.Start),
					End:   offsetToPosition(f.Content, ch.End),
				},
				NewText: ch.NewText,
			})
		}
	})
	if err != nil {
		return nil, err
	}

	if len(creates) == 0 {
		return &WorkspaceEdit{Changes: edits}, nil
	}
	uris := make([]string, 0, len(edits))
	for uri := range edits {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	var changes []interface{}
	for _, uri := range creates {
		changes = append(changes, CreateFile{Kind: "create", URI: uri})
	}
	for _, uri := range uris {
		changes = append(changes, TextDocumentEdit{
			TextDocument: OptionalVersionedTextDocumentIdentifier{URI: uri},
			Edits:        edits[uri],
		})
	}
	return &WorkspaceEdit{DocumentChanges: changes}, nil
}

// offsetToPosition converts a byte offset to a zero-based line and UTF-16
// character position
func offsetToPosition(content []byte, offset int) Position {
	if offset > len(content) {
		offset = len(content)
	}
	var pos Position
	for i := 0; i < offset; {
		r, size := utf8.DecodeRune(content[i:])
		if r == '\n' {
			pos.Line++
			pos.Character = 0
		} else {
			pos.Character += utf16Len(r)
		}
		i += size
	}
	return pos
}

// positionToOffset is the inverse of offsetToPosition. Positions past the
// end of a line clamp to the line end.
func positionToOffset(content []byte, pos Position) int {
	i := 0
	for line := 0; line < pos.Line; line++ {
		nl := strings.IndexByte(string(content[i:]), '\n')
		if nl < 0 {
			return len(content)
		}
		i += nl + 1
	}
	for units := 0; i < len(content) && units < pos.Character; {
		r, size := utf8.DecodeRune(content[i:])
		if r == '\n' {
			break
		}
		units += utf16Len(r)
		i += size
	}
	return i
}

func utf16Len(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}

// uriToPath converts a file URI to a local path
func uriToPath(uri string) string {
	if !strings.HasPrefix(uri, "file://") {
		return uri
	}
	u, err := url.Parse(uri)
	if err != nil {
		return strings.TrimPrefix(uri, "file://")
	}
	return filepath.FromSlash(u.Path)
}

// pathToURI converts a file path to a file URI
func pathToURI(path string) string {
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}
