// Package inspection finds literals worth turning into constants and
// decides, per auto-mode settings, whether to offer or apply the fix.
package inspection

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mamaar/constprop/pkg/refactor"
	"github.com/mamaar/constprop/pkg/types"
)

// Message is shown for every offered literal
const Message = "Unassigned literal expression"

// Mode says what a front end should do with a finding
type Mode int

const (
	// Offer registers a quick fix the user may invoke
	Offer Mode = iota
	// AutoPrompt opens the dialog right away
	AutoPrompt
	// AutoApply runs the fix with the remembered scope and the suggested name
	AutoApply
)

// String returns the string representation of a Mode
func (m Mode) String() string {
	switch m {
	case Offer:
		return "offer"
	case AutoPrompt:
		return "prompt"
	case AutoApply:
		return "apply"
	default:
		return "unknown"
	}
}

// Settings are the auto-mode options
type Settings struct {
	Enabled bool            // open the dialog for the first literal found in a class
	Fix     bool            // apply without asking, using Scope
	Scope   types.ScopeKind // remembered scope for Fix
}

// QuickFix carries what a front end needs to run the pipeline
type QuickFix struct {
	Literal *types.Literal
	Name    string // suggested constant name
	Scope   types.ScopeKind
}

// Command builds the propagation command for the fix
func (q QuickFix) Command() types.PropagationCommand {
	return types.PropagationCommand{
		Literal:    q.Literal,
		Scope:      q.Scope,
		Name:       q.Name,
		Visibility: types.VisibilityFor(q.Scope),
	}
}

// Finding is one qualifying literal
type Finding struct {
	File    string
	Line    int
	Column  int
	Text    string
	Class   string
	Message string
	Mode    Mode
	Fix     QuickFix
}

// Inspector runs the literal policy over files
type Inspector struct {
	naming   refactor.NamingPolicy
	settings Settings
	logger   *zap.Logger
}

func NewInspector(settings Settings, naming refactor.NamingPolicy, logger *zap.Logger) *Inspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inspector{naming: naming, settings: settings, logger: logger}
}

// Settings returns the auto-mode options in effect
func (i *Inspector) Settings() Settings {
	return i.settings
}

// Qualifies reports whether a literal is offered for extraction. The
// second result names the rule that rejected it.
func (i *Inspector) Qualifies(lit *types.Literal) (bool, string) {
	switch {
	case lit == nil:
		return false, "no literal"
	case lit.Kind == types.NullLiteral:
		return false, "null"
	case lit.Text == `""`:
		return false, "empty string"
	case lit.Class == "":
		return false, "outside a class"
	case lit.Context.Has(types.InFieldInit) || lit.Field != "":
		return false, "field initializer"
	case lit.Context.Has(types.InPrintCall):
		return false, "print argument"
	case lit.Context.Has(types.LocalVarInit):
		return false, "local variable initializer"
	case lit.Context.Has(types.InAnnotation):
		return false, "annotation argument"
	case lit.Context.Has(types.InCaseLabel):
		return false, "case label"
	}
	if isString(lit) {
		switch {
		case strings.Contains(lit.Text, " "):
			return false, "label or query text"
		case lit.Context.Has(types.InConcatenation):
			return false, "string concatenation"
		case lit.Context.Has(types.InTernary):
			return false, "conditional expression"
		}
	}
	return true, ""
}

func isString(lit *types.Literal) bool {
	return lit.Kind == types.StringLiteral || lit.Kind == types.TextBlockLiteral
}

// InspectFile returns the findings of one file in source order. Session
// decides auto modes; pass nil to only offer fixes.
func (i *Inspector) InspectFile(f *types.File, session *Session) []*Finding {
	var findings []*Finding
	for _, lit := range f.Literals {
		ok, reason := i.Qualifies(lit)
		if !ok {
			i.logger.Debug("literal skipped",
				zap.String("literal", lit.String()), zap.String("reason", reason))
			continue
		}
		findings = append(findings, &Finding{
			File:    lit.File,
			Line:    lit.Line,
			Column:  lit.Column,
			Text:    lit.Text,
			Class:   lit.Class,
			Message: Message,
			Mode:    i.mode(lit, session),
			Fix: QuickFix{
				Literal: lit,
				Name:    i.naming.Derive(lit),
				Scope:   i.settings.Scope,
			},
		})
	}
	return findings
}

func (i *Inspector) mode(lit *types.Literal, session *Session) Mode {
	if session == nil {
		return Offer
	}
	session.Visit(lit.Class)
	switch {
	case i.settings.Fix:
		return AutoApply
	case i.settings.Enabled && session.Claim(lit):
		return AutoPrompt
	}
	return Offer
}

// InspectWorkspace runs over every file, ordered by path
func (i *Inspector) InspectWorkspace(ws *types.Workspace, session *Session) []*Finding {
	paths := make([]string, 0, len(ws.Files))
	for p := range ws.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var findings []*Finding
	for _, p := range paths {
		findings = append(findings, i.InspectFile(ws.Files[p], session)...)
	}
	i.logger.Debug("workspace inspected", zap.Int("files", len(paths)), zap.Int("findings", len(findings)))
	return findings
}
