package inspection

import (
	"context"
	"fmt"

	"github.com/mamaar/constprop/pkg/refactor"
	"github.com/mamaar/constprop/pkg/types"
)

// Action is the button chosen in the dialog
type Action int

const (
	ActionOK Action = iota
	ActionPreview
	ActionCancel
)

// String returns the string representation of an Action
func (a Action) String() string {
	switch a {
	case ActionOK:
		return "OK"
	case ActionPreview:
		return "Preview"
	case ActionCancel:
		return "Cancel"
	default:
		return "unknown"
	}
}

// ScopeOption is one scope choice labelled with its concrete target
type ScopeOption struct {
	Scope types.ScopeKind
	Label string
}

// Dialog is what a Prompter presents for one literal
type Dialog struct {
	Literal *types.Literal
	Name    string
	Scope   types.ScopeKind
	Options []ScopeOption
}

// NewDialog prepares the dialog for a quick fix
func NewDialog(fix QuickFix) Dialog {
	lit := fix.Literal
	pkg := lit.Package
	if pkg == "" {
		pkg = "default"
	}
	options := make([]ScopeOption, 0, len(types.AllScopes))
	for _, scope := range types.AllScopes {
		target := lit.Class
		if scope == types.PackageScope {
			target = pkg
		}
		options = append(options, ScopeOption{Scope: scope, Label: fmt.Sprintf("%s (%s)", scope.Label(), target)})
	}
	return Dialog{Literal: lit, Name: fix.Name, Scope: fix.Scope, Options: options}
}

// Decision is the user's answer
type Decision struct {
	Action Action
	Name   string
	Scope  types.ScopeKind
}

// Prompter asks the user how to extract a literal
type Prompter interface {
	Ask(ctx context.Context, d Dialog) (Decision, error)
	Show(ctx context.Context, text string) error
}

// Propagator runs the extraction pipeline
type Propagator interface {
	Propagate(ctx context.Context, cmd types.PropagationCommand) (*types.CommitResult, error)
}

// RunDialog asks until the user confirms or cancels. Preview shows the
// plan and asks again with the answers kept.
func RunDialog(ctx context.Context, p Prompter, engine Propagator, fix QuickFix) (*types.CommitResult, error) {
	d := NewDialog(fix)
	for {
		dec, err := p.Ask(ctx, d)
		if err != nil {
			return nil, err
		}
		if dec.Action == ActionCancel {
			return &types.CommitResult{Status: types.Cancelled}, nil
		}
		d.Name, d.Scope = dec.Name, dec.Scope
		if !refactor.IsValidIdentifier(dec.Name) {
			if err := p.Show(ctx, fmt.Sprintf("%q is not a valid Java identifier", dec.Name)); err != nil {
				return nil, err
			}
			continue
		}

		cmd := QuickFix{Literal: fix.Literal, Name: dec.Name, Scope: dec.Scope}.Command()
		cmd.Preview = dec.Action == ActionPreview
		res, err := engine.Propagate(ctx, cmd)
		if err != nil || !cmd.Preview || res.Status != types.Previewed {
			return res, err
		}
		if err := p.Show(ctx, res.Preview); err != nil {
			return nil, err
		}
	}
}
