package refactor

import (
	"fmt"

	"github.com/mamaar/constprop/pkg/analysis"
	"github.com/mamaar/constprop/pkg/types"
)

// PropagateOperation introduces one constant for a literal and rewrites
// its equivalent occurrences within the chosen scope
type PropagateOperation struct {
	Command types.PropagationCommand
	Naming  NamingPolicy

	// Host answers structural queries; nil means an index over the workspace
	Host Host

	Roots  *types.RootSet
	Set    *types.OccurrenceSet
	Result *WriteResult
}

func (op *PropagateOperation) Type() types.OperationType {
	return types.PropagateConstantOperation
}

func (op *PropagateOperation) Validate(ws *types.Workspace) error {
	lit := op.Command.Literal
	if lit == nil {
		return types.NewStaleError(nil)
	}
	if op.host(ws).IsStale(lit) {
		return types.NewStaleError(lit)
	}
	if op.Command.Name != "" && !IsValidIdentifier(op.Command.Name) {
		return &types.RefactorError{
			Type:    types.InvalidOperation,
			Message: fmt.Sprintf("%q is not a valid field name", op.Command.Name),
			File:    lit.File,
			Line:    lit.Line,
			Column:  lit.Column,
		}
	}
	return nil
}

// Execute runs scope resolution, occurrence collection and the writer.
// Nothing is written to disk.
func (op *PropagateOperation) Execute(ws *types.Workspace) (*types.RefactoringPlan, error) {
	host := op.host(ws)
	lit := op.Command.Literal

	roots, err := NewScopeResolver(host).Resolve(lit, op.Command.Scope)
	if err != nil {
		return nil, err
	}
	op.Roots = roots

	set, err := NewAggregator(host).Collect(lit, roots)
	if err != nil {
		return nil, err
	}
	op.Set = set

	name := op.Command.Name
	if name == "" {
		name = op.Naming.Derive(lit)
	}
	res, err := NewWriter(host).Write(WriteRequest{
		Set:        set,
		Roots:      roots,
		Visibility: op.Command.Visibility,
		Name:       name,
	})
	if err != nil {
		return nil, err
	}
	op.Result = res
	res.Plan.Operations = []types.Operation{op}
	return res.Plan, nil
}

func (op *PropagateOperation) Description() string {
	if op.Command.Literal == nil {
		return "Propagate constant"
	}
	return fmt.Sprintf("Propagate %s as a constant across %s", op.Command.Literal.Text, op.Command.Scope.Label())
}

func (op *PropagateOperation) host(ws *types.Workspace) Host {
	if op.Host != nil {
		return op.Host
	}
	return analysis.NewIndex(ws)
}
