package refactor

import (
	"fmt"

	"github.com/mamaar/constprop/pkg/types"
)

// ScopeResolver turns a literal and a scope kind into the roots to search
type ScopeResolver struct {
	classes  ClassQueries
	packages PackageQueries
	stale    func(*types.Literal) bool
}

func NewScopeResolver(host Host) *ScopeResolver {
	return &ScopeResolver{classes: host, packages: host, stale: host.IsStale}
}

// Resolve returns the root set for lit. A stale literal yields a
// StaleElement error; a literal with no enclosing class or package yields
// a NoRoot error.
func (r *ScopeResolver) Resolve(lit *types.Literal, scope types.ScopeKind) (*types.RootSet, error) {
	if lit == nil || r.stale(lit) {
		return nil, types.NewStaleError(lit)
	}

	switch scope {
	case types.ClassScope:
		c, err := r.enclosingClass(lit)
		if err != nil {
			return nil, err
		}
		return &types.RootSet{
			Scope: scope,
			Base:  c.QualifiedName,
			Roots: []types.Root{{Kind: types.ClassRoot, Name: c.QualifiedName}},
		}, nil

	case types.HierarchyScope:
		c, err := r.enclosingClass(lit)
		if err != nil {
			return nil, err
		}
		base := r.BaseClass(c)
		if lit.Nested != "" {
			// a nested subclass belongs to the hierarchy of its own ancestors
			if n, ok := r.classes.LookupClass(lit.Nested); ok {
				if b := r.BaseClass(n); !b.IsNested() {
					base = b
				}
			}
		}
		rs := &types.RootSet{
			Scope: scope,
			Base:  base.QualifiedName,
			Roots: []types.Root{{Kind: types.ClassRoot, Name: base.QualifiedName}},
		}
		module := c.Module
		for _, sub := range r.classes.FindSubtypesOf(base, module) {
			rs.Roots = append(rs.Roots, types.Root{Kind: types.ClassRoot, Name: sub.QualifiedName})
		}
		return rs, nil

	case types.PackageScope:
		pkg, ok := r.packages.LookupPackage(lit.Package)
		if !ok || lit.Package == "" {
			return nil, &types.RefactorError{
				Type:    types.NoRoot,
				Message: "literal is not in a named package",
				File:    lit.File,
				Line:    lit.Line,
				Column:  lit.Column,
			}
		}
		rs := &types.RootSet{Scope: scope}
		for _, p := range r.Subpackages(pkg) {
			rs.Roots = append(rs.Roots, types.Root{Kind: types.PackageRoot, Name: p.Name})
		}
		return rs, nil
	}

	return nil, &types.RefactorError{
		Type:    types.UnknownCommand,
		Message: fmt.Sprintf("unknown scope %s", scope),
	}
}

// BaseClass walks superclass links to the highest writable ancestor. The
// walk stops at a class without an explicit superclass, at a superclass
// outside the workspace and before a read-only or nested superclass.
func (r *ScopeResolver) BaseClass(c *types.Class) *types.Class {
	seen := map[string]bool{c.QualifiedName: true}
	base := c
	for {
		sup, ok := r.classes.Superclass(base)
		if !ok || !r.classes.IsWritable(sup) || sup.IsNested() || seen[sup.QualifiedName] {
			return base
		}
		seen[sup.QualifiedName] = true
		base = sup
	}
}

// Subpackages returns pkg followed by all of its transitive subpackages,
// walked breadth first with an explicit work list.
func (r *ScopeResolver) Subpackages(pkg *types.Package) []*types.Package {
	seen := map[string]bool{pkg.Name: true}
	out := []*types.Package{pkg}
	work := []*types.Package{pkg}
	for len(work) > 0 {
		next := work[0]
		work = work[1:]
		for _, child := range r.packages.FindSubpackagesOf(next) {
			if seen[child.Name] {
				continue
			}
			seen[child.Name] = true
			out = append(out, child)
			work = append(work, child)
		}
	}
	return out
}

func (r *ScopeResolver) enclosingClass(lit *types.Literal) (*types.Class, error) {
	c, ok := r.classes.LookupClass(lit.Class)
	if !ok {
		return nil, &types.RefactorError{
			Type:    types.NoRoot,
			Message: "literal has no enclosing class",
			File:    lit.File,
			Line:    lit.Line,
			Column:  lit.Column,
		}
	}
	return c, nil
}
