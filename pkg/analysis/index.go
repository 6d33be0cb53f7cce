package analysis

import (
	"sort"
	"strings"

	"github.com/mamaar/constprop/pkg/types"
)

// Link resolves the superclass name of every top-level and nested class
// against the workspace. Unresolvable names leave SuperQualName empty.
func Link(ws *types.Workspace) {
	for _, c := range ws.Classes {
		linkClass(ws, c)
	}
	for _, c := range ws.Nested {
		linkClass(ws, c)
	}
}

func linkClass(ws *types.Workspace, c *types.Class) {
	c.SuperQualName = ""
	if c.SuperName == "" {
		return
	}
	f, ok := ws.Files[c.File]
	if !ok {
		return
	}
	// member types of the enclosing declarations shadow package members
	for outer := c.Outer; outer != ""; {
		if _, ok := ws.Nested[outer+"."+c.SuperName]; ok {
			c.SuperQualName = outer + "." + c.SuperName
			return
		}
		enclosing, ok := ws.LookupType(outer)
		if !ok {
			break
		}
		outer = enclosing.Outer
	}
	c.SuperQualName = resolveTypeName(ws, f, c.SuperName)
}

// resolveTypeName follows Java's lookup order for a simple or qualified
// type name: fully qualified, same package, single-type imports, on-demand
// imports, then the default package.
func resolveTypeName(ws *types.Workspace, f *types.File, name string) string {
	if _, ok := ws.LookupType(name); ok && strings.Contains(name, ".") {
		return name
	}
	head, rest := name, ""
	if i := strings.IndexByte(name, '.'); i >= 0 {
		head, rest = name[:i], name[i:]
	}
	qn := resolveSimpleName(ws, f, head)
	if qn != "" && rest != "" {
		// Outer.Inner names a nested type when one is declared
		if _, ok := ws.Nested[qn+rest]; ok {
			return qn + rest
		}
	}
	return qn
}

// resolveSimpleName resolves a top-level class name without dots
func resolveSimpleName(ws *types.Workspace, f *types.File, simple string) string {
	if f.Package != "" {
		if _, ok := ws.Classes[f.Package+"."+simple]; ok {
			return f.Package + "." + simple
		}
	}
	for _, imp := range f.Imports {
		if imp.Static || strings.HasSuffix(imp.Path, ".*") {
			continue
		}
		if imp.Path == simple || strings.HasSuffix(imp.Path, "."+simple) {
			if _, ok := ws.Classes[imp.Path]; ok {
				return imp.Path
			}
		}
	}
	for _, imp := range f.Imports {
		if imp.Static || !strings.HasSuffix(imp.Path, ".*") {
			continue
		}
		qn := strings.TrimSuffix(imp.Path, "*") + simple
		if _, ok := ws.Classes[qn]; ok {
			return qn
		}
	}
	if f.Package == "" {
		if _, ok := ws.Classes[simple]; ok {
			return simple
		}
	}
	return ""
}

// Index answers the structural queries the propagation pipeline needs
// against one workspace snapshot.
type Index struct {
	ws *types.Workspace
}

func NewIndex(ws *types.Workspace) *Index {
	return &Index{ws: ws}
}

// Workspace returns the indexed workspace
func (ix *Index) Workspace() *types.Workspace {
	return ix.ws
}

// LookupClass returns the top-level or nested class named qualifiedName
func (ix *Index) LookupClass(qualifiedName string) (*types.Class, bool) {
	return ix.ws.LookupType(qualifiedName)
}

func (ix *Index) LookupPackage(name string) (*types.Package, bool) {
	p, ok := ix.ws.Packages[name]
	return p, ok
}

func (ix *Index) LookupFile(path string) (*types.File, bool) {
	return ix.ws.LookupFile(path)
}

// IsStale reports whether lit no longer matches the workspace
func (ix *Index) IsStale(lit *types.Literal) bool {
	return ix.ws.IsStale(lit)
}

// IsWritable reports whether the file declaring c may be edited
func (ix *Index) IsWritable(c *types.Class) bool {
	if c == nil {
		return false
	}
	f, ok := ix.ws.Files[c.File]
	return ok && f.Writable
}

// Superclass returns the resolved superclass of c when it is part of the workspace
func (ix *Index) Superclass(c *types.Class) (*types.Class, bool) {
	if c == nil || c.SuperQualName == "" {
		return nil, false
	}
	return ix.ws.LookupType(c.SuperQualName)
}

// FindSubtypesOf returns every direct and indirect subclass of c declared
// in module, nested declarations included, sorted by qualified name. An
// empty module means any.
func (ix *Index) FindSubtypesOf(c *types.Class, module string) []*types.Class {
	if c == nil {
		return nil
	}
	children := make(map[string][]*types.Class)
	for _, table := range []map[string]*types.Class{ix.ws.Classes, ix.ws.Nested} {
		for _, cls := range table {
			if cls.SuperQualName != "" {
				children[cls.SuperQualName] = append(children[cls.SuperQualName], cls)
			}
		}
	}

	seen := map[string]bool{c.QualifiedName: true}
	var out []*types.Class
	queue := []string{c.QualifiedName}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, sub := range children[name] {
			if seen[sub.QualifiedName] {
				continue
			}
			seen[sub.QualifiedName] = true
			queue = append(queue, sub.QualifiedName)
			if module == "" || sub.Module == module {
				out = append(out, sub)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QualifiedName < out[j].QualifiedName })
	return out
}

// FindSubpackagesOf returns the direct subpackages of pkg
func (ix *Index) FindSubpackagesOf(pkg *types.Package) []*types.Package {
	if pkg == nil {
		return nil
	}
	return ix.ws.ChildPackages(pkg.Name)
}

// FindOccurrencesOf returns the literals equivalent to lit inside root,
// in source order. The selected literal itself is included when it lies
// inside the root.
func (ix *Index) FindOccurrencesOf(lit *types.Literal, root types.Root) ([]*types.Literal, error) {
	if err := ix.ws.CheckLive(lit); err != nil {
		return nil, err
	}

	var out []*types.Literal
	switch root.Kind {
	case types.ClassRoot:
		c, ok := ix.ws.LookupType(root.Name)
		if !ok {
			return nil, nil
		}
		f, ok := ix.ws.Files[c.File]
		if !ok {
			return nil, nil
		}
		for _, cand := range f.Literals {
			if cand.Start >= c.Start && cand.End <= c.End && Equivalent(lit, cand) {
				out = append(out, cand)
			}
		}
	case types.PackageRoot:
		pkg, ok := ix.ws.Packages[root.Name]
		if !ok {
			return nil, nil
		}
		for _, path := range pkg.Files {
			f, ok := ix.ws.Files[path]
			if !ok {
				continue
			}
			for _, cand := range f.Literals {
				if Equivalent(lit, cand) {
					out = append(out, cand)
				}
			}
		}
	}
	return out, nil
}

// AnchorFor returns the member enclosing the first site when every site
// belongs to the same top-level class; otherwise there is no common anchor.
func (ix *Index) AnchorFor(sites []*types.Literal) (types.Anchor, bool) {
	if len(sites) == 0 {
		return types.Anchor{}, false
	}
	first := sites[0]
	for _, s := range sites[1:] {
		if s.Class != first.Class || s.File != first.File {
			return types.Anchor{}, false
		}
	}
	c, ok := ix.ws.Classes[first.Class]
	if !ok {
		return types.Anchor{}, false
	}
	m, ok := c.MemberAt(first.Start)
	if !ok {
		return types.Anchor{}, false
	}
	return types.Anchor{Class: c.QualifiedName, File: c.File, Member: m}, true
}
