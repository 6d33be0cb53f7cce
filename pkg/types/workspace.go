package types

import (
	"fmt"
	"sort"
	"strings"
)

// Workspace represents a parsed Java source tree. Classes and packages are
// kept in flat tables keyed by qualified name; links between them (super
// classes, parent packages) are names, never pointers into live trees.
type Workspace struct {
	RootPath string
	Files    map[string]*File    // absolute path -> File
	Packages map[string]*Package // qualified package name -> Package
	Classes  map[string]*Class   // qualified name -> top-level Class
	Nested   map[string]*Class   // qualified name -> nested declaration, e.g. a.Outer.Inner
}

// NewWorkspace returns an empty workspace rooted at rootPath
func NewWorkspace(rootPath string) *Workspace {
	return &Workspace{
		RootPath: rootPath,
		Files:    make(map[string]*File),
		Packages: make(map[string]*Package),
		Classes:  make(map[string]*Class),
		Nested:   make(map[string]*Class),
	}
}

// Package represents a Java package. Packages that only contain other
// packages exist in the table too so that subpackage walks see every level.
type Package struct {
	Name    string   // dotted name, "" for the default package
	Dirs    []string // directories contributing files, one per source root
	Files   []string // file paths
	Classes []string // qualified names of top-level classes
}

// SimpleName returns the last segment of the package name
func (p *Package) SimpleName() string {
	if i := strings.LastIndex(p.Name, "."); i >= 0 {
		return p.Name[i+1:]
	}
	return p.Name
}

// Parent returns the dotted name of the enclosing package, or "" at the top
func (p *Package) Parent() string {
	if i := strings.LastIndex(p.Name, "."); i >= 0 {
		return p.Name[:i]
	}
	return ""
}

// File represents a single Java source file
type File struct {
	Path     string
	Package  string // dotted package name, "" for the default package
	Module   string // source root the package path is relative to
	Content  []byte
	Version  int
	Writable bool

	PackageDeclEnd int // byte offset just past the package declaration line, 0 if none
	Imports        []Import

	Classes  []*Class   // top-level declarations
	Nested   []*Class   // nested type declarations in source order
	Literals []*Literal // every literal expression in source order
}

// Import is one import declaration
type Import struct {
	Path   string // e.g. "java.util.List" or "java.util.*"
	Static bool
	Start  int
	End    int // byte offset just past the end of the declaration line
}

// ImportInsertOffset returns where a new import declaration belongs:
// after the last import, else after the package declaration.
func (f *File) ImportInsertOffset() int {
	if n := len(f.Imports); n > 0 {
		return f.Imports[n-1].End
	}
	return f.PackageDeclEnd
}

// ImportsClass reports whether the file already imports qualifiedName,
// either by single-type or on-demand import.
func (f *File) ImportsClass(qualifiedName string) bool {
	pkg := qualifiedName
	if i := strings.LastIndex(qualifiedName, "."); i >= 0 {
		pkg = qualifiedName[:i]
	}
	for _, imp := range f.Imports {
		if imp.Static {
			continue
		}
		if imp.Path == qualifiedName || imp.Path == pkg+".*" {
			return true
		}
	}
	return false
}

// LookupFile returns the file at path
func (ws *Workspace) LookupFile(path string) (*File, bool) {
	f, ok := ws.Files[path]
	return f, ok
}

// LookupType returns the top-level or nested declaration named qualifiedName
func (ws *Workspace) LookupType(qualifiedName string) (*Class, bool) {
	if c, ok := ws.Classes[qualifiedName]; ok {
		return c, true
	}
	c, ok := ws.Nested[qualifiedName]
	return c, ok
}

// ClassOf returns the top-level class a literal belongs to
func (ws *Workspace) ClassOf(lit *Literal) (*Class, bool) {
	if lit == nil {
		return nil, false
	}
	c, ok := ws.Classes[lit.Class]
	return c, ok
}

// IsStale reports whether a literal no longer describes the source tree:
// its file is gone, has been re-parsed, or its bytes changed.
func (ws *Workspace) IsStale(lit *Literal) bool {
	if lit == nil {
		return true
	}
	f, ok := ws.Files[lit.File]
	if !ok || f.Version != lit.Version {
		return true
	}
	if lit.Start < 0 || lit.End > len(f.Content) || lit.Start > lit.End {
		return true
	}
	return string(f.Content[lit.Start:lit.End]) != lit.Text
}

// CheckLive returns a StaleElement error for the first stale literal
func (ws *Workspace) CheckLive(lits ...*Literal) error {
	for _, lit := range lits {
		if ws.IsStale(lit) {
			return NewStaleError(lit)
		}
	}
	return nil
}

// AddFile inserts or replaces a file, bumping the version past any previous
// one so that literals read from older versions become stale.
func (ws *Workspace) AddFile(f *File) {
	if old, ok := ws.Files[f.Path]; ok {
		if f.Version <= old.Version {
			f.Version = old.Version + 1
		}
		ws.detach(old)
	}
	ws.Files[f.Path] = f
	ws.attach(f)
}

// RemoveFile drops a file and everything declared in it
func (ws *Workspace) RemoveFile(path string) {
	old, ok := ws.Files[path]
	if !ok {
		return
	}
	ws.detach(old)
	delete(ws.Files, path)
}

func (ws *Workspace) attach(f *File) {
	pkg := ws.ensurePackage(f.Package)
	pkg.Files = appendUnique(pkg.Files, f.Path)
	pkg.Dirs = appendUnique(pkg.Dirs, dirOf(f.Path))
	for _, c := range f.Classes {
		ws.Classes[c.QualifiedName] = c
		pkg.Classes = appendUnique(pkg.Classes, c.QualifiedName)
	}
	for _, c := range f.Nested {
		ws.Nested[c.QualifiedName] = c
	}
}

func (ws *Workspace) detach(f *File) {
	pkg, ok := ws.Packages[f.Package]
	if !ok {
		return
	}
	pkg.Files = removeString(pkg.Files, f.Path)
	for _, c := range f.Classes {
		if cur, ok := ws.Classes[c.QualifiedName]; ok && cur.File == f.Path {
			delete(ws.Classes, c.QualifiedName)
		}
		pkg.Classes = removeString(pkg.Classes, c.QualifiedName)
	}
	for _, c := range f.Nested {
		if cur, ok := ws.Nested[c.QualifiedName]; ok && cur.File == f.Path {
			delete(ws.Nested, c.QualifiedName)
		}
	}
}

// ensurePackage creates the package and all of its ancestors
func (ws *Workspace) ensurePackage(name string) *Package {
	if pkg, ok := ws.Packages[name]; ok {
		return pkg
	}
	pkg := &Package{Name: name}
	ws.Packages[name] = pkg
	if name != "" {
		if i := strings.LastIndex(name, "."); i >= 0 {
			ws.ensurePackage(name[:i])
		}
	}
	return pkg
}

// ChildPackages returns the direct subpackages of name, sorted
func (ws *Workspace) ChildPackages(name string) []*Package {
	// the default package has no named children
	if name == "" {
		return nil
	}
	var out []*Package
	for n, pkg := range ws.Packages {
		if pkg.Parent() == name && n != name {
			out = append(out, pkg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Stats summarises the workspace for logging
func (ws *Workspace) Stats() string {
	lits := 0
	for _, f := range ws.Files {
		lits += len(f.Literals)
	}
	return fmt.Sprintf("%d files, %d packages, %d classes, %d literals",
		len(ws.Files), len(ws.Packages), len(ws.Classes), lits)
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	list = append(list, s)
	sort.Strings(list)
	return list
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

func dirOf(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[:i]
	}
	return "."
}
