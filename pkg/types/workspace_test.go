package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFile(path, pkg, src string, classes ...string) *File {
	f := &File{Path: path, Package: pkg, Content: []byte(src), Writable: true}
	for _, name := range classes {
		qn := name
		if pkg != "" {
			qn = pkg + "." + name
		}
		f.Classes = append(f.Classes, &Class{Name: name, QualifiedName: qn, Package: pkg, File: path})
	}
	return f
}

func TestWorkspace_AddFileCreatesAncestorPackages(t *testing.T) {
	ws := NewWorkspace("/src")
	ws.AddFile(newTestFile("/src/a/b/c/A.java", "a.b.c", "class A {}", "A"))

	for _, name := range []string{"a", "a.b", "a.b.c"} {
		_, ok := ws.Packages[name]
		assert.True(t, ok, "package %s should exist", name)
	}
	assert.Equal(t, []string{"a.b.c.A"}, ws.Packages["a.b.c"].Classes)
	assert.Empty(t, ws.Packages["a.b"].Files)
}

func TestWorkspace_ChildPackagesDirectOnly(t *testing.T) {
	ws := NewWorkspace("/src")
	ws.AddFile(newTestFile("/src/pkg/A.java", "pkg", "", "A"))
	ws.AddFile(newTestFile("/src/pkg/sub/B.java", "pkg.sub", "", "B"))
	ws.AddFile(newTestFile("/src/pkg/sub/deep/C.java", "pkg.sub.deep", "", "C"))
	ws.AddFile(newTestFile("/src/pkg/other/D.java", "pkg.other", "", "D"))
	ws.AddFile(newTestFile("/src/pkgx/E.java", "pkgx", "", "E"))

	var names []string
	for _, p := range ws.ChildPackages("pkg") {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"pkg.other", "pkg.sub"}, names)
	assert.Empty(t, ws.ChildPackages(""))
}

func TestWorkspace_Staleness(t *testing.T) {
	ws := NewWorkspace("/src")
	src := `class A { int x = 42; }`
	f := newTestFile("/src/A.java", "", src, "A")
	lit := &Literal{File: f.Path, Start: 18, End: 20, Text: "42"}
	f.Literals = []*Literal{lit}
	ws.AddFile(f)
	lit.Version = f.Version

	assert.False(t, ws.IsStale(lit))
	require.NoError(t, ws.CheckLive(lit))

	// re-parsing the file bumps the version
	ws.AddFile(newTestFile("/src/A.java", "", src, "A"))
	assert.True(t, ws.IsStale(lit))
	err := ws.CheckLive(lit)
	require.Error(t, err)
	assert.True(t, IsStale(err))

	ws.RemoveFile("/src/A.java")
	assert.True(t, ws.IsStale(lit))
	_, ok := ws.Classes["A"]
	assert.False(t, ok)

	assert.True(t, ws.IsStale(nil))
}

func TestWorkspace_StaleWhenBytesDiffer(t *testing.T) {
	ws := NewWorkspace("/src")
	f := newTestFile("/src/A.java", "", `class A { int x = 43; }`, "A")
	ws.AddFile(f)
	lit := &Literal{File: f.Path, Start: 18, End: 20, Text: "42", Version: f.Version}
	assert.True(t, ws.IsStale(lit))
}

func TestFile_ImportsClass(t *testing.T) {
	f := &File{Imports: []Import{
		{Path: "java.util.List"},
		{Path: "pkg.*"},
		{Path: "other.Consts.VALUE", Static: true},
	}}
	assert.True(t, f.ImportsClass("java.util.List"))
	assert.True(t, f.ImportsClass("pkg.PkgConstantsIF"))
	assert.False(t, f.ImportsClass("other.Consts"))
	assert.False(t, f.ImportsClass("pkg.sub.B"))
}

func TestFile_ImportInsertOffset(t *testing.T) {
	f := &File{PackageDeclEnd: 13}
	assert.Equal(t, 13, f.ImportInsertOffset())
	f.Imports = []Import{{Path: "a.B", End: 30}, {Path: "a.C", End: 44}}
	assert.Equal(t, 44, f.ImportInsertOffset())
}

func TestFile_LiteralAt(t *testing.T) {
	f := &File{Literals: []*Literal{
		{Line: 3, Column: 20, Text: `"Hello"`, Start: 60, End: 67},
		{Line: 4, Column: 9, Text: "42", Start: 80, End: 82},
	}}

	lit, ok := f.LiteralAt(3, 22)
	require.True(t, ok)
	assert.Equal(t, `"Hello"`, lit.Text)

	_, ok = f.LiteralAt(4, 30)
	assert.False(t, ok)

	lit, ok = f.LiteralAtOffset(81)
	require.True(t, ok)
	assert.Equal(t, "42", lit.Text)
}
