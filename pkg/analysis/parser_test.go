package analysis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mamaar/constprop/pkg/types"
)

func writeJava(t *testing.T, root, rel, src string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func findLiteral(t *testing.T, f *types.File, text string, nth int) *types.Literal {
	t.Helper()
	n := 0
	for _, lit := range f.Literals {
		if lit.Text == text {
			if n == nth {
				return lit
			}
			n++
		}
	}
	t.Fatalf("literal %s #%d not found in %s", text, nth, f.Path)
	return nil
}

const greeterSrc = `package demo;

import java.util.List;
import static java.lang.Math.max;

/** Greets people. */
public class Greeter extends Base<String> {
    private int count = 42;
    static final String PREFIX = "Hi";

    public String greet() {
        String local = "Hello";
        System.out.println("Hello");
        return "Hello" + name();
    }

    static int twice() {
        return 21 * 2;
    }

    @SuppressWarnings("unchecked")
    void sw(int x) {
        switch (x) {
            case 3: break;
        }
        boolean b = x > 1 ? true : false;
        long big = 10L;
        double d = 1.5;
        char c = 'c';
        Object o = null;
    }
}
`

func TestJavaParser_ParseSource(t *testing.T) {
	p := NewParser(zap.NewNop())
	f, err := p.ParseSource("/src/demo/Greeter.java", []byte(greeterSrc))
	require.NoError(t, err)

	assert.Equal(t, "demo", f.Package)
	require.Len(t, f.Imports, 2)
	assert.Equal(t, "java.util.List", f.Imports[0].Path)
	assert.True(t, f.Imports[1].Static)
	assert.Equal(t, len("package demo;\n"), f.PackageDeclEnd)
	assert.Equal(t, f.Imports[1].End, f.ImportInsertOffset())

	require.Len(t, f.Classes, 1)
	c := f.Classes[0]
	assert.Equal(t, "demo.Greeter", c.QualifiedName)
	assert.Equal(t, "Base", c.SuperName)
	assert.Equal(t, types.ClassDecl, c.Kind)
	assert.Equal(t, byte('{'), f.Content[c.BodyStart])
	assert.Equal(t, byte('}'), f.Content[c.BodyEnd])

	require.Len(t, c.Fields, 2)
	assert.Equal(t, "count", c.Fields[0].Name)
	assert.Equal(t, "42", c.Fields[0].InitLiteral)
	assert.False(t, c.Fields[0].Static)
	assert.Equal(t, "PREFIX", c.Fields[1].Name)
	assert.True(t, c.Fields[1].Static)
	assert.Equal(t, "String", c.Fields[1].Type)

	var kinds []types.MemberKind
	for _, m := range c.Members {
		kinds = append(kinds, m.Kind)
	}
	assert.Equal(t, []types.MemberKind{
		types.FieldMember, types.FieldMember, types.MethodMember, types.MethodMember, types.MethodMember,
	}, kinds)
	assert.Equal(t, "    ", c.Members[0].Indent)
}

func TestJavaParser_LiteralContext(t *testing.T) {
	p := NewParser(zap.NewNop())
	f, err := p.ParseSource("/src/demo/Greeter.java", []byte(greeterSrc))
	require.NoError(t, err)

	field := findLiteral(t, f, "42", 0)
	assert.Equal(t, "count", field.Field)
	assert.True(t, field.Context.Has(types.InFieldInit))
	assert.Equal(t, "int", field.Type)
	assert.Equal(t, "demo.Greeter", field.Class)

	local := findLiteral(t, f, `"Hello"`, 0)
	assert.True(t, local.Context.Has(types.LocalVarInit))
	assert.Equal(t, "greet", local.Method)
	assert.False(t, local.Static)

	printed := findLiteral(t, f, `"Hello"`, 1)
	assert.True(t, printed.Context.Has(types.InPrintCall))

	concat := findLiteral(t, f, `"Hello"`, 2)
	assert.True(t, concat.Context.Has(types.InConcatenation))
	assert.False(t, concat.Context.Has(types.LocalVarInit))

	static := findLiteral(t, f, "21", 0)
	assert.True(t, static.Static)
	assert.Equal(t, "twice", static.Method)

	ann := findLiteral(t, f, `"unchecked"`, 0)
	assert.True(t, ann.Context.Has(types.InAnnotation))

	label := findLiteral(t, f, "3", 0)
	assert.True(t, label.Context.Has(types.InCaseLabel))

	tern := findLiteral(t, f, "true", 0)
	assert.True(t, tern.Context.Has(types.InTernary))
	assert.Equal(t, types.BooleanLiteral, tern.Kind)

	assert.Equal(t, "long", findLiteral(t, f, "10L", 0).Type)
	assert.Equal(t, "double", findLiteral(t, f, "1.5", 0).Type)
	assert.Equal(t, "char", findLiteral(t, f, "'c'", 0).Type)
	assert.Equal(t, types.NullLiteral, findLiteral(t, f, "null", 0).Kind)

	lit := findLiteral(t, f, "21", 0)
	assert.Equal(t, "21", string(f.Content[lit.Start:lit.End]))
	assert.Equal(t, 18, lit.Line)
}

func TestJavaParser_InterfaceAndEnum(t *testing.T) {
	p := NewParser(zap.NewNop())

	f, err := p.ParseSource("/src/pkg/PkgConstantsIF.java", []byte("package pkg;\n\npublic interface PkgConstantsIF {\n    int ANSWER = 42;\n}\n"))
	require.NoError(t, err)
	require.Len(t, f.Classes, 1)
	iface := f.Classes[0]
	assert.True(t, iface.IsInterface())
	require.Len(t, iface.Fields, 1)
	assert.True(t, iface.Fields[0].Static)
	assert.True(t, findLiteral(t, f, "42", 0).Static)

	f, err = p.ParseSource("/src/pkg/Color.java", []byte("package pkg;\n\nenum Color {\n    RED(1), GREEN(2)\n}\n"))
	require.NoError(t, err)
	enum := f.Classes[0]
	assert.Equal(t, types.EnumDecl, enum.Kind)
	assert.True(t, enum.NeedsTerminator)
	one := findLiteral(t, f, "1", 0)
	assert.True(t, one.Context.Has(types.InEnumArgs))
	assert.True(t, one.Static)
}

func TestJavaParser_EnumConstantBody(t *testing.T) {
	src := `package pkg;

enum Op {
    PLUS(1) {
        int apply() { return 42; }
    };

    Op(int arity) {}

    abstract int apply();
}
`
	f, err := NewParser(zap.NewNop()).ParseSource("/src/pkg/Op.java", []byte(src))
	require.NoError(t, err)
	assert.True(t, findLiteral(t, f, "1", 0).Context.Has(types.InEnumArgs))
	body := findLiteral(t, f, "42", 0)
	assert.False(t, body.Context.Has(types.InEnumArgs))
	assert.Equal(t, "pkg.Op", body.Class)
}

func TestJavaParser_NestedStaticClass(t *testing.T) {
	src := `class Outer {
    class Inner {
        int a() { return 7; }
    }
    static class Nested {
        int b() { return 7; }
    }
}
`
	f, err := NewParser(zap.NewNop()).ParseSource("/src/Outer.java", []byte(src))
	require.NoError(t, err)
	assert.False(t, findLiteral(t, f, "7", 0).Static)
	assert.True(t, findLiteral(t, f, "7", 1).Static)
	assert.Equal(t, "Outer", findLiteral(t, f, "7", 1).Class)
}

func TestJavaParser_NestedDeclarations(t *testing.T) {
	src := `package p;

class Outer extends Base {
    static class In extends Base {
        class Deeper {
            int d() { return 3; }
        }
        int c() { return 2; }
    }
    int a() { return 1; }
}
`
	f, err := NewParser(zap.NewNop()).ParseSource("/src/p/Outer.java", []byte(src))
	require.NoError(t, err)
	require.Len(t, f.Classes, 1)
	require.Len(t, f.Nested, 2)

	in := f.Nested[0]
	assert.Equal(t, "p.Outer.In", in.QualifiedName)
	assert.Equal(t, "p.Outer", in.Outer)
	assert.Equal(t, "Base", in.SuperName)
	assert.True(t, in.IsNested())
	assert.False(t, f.Classes[0].IsNested())

	deeper := f.Nested[1]
	assert.Equal(t, "p.Outer.In.Deeper", deeper.QualifiedName)
	assert.Equal(t, "p.Outer.In", deeper.Outer)
	assert.Equal(t, "", deeper.SuperName)

	three := findLiteral(t, f, "3", 0)
	assert.Equal(t, "p.Outer", three.Class)
	assert.Equal(t, "p.Outer.In.Deeper", three.Nested)
	assert.Equal(t, "p.Outer.In", findLiteral(t, f, "2", 0).Nested)
	assert.Equal(t, "", findLiteral(t, f, "1", 0).Nested)
}

func TestJavaParser_ParseWorkspace(t *testing.T) {
	root := t.TempDir()
	writeJava(t, root, "src/main/java/pkg/A.java", "package pkg;\n\npublic class A {\n    int v() { return 42; }\n}\n")
	writeJava(t, root, "src/main/java/pkg/sub/B.java", "package pkg.sub;\n\nimport pkg.A;\n\npublic class B extends A {\n    int w() { return 42; }\n}\n")
	writeJava(t, root, "build/generated/G.java", "class G {}\n")
	writeJava(t, root, ".hidden/H.java", "class H {}\n")

	ws, err := NewParser(zap.NewNop()).ParseWorkspace(root)
	require.NoError(t, err)

	assert.Len(t, ws.Files, 2)
	b, ok := ws.Classes["pkg.sub.B"]
	require.True(t, ok)
	assert.Equal(t, "pkg.A", b.SuperQualName)
	assert.Equal(t, filepath.Join(ws.RootPath, "src", "main", "java"), b.Module)

	_, ok = ws.Packages["pkg.sub"]
	assert.True(t, ok)
}

func TestJavaParser_Reparse(t *testing.T) {
	root := t.TempDir()
	path := writeJava(t, root, "pkg/A.java", "package pkg;\n\nclass A {\n    int v() { return 42; }\n}\n")

	p := NewParser(zap.NewNop())
	ws, err := p.ParseWorkspace(root)
	require.NoError(t, err)

	f := ws.Files[path]
	lit := findLiteral(t, f, "42", 0)
	assert.False(t, ws.IsStale(lit))

	require.NoError(t, os.WriteFile(path, []byte("package pkg;\n\nclass A {\n    int v() { return 43; }\n}\n"), 0644))
	require.NoError(t, p.Reparse(ws, path))
	assert.True(t, ws.IsStale(lit))

	require.NoError(t, os.Remove(path))
	require.NoError(t, p.Reparse(ws, path))
	_, ok := ws.Files[path]
	assert.False(t, ok)
}

func TestJavaParser_ReadOnlyPattern(t *testing.T) {
	root := t.TempDir()
	writeJava(t, root, "lib/L.java", "class L {}\n")
	writeJava(t, root, "app/M.java", "class M extends L {}\n")

	p := NewParser(zap.NewNop())
	filter, err := NewPathFilter(nil, nil, []string{"lib/**"})
	require.NoError(t, err)
	p.SetFilter(filter)

	ws, err := p.ParseWorkspace(root)
	require.NoError(t, err)
	assert.False(t, ws.Files[filepath.Join(ws.RootPath, "lib", "L.java")].Writable)
	assert.True(t, ws.Files[filepath.Join(ws.RootPath, "app", "M.java")].Writable)
}
