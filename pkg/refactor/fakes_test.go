package refactor

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mamaar/constprop/pkg/analysis"
	"github.com/mamaar/constprop/pkg/types"
)

// fakeHost answers structural queries from canned tables
type fakeHost struct {
	classes     map[string]*types.Class
	packages    map[string]*types.Package
	files       map[string]*types.File
	readonly    map[string]bool
	stale       map[string]bool
	occurrences map[types.Root][]*types.Literal
	queries     []types.Root
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		classes:     make(map[string]*types.Class),
		packages:    make(map[string]*types.Package),
		files:       make(map[string]*types.File),
		readonly:    make(map[string]bool),
		stale:       make(map[string]bool),
		occurrences: make(map[types.Root][]*types.Literal),
	}
}

func (h *fakeHost) addClass(qn, super, module string) *types.Class {
	pkg, name := "", qn
	if i := strings.LastIndex(qn, "."); i >= 0 {
		pkg, name = qn[:i], qn[i+1:]
	}
	c := &types.Class{Name: name, QualifiedName: qn, Package: pkg, SuperQualName: super, Module: module}
	h.classes[qn] = c
	h.addPackage(pkg)
	return c
}

func (h *fakeHost) addPackage(name string) *types.Package {
	if p, ok := h.packages[name]; ok {
		return p
	}
	p := &types.Package{Name: name}
	h.packages[name] = p
	return p
}

func (h *fakeHost) LookupClass(qn string) (*types.Class, bool) {
	c, ok := h.classes[qn]
	return c, ok
}

func (h *fakeHost) Superclass(c *types.Class) (*types.Class, bool) {
	sup, ok := h.classes[c.SuperQualName]
	return sup, ok
}

func (h *fakeHost) IsWritable(c *types.Class) bool {
	return !h.readonly[c.QualifiedName]
}

func (h *fakeHost) FindSubtypesOf(c *types.Class, module string) []*types.Class {
	var out []*types.Class
	seen := map[string]bool{c.QualifiedName: true}
	queue := []string{c.QualifiedName}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, cls := range h.classes {
			if cls.SuperQualName != name || seen[cls.QualifiedName] {
				continue
			}
			seen[cls.QualifiedName] = true
			queue = append(queue, cls.QualifiedName)
			if module == "" || cls.Module == module {
				out = append(out, cls)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QualifiedName < out[j].QualifiedName })
	return out
}

func (h *fakeHost) LookupPackage(name string) (*types.Package, bool) {
	p, ok := h.packages[name]
	return p, ok
}

func (h *fakeHost) FindSubpackagesOf(pkg *types.Package) []*types.Package {
	var out []*types.Package
	for name, p := range h.packages {
		rest, ok := strings.CutPrefix(name, pkg.Name+".")
		if ok && pkg.Name != "" && !strings.Contains(rest, ".") {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (h *fakeHost) FindOccurrencesOf(lit *types.Literal, root types.Root) ([]*types.Literal, error) {
	h.queries = append(h.queries, root)
	if h.stale[lit.Key()] {
		return nil, types.NewStaleError(lit)
	}
	return h.occurrences[root], nil
}

func (h *fakeHost) AnchorFor(sites []*types.Literal) (types.Anchor, bool) {
	return types.Anchor{}, false
}

func (h *fakeHost) LookupFile(path string) (*types.File, bool) {
	f, ok := h.files[path]
	return f, ok
}

func (h *fakeHost) IsStale(lit *types.Literal) bool {
	return lit == nil || h.stale[lit.Key()]
}

func lit(file string, start int, text, class string) *types.Literal {
	return &types.Literal{
		File:  file,
		Start: start,
		End:   start + len(text),
		Text:  text,
		Kind:  types.IntegerLiteral,
		Type:  "int",
		Class: class,
	}
}

// indexHost is a parsed workspace whose staleness can be forced per literal
type indexHost struct {
	*analysis.Index
	stale map[string]bool
}

func (h *indexHost) IsStale(lit *types.Literal) bool {
	return h.stale[lit.Key()] || h.Index.IsStale(lit)
}

// writeTree writes files relative to a temp root and returns the root
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

// parseTree writes and parses a Java tree
func parseTree(t *testing.T, files map[string]string) (string, *indexHost) {
	t.Helper()
	return parseTreeAt(t, writeTree(t, files))
}

func parseTreeAt(t *testing.T, root string) (string, *indexHost) {
	t.Helper()
	ws, err := analysis.NewParser(zap.NewNop()).ParseWorkspace(root)
	require.NoError(t, err)
	return root, &indexHost{Index: analysis.NewIndex(ws), stale: map[string]bool{}}
}

// findLiteral returns the n-th literal with the given text in a file
func findLiteral(t *testing.T, ws *types.Workspace, path, text string, n int) *types.Literal {
	t.Helper()
	f, ok := ws.LookupFile(path)
	require.True(t, ok, "file %s not loaded", path)
	for _, l := range f.Literals {
		if l.Text == text {
			if n == 0 {
				return l
			}
			n--
		}
	}
	t.Fatalf("literal %s not found in %s", text, path)
	return nil
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
