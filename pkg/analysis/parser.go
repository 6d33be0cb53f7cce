package analysis

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	"go.uber.org/zap"

	"github.com/mamaar/constprop/pkg/types"
)

// JavaParser turns Java sources into the workspace model
type JavaParser struct {
	language *sitter.Language
	logger   *zap.Logger
	filter   *PathFilter
}

func NewParser(logger *zap.Logger) *JavaParser {
	if logger == nil {
		logger = zap.NewNop()
	}
	filter, _ := NewPathFilter(DefaultInclude, DefaultIgnore, nil)
	return &JavaParser{
		language: sitter.NewLanguage(java.Language()),
		logger:   logger,
		filter:   filter,
	}
}

// SetFilter replaces the include/ignore/read-only policy
func (p *JavaParser) SetFilter(filter *PathFilter) {
	if filter != nil {
		p.filter = filter
	}
}

// Filter returns the active path policy
func (p *JavaParser) Filter() *PathFilter {
	return p.filter
}

// ParseFile reads and parses a single Java file
func (p *JavaParser) ParseFile(filename string) (*types.File, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("failed to read file: %v", err),
			File:    filename,
			Cause:   err,
		}
	}
	file, err := p.ParseSource(filename, content)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(filename); err == nil {
		file.Writable = info.Mode().Perm()&0o200 != 0
	}
	return file, nil
}

// ParseSource parses Java source text that belongs to path
func (p *JavaParser) ParseSource(path string, source []byte) (*types.File, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.language); err != nil {
		return nil, &types.RefactorError{
			Type:    types.ParseError,
			Message: fmt.Sprintf("failed to load java grammar: %v", err),
			File:    path,
			Cause:   err,
		}
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, &types.RefactorError{
			Type:    types.ParseError,
			Message: "failed to parse file",
			File:    path,
		}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		p.logger.Debug("java file has syntax errors, continuing with partial tree", zap.String("file", path))
	}

	b := &fileBuilder{
		source: source,
		file: &types.File{
			Path:     path,
			Content:  source,
			Writable: true,
		},
	}
	b.visitProgram(root)
	return b.file, nil
}

// ParseWorkspace parses every accepted Java file below rootPath.
// Directories are discovered sequentially, files are parsed by a bounded
// worker pool, then supertypes are linked.
func (p *JavaParser) ParseWorkspace(rootPath string) (*types.Workspace, error) {
	p.logger.Info("parsing workspace", zap.String("path", rootPath))

	absRootPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("failed to get absolute path for workspace: %v", err),
			File:    rootPath,
			Cause:   err,
		}
	}

	var paths []string
	err = filepath.WalkDir(absRootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(absRootPath, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			if path != absRootPath && p.filter.SkipDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if p.filter.Accept(rel) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		p.logger.Error("workspace discovery failed", zap.String("path", rootPath), zap.Error(err))
		return nil, &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("failed to walk workspace: %v", err),
			File:    rootPath,
			Cause:   err,
		}
	}
	sort.Strings(paths)
	p.logger.Debug("discovered java files", zap.Int("count", len(paths)))

	type fileResult struct {
		file *types.File
		err  error
	}
	results := make([]fileResult, len(paths))
	workers := runtime.NumCPU()
	if workers > len(paths) {
		workers = len(paths)
	}

	var wg sync.WaitGroup
	idxCh := make(chan int, len(paths))
	for i := range paths {
		idxCh <- i
	}
	close(idxCh)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range idxCh {
				f, err := p.ParseFile(paths[idx])
				results[idx] = fileResult{file: f, err: err}
			}
		}()
	}
	wg.Wait()

	ws := types.NewWorkspace(absRootPath)
	for i, res := range results {
		if res.err != nil {
			p.logger.Warn("skipping unparsable file", zap.String("file", paths[i]), zap.Error(res.err))
			continue
		}
		p.finishFile(ws, res.file)
		ws.AddFile(res.file)
	}
	Link(ws)

	p.logger.Info("workspace parsed", zap.String("root", absRootPath), zap.String("stats", ws.Stats()))
	return ws, nil
}

// Reparse re-reads one file into an existing workspace and relinks it.
// A missing file is removed.
func (p *JavaParser) Reparse(ws *types.Workspace, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		ws.RemoveFile(path)
		Link(ws)
		return nil
	}
	f, err := p.ParseFile(path)
	if err != nil {
		return err
	}
	p.finishFile(ws, f)
	ws.AddFile(f)
	Link(ws)
	return nil
}

// finishFile fills in the workspace-relative attributes of a parsed file
func (p *JavaParser) finishFile(ws *types.Workspace, f *types.File) {
	f.Module = moduleRoot(f.Path, f.Package)
	for _, c := range f.Classes {
		c.Module = f.Module
	}
	for _, c := range f.Nested {
		c.Module = f.Module
	}
	if rel, err := filepath.Rel(ws.RootPath, f.Path); err == nil && p.filter.ReadOnly(rel) {
		f.Writable = false
	}
	if old, ok := ws.Files[f.Path]; ok && f.Version <= old.Version {
		f.Version = old.Version + 1
	}
	for _, lit := range f.Literals {
		lit.Version = f.Version
	}
}

// moduleRoot strips the package directories from the file's directory
func moduleRoot(path, pkg string) string {
	dir := filepath.Dir(path)
	if pkg == "" {
		return dir
	}
	suffix := string(filepath.Separator) + strings.ReplaceAll(pkg, ".", string(filepath.Separator))
	if strings.HasSuffix(dir, suffix) {
		return strings.TrimSuffix(dir, suffix)
	}
	return dir
}

var literalKinds = map[string]types.LiteralKind{
	"decimal_integer_literal":        types.IntegerLiteral,
	"hex_integer_literal":            types.IntegerLiteral,
	"octal_integer_literal":          types.IntegerLiteral,
	"binary_integer_literal":         types.IntegerLiteral,
	"decimal_floating_point_literal": types.FloatLiteral,
	"hex_floating_point_literal":     types.FloatLiteral,
	"string_literal":                 types.StringLiteral,
	"character_literal":              types.CharLiteral,
	"true":                           types.BooleanLiteral,
	"false":                          types.BooleanLiteral,
	"null_literal":                   types.NullLiteral,
}

var typeDeclKinds = map[string]types.ClassKind{
	"class_declaration":           types.ClassDecl,
	"interface_declaration":       types.InterfaceDecl,
	"annotation_type_declaration": types.InterfaceDecl,
	"enum_declaration":            types.EnumDecl,
	"record_declaration":          types.RecordDecl,
}

var printCall = regexp.MustCompile(`^System.*print.*$`)

// fileBuilder accumulates one file's model during a single tree walk
type fileBuilder struct {
	source []byte
	file   *types.File
	class  *types.Class
	nest   []*types.Class // nested declarations enclosing the walk position
}

// walkState is what a literal inherits from its ancestors
type walkState struct {
	method      string
	field       string
	static      bool
	inInterface bool
	fieldInit   bool
}

func (b *fileBuilder) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(b.source[n.StartByte():n.EndByte()])
}

func (b *fileBuilder) visitProgram(root *sitter.Node) {
	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		switch child.Kind() {
		case "package_declaration":
			name := findChildByKind(child, "scoped_identifier")
			if name == nil {
				name = findChildByKind(child, "identifier")
			}
			b.file.Package = b.text(name)
			b.file.PackageDeclEnd = lineEnd(b.source, int(child.EndByte()))
		case "import_declaration":
			b.visitImport(child)
		default:
			if kind, ok := typeDeclKinds[child.Kind()]; ok {
				b.visitTopLevel(child, kind)
			}
		}
	}
}

func (b *fileBuilder) visitImport(n *sitter.Node) {
	imp := types.Import{
		Start: int(n.StartByte()),
		End:   lineEnd(b.source, int(n.EndByte())),
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		switch child.Kind() {
		case "static":
			imp.Static = true
		case "scoped_identifier", "identifier":
			imp.Path = b.text(child)
		case "asterisk":
			imp.Path += ".*"
		}
	}
	b.file.Imports = append(b.file.Imports, imp)
}

func (b *fileBuilder) visitTopLevel(n *sitter.Node, kind types.ClassKind) {
	name := b.text(n.ChildByFieldName("name"))
	if name == "" {
		return
	}
	qn := name
	if b.file.Package != "" {
		qn = b.file.Package + "." + name
	}
	class := &types.Class{
		Name:          name,
		QualifiedName: qn,
		Package:       b.file.Package,
		Kind:          kind,
		File:          b.file.Path,
		Start:         int(n.StartByte()),
		End:           int(n.EndByte()),
		Line:          int(n.StartPosition().Row) + 1,
	}
	if kind == types.ClassDecl {
		class.SuperName = b.superName(n)
	}

	body := n.ChildByFieldName("body")
	if body != nil {
		class.BodyStart = int(body.StartByte())
		class.BodyEnd = int(body.EndByte()) - 1
		b.collectMembers(class, body)
	}
	b.file.Classes = append(b.file.Classes, class)

	b.class = class
	st := walkState{inInterface: kind == types.InterfaceDecl}
	for i := uint(0); i < n.ChildCount(); i++ {
		b.walk(n.Child(i), st)
	}
	b.class = nil
}

// visitNested records a type declared inside another one. Only its extent
// and superclass are kept, so that hierarchy queries can find it.
func (b *fileBuilder) visitNested(n *sitter.Node, kind types.ClassKind) *types.Class {
	name := b.text(n.ChildByFieldName("name"))
	if name == "" || b.class == nil {
		return nil
	}
	outer := b.class.QualifiedName
	if len(b.nest) > 0 {
		outer = b.nest[len(b.nest)-1].QualifiedName
	}
	class := &types.Class{
		Name:          name,
		QualifiedName: outer + "." + name,
		Package:       b.file.Package,
		Kind:          kind,
		File:          b.file.Path,
		Outer:         outer,
		Start:         int(n.StartByte()),
		End:           int(n.EndByte()),
		Line:          int(n.StartPosition().Row) + 1,
	}
	if kind == types.ClassDecl {
		class.SuperName = b.superName(n)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		class.BodyStart = int(body.StartByte())
		class.BodyEnd = int(body.EndByte()) - 1
	}
	b.file.Nested = append(b.file.Nested, class)
	return class
}

func (b *fileBuilder) superName(n *sitter.Node) string {
	sc := n.ChildByFieldName("superclass")
	if sc == nil {
		return ""
	}
	return stripTypeArgs(strings.TrimSpace(strings.TrimPrefix(b.text(sc), "extends")))
}

// collectMembers records the body declarations of a top-level class
func (b *fileBuilder) collectMembers(class *types.Class, body *sitter.Node) {
	leadStart := -1
	sawConstant := false
	sawDecls := false

	var visit func(container *sitter.Node)
	visit = func(container *sitter.Node) {
		for i := uint(0); i < container.ChildCount(); i++ {
			child := container.Child(i)
			kind := child.Kind()
			if kind == "line_comment" || kind == "block_comment" {
				if leadStart < 0 {
					leadStart = int(child.StartByte())
				}
				continue
			}
			if kind == "enum_body_declarations" {
				sawDecls = true
				visit(child)
				continue
			}
			if !child.IsNamed() {
				leadStart = -1
				continue
			}

			m := types.Member{
				Start:  int(child.StartByte()),
				End:    int(child.EndByte()),
				Static: hasModifier(child, "static"),
			}
			start := m.Start
			if leadStart >= 0 {
				start = leadStart
			}
			m.LineStart, m.Indent = lineStart(b.source, start)
			leadStart = -1

			switch kind {
			case "field_declaration", "constant_declaration":
				m.Kind = types.FieldMember
				b.collectFields(class, child, kind == "constant_declaration" || class.IsInterface())
			case "method_declaration":
				m.Kind = types.MethodMember
				m.Name = b.text(child.ChildByFieldName("name"))
			case "constructor_declaration", "compact_constructor_declaration":
				m.Kind = types.ConstructorMember
				m.Name = b.text(child.ChildByFieldName("name"))
			case "static_initializer", "block":
				m.Kind = types.InitializerMember
				m.Static = kind == "static_initializer"
			case "enum_constant":
				m.Kind = types.EnumConstantMember
				m.Name = b.text(child.ChildByFieldName("name"))
				sawConstant = true
			default:
				if _, ok := typeDeclKinds[kind]; !ok {
					continue
				}
				m.Kind = types.TypeMember
				m.Name = b.text(child.ChildByFieldName("name"))
			}
			if m.Name == "" && m.Kind == types.FieldMember && len(class.Fields) > 0 {
				m.Name = class.Fields[len(class.Fields)-1].Name
			}
			class.Members = append(class.Members, m)
		}
	}
	visit(body)

	if class.Kind == types.EnumDecl && sawConstant && !sawDecls {
		class.NeedsTerminator = true
	}
}

func (b *fileBuilder) collectFields(class *types.Class, decl *sitter.Node, implicitStatic bool) {
	typ := b.text(decl.ChildByFieldName("type"))
	static := implicitStatic || hasModifier(decl, "static")
	final := implicitStatic || hasModifier(decl, "final")

	for i := uint(0); i < decl.ChildCount(); i++ {
		child := decl.Child(i)
		if child.Kind() != "variable_declarator" {
			continue
		}
		f := &types.Field{
			Name:    b.text(child.ChildByFieldName("name")),
			Type:    typ,
			Static:  static,
			Final:   final,
			Private: hasModifier(decl, "private"),
			Start:   int(decl.StartByte()),
			End:     int(decl.EndByte()),
			Line:    int(decl.StartPosition().Row) + 1,
		}
		if value := child.ChildByFieldName("value"); value != nil {
			f.InitStart = int(value.StartByte())
			f.InitEnd = int(value.EndByte())
			if kind, ok := literalKinds[value.Kind()]; ok && value.IsNamed() {
				f.InitLiteral = b.text(value)
				f.InitKind = kind
				if kind == types.StringLiteral && strings.HasPrefix(f.InitLiteral, `"""`) {
					f.InitKind = types.TextBlockLiteral
				}
			}
		}
		class.Fields = append(class.Fields, f)
	}
}

// walk descends through a top-level declaration collecting literals
func (b *fileBuilder) walk(n *sitter.Node, st walkState) {
	if n == nil {
		return
	}
	kind := n.Kind()

	if lk, ok := literalKinds[kind]; ok && n.IsNamed() {
		b.addLiteral(n, lk, st)
		return
	}

	switch kind {
	case "class_declaration", "interface_declaration", "annotation_type_declaration",
		"enum_declaration", "record_declaration":
		// nested types other than inner classes have no enclosing instance
		inner := walkState{
			static:      st.static || st.inInterface || kind != "class_declaration" || hasModifier(n, "static"),
			inInterface: kind == "interface_declaration" || kind == "annotation_type_declaration",
		}
		nested := b.visitNested(n, typeDeclKinds[kind])
		if nested != nil {
			b.nest = append(b.nest, nested)
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			b.walk(n.Child(i), inner)
		}
		if nested != nil {
			b.nest = b.nest[:len(b.nest)-1]
		}
		return
	case "field_declaration", "constant_declaration":
		static := st.static || st.inInterface || kind == "constant_declaration" || hasModifier(n, "static")
		for i := uint(0); i < n.ChildCount(); i++ {
			child := n.Child(i)
			if child.Kind() != "variable_declarator" {
				b.walk(child, walkState{static: static, inInterface: st.inInterface})
				continue
			}
			fs := walkState{
				field:       b.text(child.ChildByFieldName("name")),
				static:      static,
				inInterface: st.inInterface,
				fieldInit:   true,
			}
			b.walk(child, fs)
		}
		return
	case "method_declaration", "constructor_declaration", "compact_constructor_declaration":
		name := b.text(n.ChildByFieldName("name"))
		if name == "" {
			name = "<init>"
		}
		st = walkState{
			method:      name,
			static:      st.static || hasModifier(n, "static"),
			inInterface: st.inInterface,
		}
	case "static_initializer":
		st = walkState{method: "<clinit>", static: true, inInterface: st.inInterface}
	case "enum_constant":
		st = walkState{static: true, inInterface: st.inInterface}
	}

	for i := uint(0); i < n.ChildCount(); i++ {
		b.walk(n.Child(i), st)
	}
}

func (b *fileBuilder) addLiteral(n *sitter.Node, kind types.LiteralKind, st walkState) {
	text := b.text(n)
	pos := n.StartPosition()
	lit := &types.Literal{
		File:    b.file.Path,
		Start:   int(n.StartByte()),
		End:     int(n.EndByte()),
		Line:    int(pos.Row) + 1,
		Column:  int(pos.Column) + 1,
		Text:    text,
		Kind:    kind,
		Type:    literalType(kind, text),
		Package: b.file.Package,
		Method:  st.method,
		Field:   st.field,
		Static:  st.static,
	}
	if kind == types.StringLiteral && strings.HasPrefix(text, `"""`) {
		lit.Kind = types.TextBlockLiteral
	}
	if b.class != nil {
		lit.Class = b.class.QualifiedName
	}
	if len(b.nest) > 0 {
		lit.Nested = b.nest[len(b.nest)-1].QualifiedName
	}
	if st.fieldInit {
		lit.Context |= types.InFieldInit
	}
	lit.Context |= b.contextOf(n)
	b.file.Literals = append(b.file.Literals, lit)
}

// contextOf inspects the ancestors of a literal node
func (b *fileBuilder) contextOf(n *sitter.Node) types.Context {
	var ctx types.Context
	parent := n.Parent()
	if parent == nil {
		return ctx
	}

	switch parent.Kind() {
	case "binary_expression":
		if op := parent.ChildByFieldName("operator"); op != nil && b.text(op) == "+" {
			ctx |= types.InConcatenation
		}
	case "ternary_expression":
		ctx |= types.InTernary
	case "variable_declarator":
		if gp := parent.Parent(); gp != nil && gp.Kind() == "local_variable_declaration" {
			if v := parent.ChildByFieldName("value"); v != nil && v.StartByte() == n.StartByte() {
				ctx |= types.LocalVarInit
			}
		}
	}

	sawCall, sawBody := false, false
	for p := parent; p != nil; p = p.Parent() {
		switch p.Kind() {
		case "method_invocation":
			if !sawCall {
				sawCall = true
				if printCall.MatchString(b.text(p)) {
					ctx |= types.InPrintCall
				}
			}
		case "annotation", "marker_annotation", "element_value_pair", "annotation_argument_list":
			ctx |= types.InAnnotation
		case "switch_label":
			ctx |= types.InCaseLabel
		case "class_body":
			sawBody = true
		case "enum_constant":
			// a constant's own class body is ordinary code
			if !sawBody {
				ctx |= types.InEnumArgs
			}
		case "program":
			return ctx
		}
	}
	return ctx
}

// literalType returns the Java type of a literal from its kind and suffix
func literalType(kind types.LiteralKind, text string) string {
	switch kind {
	case types.IntegerLiteral:
		if strings.HasSuffix(text, "l") || strings.HasSuffix(text, "L") {
			return "long"
		}
		return "int"
	case types.FloatLiteral:
		if strings.HasSuffix(text, "f") || strings.HasSuffix(text, "F") {
			return "float"
		}
		return "double"
	case types.StringLiteral, types.TextBlockLiteral:
		return "String"
	case types.CharLiteral:
		return "char"
	case types.BooleanLiteral:
		return "boolean"
	default:
		return ""
	}
}

func hasModifier(n *sitter.Node, modifier string) bool {
	mods := findChildByKind(n, "modifiers")
	if mods == nil {
		return false
	}
	for i := uint(0); i < mods.ChildCount(); i++ {
		if mods.Child(i).Kind() == modifier {
			return true
		}
	}
	return false
}

func findChildByKind(n *sitter.Node, kind string) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if child := n.Child(i); child.Kind() == kind {
			return child
		}
	}
	return nil
}

// stripTypeArgs turns "Base<String>" into "Base"
func stripTypeArgs(name string) string {
	if i := strings.IndexByte(name, '<'); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

// lineEnd returns the offset just past the newline that ends the line holding offset
func lineEnd(src []byte, offset int) int {
	for i := offset; i < len(src); i++ {
		if src[i] == '\n' {
			return i + 1
		}
	}
	return len(src)
}

// lineStart returns the start of the line holding offset and the
// whitespace before offset on that line ("" if other text precedes it)
func lineStart(src []byte, offset int) (int, string) {
	i := offset
	for i > 0 && src[i-1] != '\n' {
		i--
	}
	indent := string(src[i:offset])
	if strings.TrimLeft(indent, " \t") != "" {
		return offset, ""
	}
	return i, indent
}
