package types

import (
	"fmt"
	"strings"
)

// ClassKind distinguishes the Java type declarations
type ClassKind int

const (
	ClassDecl ClassKind = iota
	InterfaceDecl
	EnumDecl
	RecordDecl
)

// String returns the string representation of a ClassKind
func (k ClassKind) String() string {
	switch k {
	case ClassDecl:
		return "class"
	case InterfaceDecl:
		return "interface"
	case EnumDecl:
		return "enum"
	case RecordDecl:
		return "record"
	default:
		return "unknown"
	}
}

// Class is a Java type declaration. Top-level classes carry their members;
// nested declarations are recorded for inheritance queries only, with their
// extent and superclass, and their members belong to the top-level class.
type Class struct {
	Name          string
	QualifiedName string
	Package       string
	Kind          ClassKind
	File          string
	Module        string // source root, used to keep hierarchy walks in one module
	Outer         string // qualified name of the enclosing declaration, "" at top level

	SuperName     string // superclass as written, "" if none
	SuperQualName string // superclass resolved against the workspace, "" if unresolved

	Start, End int // whole declaration
	BodyStart  int // offset of '{'
	BodyEnd    int // offset of '}'
	Line       int

	Fields  []*Field
	Members []Member // every member declaration in source order

	// enum constants not followed by ';'; a body declaration needs one first
	NeedsTerminator bool
}

// IsNested reports whether the class is declared inside another type
func (c *Class) IsNested() bool {
	return c.Outer != ""
}

// IsInterface reports whether members of the class are implicitly public static final
func (c *Class) IsInterface() bool {
	return c.Kind == InterfaceDecl
}

// Contains reports whether the byte offset lies inside the class body
func (c *Class) Contains(file string, offset int) bool {
	return c.File == file && offset > c.BodyStart && offset < c.BodyEnd
}

// FieldNamed returns the field with the given name
func (c *Class) FieldNamed(name string) (*Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// MemberAt returns the member whose extent holds the offset
func (c *Class) MemberAt(offset int) (Member, bool) {
	for _, m := range c.Members {
		if offset >= m.Start && offset < m.End {
			return m, true
		}
	}
	return Member{}, false
}

// MemberKind describes a class body declaration
type MemberKind int

const (
	FieldMember MemberKind = iota
	MethodMember
	ConstructorMember
	InitializerMember
	TypeMember
	EnumConstantMember
)

// Member is one declaration in a class body
type Member struct {
	Kind       MemberKind
	Name       string
	Start, End int
	LineStart  int // offset of the first byte of the line the member starts on
	Indent     string
	Static     bool
}

// Field is a field declaration. Multi-declarator fields produce one Field
// per declarator sharing the declaration extent.
type Field struct {
	Name    string
	Type    string
	Static  bool
	Final   bool
	Private bool

	Start, End int // declaration extent
	Line       int

	InitStart, InitEnd int    // initializer expression, both 0 when absent
	InitLiteral        string // set when the initializer is exactly one literal
	InitKind           LiteralKind
}

// HasLiteralInitializer reports whether the field is initialised with exactly one literal
func (f *Field) HasLiteralInitializer() bool {
	return f.InitLiteral != ""
}

// LiteralKind is the syntactic kind of a literal
type LiteralKind int

const (
	IntegerLiteral LiteralKind = iota
	FloatLiteral
	StringLiteral
	CharLiteral
	BooleanLiteral
	NullLiteral
	TextBlockLiteral
)

// String returns the string representation of a LiteralKind
func (k LiteralKind) String() string {
	switch k {
	case IntegerLiteral:
		return "integer"
	case FloatLiteral:
		return "float"
	case StringLiteral:
		return "string"
	case CharLiteral:
		return "char"
	case BooleanLiteral:
		return "boolean"
	case NullLiteral:
		return "null"
	case TextBlockLiteral:
		return "text_block"
	default:
		return "unknown"
	}
}

// Context flags describing where a literal sits syntactically
type Context uint16

const (
	InConcatenation Context = 1 << iota // operand of a '+' with a string on either side
	InTernary
	InPrintCall // argument of System.out/err.print*
	LocalVarInit
	InAnnotation
	InCaseLabel
	InFieldInit
	InEnumArgs
)

// Has reports whether all flags in c2 are set
func (c Context) Has(c2 Context) bool {
	return c&c2 == c2
}

// Literal references one literal expression in a file snapshot
type Literal struct {
	File    string
	Start   int
	End     int
	Line    int // 1-based
	Column  int // 1-based
	Text    string
	Kind    LiteralKind
	Type    string // int, long, float, double, char, boolean, String; "" for null
	Version int

	Package string
	Class   string // qualified name of the enclosing top-level class
	Nested  string // innermost enclosing nested declaration, "" if none
	Method  string // enclosing method or constructor, "" if none
	Field   string // enclosing field when the nearest declaration is a field initializer
	Static  bool   // in a static method, static initializer or static field
	Context Context
}

// Key identifies the literal by position within its file
func (l *Literal) Key() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Start, l.End)
}

// String returns a human readable location
func (l *Literal) String() string {
	return fmt.Sprintf("%s:%d:%d %s", l.File, l.Line, l.Column, l.Text)
}

// IsNumeric reports whether the literal has an exact numeric primitive type
func (l *Literal) IsNumeric() bool {
	switch l.Type {
	case "int", "long", "float", "double":
		return true
	}
	return false
}

// LiteralAt finds the literal that covers the 1-based line and column
func (f *File) LiteralAt(line, column int) (*Literal, bool) {
	for _, lit := range f.Literals {
		if lit.Line != line {
			continue
		}
		width := len(lit.Text)
		if i := strings.IndexByte(lit.Text, '\n'); i >= 0 {
			width = i
		}
		if column >= lit.Column && column <= lit.Column+width {
			return lit, true
		}
	}
	return nil, false
}

// LiteralAtOffset finds the literal whose byte range holds offset
func (f *File) LiteralAtOffset(offset int) (*Literal, bool) {
	for _, lit := range f.Literals {
		if offset >= lit.Start && offset <= lit.End {
			return lit, true
		}
	}
	return nil, false
}

// Anchor is the class member that encloses a group of occurrences
type Anchor struct {
	Class  string // qualified name of the top-level class
	File   string
	Member Member
}
