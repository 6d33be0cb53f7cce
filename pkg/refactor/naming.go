package refactor

import (
	"strings"
	"unicode"

	"github.com/mamaar/constprop/pkg/types"
)

// DefaultFieldName is used when no name can be derived from a literal
const DefaultFieldName = "DEFAULT_FIELD_NAME"

// Substitution spells out one character sequence as a word
type Substitution struct {
	From string
	To   string
}

// NamingPolicy derives a constant name from a literal's text
type NamingPolicy struct {
	DefaultName string

	// first pass
	Substitutions []Substitution
	Stripped      string // removed outright
	Separators    string // become underscores

	// second pass, used when the first leaves nothing
	Fallback []Substitution
}

// DefaultNamingPolicy returns the standard character tables
func DefaultNamingPolicy() NamingPolicy {
	return NamingPolicy{
		DefaultName: DefaultFieldName,
		Substitutions: []Substitution{
			{";", "SEMICOLON"},
			{",", "COMMA"},
			{"'", "SINGLE_QUOTE"},
		},
		Stripped:   `"=*()`,
		Separators: " .",
		Fallback: []Substitution{
			{`\`, "SLASH"},
			{"=", "EQUALS"},
			{"*", "ASTERISK"},
			{"(", "OPEN_PARENTHESIS"},
			{")", "CLOSE_PARENTHESIS"},
		},
	}
}

// Derive returns the suggested constant name for lit. A nil literal, or
// one without a type, gets the default name.
func (p NamingPolicy) Derive(lit *types.Literal) string {
	def := p.DefaultName
	if def == "" {
		def = DefaultFieldName
	}
	if lit == nil || lit.Type == "" {
		return def
	}

	if lit.IsNumeric() {
		return strings.ToUpper(lit.Type) + "_" + sanitize(lit.Text)
	}

	name := p.firstPass(lit.Text)
	if name == "" {
		name = p.secondPass(lit.Text)
	}
	if name == "" {
		return def
	}
	if unicode.IsDigit(rune(name[0])) {
		name = "_" + name
	}
	return name
}

func (p NamingPolicy) firstPass(text string) string {
	s := text
	for _, sub := range p.Substitutions {
		s = strings.ReplaceAll(s, sub.From, "_"+sub.To+"_")
	}
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(p.Stripped, r) {
			return -1
		}
		if strings.ContainsRune(p.Separators, r) {
			return '_'
		}
		return r
	}, s)
	return finish(s)
}

func (p NamingPolicy) secondPass(text string) string {
	s := strings.ReplaceAll(text, `"`, "")
	for _, sub := range p.Fallback {
		s = strings.ReplaceAll(s, sub.From, "_"+sub.To+"_")
	}
	return finish(s)
}

// finish replaces invalid characters, collapses and trims underscores and uppercases
func finish(s string) string {
	s = sanitize(s)
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.ToUpper(strings.Trim(s, "_"))
}

// sanitize turns every character that cannot appear in a Java identifier into '_'
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if isIdentPart(r) {
			return r
		}
		return '_'
	}, s)
}

func isIdentPart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

var javaKeywords = map[string]bool{
	"abstract": true, "assert": true, "boolean": true, "break": true, "byte": true, "case": true,
	"catch": true, "char": true, "class": true, "const": true, "continue": true, "default": true,
	"do": true, "double": true, "else": true, "enum": true, "extends": true, "final": true,
	"finally": true, "float": true, "for": true, "goto": true, "if": true, "implements": true,
	"import": true, "instanceof": true, "int": true, "interface": true, "long": true, "native": true,
	"new": true, "package": true, "private": true, "protected": true, "public": true, "return": true,
	"short": true, "static": true, "strictfp": true, "super": true, "switch": true, "synchronized": true,
	"this": true, "throw": true, "throws": true, "transient": true, "try": true, "void": true,
	"volatile": true, "while": true, "true": true, "false": true, "null": true, "_": true,
}

// IsValidIdentifier reports whether name can be used as a Java field name
func IsValidIdentifier(name string) bool {
	if name == "" || javaKeywords[name] {
		return false
	}
	for i, r := range name {
		if i == 0 && unicode.IsDigit(r) {
			return false
		}
		if !isIdentPart(r) {
			return false
		}
	}
	return true
}
