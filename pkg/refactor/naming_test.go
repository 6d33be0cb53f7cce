package refactor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mamaar/constprop/pkg/types"
)

func TestDeriveDefaultName(t *testing.T) {
	tests := []struct {
		name string
		typ  string
		kind types.LiteralKind
		text string
		want string
	}{
		{"int", "int", types.IntegerLiteral, "5", "INT_5"},
		{"long", "long", types.IntegerLiteral, "10L", "LONG_10L"},
		{"double", "double", types.FloatLiteral, "1.5", "DOUBLE_1_5"},
		{"hex", "int", types.IntegerLiteral, "0xFF", "INT_0xFF"},
		{"comma", "String", types.StringLiteral, `"a,b"`, "A_COMMA_B"},
		{"words", "String", types.StringLiteral, `"hello.world"`, "HELLO_WORLD"},
		{"semicolon", "String", types.StringLiteral, `"a;b"`, "A_SEMICOLON_B"},
		{"quote", "char", types.CharLiteral, `'x'`, "SINGLE_QUOTE_X_SINGLE_QUOTE"},
		{"stripped", "String", types.StringLiteral, `"(x)"`, "X"},
		{"second pass", "String", types.StringLiteral, `"=="`, "EQUALS_EQUALS"},
		{"leading digit", "String", types.StringLiteral, `"1st"`, "_1ST"},
		{"boolean", "boolean", types.BooleanLiteral, "true", "TRUE"},
		{"nothing left", "String", types.StringLiteral, `"---"`, DefaultFieldName},
	}

	policy := DefaultNamingPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &types.Literal{Text: tt.text, Type: tt.typ, Kind: tt.kind}
			assert.Equal(t, tt.want, policy.Derive(l))
			assert.Equal(t, tt.want, policy.Derive(l), "derivation must be deterministic")
		})
	}
}

func TestDeriveWithoutType(t *testing.T) {
	policy := DefaultNamingPolicy()
	assert.Equal(t, DefaultFieldName, policy.Derive(nil))
	assert.Equal(t, DefaultFieldName, policy.Derive(&types.Literal{Text: "null", Kind: types.NullLiteral}))

	policy.DefaultName = "CONST"
	assert.Equal(t, "CONST", policy.Derive(nil))
}

func TestIsValidIdentifier(t *testing.T) {
	assert.True(t, IsValidIdentifier("GREETING"))
	assert.True(t, IsValidIdentifier("_1ST"))
	assert.True(t, IsValidIdentifier("$x"))
	assert.False(t, IsValidIdentifier(""))
	assert.False(t, IsValidIdentifier("1ST"))
	assert.False(t, IsValidIdentifier("class"))
	assert.False(t, IsValidIdentifier("A-B"))
}
