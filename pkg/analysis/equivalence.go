package analysis

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/mamaar/constprop/pkg/types"
)

// Equivalent reports whether two literals denote the same constant: same
// kind, same type and same normalized value. 0x2A and 42 are equivalent,
// 42 and 42L are not.
func Equivalent(a, b *types.Literal) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Kind != b.Kind || a.Type != b.Type {
		return false
	}
	return NormalizedValue(a) == NormalizedValue(b)
}

// NormalizedValue returns a canonical spelling of a literal's value
func NormalizedValue(lit *types.Literal) string {
	return normalize(lit.Kind, lit.Text)
}

// EquivalentText compares a literal with raw literal text of the given kind,
// as found in a field initializer.
func EquivalentText(lit *types.Literal, kind types.LiteralKind, text string) bool {
	if lit == nil || lit.Kind != kind {
		return false
	}
	if literalType(kind, text) != lit.Type {
		return false
	}
	return NormalizedValue(lit) == normalize(kind, text)
}

func normalize(kind types.LiteralKind, text string) string {
	switch kind {
	case types.IntegerLiteral:
		return normalizeInt(text)
	case types.FloatLiteral:
		return normalizeFloat(text)
	case types.StringLiteral, types.CharLiteral:
		if v, ok := unquoteJava(text); ok {
			return v
		}
		return text
	default:
		return text
	}
}

func normalizeInt(text string) string {
	s := strings.ReplaceAll(text, "_", "")
	s = strings.TrimRight(s, "lL")
	lower := strings.ToLower(s)
	var (
		v   uint64
		err error
	)
	switch {
	case strings.HasPrefix(lower, "0x"):
		v, err = strconv.ParseUint(lower[2:], 16, 64)
	case strings.HasPrefix(lower, "0b"):
		v, err = strconv.ParseUint(lower[2:], 2, 64)
	case len(lower) > 1 && lower[0] == '0':
		v, err = strconv.ParseUint(lower[1:], 8, 64)
	default:
		v, err = strconv.ParseUint(lower, 10, 64)
	}
	if err != nil {
		return text
	}
	return strconv.FormatUint(v, 10)
}

func normalizeFloat(text string) string {
	s := strings.ReplaceAll(text, "_", "")
	// hex floats always have a decimal binary exponent, so the suffix is unambiguous
	lower := strings.TrimRight(strings.ToLower(s), "fd")
	v, err := strconv.ParseFloat(lower, 64)
	if err != nil {
		return text
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// unquoteJava decodes a Java string or character literal, including octal
// escapes, \s and unicode escapes written with several u's.
func unquoteJava(text string) (string, bool) {
	if len(text) < 2 {
		return "", false
	}
	q := text[0]
	if (q != '"' && q != '\'') || text[len(text)-1] != q {
		return "", false
	}
	body := text[1 : len(text)-1]

	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", false
		}
		switch e := body[i]; e {
		case 'b':
			b.WriteByte('\b')
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'f':
			b.WriteByte('\f')
		case 'r':
			b.WriteByte('\r')
		case 's':
			b.WriteByte(' ')
		case '"', '\'', '\\':
			b.WriteByte(e)
		case 'u':
			r, next, ok := unicodeEscape(body, i)
			if !ok {
				return "", false
			}
			if utf16.IsSurrogate(r) && next+1 < len(body) && body[next] == '\\' && body[next+1] == 'u' {
				if lo, after, ok := unicodeEscape(body, next+1); ok {
					if pair := utf16.DecodeRune(r, lo); pair != unicode.ReplacementChar {
						r, next = pair, after
					}
				}
			}
			b.WriteRune(r)
			i = next - 1
		default:
			if e < '0' || e > '7' {
				return "", false
			}
			// up to three octal digits, at most \377
			max := 2
			if e > '3' {
				max = 1
			}
			j := i + 1
			for j < len(body) && j-i <= max && body[j] >= '0' && body[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(body[i:j], 8, 8)
			b.WriteRune(rune(v))
			i = j - 1
		}
	}
	return b.String(), true
}

// unicodeEscape decodes the hex digits of a \uXXXX escape whose first u is
// at body[i] and returns the offset just past it
func unicodeEscape(body string, i int) (rune, int, bool) {
	for i+1 < len(body) && body[i+1] == 'u' {
		i++
	}
	if i+5 > len(body) {
		return 0, 0, false
	}
	v, err := strconv.ParseUint(body[i+1:i+5], 16, 16)
	if err != nil {
		return 0, 0, false
	}
	return rune(v), i + 5, true
}
